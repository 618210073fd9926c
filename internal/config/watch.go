package config

import (
	"encoding/json"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Namespaces whose changes are allowed to trigger a server restart.
// Edits outside these (format, quiet, ...) are presentation-only.
var restartNamespaces = []string{"server", "environment", "debug", "heartbeat"}

// Watcher emits a notification whenever a restart-relevant settings
// namespace changes on disk. Changes to other keys are swallowed.
type Watcher struct {
	v       *viper.Viper
	prints  map[string]string
	changes chan string
}

// Watch starts watching the discovered config file for changes.
// The returned Watcher's Changes channel carries the namespace that
// changed. Returns an error if no config file was ever found.
func Watch() (*Watcher, error) {
	_, v, err := loadViper()
	if err != nil {
		return nil, err
	}
	if v.ConfigFileUsed() == "" {
		return nil, fmt.Errorf("no config file to watch")
	}

	w := &Watcher{
		v:       v,
		prints:  map[string]string{},
		changes: make(chan string, 4),
	}
	for _, ns := range restartNamespaces {
		w.prints[ns] = fingerprint(v, ns)
	}

	v.OnConfigChange(func(fsnotify.Event) { w.recheck() })
	v.WatchConfig()
	return w, nil
}

// Changes returns the stream of changed namespace names.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

func (w *Watcher) recheck() {
	for _, ns := range restartNamespaces {
		fp := fingerprint(w.v, ns)
		if fp == w.prints[ns] {
			continue
		}
		w.prints[ns] = fp
		select {
		case w.changes <- ns:
		default:
			// Consumer is behind; the pending notification already
			// covers this change.
		}
	}
}

func fingerprint(v *viper.Viper, namespace string) string {
	sub := v.Sub(namespace)
	if sub == nil {
		return ""
	}
	b, err := json.Marshal(sub.AllSettings())
	if err != nil {
		return ""
	}
	return string(b)
}
