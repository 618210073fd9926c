package environment

import (
	"context"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes under the environment root (interpreter
// swapped, virtualenv rebuilt) as notifications on a channel. It only
// observes; acting on a change belongs to the restart aggregator.
type Watcher struct {
	fs      *fsnotify.Watcher
	changes chan string
}

// NewWatcher watches path for changes. The path is typically the
// directory holding the active runtime's executable.
func NewWatcher(path string) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(path); err != nil {
		fs.Close()
		return nil, err
	}
	return &Watcher{fs: fs, changes: make(chan string, 1)}, nil
}

// Changes returns the stream of changed paths.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Run forwards filesystem events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case w.changes <- ev.Name:
			default:
				// A pending notification already covers this change.
			}
		case _, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
		}
	}
}
