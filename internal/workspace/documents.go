package workspace

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// DocumentWatcher signals once, when the first document matching the
// configured globs shows up in the workspace. It drives the lazy
// initial start of the analysis server.
type DocumentWatcher struct {
	root   string
	globs  []string
	opened chan string
}

// NewDocumentWatcher watches root for documents matching globs
// (matched against the base name, e.g. "*.codex").
func NewDocumentWatcher(root string, globs []string) *DocumentWatcher {
	return &DocumentWatcher{
		root:   root,
		globs:  globs,
		opened: make(chan string, 1),
	}
}

// Opened delivers at most one path: the first matching document.
func (d *DocumentWatcher) Opened() <-chan string {
	return d.opened
}

// Run watches until a document matches or the context is cancelled.
// Documents already present count as opened.
func (d *DocumentWatcher) Run(ctx context.Context) error {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fs.Close()
	if err := fs.Add(d.root); err != nil {
		return err
	}

	// A matching document may predate the watch.
	for _, glob := range d.globs {
		matches, err := filepath.Glob(filepath.Join(d.root, glob))
		if err == nil && len(matches) > 0 {
			d.opened <- matches[0]
			return nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fs.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if d.matches(ev.Name) {
				d.opened <- ev.Name
				return nil
			}
		case _, ok := <-fs.Errors:
			if !ok {
				return nil
			}
		}
	}
}

func (d *DocumentWatcher) matches(path string) bool {
	base := filepath.Base(path)
	for _, glob := range d.globs {
		if ok, err := filepath.Match(glob, base); err == nil && ok {
			return true
		}
	}
	return false
}
