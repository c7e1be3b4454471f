package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vaultmcp/vaultmcp/internal/extract"
)

// Watcher observes a vault folder recursively through fsnotify and emits
// debounced batches of file events, filtered to indexable files.
type Watcher struct {
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	errors    chan error
	log       *slog.Logger
	root      string

	mu      sync.Mutex
	stopped bool
}

// New creates a Watcher.
func New(opts Options, log *slog.Logger) (*Watcher, error) {
	opts = opts.WithDefaults()
	if log == nil {
		log = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{
		fsw:       fsw,
		debouncer: NewDebouncer(opts.DebounceWindow, opts.EventBufferSize),
		errors:    make(chan error, 10),
		log:       log,
	}, nil
}

// Start watches root and every subdirectory, blocking until the context is
// cancelled or Stop is called. Directories created later are added to the
// watch as they appear.
func (w *Watcher) Start(ctx context.Context, root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve watch root: %w", err)
	}
	w.root = absRoot

	if err := w.addRecursive(absRoot); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	w.log.Info("watching vault", slog.String("root", absRoot))

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// Events returns the channel of debounced event batches.
func (w *Watcher) Events() <-chan []FileEvent {
	return w.debouncer.Output()
}

// Errors returns non-fatal watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop stops the watcher. Safe to call multiple times.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	w.fsw.Close()
	w.debouncer.Stop()
}

func (w *Watcher) handle(event fsnotify.Event) {
	name := filepath.Base(event.Name)

	// A new directory must be added to the watch before its contents
	// start changing.
	if event.Op.Has(fsnotify.Create) {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if !extract.SkipDir(name) {
				if err := w.addRecursive(event.Name); err != nil {
					w.log.Warn("failed to watch new directory",
						slog.String("path", event.Name),
						slog.String("error", err.Error()))
				}
			}
			return
		}
	}

	if !extract.IndexablePath(event.Name) {
		return
	}

	var op Operation
	switch {
	case event.Op.Has(fsnotify.Create):
		op = OpCreate
	case event.Op.Has(fsnotify.Write):
		op = OpModify
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		op = OpDelete
	default:
		return
	}

	w.debouncer.Add(FileEvent{
		Path:      event.Name,
		Operation: op,
		Timestamp: time.Now(),
	})
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && extract.SkipDir(d.Name()) {
			return fs.SkipDir
		}
		return w.fsw.Add(path)
	})
}
