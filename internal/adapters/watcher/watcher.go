// Package watcher provides file system watching for definition hot-reload.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event represents a file system event.
type Event struct {
	Path      string
	Operation Operation
}

// Operation represents the type of file operation.
type Operation int

// File operation types.
const (
	OpCreate Operation = iota
	OpModify
	OpDelete
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Handler is called when a relevant file event occurs.
type Handler func(ctx context.Context, event Event) error

// pendingEvent is an event waiting for its path to go quiet.
type pendingEvent struct {
	op    Operation
	timer *time.Timer
}

// sidecars are files SQLite writes next to a database. Changes to them are
// reported as changes to the database itself.
var sidecars = []string{"-wal", "-journal", "-shm"}

// Watcher watches definition files and directories for changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	handler   Handler
	logger    *slog.Logger
	paths     []string
	filter    func(path string) bool
	debounce  time.Duration

	mu      sync.Mutex
	ctx     context.Context
	pending map[string]*pendingEvent

	// Single files are watched through their parent directory, since editors and
	// tools often replace a file instead of writing it in place.
	files    map[string]bool
	fileDirs map[string]bool
}

// Config holds watcher configuration.
type Config struct {
	// Paths are files or directories. Directories are watched recursively.
	Paths []string
	// Filter selects relevant files inside watched directories. Nil accepts all.
	Filter   func(path string) bool
	Debounce time.Duration
}

// New creates a new file watcher.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg.Debounce == 0 {
		cfg.Debounce = 500 * time.Millisecond
	}

	if cfg.Filter == nil {
		cfg.Filter = func(string) bool { return true }
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		handler:   handler,
		logger:    logger,
		paths:     cfg.Paths,
		filter:    cfg.Filter,
		debounce:  cfg.Debounce,
		ctx:       context.Background(),
		pending:   make(map[string]*pendingEvent),
		files:     make(map[string]bool),
		fileDirs:  make(map[string]bool),
	}, nil
}

// Start starts watching the configured paths. Handlers run with ctx.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	for _, path := range w.paths {
		if err := w.AddPath(path); err != nil {
			w.logger.Warn("failed to watch path", "path", path, "error", err)
		}
	}

	go w.eventLoop(ctx)
	return nil
}

// Stop stops the watcher and drops events that have not fired yet.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	return w.fsWatcher.Close()
}

// eventLoop processes fsnotify events.
func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// handleFsEvent processes a single fsnotify event.
func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Create) && w.isNewDirectory(event.Name) {
		if err := w.watchTree(event.Name); err != nil {
			w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
		}
		return
	}

	path, ok := w.relevant(event.Name)
	if !ok {
		return
	}

	w.logger.Debug("file event", "path", event.Name, "op", event.Op.String())
	w.schedule(path, fsnotifyOpToOperation(event.Op))
}

// schedule queues an event for path and restarts its debounce timer.
func (w *Watcher) schedule(path string, op Operation) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if existing, ok := w.pending[path]; ok {
		w.updatePendingEvent(existing, op)
		existing.timer.Reset(w.debounce)
		return
	}

	w.pending[path] = &pendingEvent{
		op:    op,
		timer: time.AfterFunc(w.debounce, func() { w.fire(path) }),
	}
}

// updatePendingEvent merges a new operation into a pending event.
func (w *Watcher) updatePendingEvent(existing *pendingEvent, newOp Operation) {
	switch {
	case existing.op == OpDelete && newOp == OpCreate:
		// Replaced files show up as delete followed by create.
		existing.op = OpCreate
	case newOp == OpDelete:
		existing.op = OpDelete
	}
}

// fire runs the handler for a path whose debounce period has elapsed.
func (w *Watcher) fire(path string) {
	w.mu.Lock()
	pending, ok := w.pending[path]
	if ok {
		delete(w.pending, path)
	}
	ctx := w.ctx
	w.mu.Unlock()

	if !ok || ctx.Err() != nil {
		return
	}

	event := Event{Path: path, Operation: pending.op}
	w.logger.Info("processing file event", "path", path, "operation", event.Operation.String())

	if err := w.handler(ctx, event); err != nil {
		w.logger.Error("handler error",
			"path", path,
			"operation", event.Operation.String(),
			"error", err,
		)
	}
}

// fsnotifyOpToOperation converts fsnotify.Op to our Operation type.
func fsnotifyOpToOperation(op fsnotify.Op) Operation {
	switch {
	case op.Has(fsnotify.Remove):
		return OpDelete
	case op.Has(fsnotify.Rename):
		// Rename is treated as delete (the file is gone from original location)
		return OpDelete
	case op.Has(fsnotify.Create):
		return OpCreate
	default:
		// Write, Chmod, etc. are treated as modify
		return OpModify
	}
}

// relevant maps an event path to the watched path it affects. Events in the
// parent directory of a watched file only count for that file or its SQLite
// sidecars.
func (w *Watcher) relevant(path string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.files[path] {
		return path, true
	}
	for _, suffix := range sidecars {
		if base, ok := strings.CutSuffix(path, suffix); ok && w.files[base] {
			return base, true
		}
	}
	if w.fileDirs[filepath.Dir(path)] {
		return "", false
	}
	return path, w.filter(path)
}

// isNewDirectory reports whether path is a directory created inside a watched
// tree.
func (w *Watcher) isNewDirectory(path string) bool {
	w.mu.Lock()
	single := w.fileDirs[filepath.Dir(path)]
	w.mu.Unlock()
	if single {
		return false
	}

	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// AddPath adds a file or directory to watch.
func (w *Watcher) AddPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		dir := filepath.Dir(absPath)
		if err := w.fsWatcher.Add(dir); err != nil {
			return err
		}
		w.mu.Lock()
		w.files[absPath] = true
		w.fileDirs[dir] = true
		w.mu.Unlock()

		w.logger.Info("watching file", "path", absPath)
		return nil
	}

	if err := w.watchTree(absPath); err != nil {
		return err
	}

	w.logger.Info("watching directory", "path", absPath)
	return nil
}

// watchTree adds root and every directory below it.
func (w *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.fsWatcher.Add(p)
	})
}

// RemovePath removes a path from watching.
func (w *Watcher) RemovePath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	isFile := w.files[absPath]
	delete(w.files, absPath)
	w.mu.Unlock()

	if !isFile {
		if err := w.fsWatcher.Remove(absPath); err != nil {
			return err
		}
	}

	w.logger.Info("removed watch path", "path", absPath)
	return nil
}
