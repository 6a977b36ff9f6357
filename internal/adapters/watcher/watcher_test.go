package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestFsnotifyOpToOperation(t *testing.T) {
	tests := []struct {
		name     string
		op       fsnotify.Op
		expected Operation
	}{
		{
			name:     "Remove returns OpDelete",
			op:       fsnotify.Remove,
			expected: OpDelete,
		},
		{
			name:     "Rename returns OpDelete",
			op:       fsnotify.Rename,
			expected: OpDelete,
		},
		{
			name:     "Create returns OpCreate",
			op:       fsnotify.Create,
			expected: OpCreate,
		},
		{
			name:     "Write returns OpModify",
			op:       fsnotify.Write,
			expected: OpModify,
		},
		{
			name:     "Chmod returns OpModify",
			op:       fsnotify.Chmod,
			expected: OpModify,
		},
		{
			name:     "Remove takes precedence over Write",
			op:       fsnotify.Remove | fsnotify.Write,
			expected: OpDelete,
		},
		{
			name:     "Rename takes precedence over Create",
			op:       fsnotify.Rename | fsnotify.Create,
			expected: OpDelete,
		},
		{
			name:     "Create takes precedence over Write",
			op:       fsnotify.Create | fsnotify.Write,
			expected: OpCreate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := fsnotifyOpToOperation(tt.op)
			if result != tt.expected {
				t.Errorf("fsnotifyOpToOperation(%v) = %v, want %v", tt.op, result, tt.expected)
			}
		})
	}
}

func TestOperationString(t *testing.T) {
	tests := []struct {
		op       Operation
		expected string
	}{
		{OpCreate, "create"},
		{OpModify, "modify"},
		{OpDelete, "delete"},
		{Operation(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.op.String(); got != tt.expected {
				t.Errorf("Operation.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func newTestWatcher(t *testing.T, cfg Config, handler Handler) *Watcher {
	t.Helper()
	if handler == nil {
		handler = func(context.Context, Event) error { return nil }
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	w, err := New(cfg, handler, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestRelevant(t *testing.T) {
	dir := t.TempDir()
	defs := filepath.Join(dir, "defs")
	if err := os.MkdirAll(defs, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	single := filepath.Join(dir, "crs.db")
	if err := os.WriteFile(single, []byte("db"), 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	w := newTestWatcher(t, Config{
		Filter: func(path string) bool { return filepath.Ext(path) == ".yaml" },
	}, nil)
	if err := w.AddPath(defs); err != nil {
		t.Fatalf("AddPath(dir) error = %v", err)
	}
	if err := w.AddPath(single); err != nil {
		t.Fatalf("AddPath(file) error = %v", err)
	}

	tests := []struct {
		path     string
		want     string
		expected bool
	}{
		{single, single, true},
		{single + "-journal", single, true},
		{single + "-wal", single, true},
		{filepath.Join(dir, "other.yaml"), "", false},
		{filepath.Join(defs, "crs.yaml"), filepath.Join(defs, "crs.yaml"), true},
		{filepath.Join(defs, "crs.txt"), "", false},
	}

	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			got, ok := w.relevant(tt.path)
			if ok != tt.expected {
				t.Fatalf("relevant(%q) = %v, want %v", tt.path, ok, tt.expected)
			}
			if ok && got != tt.want {
				t.Errorf("relevant(%q) path = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestAddPathMissing(t *testing.T) {
	w := newTestWatcher(t, Config{}, nil)
	if err := w.AddPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("AddPath() should error for a missing path")
	}
}

func TestUpdatePendingEvent(t *testing.T) {
	w := newTestWatcher(t, Config{}, nil)

	tests := []struct {
		name     string
		existing Operation
		newOp    Operation
		expected Operation
	}{
		{"delete then create", OpDelete, OpCreate, OpCreate},
		{"modify then delete", OpModify, OpDelete, OpDelete},
		{"create then modify", OpCreate, OpModify, OpCreate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &pendingEvent{op: tt.existing}
			w.updatePendingEvent(p, tt.newOp)
			if p.op != tt.expected {
				t.Errorf("op = %v, want %v", p.op, tt.expected)
			}
		})
	}
}

func TestWatcherReportsReplacedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crs.yaml")
	if err := os.WriteFile(path, []byte("crs: []\n"), 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	events := make(chan Event, 8)
	w := newTestWatcher(t, Config{Paths: []string{path}, Debounce: 20 * time.Millisecond},
		func(_ context.Context, e Event) error {
			events <- e
			return nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Replace the file the way editors do.
	tmp := filepath.Join(dir, ".crs.yaml.tmp")
	if err := os.WriteFile(tmp, []byte("crs: []\n# v2\n"), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("failed to rename: %v", err)
	}

	select {
	case e := <-events:
		if e.Path != path {
			t.Errorf("event path = %q, want %q", e.Path, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}

func TestScheduleCoalescesEvents(t *testing.T) {
	events := make(chan Event, 8)
	w := newTestWatcher(t, Config{Debounce: 30 * time.Millisecond},
		func(_ context.Context, e Event) error {
			events <- e
			return nil
		})

	w.schedule("/defs/crs.yaml", OpModify)
	w.schedule("/defs/crs.yaml", OpDelete)
	w.schedule("/defs/crs.yaml", OpCreate)

	select {
	case e := <-events:
		if e.Operation != OpCreate {
			t.Errorf("event operation = %v, want %v", e.Operation, OpCreate)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}

	select {
	case e := <-events:
		t.Errorf("unexpected second event %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStopDropsPendingEvents(t *testing.T) {
	events := make(chan Event, 1)
	w := newTestWatcher(t, Config{Debounce: 50 * time.Millisecond},
		func(_ context.Context, e Event) error {
			events <- e
			return nil
		})

	w.schedule("/defs/crs.yaml", OpModify)
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case e := <-events:
		t.Errorf("unexpected event after Stop %+v", e)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()

	events := make(chan Event, 8)
	w := newTestWatcher(t, Config{
		Paths:    []string{dir},
		Filter:   func(path string) bool { return filepath.Ext(path) == ".yaml" },
		Debounce: 20 * time.Millisecond,
	}, func(_ context.Context, e Event) error {
		events <- e
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	sub := filepath.Join(dir, "europe")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	// Give the event loop time to add the new directory.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(sub, "crs.yaml")
	if err := os.WriteFile(path, []byte("crs: []\n"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Path == path {
				return
			}
		case <-deadline:
			t.Fatal("no event for file in new directory")
		}
	}
}
