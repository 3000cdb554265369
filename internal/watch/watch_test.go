package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type hits struct {
	mu    sync.Mutex
	paths []string
}

func (h *hits) add(p string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paths = append(h.paths, p)
}

func (h *hits) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.paths)
}

func start(t *testing.T, w *Watcher) *hits {
	t.Helper()
	h := &hits{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Run(ctx, h.add); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Give fsnotify time to register the directory.
	time.Sleep(100 * time.Millisecond)
	return h
}

func TestWatcher_DebouncesForeignWrites(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "sanctum.db")
	w := New(dir, SQLiteFiles(db), 50*time.Millisecond, nil)
	h := start(t, w)

	for i := range 5 {
		if err := os.WriteFile(db+"-wal", []byte{byte(i)}, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool { return h.len() >= 1 }, "expected a change notification")
	time.Sleep(200 * time.Millisecond)
	if n := h.len(); n != 1 {
		t.Errorf("notifications = %d, want 1 (debounced)", n)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, SQLiteFiles(filepath.Join(dir, "sanctum.db")), 30*time.Millisecond, nil)
	h := start(t, w)

	_ = os.WriteFile(filepath.Join(dir, "preferences.json"), []byte("{}"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "other.db"), []byte("x"), 0o644)
	time.Sleep(200 * time.Millisecond)
	if n := h.len(); n != 0 {
		t.Errorf("notifications = %d, want 0", n)
	}
}

func TestWatcher_DropsLocalWrites(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, Suffix(".json"), 50*time.Millisecond, nil)
	h := start(t, w)

	w.MarkLocal()
	_ = os.WriteFile(filepath.Join(dir, "a.json"), []byte("{}"), 0o644)
	time.Sleep(300 * time.Millisecond)
	if n := h.len(); n != 0 {
		t.Errorf("local write reported %d times", n)
	}

	_ = os.WriteFile(filepath.Join(dir, "b.json"), []byte("{}"), 0o644)
	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool { return h.len() == 1 }, "foreign write not reported")
}

func TestMatchers(t *testing.T) {
	m := SQLiteFiles("/data/sanctum.db")
	for name, want := range map[string]bool{
		"sanctum.db": true, "sanctum.db-wal": true, "sanctum.db-shm": true,
		"sanctum.db.bak": false, "preferences.json": false,
	} {
		if m(name) != want {
			t.Errorf("SQLiteFiles(%q) = %v", name, !want)
		}
	}
	s := Suffix(".json")
	if !s("abc.json") || s(".sanctum-tmp-1.json") || s("abc.md") {
		t.Error("Suffix matcher")
	}
}
