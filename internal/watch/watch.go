// Package watch reports changes made to the document collection's files by
// other processes, such as the stdio MCP server writing to the same database.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of writes (a WAL checkpoint touches
// several files) into one notification.
const DefaultDebounce = 250 * time.Millisecond

// ChangeCallback is called once per debounced burst of foreign writes.
type ChangeCallback func(path string)

// Watcher watches one directory for writes to matching files.
type Watcher struct {
	dir      string
	match    func(name string) bool
	debounce time.Duration
	logger   *slog.Logger

	lastLocal atomic.Int64 // unix nanos of the last in-process write
	now       func() time.Time
}

// New returns a watcher over dir. match selects file base names; nil
// matches every file. A non-positive debounce uses DefaultDebounce.
func New(dir string, match func(name string) bool, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if match == nil {
		match = func(string) bool { return true }
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{dir: dir, match: match, debounce: debounce, logger: logger, now: time.Now}
}

// SQLiteFiles matches the database file at dbPath and its -wal/-shm/-journal
// companions.
func SQLiteFiles(dbPath string) func(name string) bool {
	base := filepath.Base(dbPath)
	return func(name string) bool {
		return name == base || name == base+"-wal" || name == base+"-shm" || name == base+"-journal"
	}
}

// Suffix matches names ending in ext that are not hidden temp files.
func Suffix(ext string) func(name string) bool {
	return func(name string) bool {
		return strings.HasSuffix(name, ext) && !strings.HasPrefix(name, ".")
	}
}

// MarkLocal records an in-process write. File events that settle within
// one debounce window of it are attributed to this process and dropped.
func (w *Watcher) MarkLocal() {
	w.lastLocal.Store(w.now().UnixNano())
}

// Run watches until ctx is cancelled, calling cb after each debounced burst
// of foreign writes.
func (w *Watcher) Run(ctx context.Context, cb ChangeCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}
	w.logger.Info("watcher: started", slog.String("dir", w.dir))

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
		lastHit string
	)
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			timerCh = timer.C
		} else {
			timer.Reset(w.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			if w.recentlyLocal() {
				w.logger.Debug("watcher: ignoring own write", slog.String("path", lastHit))
				continue
			}
			w.logger.Debug("watcher: foreign change", slog.String("path", lastHit))
			if cb != nil {
				cb(lastHit)
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !w.match(filepath.Base(ev.Name)) {
				continue
			}
			lastHit = ev.Name
			schedule()

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (w *Watcher) recentlyLocal() bool {
	last := w.lastLocal.Load()
	if last == 0 {
		return false
	}
	return w.now().Sub(time.Unix(0, last)) < 2*w.debounce
}
