// Package testutil provides shared test helpers for setting up document
// collections and record stores.
package testutil

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/sanctum/internal/records"
	"github.com/starford/sanctum/internal/storage"
	"github.com/starford/sanctum/internal/tags"
)

// Epoch is the first instant handed out by a Clock.
var Epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// Clock is a deterministic time source that advances one second per call,
// so every write gets a distinct, ordered timestamp.
type Clock struct {
	mu  sync.Mutex
	cur time.Time
}

// NewClock returns a Clock starting at Epoch.
func NewClock() *Clock {
	return &Clock{cur: Epoch}
}

// Now returns the next instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.cur
	c.cur = c.cur.Add(time.Second)
	return t
}

// TestDB creates a SQLite collection in a temporary directory that is
// automatically closed and removed.
func TestDB(t *testing.T, clock *Clock) *storage.SQLite {
	t.Helper()
	var opts []storage.Option
	if clock != nil {
		opts = append(opts, storage.WithClock(clock.Now))
	}
	db, err := storage.Open(filepath.Join(t.TempDir(), "sanctum-test.db"), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore returns a record store over an in-memory collection with a
// deterministic clock. The collection is returned for seeding and fault
// injection.
func TestStore(t *testing.T, opts ...records.Option) (*records.Store, *storage.Memory) {
	t.Helper()
	clock := NewClock()
	mem := storage.NewMemory(clock.Now)
	opts = append([]records.Option{records.WithClock(clock.Now)}, opts...)
	return records.NewStore(mem, tags.Default(), nil, opts...), mem
}

// TestSQLiteStore is TestStore over a temporary SQLite database.
func TestSQLiteStore(t *testing.T, opts ...records.Option) (*records.Store, *storage.SQLite) {
	t.Helper()
	clock := NewClock()
	db := TestDB(t, clock)
	opts = append([]records.Option{records.WithClock(clock.Now)}, opts...)
	return records.NewStore(db, tags.Default(), nil, opts...), db
}
