package records

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/starford/sanctum/internal/storage"
	"github.com/starford/sanctum/internal/tags"
)

type event struct {
	kind   string
	domain tags.Domain
	id     string
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) record(kind string, d tags.Domain, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind, d, id})
}

func (r *recorder) all() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// ticker advances one second per call so writes are strictly ordered.
func ticker() func() time.Time {
	var mu sync.Mutex
	cur := t0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := cur
		cur = cur.Add(time.Second)
		return t
	}
}

func newTestStore(t *testing.T) (*Store, *storage.Memory, *recorder) {
	t.Helper()
	now := ticker()
	mem := storage.NewMemory(now)
	rec := &recorder{}
	s := NewStore(mem, tags.Default(), nil, WithClock(now), WithEvents(rec.record))
	return s, mem, rec
}

func ownerCtx() context.Context {
	return storage.WithOwner(context.Background(), "me")
}
