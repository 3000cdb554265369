package records

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/sanctum/internal/apperr"
	"github.com/starford/sanctum/internal/query"
	"github.com/starford/sanctum/internal/storage"
	"github.com/starford/sanctum/internal/tags"
)

// env is what every adapter shares.
type env struct {
	store  storage.Provider
	router *query.Router
	logger *slog.Logger
	now    func() time.Time
	notify EventCallback
}

// Option configures a Store.
type Option func(*env)

// WithClock overrides the clock used for record defaults such as dates.
func WithClock(now func() time.Time) Option {
	return func(e *env) {
		e.now = now
	}
}

// WithEvents registers a callback invoked after every successful mutation.
func WithEvents(cb EventCallback) Option {
	return func(e *env) {
		e.notify = cb
	}
}

// Store bundles one adapter per domain over a single document collection.
type Store struct {
	Books        *BookStore
	Transactions *TransactionStore
	Goals        *GoalStore
	Journal      *JournalStore
	Meditations  *MeditationStore
	Detox        *DetoxStore
	Notes        *Notes

	registry    *tags.Registry
	collections map[tags.Domain]Collection
}

// NewStore wires the adapters. registry must register every record domain;
// NewStore panics otherwise. A nil logger discards warnings.
func NewStore(provider storage.Provider, registry *tags.Registry, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &env{
		store:  provider,
		router: query.NewRouter(provider, registry),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	s := &Store{
		Books:        &BookStore{newRepository[Book](tags.Book, e)},
		Transactions: &TransactionStore{newRepository[Transaction](tags.Transaction, e)},
		Goals:        &GoalStore{newRepository[Goal](tags.Goal, e)},
		Journal:      &JournalStore{newRepository[JournalEntry](tags.Journal, e)},
		Meditations:  &MeditationStore{newRepository[MeditationSession](tags.Meditation, e)},
		Detox:        &DetoxStore{newRepository[DetoxSession](tags.Detox, e)},
		Notes:        newNotes(e),
		registry:     registry,
	}
	s.collections = map[tags.Domain]Collection{
		tags.Book:        collection[Book, *Book]{s.Books.Repository, reducer(SummarizeBooks)},
		tags.Transaction: collection[Transaction, *Transaction]{s.Transactions.Repository, reducer(SummarizeFinances)},
		tags.Goal:        collection[Goal, *Goal]{s.Goals.Repository, reducer(SummarizeGoals)},
		tags.Journal:     collection[JournalEntry, *JournalEntry]{s.Journal.Repository, reducer(SummarizeJournal)},
		tags.Meditation:  collection[MeditationSession, *MeditationSession]{s.Meditations.Repository, reducer(SummarizeMeditation)},
		tags.Detox:       collection[DetoxSession, *DetoxSession]{s.Detox.Repository, reducer(SummarizeDetox)},
	}
	return s
}

// Registry returns the tag registry the store classifies with.
func (s *Store) Registry() *tags.Registry { return s.registry }

// Collection returns the untyped view of domain d. Only registered domains
// have one; plain notes are served by Notes.
func (s *Store) Collection(d tags.Domain) (Collection, error) {
	c, ok := s.collections[d]
	if !ok {
		return nil, fmt.Errorf("records: %w: unknown domain %q", apperr.ErrNotFound, d)
	}
	return c, nil
}

// Collection is a domain repository with records passed as JSON-ready
// values, for callers that pick the domain at runtime.
type Collection interface {
	Domain() tags.Domain
	List(ctx context.Context, sort storage.Sort) ([]any, error)
	Get(ctx context.Context, id string) (any, error)
	// Save decodes payload as a record of the domain and saves it under id
	// ("" creates). A non-empty version enables the conflict check.
	Save(ctx context.Context, id string, payload []byte, version string) (any, error)
	UpdateField(ctx context.Context, id, field string, value any) (any, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (any, error)
	// Version returns the version tag of a record returned by this collection.
	Version(rec any) (string, error)
}

type collection[T any, PT schema[T]] struct {
	repo   *Repository[T, PT]
	reduce func([]T) any
}

// reducer adapts a typed reducer to collection.reduce.
func reducer[T, S any](f func([]T) S) func([]T) any {
	return func(in []T) any { return f(in) }
}

func (c collection[T, PT]) Domain() tags.Domain { return c.repo.Domain() }

func (c collection[T, PT]) List(ctx context.Context, sort storage.Sort) ([]any, error) {
	recs, err := c.repo.List(ctx, sort)
	if err != nil {
		return nil, err
	}
	return anySlice(recs), nil
}

func (c collection[T, PT]) Get(ctx context.Context, id string) (any, error) {
	return c.repo.Get(ctx, id)
}

func (c collection[T, PT]) Save(ctx context.Context, id string, payload []byte, version string) (any, error) {
	var rec T
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, apperr.Validation(string(c.repo.Domain()), fmt.Errorf("invalid payload: %w", err))
	}
	PT(&rec).meta().ID = id
	return c.repo.SaveIfMatch(ctx, rec, version)
}

func (c collection[T, PT]) UpdateField(ctx context.Context, id, field string, value any) (any, error) {
	return c.repo.UpdateField(ctx, id, field, value)
}

func (c collection[T, PT]) Delete(ctx context.Context, id string) error {
	return c.repo.Delete(ctx, id)
}

func (c collection[T, PT]) Stats(ctx context.Context) (any, error) {
	recs, err := c.repo.List(ctx, "")
	if err != nil {
		return nil, err
	}
	return c.reduce(recs), nil
}

func (c collection[T, PT]) Version(rec any) (string, error) {
	typed, ok := rec.(T)
	if !ok {
		return "", fmt.Errorf("records: %s: unexpected record type %T", c.repo.Domain(), rec)
	}
	return c.repo.Version(typed)
}
