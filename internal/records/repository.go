package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/starford/sanctum/internal/apperr"
	"github.com/starford/sanctum/internal/checksum"
	"github.com/starford/sanctum/internal/query"
	"github.com/starford/sanctum/internal/storage"
	"github.com/starford/sanctum/internal/tags"
)

// Event kinds passed to an EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after every successful mutation.
type EventCallback func(kind string, domain tags.Domain, id string)

// Repository stores records of one domain as tagged documents.
type Repository[T any, PT schema[T]] struct {
	store  storage.Provider
	router *query.Router
	codec  Codec[T, PT]
	logger *slog.Logger
	now    func() time.Time
	notify EventCallback
}

func newRepository[T any, PT schema[T]](d tags.Domain, env *env) *Repository[T, PT] {
	return &Repository[T, PT]{
		store:  env.store,
		router: env.router,
		codec:  NewCodec[T, PT](env.router.Registry(), d),
		logger: env.logger,
		now:    env.now,
		notify: env.notify,
	}
}

// Codec returns the repository's codec.
func (r *Repository[T, PT]) Codec() Codec[T, PT] { return r.codec }

// Domain returns the repository's domain.
func (r *Repository[T, PT]) Domain() tags.Domain { return r.codec.domain }

// List returns every decodable record of the domain ordered by sort.
// Malformed documents are logged and skipped.
func (r *Repository[T, PT]) List(ctx context.Context, sort storage.Sort) ([]T, error) {
	docs, err := r.router.FetchDomain(ctx, r.codec.domain, sort)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		rec, err := r.codec.Decode(doc)
		if err != nil {
			r.logger.Warn("records: dropping malformed document",
				slog.String("domain", string(r.codec.domain)),
				slog.String("id", doc.ID),
				slog.String("error", err.Error()))
			continue
		}
		PT(&rec).normalize()
		out = append(out, rec)
	}
	return out, nil
}

// Get returns one record. Documents of another domain count as not found.
func (r *Repository[T, PT]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	doc, err := r.store.Get(ctx, id)
	if err != nil {
		return zero, apperr.OperationFailed(fmt.Sprintf("%s: get", r.codec.domain), err)
	}
	if d := r.router.Registry().Classify(doc.Title); d != r.codec.domain {
		return zero, fmt.Errorf("%s: record %s belongs to %s: %w", r.codec.domain, id, d, apperr.ErrNotFound)
	}
	rec, err := r.codec.Decode(doc)
	if err != nil {
		return zero, err
	}
	PT(&rec).normalize()
	return rec, nil
}

// Save validates rec and writes it: a new document when rec has no id, a
// full replace of title and content otherwise. Concurrent saves of the same
// id are last-write-wins.
func (r *Repository[T, PT]) Save(ctx context.Context, rec T) (T, error) {
	var zero T
	p := PT(&rec)
	p.defaults(r.now())
	p.normalize()
	if err := p.validate(); err != nil {
		return zero, apperr.Validation(string(r.codec.domain), err)
	}
	enc, err := r.codec.Encode(rec)
	if err != nil {
		return zero, apperr.Validation(string(r.codec.domain), err)
	}

	id := p.meta().ID
	var doc storage.Document
	kind := EventCreated
	if id == "" {
		doc, err = r.store.Create(ctx, storage.NewDocument{Title: enc.Title, Content: enc.Content})
	} else {
		kind = EventUpdated
		if err := r.owns(ctx, id); err != nil {
			return zero, err
		}
		doc, err = r.store.Update(ctx, id, storage.Patch{Title: &enc.Title, Content: &enc.Content})
	}
	if err != nil {
		return zero, apperr.OperationFailed(fmt.Sprintf("%s: save", r.codec.domain), err)
	}

	*p.meta() = Meta{ID: doc.ID, UpdatedDate: doc.UpdatedDate}
	r.emit(kind, doc.ID)
	return rec, nil
}

// SaveIfMatch is Save guarded by a version check. When version is non-empty
// and differs from the stored record's version nothing is written and the
// error matches apperr.ErrConflict.
func (r *Repository[T, PT]) SaveIfMatch(ctx context.Context, rec T, version string) (T, error) {
	var zero T
	if id := PT(&rec).meta().ID; id != "" && version != "" {
		cur, err := r.Get(ctx, id)
		if err != nil {
			return zero, err
		}
		v, err := r.Version(cur)
		if err != nil {
			return zero, err
		}
		if v != version {
			return zero, fmt.Errorf("%s: record %s was modified: %w", r.codec.domain, id, apperr.ErrConflict)
		}
	}
	return r.Save(ctx, rec)
}

// Version returns the version tag of rec in its encoded form.
func (r *Repository[T, PT]) Version(rec T) (string, error) {
	enc, err := r.codec.Encode(rec)
	if err != nil {
		return "", err
	}
	return checksum.Document(enc.Title, enc.Content), nil
}

// Delete removes the record's document.
func (r *Repository[T, PT]) Delete(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); err != nil && !errors.Is(err, apperr.ErrDecode) {
		return err
	}
	if err := r.store.Delete(ctx, id); err != nil {
		return apperr.OperationFailed(fmt.Sprintf("%s: delete", r.codec.domain), err)
	}
	r.emit(EventDeleted, id)
	return nil
}

// Update reads the record, applies mutate, and saves the whole record back.
func (r *Repository[T, PT]) Update(ctx context.Context, id string, mutate func(PT) error) (T, error) {
	rec, err := r.Get(ctx, id)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := mutate(PT(&rec)); err != nil {
		var zero T
		return zero, apperr.Validation(string(r.codec.domain), err)
	}
	PT(&rec).meta().ID = id
	return r.Save(ctx, rec)
}

// UpdateField sets one JSON field by name and saves the record. Numeric
// fields accept numbers or numeric strings; an empty string means zero.
// Records with status transitions driven by a field apply them here too.
func (r *Repository[T, PT]) UpdateField(ctx context.Context, id, field string, value any) (T, error) {
	return r.Update(ctx, id, func(rec PT) error {
		if err := setField(rec, field, value); err != nil {
			return err
		}
		if p, ok := any(rec).(progressor); ok {
			p.progressed(field)
		}
		return nil
	})
}

// progressor is implemented by records whose status moves forward when a
// progress field is edited.
type progressor interface {
	progressed(field string)
}

// owns checks that id names a document of this domain.
func (r *Repository[T, PT]) owns(ctx context.Context, id string) error {
	doc, err := r.store.Get(ctx, id)
	if err != nil {
		return apperr.OperationFailed(fmt.Sprintf("%s: get", r.codec.domain), err)
	}
	if r.router.Registry().Classify(doc.Title) != r.codec.domain {
		return fmt.Errorf("%s: record %s: %w", r.codec.domain, id, apperr.ErrNotFound)
	}
	return nil
}

func (r *Repository[T, PT]) emit(kind, id string) {
	if r.notify != nil {
		r.notify(kind, r.codec.domain, id)
	}
}

// setField round-trips rec through a JSON object so a field can be addressed
// by its wire name.
func setField[T any, PT schema[T]](rec PT, field string, value any) error {
	if field == "id" || field == "updated_date" {
		return fmt.Errorf("field %q is read-only", field)
	}
	meta := *rec.meta()
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return err
	}
	current, ok := obj[field]
	if !ok {
		return fmt.Errorf("unknown field %q", field)
	}
	coerced, err := coerce(current, value)
	if err != nil {
		return fmt.Errorf("field %q: %w", field, err)
	}
	obj[field] = coerced
	if raw, err = json.Marshal(obj); err != nil {
		return err
	}
	var next T
	if err := json.Unmarshal(raw, &next); err != nil {
		return fmt.Errorf("field %q: %w", field, err)
	}
	*rec = next
	*rec.meta() = meta
	return nil
}

func coerce(current, value any) (any, error) {
	if _, numeric := current.(float64); !numeric {
		return value, nil
	}
	switch v := value.(type) {
	case string:
		if v == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", v)
		}
		return f, nil
	case json.Number:
		return v, nil
	case int, int64, float64:
		return v, nil
	}
	return nil, fmt.Errorf("not a number: %v", value)
}
