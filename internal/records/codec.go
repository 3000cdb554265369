// Package records maps typed dashboard records onto generic notes: one
// repository per domain, a shared codec, and the aggregate reducers.
package records

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/sanctum/internal/apperr"
	"github.com/starford/sanctum/internal/storage"
	"github.com/starford/sanctum/internal/tags"
)

// Meta is borrowed from the backing document. It is never part of the
// encoded content.
type Meta struct {
	ID          string    `json:"id,omitempty"`
	UpdatedDate time.Time `json:"updated_date,omitzero"`
}

func (m *Meta) meta() *Meta { return m }

// schema is what a record type must provide to be stored through a
// Repository. The methods are unexported so only this package defines
// variants.
type schema[T any] interface {
	*T
	meta() *Meta
	// summary is the human-readable part of the title. Decoding never reads it.
	summary() string
	// required reports missing identity fields on a decoded record.
	required() error
	// defaults fills fields that depend on the save time.
	defaults(now time.Time)
	// normalize clamps numeric fields and re-derives dependent ones.
	normalize()
	// validate checks a normalized record before it is written.
	validate() error
}

// Encoded is a record rendered into a document's two text fields.
type Encoded struct {
	Title   string
	Content string
}

// Codec converts records of one domain to and from documents.
type Codec[T any, PT schema[T]] struct {
	domain tags.Domain
	tag    string
}

// NewCodec returns the codec for domain d as registered in reg.
func NewCodec[T any, PT schema[T]](reg *tags.Registry, d tags.Domain) Codec[T, PT] {
	tag := reg.PrefixFor(d)
	if tag == "" {
		panic(fmt.Sprintf("records: domain %q is not registered", d))
	}
	return Codec[T, PT]{domain: d, tag: tag}
}

// Domain returns the codec's domain.
func (c Codec[T, PT]) Domain() tags.Domain { return c.domain }

// Encode renders rec. The same record always yields the same output.
func (c Codec[T, PT]) Encode(rec T) (Encoded, error) {
	*PT(&rec).meta() = Meta{}
	content, err := json.Marshal(rec)
	if err != nil {
		return Encoded{}, fmt.Errorf("%s: encode: %w", c.domain, err)
	}
	return Encoded{
		Title:   c.tag + " " + PT(&rec).summary(),
		Content: string(content),
	}, nil
}

// Decode parses doc's content. The title is not consulted.
func (c Codec[T, PT]) Decode(doc storage.Document) (T, error) {
	var rec, zero T
	if err := json.Unmarshal([]byte(doc.Content), &rec); err != nil {
		return zero, &apperr.DecodeError{Domain: string(c.domain), ID: doc.ID, Err: err}
	}
	if err := PT(&rec).required(); err != nil {
		return zero, &apperr.DecodeError{Domain: string(c.domain), ID: doc.ID, Err: err}
	}
	*PT(&rec).meta() = Meta{ID: doc.ID, UpdatedDate: doc.UpdatedDate}
	return rec, nil
}
