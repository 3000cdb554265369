// Package storage defines the generic document collection the record store
// persists into, with SQLite and in-memory implementations.
package storage

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/starford/sanctum/internal/apperr"
)

// Document is the collection's only native record shape.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	IsPinned    bool      `json:"is_pinned"`
	CreatedBy   string    `json:"created_by"`
	CreatedDate time.Time `json:"created_date"`
	UpdatedDate time.Time `json:"updated_date"`
}

// NewDocument carries the caller-supplied fields of a create call.
type NewDocument struct {
	Title    string
	Content  string
	IsPinned bool
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Title    *string
	Content  *string
	IsPinned *bool
}

// TitleMatch restricts a query to titles matching Pattern, or not matching
// it when Negate is set.
type TitleMatch struct {
	Pattern string
	Negate  bool
}

// Query selects documents. Zero fields do not constrain the result.
type Query struct {
	CreatedBy string
	Title     *TitleMatch
}

// Sort names a document field, optionally prefixed with "-" for descending.
type Sort string

// DefaultSort lists the most recently updated documents first.
const DefaultSort Sort = "-updated_date"

// Sortable document fields.
const (
	FieldCreatedDate = "created_date"
	FieldUpdatedDate = "updated_date"
	FieldTitle       = "title"
)

// Parse splits s into a field and direction. The empty sort is DefaultSort.
func (s Sort) Parse() (field string, desc bool, err error) {
	if s == "" {
		s = DefaultSort
	}
	field = string(s)
	if strings.HasPrefix(field, "-") {
		desc = true
		field = field[1:]
	}
	switch field {
	case FieldCreatedDate, FieldUpdatedDate, FieldTitle:
		return field, desc, nil
	}
	return "", false, fmt.Errorf("storage: %w: unknown sort field %q", apperr.ErrValidation, field)
}

// Provider is the persistence contract consumed by the record store.
type Provider interface {
	// Create stores a new document and assigns its id, owner and timestamps.
	Create(ctx context.Context, doc NewDocument) (Document, error)
	// Get returns the document with id or apperr.ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)
	// List returns every document visible to the caller, newest update first.
	List(ctx context.Context) ([]Document, error)
	// Filter returns documents matching q ordered by sort.
	Filter(ctx context.Context, q Query, sort Sort) ([]Document, error)
	// Update applies p to the document with id and bumps its updated date.
	Update(ctx context.Context, id string, p Patch) (Document, error)
	// Delete removes the document with id. There is no tombstone.
	Delete(ctx context.Context, id string) error
}

type ownerKey struct{}

// WithOwner attaches the caller identity used for created_by.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFrom returns the caller identity attached by WithOwner.
func OwnerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

func matchQuery(doc Document, q Query, re *regexp.Regexp) bool {
	if q.CreatedBy != "" && doc.CreatedBy != q.CreatedBy {
		return false
	}
	if q.Title != nil && re != nil {
		if re.MatchString(doc.Title) == q.Title.Negate {
			return false
		}
	}
	return true
}

// sortDocuments orders docs in place; seq breaks ties in insertion order.
func sortDocuments(docs []Document, seq map[string]int, field string, desc bool) {
	less := func(a, b Document) int {
		switch field {
		case FieldTitle:
			return strings.Compare(a.Title, b.Title)
		case FieldCreatedDate:
			return a.CreatedDate.Compare(b.CreatedDate)
		default:
			return a.UpdatedDate.Compare(b.UpdatedDate)
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		c := less(docs[i], docs[j])
		if c == 0 {
			c = seq[docs[i].ID] - seq[docs[j].ID]
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}
