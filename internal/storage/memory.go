package storage

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/sanctum/internal/apperr"
)

// Memory is an in-process Provider. It is safe for concurrent use and lets
// tests seed raw documents, pin the clock and inject failures.
type Memory struct {
	mu   sync.Mutex
	docs map[string]Document
	seq  map[string]int
	next int
	now  func() time.Time
	fail error
}

var _ Provider = (*Memory)(nil)

// NewMemory returns an empty in-memory collection using now for timestamps.
// A nil now uses time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		docs: make(map[string]Document),
		seq:  make(map[string]int),
		now:  now,
	}
}

// Fail makes every subsequent call return err until Fail(nil).
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// Put stores doc verbatim, bypassing id and timestamp assignment.
func (m *Memory) Put(doc Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.ID]; !ok {
		m.next++
		m.seq[doc.ID] = m.next
	}
	m.docs[doc.ID] = doc
}

// Len returns the number of stored documents.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func (m *Memory) Create(ctx context.Context, nd NewDocument) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return Document{}, err
	}
	now := m.now().UTC()
	doc := Document{
		ID:          uuid.NewString(),
		Title:       nd.Title,
		Content:     nd.Content,
		IsPinned:    nd.IsPinned,
		CreatedBy:   OwnerFrom(ctx),
		CreatedDate: now,
		UpdatedDate: now,
	}
	m.next++
	m.seq[doc.ID] = m.next
	m.docs[doc.ID] = doc
	return doc, nil
}

func (m *Memory) Get(ctx context.Context, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return Document{}, err
	}
	doc, ok := m.docs[id]
	if !ok {
		return Document{}, fmt.Errorf("storage: document %s: %w", id, apperr.ErrNotFound)
	}
	return doc, nil
}

func (m *Memory) List(ctx context.Context) ([]Document, error) {
	return m.Filter(ctx, Query{}, DefaultSort)
}

func (m *Memory) Filter(ctx context.Context, q Query, sort Sort) ([]Document, error) {
	field, desc, err := sort.Parse()
	if err != nil {
		return nil, err
	}
	var re *regexp.Regexp
	if q.Title != nil && q.Title.Pattern != "" {
		if re, err = compilePattern(q.Title.Pattern); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	var out []Document
	for _, doc := range m.docs {
		if matchQuery(doc, q, re) {
			out = append(out, doc)
		}
	}
	sortDocuments(out, m.seq, field, desc)
	return out, nil
}

func (m *Memory) Update(ctx context.Context, id string, p Patch) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return Document{}, err
	}
	doc, ok := m.docs[id]
	if !ok {
		return Document{}, fmt.Errorf("storage: document %s: %w", id, apperr.ErrNotFound)
	}
	if p.Title != nil {
		doc.Title = *p.Title
	}
	if p.Content != nil {
		doc.Content = *p.Content
	}
	if p.IsPinned != nil {
		doc.IsPinned = *p.IsPinned
	}
	doc.UpdatedDate = m.now().UTC()
	m.docs[id] = doc
	return doc, nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}
	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("storage: document %s: %w", id, apperr.ErrNotFound)
	}
	delete(m.docs, id)
	delete(m.seq, id)
	return nil
}

func (m *Memory) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.fail
}
