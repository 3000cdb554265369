package storage

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/sanctum/internal/apperr"
)

const docExt = ".json"

// Dir implements Provider with one JSON file per document, suitable for
// syncing the collection with ordinary file tools.
type Dir struct {
	mu   sync.Mutex
	root string // absolute path to the collection directory
	now  func() time.Time
}

var _ Provider = (*Dir)(nil)

// NewDir creates a Dir provider rooted at root, creating the directory if
// needed. A nil now uses time.Now.
func NewDir(root string, now func() time.Time) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	if now == nil {
		now = time.Now
	}
	return &Dir{root: abs, now: now}, nil
}

// Root returns the absolute collection directory.
func (d *Dir) Root() string { return d.root }

// docPath maps an id to its file and rejects ids that would escape root.
func (d *Dir) docPath(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("storage: invalid document id %q: %w", id, apperr.ErrNotFound)
	}
	return filepath.Join(d.root, id+docExt), nil
}

func (d *Dir) Create(ctx context.Context, nd NewDocument) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	now := d.now().UTC()
	doc := Document{
		ID:          uuid.NewString(),
		Title:       nd.Title,
		Content:     nd.Content,
		IsPinned:    nd.IsPinned,
		CreatedBy:   OwnerFrom(ctx),
		CreatedDate: now,
		UpdatedDate: now,
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.write(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (d *Dir) Get(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.read(id)
}

func (d *Dir) List(ctx context.Context) ([]Document, error) {
	return d.Filter(ctx, Query{}, DefaultSort)
}

func (d *Dir) Filter(ctx context.Context, q Query, sort Sort) ([]Document, error) {
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
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	all, err := d.readAll()
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	// Files carry no insertion order; creation time then id stands in.
	slices.SortFunc(all, func(a, b Document) int {
		return cmp.Or(a.CreatedDate.Compare(b.CreatedDate), strings.Compare(a.ID, b.ID))
	})
	seq := make(map[string]int, len(all))
	var out []Document
	for i, doc := range all {
		seq[doc.ID] = i
		if matchQuery(doc, q, re) {
			out = append(out, doc)
		}
	}
	sortDocuments(out, seq, field, desc)
	return out, nil
}

func (d *Dir) Update(ctx context.Context, id string, p Patch) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, err := d.read(id)
	if err != nil {
		return Document{}, err
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
	doc.UpdatedDate = d.now().UTC()
	if err := d.write(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (d *Dir) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := d.docPath(id)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("storage: document %s: %w", id, apperr.ErrNotFound)
		}
		return fmt.Errorf("storage: delete %s: %w", id, err)
	}
	return nil
}

func (d *Dir) read(id string) (Document, error) {
	path, err := d.docPath(id)
	if err != nil {
		return Document{}, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Document{}, fmt.Errorf("storage: document %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("storage: read %s: %w", id, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("storage: parse %s: %w", id, err)
	}
	doc.ID = id
	return doc, nil
}

func (d *Dir) readAll() ([]Document, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	var out []Document
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, docExt) || strings.HasPrefix(name, ".") {
			continue
		}
		doc, err := d.read(strings.TrimSuffix(name, docExt))
		if err != nil {
			slog.Warn("storage: skipping unreadable document",
				slog.String("file", name),
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

// write atomically replaces the document file: tmp file → fsync → rename.
func (d *Dir) write(doc Document) error {
	path, err := d.docPath(doc.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", doc.ID, err)
	}

	tmp, err := os.CreateTemp(d.root, ".sanctum-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
