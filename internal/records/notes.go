package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/starford/sanctum/internal/apperr"
	"github.com/starford/sanctum/internal/parser"
	"github.com/starford/sanctum/internal/query"
	"github.com/starford/sanctum/internal/storage"
	"github.com/starford/sanctum/internal/tags"
)

// QuickNotePrefix starts the title of every quick note.
const QuickNotePrefix = "Quick Note: "

const untitled = "Untitled"

// UserNote is a free-text note. It is the untagged domain: its title starts
// with no registered tag.
type UserNote struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	IsPinned    bool      `json:"is_pinned"`
	CreatedBy   string    `json:"created_by"`
	CreatedDate time.Time `json:"created_date"`
	UpdatedDate time.Time `json:"updated_date"`
	Tags        []string  `json:"tags"`
	Links       []string  `json:"links"`
	Preview     string    `json:"preview"`
}

func noteFrom(doc storage.Document) UserNote {
	p := parser.Parse(doc.Content)
	return UserNote{
		ID:          doc.ID,
		Title:       doc.Title,
		Content:     doc.Content,
		IsPinned:    doc.IsPinned,
		CreatedBy:   doc.CreatedBy,
		CreatedDate: doc.CreatedDate,
		UpdatedDate: doc.UpdatedDate,
		Tags:        p.Tags,
		Links:       p.Links,
		Preview:     p.Preview,
	}
}

// Notes is the plain-notes adapter.
type Notes struct {
	store    storage.Provider
	router   *query.Router
	registry *tags.Registry
	logger   *slog.Logger
	now      func() time.Time
	notify   EventCallback
}

func newNotes(env *env) *Notes {
	return &Notes{
		store:    env.store,
		router:   env.router,
		registry: env.router.Registry(),
		logger:   env.logger,
		now:      env.now,
		notify:   env.notify,
	}
}

// List returns the caller's notes ordered by sort with pinned notes first.
// A non-empty search keeps notes whose title or content contains it,
// ignoring case.
func (n *Notes) List(ctx context.Context, search string, sort storage.Sort) ([]UserNote, error) {
	docs, err := n.router.FetchUntagged(ctx, sort)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]UserNote, 0, len(docs))
	for _, doc := range docs {
		if needle != "" &&
			!strings.Contains(strings.ToLower(doc.Title), needle) &&
			!strings.Contains(strings.ToLower(doc.Content), needle) {
			continue
		}
		out = append(out, noteFrom(doc))
	}
	pinnedFirst(out)
	return out, nil
}

func pinnedFirst(notes []UserNote) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].IsPinned && !notes[j].IsPinned
	})
}

// Get returns one note. Tagged documents count as not found.
func (n *Notes) Get(ctx context.Context, id string) (UserNote, error) {
	doc, err := n.get(ctx, id)
	if err != nil {
		return UserNote{}, err
	}
	return noteFrom(doc), nil
}

// Create stores a new note. An empty title becomes "Untitled"; a title in
// the reserved tag space is rejected.
func (n *Notes) Create(ctx context.Context, title, content string, pinned bool) (UserNote, error) {
	title, err := n.checkTitle(title)
	if err != nil {
		return UserNote{}, err
	}
	doc, err := n.store.Create(ctx, storage.NewDocument{Title: title, Content: content, IsPinned: pinned})
	if err != nil {
		return UserNote{}, apperr.OperationFailed("note: create", err)
	}
	n.emit(EventCreated, doc.ID)
	return noteFrom(doc), nil
}

// QuickNote stores content under a timestamped title.
func (n *Notes) QuickNote(ctx context.Context, content string) (UserNote, error) {
	if strings.TrimSpace(content) == "" {
		return UserNote{}, apperr.Validation(string(tags.Note), errors.New("content is required"))
	}
	return n.Create(ctx, QuickNotePrefix+n.now().Format("2006-01-02 15:04"), content, false)
}

// Update replaces title and content.
func (n *Notes) Update(ctx context.Context, id, title, content string) (UserNote, error) {
	title, err := n.checkTitle(title)
	if err != nil {
		return UserNote{}, err
	}
	if _, err := n.get(ctx, id); err != nil {
		return UserNote{}, err
	}
	doc, err := n.store.Update(ctx, id, storage.Patch{Title: &title, Content: &content})
	if err != nil {
		return UserNote{}, apperr.OperationFailed("note: update", err)
	}
	n.emit(EventUpdated, doc.ID)
	return noteFrom(doc), nil
}

// TogglePin flips the pinned flag.
func (n *Notes) TogglePin(ctx context.Context, id string) (UserNote, error) {
	cur, err := n.get(ctx, id)
	if err != nil {
		return UserNote{}, err
	}
	pinned := !cur.IsPinned
	doc, err := n.store.Update(ctx, id, storage.Patch{IsPinned: &pinned})
	if err != nil {
		return UserNote{}, apperr.OperationFailed("note: pin", err)
	}
	n.emit(EventUpdated, doc.ID)
	return noteFrom(doc), nil
}

// Delete removes a note.
func (n *Notes) Delete(ctx context.Context, id string) error {
	if _, err := n.get(ctx, id); err != nil {
		return err
	}
	if err := n.store.Delete(ctx, id); err != nil {
		return apperr.OperationFailed("note: delete", err)
	}
	n.emit(EventDeleted, id)
	return nil
}

func (n *Notes) get(ctx context.Context, id string) (storage.Document, error) {
	doc, err := n.store.Get(ctx, id)
	if err != nil {
		return storage.Document{}, apperr.OperationFailed("note: get", err)
	}
	if d := n.registry.Classify(doc.Title); d != tags.Note {
		return storage.Document{}, fmt.Errorf("note: document %s belongs to %s: %w", id, d, apperr.ErrNotFound)
	}
	return doc, nil
}

func (n *Notes) checkTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = untitled
	}
	if n.registry.Reserved(title) {
		return "", apperr.Validation(string(tags.Note),
			fmt.Errorf("title %q starts with a reserved tag", title))
	}
	return title, nil
}

func (n *Notes) emit(kind, id string) {
	if n.notify != nil {
		n.notify(kind, tags.Note, id)
	}
}
