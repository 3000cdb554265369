package records

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sanctum/internal/apperr"
	"github.com/starford/sanctum/internal/storage"
)

// BookStatus is a position in the reading state machine.
type BookStatus string

const (
	WantToRead BookStatus = "want_to_read"
	Reading    BookStatus = "reading"
	Finished   BookStatus = "finished"
	Paused     BookStatus = "paused"
)

// MaxRating is the top of the star scale.
const MaxRating = 5

// Genres lists the accepted book genres; the first is the default.
var Genres = []string{"fiction", "non-fiction", "biography", "science", "history", "philosophy", "business", "self-help"}

// Book is an entry in the reading list.
type Book struct {
	Meta
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	TotalPages  int        `json:"totalPages"`
	CurrentPage int        `json:"currentPage"`
	Status      BookStatus `json:"status"`
	Rating      int        `json:"rating"`
	Notes       string     `json:"notes"`
	Genre       string     `json:"genre"`
	DateAdded   time.Time  `json:"dateAdded"`
}

func (b *Book) summary() string { return b.Title + " by " + b.Author }

func (b *Book) required() error {
	if b.Title == "" || b.Author == "" {
		return errors.New("title and author are required")
	}
	return nil
}

func (b *Book) defaults(now time.Time) {
	if b.DateAdded.IsZero() {
		b.DateAdded = now.UTC()
	}
	if b.Genre == "" {
		b.Genre = Genres[0]
	}
}

// normalize enforces 0 ≤ currentPage ≤ totalPages and finishes books that
// are read to the end or rated.
func (b *Book) normalize() {
	b.DateAdded = b.DateAdded.UTC()
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	b.TotalPages = max(b.TotalPages, 0)
	b.CurrentPage = min(max(b.CurrentPage, 0), b.TotalPages)
	b.Rating = min(max(b.Rating, 0), MaxRating)
	if b.Status == "" {
		b.Status = WantToRead
	}
	if b.TotalPages > 0 && b.CurrentPage >= b.TotalPages {
		b.Status = Finished
	}
	if b.Rating > 0 {
		b.Status = Finished
	}
}

func (b *Book) validate() error {
	return validation.ValidateStruct(b,
		validation.Field(&b.Title, validation.Required),
		validation.Field(&b.Author, validation.Required),
		validation.Field(&b.Status, validation.In(WantToRead, Reading, Finished, Paused)),
		validation.Field(&b.Genre, validation.In(anySlice(Genres)...)),
	)
}

// BookStore is the reading-list adapter.
type BookStore struct {
	*Repository[Book, *Book]
}

// ListByStatus lists books in status; "" or "all" lists everything.
func (s *BookStore) ListByStatus(ctx context.Context, status string, sort storage.Sort) ([]Book, error) {
	books, err := s.List(ctx, sort)
	if err != nil || status == "" || status == "all" {
		return books, err
	}
	out := books[:0]
	for _, b := range books {
		if string(b.Status) == status {
			out = append(out, b)
		}
	}
	return out, nil
}

// UpdateProgress moves the bookmark to page, clamped to the book's length.
// Reaching the last page finishes the book.
func (s *BookStore) UpdateProgress(ctx context.Context, id string, page int) (Book, error) {
	return s.Update(ctx, id, func(b *Book) error {
		b.CurrentPage = page
		b.startReading()
		return nil
	})
}

// startReading moves an unstarted book to reading once it has a bookmark.
// Paused books stay paused.
func (b *Book) startReading() {
	if b.CurrentPage > 0 && b.Status == WantToRead {
		b.Status = Reading
	}
}

func (b *Book) progressed(field string) {
	if field == "currentPage" {
		b.startReading()
	}
}

// Rate sets the star rating; any rating marks the book finished.
func (s *BookStore) Rate(ctx context.Context, id string, rating int) (Book, error) {
	if rating < 0 || rating > MaxRating {
		return Book{}, apperr.Validation("book", errors.New("rating must be between 0 and 5"))
	}
	return s.Update(ctx, id, func(b *Book) error {
		b.Rating = rating
		return nil
	})
}

// Stats lists the reading list and reduces it.
func (s *BookStore) Stats(ctx context.Context) (BookStats, error) {
	books, err := s.List(ctx, "")
	if err != nil {
		return BookStats{}, err
	}
	return SummarizeBooks(books), nil
}

func anySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
