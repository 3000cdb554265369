package records

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sanctum/internal/parser"
)

// JournalEntry is a dated journal page.
type JournalEntry struct {
	Meta
	Title   string `json:"title"`
	Content string `json:"content"`
	Date    string `json:"date"`
}

func (j *JournalEntry) summary() string {
	if j.Title == "" {
		return j.Date
	}
	return j.Date + " - " + j.Title
}

func (j *JournalEntry) required() error {
	if j.Content == "" {
		return errors.New("content is required")
	}
	return nil
}

func (j *JournalEntry) defaults(now time.Time) {
	if j.Date == "" {
		j.Date = now.Format(DateLayout)
	}
}

func (j *JournalEntry) normalize() {
	j.Title = strings.TrimSpace(j.Title)
}

func (j *JournalEntry) validate() error {
	return validation.ValidateStruct(j,
		validation.Field(&j.Content, validation.Required),
		validation.Field(&j.Date, validation.Required, validation.Date(DateLayout)),
	)
}

// JournalStore is the journal adapter.
type JournalStore struct {
	*Repository[JournalEntry, *JournalEntry]
}

// Tagged returns entries whose content carries #tag.
func (s *JournalStore) Tagged(ctx context.Context, tag string) ([]JournalEntry, error) {
	entries, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	var out []JournalEntry
	for _, e := range entries {
		if parser.Parse(e.Content).HasTag(tag) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Stats lists all entries and reduces them.
func (s *JournalStore) Stats(ctx context.Context) (JournalStats, error) {
	entries, err := s.List(ctx, "")
	if err != nil {
		return JournalStats{}, err
	}
	return SummarizeJournal(entries), nil
}

func parseTags(content string) []string {
	return parser.Parse(content).Tags
}
