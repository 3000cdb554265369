package api

import (
	"time"

	"github.com/starford/sanctum/internal/records"
	"github.com/starford/sanctum/internal/tags"
)

// RecordListResponse wraps a domain listing.
type RecordListResponse struct {
	Items []any `json:"items" validate:"required"`
	Total int   `json:"total" example:"42" validate:"required"`
}

// PatchFieldRequest is the request body for single-field updates.
type PatchFieldRequest struct {
	Field string `json:"field" example:"currentPage" validate:"required"`
	Value any    `json:"value"`
}

// NoteRequest is the request body for creating or replacing a note.
type NoteRequest struct {
	Title    string `json:"title" example:"Groceries"`
	Content  string `json:"content" example:"milk, eggs #shopping"`
	IsPinned bool   `json:"is_pinned"`
}

// QuickNoteRequest is the request body for a quick note.
type QuickNoteRequest struct {
	Content string `json:"content" example:"call the dentist" validate:"required"`
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []records.UserNote `json:"notes" validate:"required"`
	Total int                `json:"total" example:"3" validate:"required"`
}

// DetoxSessionRequest carries the endpoints of a finished detox timer.
type DetoxSessionRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// DetoxSessionResponse reports whether the session was long enough to keep.
type DetoxSessionResponse struct {
	Session   records.DetoxSession `json:"session"`
	Persisted bool                 `json:"persisted"`
}

// TagInfo names the reserved title prefix of a domain.
type TagInfo struct {
	Domain tags.Domain `json:"domain" example:"book"`
	Tag    string      `json:"tag" example:"BOOK:"`
}
