package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sanctum/internal/checksum"
	"github.com/starford/sanctum/internal/records"
)

func writeNote(w http.ResponseWriter, status int, n records.UserNote) {
	w.Header().Set("ETag", etag(checksum.Document(n.Title, n.Content)))
	writeJSON(w, status, n)
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List plain notes, pinned first
//	@Tags			notes
//	@Produce		json
//	@Param			q		query		string	false	"Case-insensitive search over title and content"
//	@Param			sort	query		string	false	"Sort field"	Enums(-updated_date, updated_date, created_date, title)
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.store.Notes.List(r.Context(), r.URL.Query().Get("q"), sortParam(r))
	if err != nil {
		writeError(w, r, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	records.UserNote
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Notes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "get note", err)
		return
	}
	writeNote(w, http.StatusOK, n)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NoteRequest	true	"Note to create"
//	@Success		201		{object}	records.UserNote
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := h.store.Notes.Create(r.Context(), req.Title, req.Content, req.IsPinned)
	if err != nil {
		writeError(w, r, "create note", err)
		return
	}
	writeNote(w, http.StatusCreated, n)
}

// QuickNote handles POST /api/notes/quick.
//
//	@Summary		Capture a timestamped quick note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		QuickNoteRequest	true	"Content"
//	@Success		201		{object}	records.UserNote
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/quick [post]
func (h *Handler) QuickNote(w http.ResponseWriter, r *http.Request) {
	var req QuickNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := h.store.Notes.QuickNote(r.Context(), req.Content)
	if err != nil {
		writeError(w, r, "quick note", err)
		return
	}
	writeNote(w, http.StatusCreated, n)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Replace a note's title and content
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path	string		true	"Note id"
//	@Param			If-Match	header	string		false	"ETag from a previous read"
//	@Param			body		body	NoteRequest	true	"Updated note"
//	@Success		200	{object}	records.UserNote
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if want := ifMatch(r); want != "" {
		cur, err := h.store.Notes.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, "update note", err)
			return
		}
		if checksum.Document(cur.Title, cur.Content) != want {
			writeJSON(w, http.StatusConflict, errorBody("version mismatch"))
			return
		}
	}
	n, err := h.store.Notes.Update(r.Context(), id, req.Title, req.Content)
	if err != nil {
		writeError(w, r, "update note", err)
		return
	}
	writeNote(w, http.StatusOK, n)
}

// TogglePin handles POST /api/notes/{id}/pin.
//
//	@Summary		Toggle a note's pinned flag
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	records.UserNote
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/pin [post]
func (h *Handler) TogglePin(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Notes.TogglePin(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "pin note", err)
		return
	}
	writeNote(w, http.StatusOK, n)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Notes.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
