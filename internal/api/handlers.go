package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sanctum/internal/prefs"
	"github.com/starford/sanctum/internal/records"
	"github.com/starford/sanctum/internal/storage"
	"github.com/starford/sanctum/internal/tags"
)

// Handler holds API route handlers.
type Handler struct {
	store *records.Store
	prefs *prefs.File
}

// NewHandler creates a new Handler.
func NewHandler(store *records.Store, p *prefs.File) *Handler {
	return &Handler{store: store, prefs: p}
}

// collectionHandler serves the CRUD routes of one record domain.
type collectionHandler struct {
	h *Handler
	c records.Collection
}

func (h *Handler) collection(d tags.Domain) *collectionHandler {
	c, err := h.store.Collection(d)
	if err != nil {
		panic(err)
	}
	return &collectionHandler{h: h, c: c}
}

func sortParam(r *http.Request) storage.Sort {
	return storage.Sort(r.URL.Query().Get("sort"))
}

// etag quotes a version for the ETag header.
func etag(version string) string {
	return `"` + version + `"`
}

// ifMatch returns the If-Match version with surrounding quotes stripped.
func ifMatch(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("If-Match"))
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}

// List handles GET /api/{collection}.
//
//	@Summary		List records of one domain
//	@Tags			records
//	@Produce		json
//	@Param			sort	query		string	false	"Sort field, '-' prefix for descending"	Enums(-updated_date, updated_date, created_date, title)
//	@Param			status	query		string	false	"Book status filter (books only)"
//	@Success		200		{object}	RecordListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/{collection} [get]
func (ch *collectionHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		items []any
		err   error
	)
	if status := r.URL.Query().Get("status"); status != "" && ch.c.Domain() == tags.Book {
		var books []records.Book
		books, err = ch.h.store.Books.ListByStatus(r.Context(), status, sortParam(r))
		for _, b := range books {
			items = append(items, b)
		}
	} else {
		items, err = ch.c.List(r.Context(), sortParam(r))
	}
	if err != nil {
		writeError(w, r, "list "+string(ch.c.Domain()), err)
		return
	}
	if items == nil {
		items = []any{}
	}
	writeJSON(w, http.StatusOK, RecordListResponse{Items: items, Total: len(items)})
}

// Get handles GET /api/{collection}/{id}.
//
//	@Summary		Get a single record
//	@Tags			records
//	@Produce		json
//	@Param			id	path		string	true	"Record id"
//	@Success		200	{object}	object
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/{collection}/{id} [get]
func (ch *collectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := ch.c.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "get "+string(ch.c.Domain()), err)
		return
	}
	ch.writeRecord(w, r, http.StatusOK, rec)
}

// Create handles POST /api/{collection}.
//
//	@Summary		Create a record
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Success		201	{object}	object
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/{collection} [post]
func (ch *collectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	payload, ok := readBody(w, r)
	if !ok {
		return
	}
	rec, err := ch.c.Save(r.Context(), "", payload, "")
	if err != nil {
		writeError(w, r, "create "+string(ch.c.Domain()), err)
		return
	}
	ch.writeRecord(w, r, http.StatusCreated, rec)
}

// Replace handles PUT /api/{collection}/{id}.
//
//	@Summary		Replace a record, optionally guarded by If-Match
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			id			path	string	true	"Record id"
//	@Param			If-Match	header	string	false	"ETag from a previous read"
//	@Success		200	{object}	object
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/{collection}/{id} [put]
func (ch *collectionHandler) Replace(w http.ResponseWriter, r *http.Request) {
	payload, ok := readBody(w, r)
	if !ok {
		return
	}
	rec, err := ch.c.Save(r.Context(), chi.URLParam(r, "id"), payload, ifMatch(r))
	if err != nil {
		writeError(w, r, "replace "+string(ch.c.Domain()), err)
		return
	}
	ch.writeRecord(w, r, http.StatusOK, rec)
}

// Patch handles PATCH /api/{collection}/{id}.
//
//	@Summary		Update one field of a record
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string				true	"Record id"
//	@Param			body	body	PatchFieldRequest	true	"Field and value"
//	@Success		200	{object}	object
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/{collection}/{id} [patch]
func (ch *collectionHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var req PatchFieldRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Field == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("field is required"))
		return
	}
	rec, err := ch.c.UpdateField(r.Context(), chi.URLParam(r, "id"), req.Field, req.Value)
	if err != nil {
		writeError(w, r, "patch "+string(ch.c.Domain()), err)
		return
	}
	ch.writeRecord(w, r, http.StatusOK, rec)
}

// Delete handles DELETE /api/{collection}/{id}.
//
//	@Summary		Delete a record
//	@Tags			records
//	@Param			id	path	string	true	"Record id"
//	@Success		204	"Record deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/{collection}/{id} [delete]
func (ch *collectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := ch.c.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete "+string(ch.c.Domain()), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/{collection}/stats.
//
//	@Summary		Aggregate statistics of one domain
//	@Tags			records
//	@Produce		json
//	@Success		200	{object}	object
//	@Security		BearerAuth
//	@Router			/{collection}/stats [get]
func (ch *collectionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := ch.c.Stats(r.Context())
	if err != nil {
		writeError(w, r, "stats "+string(ch.c.Domain()), err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (ch *collectionHandler) writeRecord(w http.ResponseWriter, r *http.Request, status int, rec any) {
	if v, err := ch.c.Version(rec); err == nil {
		w.Header().Set("ETag", etag(v))
	} else {
		slog.Warn("record version failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	}
	writeJSON(w, status, rec)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return nil, false
	}
	if !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return nil, false
	}
	return body, true
}

// RecordDetox handles POST /api/detox/sessions.
//
//	@Summary		Record a finished detox timer run
//	@Tags			detox
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DetoxSessionRequest	true	"Timer endpoints"
//	@Success		201		{object}	DetoxSessionResponse
//	@Success		200		{object}	DetoxSessionResponse	"Too short; not stored"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/detox/sessions [post]
func (h *Handler) RecordDetox(w http.ResponseWriter, r *http.Request) {
	var req DetoxSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		writeJSON(w, http.StatusBadRequest, errorBody("start_time and end_time are required"))
		return
	}
	session, persisted, err := h.store.Detox.Record(r.Context(), req.StartTime, req.EndTime)
	if err != nil {
		writeError(w, r, "record detox", err)
		return
	}
	status := http.StatusOK
	if persisted {
		status = http.StatusCreated
	}
	writeJSON(w, status, DetoxSessionResponse{Session: session, Persisted: persisted})
}

// Genres handles GET /api/books/genres.
func (h *Handler) Genres(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"genres": records.Genres})
}

// Categories handles GET /api/transactions/categories.
func (h *Handler) Categories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, records.Categories)
}

// Tags handles GET /api/tags.
//
//	@Summary		List the reserved title tags
//	@Tags			meta
//	@Produce		json
//	@Success		200	{array}	TagInfo
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, _ *http.Request) {
	reg := h.store.Registry()
	out := make([]TagInfo, 0, len(reg.Domains()))
	for _, d := range reg.Domains() {
		out = append(out, TagInfo{Domain: d, Tag: reg.PrefixFor(d)})
	}
	writeJSON(w, http.StatusOK, out)
}

// Dashboard handles GET /api/dashboard.
//
//	@Summary		Summary of every domain
//	@Tags			dashboard
//	@Produce		json
//	@Success		200	{object}	records.Dashboard
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dashboard [get]
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.store.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GetPreferences handles GET /api/preferences.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := h.prefs.Load()
	if err != nil {
		writeError(w, r, "load preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PutPreferences handles PUT /api/preferences.
func (h *Handler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	var p prefs.ClientPreferences
	if !decodeBody(w, r, &p) {
		return
	}
	saved, err := h.prefs.Save(p)
	if err != nil {
		writeError(w, r, "save preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
