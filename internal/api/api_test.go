package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/sanctum/internal/prefs"
	"github.com/starford/sanctum/internal/records"
	"github.com/starford/sanctum/internal/storage"
	"github.com/starford/sanctum/internal/testutil"
)

type env struct {
	store  *records.Store
	mem    *storage.Memory
	router http.Handler
}

func testEnv(t *testing.T, authToken string) env {
	t.Helper()
	store, mem := testutil.TestStore(t)
	router := NewRouter(store, RouterConfig{
		AuthEnabled: authToken != "",
		Token:       authToken,
		Owner:       "me",
		Preferences: prefs.NewFile(filepath.Join(t.TempDir(), "sanctum.db")),
	})
	return env{store: store, mem: mem, router: router}
}

func (e env) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestBookLifecycle(t *testing.T) {
	e := testEnv(t, "")

	w := e.do(t, http.MethodPost, "/books", map[string]any{
		"title": "Dune", "author": "Herbert", "totalPages": 412, "currentPage": 0, "status": "want_to_read",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	book := decode[records.Book](t, w)
	if book.ID == "" || w.Header().Get("ETag") == "" {
		t.Fatalf("missing id or ETag: %+v", book)
	}
	doc, err := e.mem.Get(t.Context(), book.ID)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "BOOK: Dune by Herbert" || doc.CreatedBy != "me" {
		t.Errorf("stored doc = %+v", doc)
	}

	w = e.do(t, http.MethodPatch, "/books/"+book.ID, map[string]any{"field": "currentPage", "value": 412})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decode[records.Book](t, w); got.Status != records.Finished {
		t.Errorf("status = %s, want finished", got.Status)
	}

	w = e.do(t, http.MethodGet, "/books?status=finished", nil)
	list := decode[RecordListResponse](t, w)
	if list.Total != 1 {
		t.Errorf("finished books = %d", list.Total)
	}

	w = e.do(t, http.MethodGet, "/books/stats", nil)
	stats := decode[records.BookStats](t, w)
	if stats.Finished != 1 || stats.PagesRead != 412 {
		t.Errorf("stats = %+v", stats)
	}

	w = e.do(t, http.MethodDelete, "/books/"+book.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = e.do(t, http.MethodDelete, "/books/"+book.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestValidationIs400(t *testing.T) {
	e := testEnv(t, "")
	cases := []struct {
		path string
		body any
	}{
		{"/books", map[string]any{"title": "No author"}},
		{"/transactions", map[string]any{"type": "expense", "amount": 0, "description": "x"}},
		{"/books", "{not json"},
		{"/books?sort=rating", nil},
	}
	for _, c := range cases {
		method := http.MethodPost
		if c.body == nil {
			method = http.MethodGet
		}
		w := e.do(t, method, c.path, c.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s %s: status = %d, body = %s", method, c.path, w.Code, w.Body.String())
		}
	}
}

func TestReplaceWithIfMatch(t *testing.T) {
	e := testEnv(t, "")
	w := e.do(t, http.MethodPost, "/goals", map[string]any{"title": "Run", "progress": 10})
	goal := decode[records.Goal](t, w)
	tag := w.Header().Get("ETag")

	w = e.do(t, http.MethodGet, "/goals/"+goal.ID, nil)
	if got := w.Header().Get("ETag"); got != tag {
		t.Errorf("GET ETag = %s, create ETag = %s", got, tag)
	}

	goal.Progress = 50
	w = e.do(t, http.MethodPut, "/goals/"+goal.ID, goal, "If-Match", tag)
	if w.Code != http.StatusOK {
		t.Fatalf("replace with fresh ETag = %d, body = %s", w.Code, w.Body.String())
	}

	goal.Progress = 70
	w = e.do(t, http.MethodPut, "/goals/"+goal.ID, goal, "If-Match", tag)
	if w.Code != http.StatusConflict {
		t.Errorf("replace with stale ETag = %d, want 409", w.Code)
	}

	w = e.do(t, http.MethodPut, "/goals/"+goal.ID, goal)
	if w.Code != http.StatusOK {
		t.Errorf("replace without If-Match = %d, want 200", w.Code)
	}
	if got := decode[records.Goal](t, w); got.Progress != 70 {
		t.Errorf("progress = %d", got.Progress)
	}
}

func TestCrossDomainIs404(t *testing.T) {
	e := testEnv(t, "")
	w := e.do(t, http.MethodPost, "/goals", map[string]any{"title": "Run"})
	goal := decode[records.Goal](t, w)
	for _, path := range []string{"/books/" + goal.ID, "/notes/" + goal.ID} {
		if w := e.do(t, http.MethodGet, path, nil); w.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, w.Code)
		}
	}
}

func TestStorageFailureIs502(t *testing.T) {
	e := testEnv(t, "")
	e.mem.Fail(errors.New("unavailable"))
	if w := e.do(t, http.MethodGet, "/transactions", nil); w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/dashboard", nil); w.Code != http.StatusBadGateway {
		t.Errorf("dashboard status = %d, want 502", w.Code)
	}
}

func TestDetoxSessions(t *testing.T) {
	e := testEnv(t, "")
	w := e.do(t, http.MethodPost, "/detox/sessions", map[string]string{
		"start_time": "2024-03-01T10:00:00Z", "end_time": "2024-03-01T10:00:03Z",
	})
	if w.Code != http.StatusOK || decode[DetoxSessionResponse](t, w).Persisted {
		t.Errorf("3s session: status = %d body = %s", w.Code, w.Body.String())
	}
	w = e.do(t, http.MethodPost, "/detox/sessions", map[string]string{
		"start_time": "2024-03-01T10:00:00Z", "end_time": "2024-03-01T10:00:06Z",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("6s session: status = %d body = %s", w.Code, w.Body.String())
	}
	if got := decode[DetoxSessionResponse](t, w); !got.Persisted || got.Session.DurationSeconds != 6 {
		t.Errorf("6s session = %+v", got)
	}
	stats := decode[records.DetoxStats](t, e.do(t, http.MethodGet, "/detox/stats", nil))
	if stats.SessionCount != 1 || stats.TotalTime != 6 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestNotes(t *testing.T) {
	e := testEnv(t, "")
	_ = e.do(t, http.MethodPost, "/books", map[string]any{"title": "Dune", "author": "Herbert"})

	w := e.do(t, http.MethodPost, "/notes", NoteRequest{Title: "BOOK: my review", Content: "great"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("reserved title status = %d", w.Code)
	}

	w = e.do(t, http.MethodPost, "/notes", NoteRequest{Title: "Groceries", Content: "milk #shopping"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}
	note := decode[records.UserNote](t, w)
	tag := w.Header().Get("ETag")

	w = e.do(t, http.MethodPost, "/notes/quick", QuickNoteRequest{Content: "call mum"})
	if w.Code != http.StatusCreated {
		t.Fatalf("quick = %d", w.Code)
	}
	w = e.do(t, http.MethodPost, "/notes/"+note.ID+"/pin", nil)
	if !decode[records.UserNote](t, w).IsPinned {
		t.Error("note not pinned")
	}

	list := decode[NoteListResponse](t, e.do(t, http.MethodGet, "/notes", nil))
	if list.Total != 2 || list.Notes[0].ID != note.ID {
		t.Errorf("notes = %+v", list)
	}
	list = decode[NoteListResponse](t, e.do(t, http.MethodGet, "/notes?q=MILK", nil))
	if list.Total != 1 {
		t.Errorf("search hits = %d", list.Total)
	}

	w = e.do(t, http.MethodPut, "/notes/"+note.ID, NoteRequest{Title: "Groceries", Content: "milk, eggs"}, "If-Match", tag)
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	w = e.do(t, http.MethodPut, "/notes/"+note.ID, NoteRequest{Title: "Groceries", Content: "stale"}, "If-Match", tag)
	if w.Code != http.StatusConflict {
		t.Errorf("stale update = %d, want 409", w.Code)
	}

	if w := e.do(t, http.MethodDelete, "/notes/"+note.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete = %d", w.Code)
	}
}

func TestDashboardAndMeta(t *testing.T) {
	e := testEnv(t, "")
	_ = e.do(t, http.MethodPost, "/transactions", map[string]any{"type": "income", "amount": 1000, "category": "salary", "description": "pay"})
	_ = e.do(t, http.MethodPost, "/transactions", map[string]any{"type": "expense", "amount": 300, "category": "food", "description": "food"})

	d := decode[records.Dashboard](t, e.do(t, http.MethodGet, "/dashboard", nil))
	if d.Finance.Balance != 700 || len(d.RecentTransactions) != 2 {
		t.Errorf("dashboard = %+v", d)
	}

	cats := decode[map[string][]string](t, e.do(t, http.MethodGet, "/transactions/categories", nil))
	if len(cats["expense"]) == 0 || len(cats["income"]) == 0 {
		t.Errorf("categories = %v", cats)
	}
	tags := decode[[]TagInfo](t, e.do(t, http.MethodGet, "/tags", nil))
	if len(tags) != 6 || tags[0].Tag != "BOOK:" {
		t.Errorf("tags = %+v", tags)
	}
	if w := e.do(t, http.MethodGet, "/books/genres", nil); !strings.Contains(w.Body.String(), "fiction") {
		t.Errorf("genres = %s", w.Body.String())
	}
}

func TestPreferences(t *testing.T) {
	e := testEnv(t, "")
	w := e.do(t, http.MethodPut, "/preferences", prefs.ClientPreferences{Username: "rowan", JoinedRooms: []string{"ROOM1"}})
	if w.Code != http.StatusOK {
		t.Fatalf("put = %d, body = %s", w.Code, w.Body.String())
	}
	got := decode[prefs.ClientPreferences](t, e.do(t, http.MethodGet, "/preferences", nil))
	if got.Username != "rowan" || len(got.JoinedRooms) != 1 {
		t.Errorf("prefs = %+v", got)
	}
	w = e.do(t, http.MethodPut, "/preferences", prefs.ClientPreferences{Username: strings.Repeat("x", 100)})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid prefs = %d", w.Code)
	}
}

func TestAuthToken(t *testing.T) {
	e := testEnv(t, "secret")
	if w := e.do(t, http.MethodGet, "/books", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/books", nil, "Authorization", "Bearer wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/books", nil, "Authorization", "Bearer secret"); w.Code != http.StatusOK {
		t.Errorf("good token = %d, want 200", w.Code)
	}
}

func TestMutationHook(t *testing.T) {
	store, _ := testutil.TestStore(t)
	calls := 0
	router := NewRouter(store, RouterConfig{Owner: "me", OnMutation: func() { calls++ }})

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)
	req = httptest.NewRequest(http.MethodPost, "/goals", strings.NewReader(`{"title":"x"}`))
	router.ServeHTTP(httptest.NewRecorder(), req)
	if calls != 1 {
		t.Errorf("hook calls = %d, want 1", calls)
	}
}
