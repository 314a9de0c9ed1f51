package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tasklist/internal/itemservice"
	"github.com/starford/tasklist/internal/testutil"
)

// testEnv sets up a temp SQLite store, service, and the full server router.
func testEnv(t *testing.T) http.Handler {
	t.Helper()
	svc := itemservice.NewService(testutil.TestStore(t))
	r := chi.NewRouter()
	Mount(r, svc, []string{"*"})
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, path, nil)
	case string:
		req = httptest.NewRequest(method, path, strings.NewReader(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeItem(t *testing.T, w *httptest.ResponseRecorder) Item {
	t.Helper()
	var it Item
	if err := json.Unmarshal(w.Body.Bytes(), &it); err != nil {
		t.Fatalf("decode item: %v, body = %s", err, w.Body.String())
	}
	return it
}

func create(t *testing.T, h http.Handler, title string) Item {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/items", map[string]string{"title": title})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	return decodeItem(t, w)
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var e errResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body: %v, body = %s", err, w.Body.String())
	}
	return e.Error
}

func TestCreateAndGetItem(t *testing.T) {
	router := testEnv(t)

	created := create(t, router, "Buy milk")
	if created.ID == "" {
		t.Fatal("id is empty")
	}
	if created.Title != "Buy milk" || created.Done {
		t.Errorf("created = %+v", created)
	}
	if created.CreatedAt.IsZero() || !created.UpdatedAt.Equal(created.CreatedAt) {
		t.Errorf("timestamps = %v / %v", created.CreatedAt, created.UpdatedAt)
	}

	w := do(t, router, http.MethodGet, "/api/items/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	got := decodeItem(t, w)
	if got.ID != created.ID || got.Title != created.Title {
		t.Errorf("get = %+v, want %+v", got, created)
	}
}

func TestCreateResponseUsesCamelCase(t *testing.T) {
	router := testEnv(t)
	w := do(t, router, http.MethodPost, "/api/items", map[string]string{"title": "x"})
	var raw map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "title", "done", "createdAt", "updatedAt"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q in %s", key, w.Body.String())
		}
	}
}

func TestCreateTrimsTitle(t *testing.T) {
	router := testEnv(t)
	it := create(t, router, "  padded  ")
	if it.Title != "padded" {
		t.Errorf("title = %q, want padded", it.Title)
	}
}

func TestCreateInvalid(t *testing.T) {
	router := testEnv(t)

	cases := []struct {
		name string
		body any
	}{
		{"missing title", map[string]any{}},
		{"empty title", map[string]string{"title": ""}},
		{"whitespace title", map[string]string{"title": "   "}},
		{"non-string title", map[string]any{"title": 42}},
		{"malformed json", "{"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/items", c.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if errorMessage(t, w) == "" {
				t.Error("error message is empty")
			}
		})
	}

	w := do(t, router, http.MethodGet, "/api/items", nil)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("list after failed creates = %s, want []", w.Body.String())
	}
}

func TestListNewestFirst(t *testing.T) {
	router := testEnv(t)
	for _, title := range []string{"A", "B", "C"} {
		create(t, router, title)
		time.Sleep(5 * time.Millisecond)
	}

	w := do(t, router, http.MethodGet, "/api/items", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var items []Item
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	var titles []string
	for _, it := range items {
		titles = append(titles, it.Title)
	}
	if strings.Join(titles, ",") != "C,B,A" {
		t.Errorf("order = %v, want [C B A]", titles)
	}
}

func TestListETag(t *testing.T) {
	router := testEnv(t)
	create(t, router, "A")

	w := do(t, router, http.MethodGet, "/api/items", nil)
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("ETag header missing")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Errorf("conditional status = %d, want 304", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("304 body = %q, want empty", w.Body.String())
	}

	create(t, router, "B")
	req = httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status after change = %d, want 200", w.Code)
	}
}

func TestPatchDoneOnly(t *testing.T) {
	router := testEnv(t)
	it := create(t, router, "Buy milk")
	time.Sleep(5 * time.Millisecond)

	w := do(t, router, http.MethodPatch, "/api/items/"+it.ID, map[string]bool{"done": true})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", w.Code, w.Body.String())
	}
	got := decodeItem(t, w)
	if !got.Done || got.Title != "Buy milk" {
		t.Errorf("patched = %+v", got)
	}
	if !got.UpdatedAt.After(it.UpdatedAt) {
		t.Errorf("updatedAt %v did not advance past %v", got.UpdatedAt, it.UpdatedAt)
	}
	if !got.CreatedAt.Equal(it.CreatedAt) {
		t.Errorf("createdAt changed: %v -> %v", it.CreatedAt, got.CreatedAt)
	}
}

func TestPatchIgnoresUnknownFields(t *testing.T) {
	router := testEnv(t)
	it := create(t, router, "keep")

	w := do(t, router, http.MethodPatch, "/api/items/"+it.ID, map[string]any{
		"title":     "renamed",
		"id":        "forged",
		"createdAt": "2000-01-01T00:00:00Z",
		"color":     "red",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", w.Code, w.Body.String())
	}
	got := decodeItem(t, w)
	if got.ID != it.ID || got.Title != "renamed" || !got.CreatedAt.Equal(it.CreatedAt) {
		t.Errorf("patched = %+v", got)
	}
}

func TestPatchEmptyBody(t *testing.T) {
	router := testEnv(t)
	it := create(t, router, "x")

	for _, body := range []any{"", map[string]any{}} {
		w := do(t, router, http.MethodPatch, "/api/items/"+it.ID, body)
		if w.Code != http.StatusOK {
			t.Fatalf("empty patch status = %d, body = %s", w.Code, w.Body.String())
		}
		got := decodeItem(t, w)
		if got.Title != "x" || got.Done {
			t.Errorf("empty patch changed fields: %+v", got)
		}
	}
}

func TestPatchInvalid(t *testing.T) {
	router := testEnv(t)
	it := create(t, router, "x")

	cases := []struct {
		name string
		body any
	}{
		{"blank title", map[string]string{"title": "  "}},
		{"non-bool done", map[string]any{"done": "yes"}},
		{"malformed json", "{"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := do(t, router, http.MethodPatch, "/api/items/"+it.ID, c.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}

	w := do(t, router, http.MethodGet, "/api/items/"+it.ID, nil)
	if got := decodeItem(t, w); got.Title != "x" || got.Done {
		t.Errorf("item changed after rejected patches: %+v", got)
	}
}

func TestUnknownAndMalformedIDs(t *testing.T) {
	router := testEnv(t)
	gone := create(t, router, "gone")
	if w := do(t, router, http.MethodDelete, "/api/items/"+gone.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}

	cases := []struct {
		method string
		body   any
	}{
		{http.MethodGet, nil},
		{http.MethodPatch, map[string]bool{"done": true}},
		{http.MethodDelete, nil},
	}
	for _, c := range cases {
		w := do(t, router, c.method, "/api/items/"+gone.ID, c.body)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s unknown id status = %d, want 404", c.method, w.Code)
		}
		w = do(t, router, c.method, "/api/items/not-an-id", c.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s malformed id status = %d, want 400", c.method, w.Code)
		}
	}
}

func TestDeleteLifecycle(t *testing.T) {
	router := testEnv(t)
	it := create(t, router, "temp")

	w := do(t, router, http.MethodDelete, "/api/items/"+it.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("delete body = %q, want empty", w.Body.String())
	}

	w = do(t, router, http.MethodDelete, "/api/items/"+it.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}

	w = do(t, router, http.MethodGet, "/api/items", nil)
	if strings.Contains(w.Body.String(), it.ID) {
		t.Errorf("deleted item still listed: %s", w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	router := testEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/items/abc", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodPatch) {
		t.Errorf("Allow-Methods = %q, want PATCH", got)
	}
}

func TestHealth(t *testing.T) {
	router := testEnv(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		if w := do(t, router, http.MethodGet, path, nil); w.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, w.Code)
		}
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestReadyUnavailable(t *testing.T) {
	w := httptest.NewRecorder()
	Ready(failingPinger{})(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestListStoreFailureIsInternalError(t *testing.T) {
	st := testutil.TestStore(t)
	r := chi.NewRouter()
	Mount(r, itemservice.NewService(st), []string{"*"})

	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	if err := st.Close(context.Background()); err != nil {
		t.Fatal(err)
	}

	w := do(t, r, http.MethodGet, "/api/items", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"error":"internal error"}` {
		t.Errorf("body = %s", got)
	}
	if !strings.Contains(logs.String(), "path=/api/items") || !strings.Contains(logs.String(), "closed") {
		t.Errorf("error not logged: %s", logs.String())
	}
}

func TestOversizedBody(t *testing.T) {
	router := testEnv(t)
	it := create(t, router, "small")
	big := `{"title":"` + strings.Repeat("a", maxBodyBytes) + `"}`

	w := do(t, router, http.MethodPost, "/api/items", big)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("create status = %d, want 413", w.Code)
	}
	w = do(t, router, http.MethodPatch, "/api/items/"+it.ID, big)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("patch status = %d, want 413", w.Code)
	}
	if msg := errorMessage(t, w); msg != "request body too large" {
		t.Errorf("message = %q", msg)
	}
}

func TestImmediatePatchAdvancesUpdatedAt(t *testing.T) {
	router := testEnv(t)
	for i := 0; i < 50; i++ {
		it := create(t, router, "rapid")
		w := do(t, router, http.MethodPatch, "/api/items/"+it.ID, map[string]bool{"done": true})
		if w.Code != http.StatusOK {
			t.Fatalf("patch status = %d", w.Code)
		}
		if got := decodeItem(t, w); !got.UpdatedAt.After(it.UpdatedAt) {
			t.Fatalf("round %d: updatedAt %v did not advance past %v", i, got.UpdatedAt, it.UpdatedAt)
		}
	}
}
