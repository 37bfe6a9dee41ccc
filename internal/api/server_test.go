package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Aravindmodala/Bookology-sub001/internal/config"
	"github.com/Aravindmodala/Bookology-sub001/internal/media"
	"github.com/Aravindmodala/Bookology-sub001/internal/persist"
)

const testAPIKey = "test-editor-key"

// newTestServer wires the HTTP surface against a stub story backend.
func newTestServer(t *testing.T, backendContent string) (*Server, *httptest.Server) {
	t.Helper()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{"content": backendContent})
		case http.MethodPut:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(backend.Close)

	cfg := config.Config{
		EditorAPIKey:    testAPIKey,
		QuietPeriod:     1500 * time.Millisecond,
		HistoryLimit:    10,
		SaveTimeout:     5 * time.Second,
		PollMaxAttempts: 2,
		PollInterval:    time.Millisecond,
		MaxUploadBytes:  1 << 20,
	}
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	store := NewSessionStore(time.Hour, log)
	client := persist.NewClient(backend.URL, "backend-key")
	t.Cleanup(client.Close)
	uploader := media.NewUploader("http://localhost:1", "upload-key")
	t.Cleanup(uploader.Close)

	return NewServer(client, uploader, store, log, cfg), backend
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

func openSession(t *testing.T, srv *Server, content string) string {
	t.Helper()
	rec, out := doJSON(t, srv, http.MethodPost, "/api/sessions", map[string]any{
		"chapter_id": "ch-1",
		"content":    content,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open session: status %d, body %s", rec.Code, rec.Body.String())
	}
	id, _ := out["session_id"].(string)
	if id == "" {
		t.Fatal("open session: no session_id in response")
	}
	return id
}

func TestHealthIsPublic(t *testing.T) {
	srv, _ := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer wrong-key")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for bad key", rec.Code)
	}
}

func TestOpenSessionFetchesFromBackend(t *testing.T) {
	srv, _ := newTestServer(t, "<p>From the backend</p>")
	rec, out := doJSON(t, srv, http.MethodPost, "/api/sessions", map[string]any{
		"chapter_id": "ch-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	id := out["session_id"].(string)

	rec, out = doJSON(t, srv, http.MethodGet, "/api/sessions/"+id+"/content", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("content status = %d", rec.Code)
	}
	if got := out["content"].(string); got != "<p>From the backend</p>" {
		t.Errorf("content = %q", got)
	}
}

func TestEditFlow(t *testing.T) {
	srv, _ := newTestServer(t, "")
	id := openSession(t, srv, "<p>Hello</p>")

	rec, _ := doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/edits", map[string]any{
		"op":   "insert_text",
		"pos":  6,
		"text": " world",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit status = %d, body %s", rec.Code, rec.Body.String())
	}

	_, out := doJSON(t, srv, http.MethodGet, "/api/sessions/"+id+"/content", nil)
	if got := out["content"].(string); got != "<p>Hello world</p>" {
		t.Errorf("content = %q", got)
	}
}

func TestStaleEditReportsDropped(t *testing.T) {
	srv, _ := newTestServer(t, "")
	id := openSession(t, srv, "<p>Hello</p>")

	rec, out := doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/edits", map[string]any{
		"op":   "insert_text",
		"pos":  9999,
		"text": "x",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if dropped, _ := out["dropped"].(bool); !dropped {
		t.Error("response missing dropped flag")
	}

	_, out = doJSON(t, srv, http.MethodGet, "/api/sessions/"+id+"/content", nil)
	if got := out["content"].(string); got != "<p>Hello</p>" {
		t.Errorf("content changed after dropped edit: %q", got)
	}
}

func TestUnknownOpRejected(t *testing.T) {
	srv, _ := newTestServer(t, "")
	id := openSession(t, srv, "<p>Hello</p>")
	rec, _ := doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/edits", map[string]any{
		"op": "teleport",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUndoEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "")
	id := openSession(t, srv, "<p>Hello</p>")

	doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/edits", map[string]any{
		"op": "insert_text", "pos": 6, "text": "!",
	})
	rec, out := doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/undo", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("undo status = %d", rec.Code)
	}
	if applied, _ := out["applied"].(bool); !applied {
		t.Error("undo not applied")
	}
	_, out = doJSON(t, srv, http.MethodGet, "/api/sessions/"+id+"/content", nil)
	if got := out["content"].(string); got != "<p>Hello</p>" {
		t.Errorf("content = %q after undo", got)
	}

	// Nothing left to undo.
	_, out = doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/undo", nil)
	if applied, _ := out["applied"].(bool); applied {
		t.Error("second undo should not apply")
	}
}

func TestRefreshAppliesBackendContent(t *testing.T) {
	srv, _ := newTestServer(t, "<p>Updated remotely</p>")
	id := openSession(t, srv, "<p>Original</p>")

	rec, out := doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/refresh", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := out["decision"].(string); got != "apply" {
		t.Fatalf("decision = %q, want apply", got)
	}
	_, out = doJSON(t, srv, http.MethodGet, "/api/sessions/"+id+"/content", nil)
	if got := out["content"].(string); got != "<p>Updated remotely</p>" {
		t.Errorf("content = %q", got)
	}
}

func TestRefreshHeldDuringSelection(t *testing.T) {
	srv, _ := newTestServer(t, "<p>Updated remotely</p>")
	id := openSession(t, srv, "<p>Original</p>")

	doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/edits", map[string]any{
		"op": "selection", "from": 1, "to": 5,
	})
	_, out := doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/refresh", nil)
	if got := out["decision"].(string); got != "selection_held" {
		t.Fatalf("decision = %q, want selection_held", got)
	}
	_, out = doJSON(t, srv, http.MethodGet, "/api/sessions/"+id+"/content", nil)
	if got := out["content"].(string); got != "<p>Original</p>" {
		t.Errorf("content replaced despite held selection: %q", got)
	}
}

func TestCloseSessionFlushesAndRemoves(t *testing.T) {
	srv, _ := newTestServer(t, "")
	id := openSession(t, srv, "<p>Hello</p>")

	doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/edits", map[string]any{
		"op": "insert_text", "pos": 6, "text": "!",
	})
	rec, out := doJSON(t, srv, http.MethodDelete, "/api/sessions/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("close status = %d", rec.Code)
	}
	if closed, _ := out["closed"].(bool); !closed {
		t.Error("session not reported closed")
	}
	if _, ok := out["save_error"]; ok {
		t.Errorf("unexpected save error: %v", out["save_error"])
	}

	rec, _ = doJSON(t, srv, http.MethodGet, "/api/sessions/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status after close = %d, want 404", rec.Code)
	}
}

func TestSessionNotFound(t *testing.T) {
	srv, _ := newTestServer(t, "")
	rec, _ := doJSON(t, srv, http.MethodGet, "/api/sessions/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
