package healthcheck

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

func TestNormalizeListen(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":               "",
		"  ":             "",
		"8080":           ":8080",
		":9090":          ":9090",
		"127.0.0.1:8080": "127.0.0.1:8080",
	}
	for in, want := range cases {
		if got := NormalizeListen(in); got != want {
			t.Fatalf("NormalizeListen(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRegisterRoutes(t *testing.T) {
	t.Parallel()

	r := mux.NewRouter()
	RegisterRoutes(r, "poll", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "metrics-body")
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/healthz status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode /healthz: %v", err)
	}
	if body["ok"] != true || body["mode"] != "poll" {
		t.Fatalf("/healthz body = %#v", body)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Body.String() != "metrics-body" {
		t.Fatalf("/metrics body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /healthz status = %d, want 405", rec.Code)
	}
}

func TestStartServerServesUntilCanceled(t *testing.T) {
	t.Parallel()

	r := mux.NewRouter()
	RegisterRoutes(r, "poll", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := StartServer(ctx, nil, "127.0.0.1:0", "poll", r)
	if err != nil {
		t.Fatalf("StartServer() error = %v", err)
	}
	if srv == nil {
		t.Fatalf("StartServer() returned nil server")
	}
	if _, err := StartServer(ctx, nil, "", "poll", r); err == nil {
		t.Fatalf("StartServer() error = nil for empty listen")
	}
}
