package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/mapsgpx/internal/cache"
	"github.com/dgallion1/mapsgpx/internal/config"
	"github.com/dgallion1/mapsgpx/internal/convert"
	"github.com/dgallion1/mapsgpx/internal/pipeline"
	"github.com/dgallion1/mapsgpx/internal/stats"
)

const dirURL = "https://www.google.com/maps/dir/40.7128,-74.0060/40.7580,-73.9855"

func testConfig() config.Config {
	return config.Config{
		WorkerCount:    1,
		MaxQueueSize:   10,
		MaxBatchItems:  5,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
	}
}

func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := convert.NewService(cache.NewMemory(), time.Hour, stats.NewTracker(time.Hour), log)
	orch := pipeline.NewOrchestrator(cfg, svc, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(svc, orch, log, cfg)
}

func do(s *Server, method, target string, body io.Reader, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func postJSON(s *Server, target string, v any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(v)
	return do(s, http.MethodPost, target, bytes.NewReader(b), map[string]string{"Content-Type": "application/json"})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json body %q: %v", rec.Body.String(), err)
	}
	return out
}

func multipartBody(t *testing.T, field string, files map[string]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(s, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != `{"status":"ok"}` {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig())
	do(s, http.MethodGet, "/health", nil, nil)
	rec := do(s, http.MethodGet, "/metrics", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "mapsgpx_http_requests_total") {
		t.Error("expected http request metrics in exposition")
	}
}

func TestAuth(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = "secret"
	s := newTestServer(t, cfg)

	if rec := do(s, http.MethodGet, "/api/formats", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
	if rec := do(s, http.MethodGet, "/api/formats", nil, map[string]string{"Authorization": "Bearer wrong"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", rec.Code)
	}
	if rec := do(s, http.MethodGet, "/api/formats", nil, map[string]string{"Authorization": "Bearer secret"}); rec.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", rec.Code)
	}
	if rec := do(s, http.MethodGet, "/health", nil, nil); rec.Code != http.StatusOK {
		t.Errorf("expected health to stay public, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = "secret"
	s := newTestServer(t, cfg)

	rec := do(s, http.MethodOptions, "/api/convert", nil, map[string]string{
		"Origin":                        "https://example.com",
		"Access-Control-Request-Method": "POST",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected allow-origin *, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("expected POST in allowed methods, got %q", got)
	}
}

func TestFormats(t *testing.T) {
	s := newTestServer(t, testConfig())
	body := decode(t, do(s, http.MethodGet, "/api/formats", nil, nil))
	exts, _ := body["extensions"].([]any)
	if len(exts) == 0 {
		t.Fatalf("expected extensions, got %v", body)
	}
}
