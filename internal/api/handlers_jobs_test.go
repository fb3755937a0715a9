package api

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

func waitJob(t *testing.T, s *Server, jobID string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		body := decode(t, do(s, http.MethodGet, "/api/jobs/"+jobID, nil, nil))
		if st := body["status"]; st == "completed" || st == "failed" {
			return body
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", jobID)
	return nil
}

func TestBatch_JSONItems(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := postJSON(s, "/api/batch", map[string]any{
		"items": []map[string]string{
			{"type": "url", "input": dirURL, "name": "One"},
			{"type": "gpx", "input": "x"},
			{"type": "url", "input": "https://www.google.com/maps/@1,2,3z"},
		},
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	batchID, _ := body["batch_id"].(string)
	if batchID == "" {
		t.Fatal("expected batch id")
	}
	entries, _ := body["jobs"].([]any)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	var jobIDs []string
	for _, e := range entries {
		m := e.(map[string]any)
		if id, ok := m["job_id"].(string); ok {
			jobIDs = append(jobIDs, id)
		} else if m["kind"] != "unknown_type" {
			t.Errorf("expected rejected item to be unknown_type, got %v", m)
		}
	}
	if len(jobIDs) != 2 {
		t.Fatalf("expected 2 queued jobs, got %d", len(jobIDs))
	}

	first := waitJob(t, s, jobIDs[0])
	if first["status"] != "completed" {
		t.Fatalf("expected first job completed, got %v", first)
	}
	second := waitJob(t, s, jobIDs[1])
	if second["status"] != "failed" {
		t.Errorf("expected camera-only job to fail, got %v", second["status"])
	}

	rec = do(s, http.MethodGet, "/api/jobs/"+jobIDs[0]+"/gpx", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<name>One</name>") {
		t.Errorf("expected named GPX, got %s", rec.Body.String())
	}

	rec = do(s, http.MethodGet, "/api/jobs/"+jobIDs[1]+"/gpx", nil, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for failed job, got %d", rec.Code)
	}

	status := decode(t, do(s, http.MethodGet, "/api/batch/"+batchID, nil, nil))
	counts, _ := status["counts"].(map[string]any)
	if counts["completed"] != float64(1) || counts["failed"] != float64(1) {
		t.Errorf("unexpected batch counts %v", counts)
	}
}

func TestBatch_Files(t *testing.T) {
	s := newTestServer(t, testConfig())
	body, ct := multipartBody(t, "files", map[string]string{
		"a.kml":    `<kml><Placemark><Point><coordinates>1,2</coordinates></Point></Placemark></kml>`,
		"skip.zip": "PK",
	}, nil)
	rec := do(s, http.MethodPost, "/api/batch", body, map[string]string{"Content-Type": ct})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var jobID string
	for _, e := range decode(t, rec)["jobs"].([]any) {
		m := e.(map[string]any)
		if id, ok := m["job_id"].(string); ok {
			jobID = id
		}
	}
	if jobID == "" {
		t.Fatal("expected the kml file to be queued")
	}
	if job := waitJob(t, s, jobID); job["status"] != "completed" {
		t.Fatalf("expected completed, got %v", job)
	}

	rec = do(s, http.MethodGet, "/api/jobs/"+jobID+"/gpx", nil, nil)
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="a.gpx"` {
		t.Errorf("unexpected content disposition %q", cd)
	}
}

func TestBatch_Limits(t *testing.T) {
	s := newTestServer(t, testConfig())

	if rec := postJSON(s, "/api/batch", map[string]any{"items": []any{}}); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty batch, got %d", rec.Code)
	}

	items := make([]map[string]string, 6)
	for i := range items {
		items[i] = map[string]string{"type": "url", "input": dirURL}
	}
	if rec := postJSON(s, "/api/batch", map[string]any{"items": items}); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413 for oversized batch, got %d", rec.Code)
	}

	rec := postJSON(s, "/api/batch", map[string]any{"items": []map[string]string{{"type": "url", "input": " "}}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 when no item is valid, got %d", rec.Code)
	}
}

func TestJobs_NotFound(t *testing.T) {
	s := newTestServer(t, testConfig())
	for _, path := range []string{"/api/jobs/nope", "/api/jobs/nope/gpx", "/api/batch/nope"} {
		if rec := do(s, http.MethodGet, path, nil, nil); rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
	if rec := do(s, http.MethodDelete, "/api/jobs/nope", nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on delete, got %d", rec.Code)
	}
}

func TestJobs_Delete(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := postJSON(s, "/api/batch", map[string]any{
		"items": []map[string]string{{"type": "url", "input": dirURL}},
	})
	entries := decode(t, rec)["jobs"].([]any)
	jobID := entries[0].(map[string]any)["job_id"].(string)
	waitJob(t, s, jobID)

	if rec := do(s, http.MethodDelete, "/api/jobs/"+jobID, nil, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := do(s, http.MethodGet, "/api/jobs/"+jobID, nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected deleted job to be gone, got %d", rec.Code)
	}
}
