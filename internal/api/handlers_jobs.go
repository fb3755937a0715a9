package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/mapsgpx/internal/convert"
	"github.com/dgallion1/mapsgpx/internal/parser"
	"github.com/dgallion1/mapsgpx/internal/pipeline"
)

type batchRequest struct {
	Items []convertRequest `json:"items"`
}

// handleBatch queues one job per item. JSON bodies carry textual items;
// multipart bodies carry files under "files".
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		jobs    []*pipeline.Job
		results []map[string]any
		ok      bool
	)
	if mediaType == "multipart/form-data" {
		jobs, results, ok = s.batchFiles(w, r)
	} else {
		jobs, results, ok = s.batchItems(w, r)
	}
	if !ok {
		return
	}
	if len(jobs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "no valid items",
			"jobs":  results,
		})
		return
	}

	batchID, err := s.orchestrator.SubmitBatch(jobs)
	if err != nil {
		s.log.Warn("batch partially rejected", "batch_id", batchID, "error", err)
	}
	for _, job := range jobs {
		snap := job.Snapshot()
		entry := map[string]any{
			"index":    snap.Index,
			"job_id":   snap.ID,
			"status":   snap.Status,
			"poll_url": fmt.Sprintf("/api/jobs/%s", snap.ID),
		}
		if snap.Filename != "" {
			entry["filename"] = snap.Filename
		}
		if len(snap.Errors) > 0 {
			entry["error"] = snap.Errors[0]
		}
		results = append(results, entry)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"batch_id": batchID,
		"poll_url": fmt.Sprintf("/api/batch/%s", batchID),
		"jobs":     results,
	})
}

func (s *Server) batchItems(w http.ResponseWriter, r *http.Request) ([]*pipeline.Job, []map[string]any, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}
	if len(req.Items) == 0 {
		jsonError(w, "at least one item is required", http.StatusBadRequest)
		return nil, nil, false
	}
	if len(req.Items) > s.cfg.MaxBatchItems {
		jsonError(w, fmt.Sprintf("batch exceeds %d items", s.cfg.MaxBatchItems), http.StatusRequestEntityTooLarge)
		return nil, nil, false
	}

	var jobs []*pipeline.Job
	var rejected []map[string]any
	for i, item := range req.Items {
		kind, err := convert.ParseKind(item.Type)
		if err == nil && strings.TrimSpace(item.Input) == "" {
			err = convert.ErrEmptyInput
		}
		if err != nil {
			rejected = append(rejected, map[string]any{
				"item":  i,
				"error": err.Error(),
				"kind":  convert.Classify(err),
			})
			continue
		}
		jobs = append(jobs, pipeline.NewTextJob("", kind, item.Input, item.Name))
	}
	return jobs, rejected, true
}

func (s *Server) batchFiles(w http.ResponseWriter, r *http.Request) ([]*pipeline.Job, []map[string]any, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*int64(s.cfg.MaxBatchItems)+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return nil, nil, false
	}
	if len(files) > s.cfg.MaxBatchItems {
		jsonError(w, fmt.Sprintf("batch exceeds %d items", s.cfg.MaxBatchItems), http.StatusRequestEntityTooLarge)
		return nil, nil, false
	}

	var jobs []*pipeline.Job
	var rejected []map[string]any
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !parser.IsSupportedExtension(filename) {
			rejected = append(rejected, map[string]any{
				"filename": filename,
				"error":    fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)),
				"kind":     "unsupported_format",
			})
			continue
		}

		f, err := fh.Open()
		if err != nil {
			rejected = append(rejected, map[string]any{
				"filename": filename,
				"error":    "failed to open file",
			})
			continue
		}

		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
		f.Close()
		if err != nil || int64(len(data)) > s.cfg.MaxUploadBytes {
			rejected = append(rejected, map[string]any{
				"filename": filename,
				"error":    "file too large or read error",
			})
			continue
		}

		jobs = append(jobs, pipeline.NewFileJob("", filename, data, r.FormValue("name")))
	}
	return jobs, rejected, true
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	jobs := s.orchestrator.GetBatch(batchID)
	if len(jobs) == 0 {
		jsonError(w, "batch not found", http.StatusNotFound)
		return
	}

	snaps := make([]pipeline.JobSnapshot, 0, len(jobs))
	counts := make(map[pipeline.JobStatus]int)
	for _, job := range jobs {
		snap := job.Snapshot()
		counts[snap.Status]++
		snaps = append(snaps, snap)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"batch_id": batchID,
		"counts":   counts,
		"jobs":     snaps,
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleJobGPX(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	snap := job.Snapshot()
	switch snap.Status {
	case pipeline.StatusCompleted:
	case pipeline.StatusFailed:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "job failed",
			"status": snap.Status,
			"errors": snap.Errors,
		})
		return
	default:
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  "job not finished",
			"status": snap.Status,
		})
		return
	}

	filename := "route.gpx"
	if snap.Filename != "" {
		filename = gpxFilename(snap.Filename)
	}
	writeGPX(w, job.Result().GPX, filename)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if !s.orchestrator.DeleteJob(chi.URLParam(r, "jobID")) {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
