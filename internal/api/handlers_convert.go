package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/dgallion1/mapsgpx/internal/convert"
	"github.com/dgallion1/mapsgpx/internal/parser"
	"github.com/dgallion1/mapsgpx/internal/route"
)

type convertRequest struct {
	Type  string `json:"type"`
	Input string `json:"input"`
	Name  string `json:"name,omitempty"`
}

// handleConvertQuery converts ?url= and returns the GPX as a download.
func (s *Server) handleConvertQuery(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("url")
	if input == "" {
		jsonError(w, "missing 'url' query parameter", http.StatusBadRequest)
		return
	}

	res, err := s.svc.Convert(r.Context(), convert.KindURL, input, r.URL.Query().Get("name"))
	if err != nil {
		convertError(w, err)
		return
	}
	writeGPX(w, res.GPX, "route.gpx")
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeConvertRequest(w, r)
	if !ok {
		return
	}
	kind, err := convert.ParseKind(req.Type)
	if err != nil {
		convertError(w, err)
		return
	}

	res, err := s.svc.Convert(r.Context(), kind, req.Input, req.Name)
	if err != nil {
		convertError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeConvertRequest(w, r)
	if !ok {
		return
	}
	kind, err := convert.ParseKind(req.Type)
	if err != nil {
		convertError(w, err)
		return
	}

	res, err := s.svc.Convert(r.Context(), kind, req.Input, req.Name)
	if err != nil {
		convertError(w, err)
		return
	}

	body, err := res.Route.GeoJSON().MarshalJSON()
	if err != nil {
		jsonError(w, "encode geojson: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(body)
}

// handleRouteToGPX renders a route supplied as JSON.
func (s *Server) handleRouteToGPX(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var rt route.Route
	if err := json.NewDecoder(r.Body).Decode(&rt); err != nil {
		jsonError(w, "invalid route json: "+err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.svc.ConvertRoute(r.Context(), "route", &rt, r.URL.Query().Get("name"))
	if err != nil {
		convertError(w, err)
		return
	}
	writeGPX(w, res.GPX, "route.gpx")
}

// handleConvertFile converts a single uploaded file synchronously.
func (s *Server) handleConvertFile(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	p, err := parser.ForFile(filename, parser.Options{PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext})
	if err != nil {
		convertError(w, err)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	rt, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		s.log.Info("file conversion rejected", "filename", filename, "ext", filepath.Ext(filename), "error", err)
		fileError(w, err)
		return
	}

	res, err := s.svc.ConvertRoute(r.Context(), "file", rt, r.FormValue("name"))
	if err != nil {
		convertError(w, err)
		return
	}

	if r.FormValue("format") == "json" {
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeGPX(w, res.GPX, gpxFilename(filename))
}

func (s *Server) decodeConvertRequest(w http.ResponseWriter, r *http.Request) (convertRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return req, false
	}
	if req.Type == "" || req.Input == "" {
		jsonError(w, "missing 'type' or 'input' in request body", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// fileError reports a parse failure of an uploaded document. Failures the
// classifier does not know are malformed files, not server faults.
func fileError(w http.ResponseWriter, err error) {
	if convert.IsClientError(err) {
		convertError(w, err)
		return
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error(), "kind": "invalid_file"})
}
