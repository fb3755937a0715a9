package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/mapsgpx/internal/convert"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// convertError reports a failed conversion with its error kind. Input that
// is well formed but holds no usable route is 422, other caller mistakes
// are 400.
func convertError(w http.ResponseWriter, err error) {
	kind := convert.Classify(err)
	code := http.StatusBadRequest
	switch kind {
	case "no_route_data", "no_maps_link", "coordinate_range":
		code = http.StatusUnprocessableEntity
	case "internal":
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, map[string]string{"error": err.Error(), "kind": kind})
}

func writeGPX(w http.ResponseWriter, doc, filename string) {
	w.Header().Set("Content-Type", "application/gpx+xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write([]byte(doc))
}

// gpxFilename derives the download name from an uploaded file name.
func gpxFilename(name string) string {
	name = sanitizeFilename(name)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "unnamed" {
		name = "route"
	}
	return name + ".gpx"
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	name = strings.ReplaceAll(name, `"`, "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
