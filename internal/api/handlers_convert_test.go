package api

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestConvertQuery(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := do(s, http.MethodGet, "/api/convert?url="+url.QueryEscape(dirURL), nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/gpx+xml" {
		t.Errorf("expected gpx content type, got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="route.gpx"` {
		t.Errorf("unexpected content disposition %q", cd)
	}
	if !strings.Contains(rec.Body.String(), `<wpt lat="40.7128" lon="-74.006">`) {
		t.Errorf("expected start waypoint in GPX, got %s", rec.Body.String())
	}
}

func TestConvertQuery_Errors(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := do(s, http.MethodGet, "/api/convert", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing url, got %d", rec.Code)
	}

	rec = do(s, http.MethodGet, "/api/convert?url="+url.QueryEscape("https://example.com/maps/dir/1,1/2,2"), nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for foreign host, got %d", rec.Code)
	}
	if kind := decode(t, rec)["kind"]; kind != "not_google_maps" {
		t.Errorf("expected kind not_google_maps, got %v", kind)
	}

	rec = do(s, http.MethodGet, "/api/convert?url="+url.QueryEscape("https://maps.app.goo.gl/abc"), nil, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for unexpanded short link, got %d", rec.Code)
	}
}

func TestConvertPost(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := postJSON(s, "/api/convert", map[string]string{"type": "url", "input": dirURL, "name": "Midtown"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	gpx, _ := body["gpx"].(string)
	if !strings.Contains(gpx, "<name>Midtown</name>") {
		t.Errorf("expected named GPX, got %q", gpx)
	}
	summary, _ := body["summary"].(map[string]any)
	if summary["waypoints"] != float64(2) {
		t.Errorf("expected 2 waypoints in summary, got %v", summary["waypoints"])
	}
	rt, _ := body["route"].(map[string]any)
	if wps, _ := rt["waypoints"].([]any); len(wps) != 2 {
		t.Errorf("expected 2 route waypoints, got %v", rt["waypoints"])
	}
}

func TestConvertPost_KML(t *testing.T) {
	s := newTestServer(t, testConfig())
	kml := `<kml><Document><name>Loop</name><Placemark><name>A</name><Point><coordinates>-122.4,37.8,12</coordinates></Point></Placemark></Document></kml>`
	rec := postJSON(s, "/api/convert", map[string]string{"type": "kml", "input": kml})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	gpx, _ := decode(t, rec)["gpx"].(string)
	if !strings.Contains(gpx, "<ele>12</ele>") {
		t.Errorf("expected elevation in GPX, got %q", gpx)
	}
}

func TestConvertPost_BadRequests(t *testing.T) {
	s := newTestServer(t, testConfig())
	tests := []struct {
		name string
		body any
		code int
		kind string
	}{
		{"missing input", map[string]string{"type": "url"}, http.StatusBadRequest, ""},
		{"missing type", map[string]string{"input": dirURL}, http.StatusBadRequest, ""},
		{"unknown type", map[string]string{"type": "gpx", "input": "x"}, http.StatusBadRequest, "unknown_type"},
		{"bad kml", map[string]string{"type": "kml", "input": "<kml><a></b></kml>"}, http.StatusBadRequest, "invalid_kml"},
		{"bad polyline", map[string]string{"type": "polyline", "input": "!!!"}, http.StatusBadRequest, "invalid_polyline"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(s, "/api/convert", tt.body)
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
			if tt.kind != "" {
				if kind := decode(t, rec)["kind"]; kind != tt.kind {
					t.Errorf("expected kind %q, got %v", tt.kind, kind)
				}
			}
		})
	}

	rec := do(s, http.MethodPost, "/api/convert", strings.NewReader("{not json"), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed json, got %d", rec.Code)
	}
}

func TestGeoJSON(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec := postJSON(s, "/api/geojson", map[string]string{"type": "url", "input": dirURL})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("expected geo+json content type, got %q", ct)
	}
	body := decode(t, rec)
	if body["type"] != "FeatureCollection" {
		t.Errorf("expected FeatureCollection, got %v", body["type"])
	}
	if features, _ := body["features"].([]any); len(features) != 3 {
		t.Errorf("expected 2 points and 1 line, got %d features", len(features))
	}
}

func TestRouteToGPX(t *testing.T) {
	s := newTestServer(t, testConfig())
	route := `{"name":"Manual","waypoints":[{"coord":{"lat":1.5,"lon":2.5},"name":"P"}],"tracks":[]}`
	rec := do(s, http.MethodPost, "/api/gpx", strings.NewReader(route), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `<wpt lat="1.5" lon="2.5">`) {
		t.Errorf("unexpected GPX %s", rec.Body.String())
	}

	bad := `{"waypoints":[{"coord":{"lat":95,"lon":0}}]}`
	rec = do(s, http.MethodPost, "/api/gpx", strings.NewReader(bad), nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for out-of-range route, got %d", rec.Code)
	}
	if kind := decode(t, rec)["kind"]; kind != "coordinate_range" {
		t.Errorf("expected kind coordinate_range, got %v", kind)
	}
}

func TestConvertFile(t *testing.T) {
	s := newTestServer(t, testConfig())
	body, ct := multipartBody(t, "file", map[string]string{
		"weekend.txt": "ride this: " + dirURL + "\n",
	}, nil)
	rec := do(s, http.MethodPost, "/api/convert/file", body, map[string]string{"Content-Type": ct})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="weekend.gpx"` {
		t.Errorf("unexpected content disposition %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "<name>weekend</name>") {
		t.Errorf("expected route named after the file, got %s", rec.Body.String())
	}
}

func TestConvertFile_JSONFormat(t *testing.T) {
	s := newTestServer(t, testConfig())
	body, ct := multipartBody(t, "file", map[string]string{
		"stops.csv": "lat,lon,name\n1,2,A\n3,4,B\n",
	}, map[string]string{"format": "json", "name": "Stops"})
	rec := do(s, http.MethodPost, "/api/convert/file", body, map[string]string{"Content-Type": ct})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	summary, _ := decode(t, rec)["summary"].(map[string]any)
	if summary["name"] != "Stops" || summary["waypoints"] != float64(2) {
		t.Errorf("unexpected summary %v", summary)
	}
}

func TestConvertFile_Errors(t *testing.T) {
	s := newTestServer(t, testConfig())

	body, ct := multipartBody(t, "file", map[string]string{"track.gpx": "<gpx/>"}, nil)
	rec := do(s, http.MethodPost, "/api/convert/file", body, map[string]string{"Content-Type": ct})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unsupported extension, got %d", rec.Code)
	}

	body, ct = multipartBody(t, "file", map[string]string{"notes.txt": "nothing here"}, nil)
	rec = do(s, http.MethodPost, "/api/convert/file", body, map[string]string{"Content-Type": ct})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for file without links, got %d", rec.Code)
	}
	if kind := decode(t, rec)["kind"]; kind != "no_maps_link" {
		t.Errorf("expected kind no_maps_link, got %v", kind)
	}

	body, ct = multipartBody(t, "file", map[string]string{"bad.csv": "name\nA\n"}, nil)
	rec = do(s, http.MethodPost, "/api/convert/file", body, map[string]string{"Content-Type": ct})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for malformed csv, got %d", rec.Code)
	}

	rec = do(s, http.MethodPost, "/api/convert/file", strings.NewReader("x"), map[string]string{"Content-Type": "text/plain"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-multipart body, got %d", rec.Code)
	}
}

func TestConvertStats(t *testing.T) {
	s := newTestServer(t, testConfig())
	do(s, http.MethodGet, "/api/convert?url="+url.QueryEscape(dirURL), nil, nil)

	body := decode(t, do(s, http.MethodGet, "/api/stats/convert", nil, nil))
	st, _ := body["stats"].(map[string]any)
	u, _ := st["url"].(map[string]any)
	if u["count"] != float64(1) {
		t.Errorf("expected 1 url sample, got %v", st)
	}
}
