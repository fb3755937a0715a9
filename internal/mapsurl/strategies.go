package mapsurl

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/dgallion1/mapsgpx/internal/polyline"
	"github.com/dgallion1/mapsgpx/internal/route"
)

// minPolylineLen filters out short !1s tokens such as place ids.
const minPolylineLen = 10

// pathStops reads "lat,lon" segments following /dir/. Place names, the
// @camera segment and the data= blob are skipped.
func pathStops(u *url.URL) []route.Coordinate {
	path := literalPath(u)
	idx := strings.Index(path, "/dir/")
	if idx < 0 {
		return nil
	}
	rest := path[idx+len("/dir/"):]
	if end := strings.Index(rest, "/dir/"); end >= 0 {
		rest = rest[:end]
	}

	var coords []route.Coordinate
	for _, seg := range strings.Split(rest, "/") {
		if seg == "" || strings.HasPrefix(seg, "@") || strings.HasPrefix(seg, "data=") {
			continue
		}
		if c, ok := parseStop(seg); ok {
			coords = append(coords, c)
		}
	}
	return coords
}

func parseStop(seg string) (route.Coordinate, bool) {
	decoded, err := url.PathUnescape(seg)
	if err != nil {
		decoded = seg
	}
	decoded = strings.ReplaceAll(decoded, "+", " ")

	parts := strings.Split(decoded, ",")
	if len(parts) < 2 {
		return route.Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return route.Coordinate{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return route.Coordinate{}, false
	}
	if !route.InRange(lat, lon) {
		return route.Coordinate{}, false
	}
	return route.NewCoordinate(lat, lon), true
}

// polylineTrack decodes the first polyline found in the data blob. A corrupt
// polyline is treated as absent.
func polylineTrack(u *url.URL) []route.Coordinate {
	encoded, ok := findPolyline(dataBlob(u))
	if !ok {
		return nil
	}
	coords, err := polyline.Decode(encoded)
	if err != nil {
		return nil
	}
	return coords
}

// dataBlob returns the data query parameter when present, otherwise the
// data= element embedded in the path up to the next slash.
func dataBlob(u *url.URL) string {
	if vals, ok := u.Query()["data"]; ok && len(vals) > 0 {
		return vals[0]
	}

	path := literalPath(u)
	idx := strings.Index(path, "data=")
	if idx < 0 {
		return ""
	}
	blob := path[idx+len("data="):]
	if end := strings.IndexByte(blob, '/'); end >= 0 {
		blob = blob[:end]
	}
	if decoded, err := url.PathUnescape(blob); err == nil {
		return decoded
	}
	return blob
}

// findPolyline looks for a !1m/!2m token immediately followed by a !1s/!2s
// token whose payload looks like an encoded polyline.
func findPolyline(blob string) (string, bool) {
	parts := strings.Split(blob, "!")
	for i := 0; i+1 < len(parts); i++ {
		if !hasAnyPrefix(parts[i], "1m", "2m") || !hasAnyPrefix(parts[i+1], "1s", "2s") {
			continue
		}
		encoded := parts[i+1][2:]
		if len(encoded) > minPolylineLen && looksLikePolyline(encoded) {
			return encoded, true
		}
	}
	return "", false
}

func looksLikePolyline(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x21 || c > 0x7e || c == '!' || c == '/' {
			return false
		}
	}
	return true
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// literalPath prefers the path as written in the input so that escaped
// separators such as %2F or %2B survive until each segment is decoded.
// url.URL only keeps RawPath when it differs from the default encoding.
func literalPath(u *url.URL) string {
	if u.RawPath != "" {
		return u.RawPath
	}
	return u.Path
}

// dataStops scans everything after the first "data=" in the URL text for
// !1d<lon> tokens later matched by a !2d<lat> token.
func dataStops(full string) []route.Coordinate {
	idx := strings.Index(full, "data=")
	if idx < 0 {
		return nil
	}

	var coords []route.Coordinate
	var lon float64
	haveLon := false
	for _, part := range strings.Split(full[idx:], "!") {
		switch {
		case strings.HasPrefix(part, "1d"):
			if v, err := strconv.ParseFloat(part[2:], 64); err == nil {
				lon, haveLon = v, true
			}
		case strings.HasPrefix(part, "2d"):
			if !haveLon {
				continue
			}
			lat, err := strconv.ParseFloat(part[2:], 64)
			if err != nil {
				continue
			}
			if route.InRange(lat, lon) {
				coords = append(coords, route.NewCoordinate(lat, lon))
			}
			haveLon = false
		}
	}
	return coords
}
