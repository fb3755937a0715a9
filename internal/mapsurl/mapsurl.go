// Package mapsurl recovers route geometry from Google Maps sharing URLs.
//
// Google encodes the same route redundantly depending on the product surface:
// readable "lat,lon" stops in a /dir/ path, a compact polyline inside the
// data= blob, and !1d<lon>!2d<lat> pairs in that same blob. Each encoding is
// read by an independent strategy and the results are combined by merge.
package mapsurl

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dgallion1/mapsgpx/internal/route"
)

var (
	ErrInvalidURL    = errors.New("invalid url")
	ErrNotGoogleMaps = errors.New("not a google maps url")
	ErrNoRouteData   = errors.New("no route data found in url")
)

// hostFragments are matched as substrings of the URL host.
var hostFragments = []string{"google.com", "goo.gl", "maps.app.goo.gl"}

// Parse extracts a route from a Google Maps URL.
func Parse(raw string) (*route.Route, error) {
	u, err := parseMapsURL(raw)
	if err != nil {
		return nil, err
	}

	r := merge(pathStops(u), polylineTrack(u), dataStops(strings.TrimSpace(raw)))
	if r.Empty() {
		return nil, ErrNoRouteData
	}
	return &r, nil
}

// IsMapsURL reports whether raw is an absolute URL on a Google Maps host.
func IsMapsURL(raw string) bool {
	_, err := parseMapsURL(raw)
	return err == nil
}

func parseMapsURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: missing scheme", ErrInvalidURL)
	}

	host := strings.ToLower(u.Hostname())
	for _, frag := range hostFragments {
		if strings.Contains(host, frag) {
			return u, nil
		}
	}
	return nil, ErrNotGoogleMaps
}

// merge applies the precedence rules between strategies:
//   - path stops become named waypoints, plus a track when there are two or more;
//   - a decoded polyline replaces the first track's segments (or becomes the
//     only track) without touching waypoints;
//   - data= pairs are used only when nothing else produced geometry.
func merge(path, line, data []route.Coordinate) route.Route {
	var r route.Route
	addStops(&r, path)

	if len(line) > 0 {
		if len(r.Tracks) == 0 {
			r.AddTrack(route.NewSegmentTrack("", line))
		} else {
			r.Tracks[0].Segments = []route.TrackSegment{{Points: line}}
		}
	}

	if r.Empty() {
		addStops(&r, data)
	}
	return r
}

func addStops(r *route.Route, stops []route.Coordinate) {
	for i, c := range stops {
		r.AddWaypoint(route.Waypoint{Coord: c, Name: stopName(i, len(stops))})
	}
	if len(stops) >= 2 {
		r.AddTrack(route.NewSegmentTrack("", stops))
	}
}

func stopName(i, n int) string {
	switch {
	case i == 0:
		return "Start"
	case i == n-1:
		return "End"
	default:
		return fmt.Sprintf("Waypoint %d", i)
	}
}
