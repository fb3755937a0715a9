package route

import (
	"errors"
	"fmt"
	"math"
)

// ErrCoordinateRange is returned when a coordinate lies outside the WGS84
// latitude/longitude ranges.
var ErrCoordinateRange = errors.New("coordinate out of range")

// Coordinate is a WGS84 position with optional elevation in meters.
type Coordinate struct {
	Lat float64  `json:"lat"`
	Lon float64  `json:"lon"`
	Ele *float64 `json:"ele,omitempty"`
}

// Waypoint is a single named or anonymous point of interest.
type Waypoint struct {
	Coord Coordinate `json:"coord"`
	Name  string     `json:"name,omitempty"` // empty when anonymous
}

// TrackSegment is a contiguous, ordered run of track points.
type TrackSegment struct {
	Points []Coordinate `json:"points"`
}

// Track is an ordered list of segments.
type Track struct {
	Name     string         `json:"name,omitempty"`
	Segments []TrackSegment `json:"segments"`
}

// Route is the unit exchanged between the URL/KML producers and the GPX emitter.
type Route struct {
	Name      string     `json:"name,omitempty"`
	Waypoints []Waypoint `json:"waypoints"`
	Tracks    []Track    `json:"tracks"`
}

// NewCoordinate returns a coordinate without elevation.
func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{Lat: lat, Lon: lon}
}

// WithElevation returns a coordinate carrying an elevation.
func WithElevation(lat, lon, ele float64) Coordinate {
	return Coordinate{Lat: lat, Lon: lon, Ele: &ele}
}

// InRange reports whether lat/lon fall in [-90,90] and [-180,180].
func InRange(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Valid reports whether the coordinate is inside the WGS84 ranges.
func (c Coordinate) Valid() bool {
	if c.Ele != nil && (math.IsNaN(*c.Ele) || math.IsInf(*c.Ele, 0)) {
		return false
	}
	return InRange(c.Lat, c.Lon)
}

// NewSegmentTrack wraps points into a single-segment track.
func NewSegmentTrack(name string, points []Coordinate) Track {
	return Track{Name: name, Segments: []TrackSegment{{Points: points}}}
}

func (r *Route) AddWaypoint(w Waypoint) {
	r.Waypoints = append(r.Waypoints, w)
}

func (r *Route) AddTrack(t Track) {
	r.Tracks = append(r.Tracks, t)
}

// Empty reports whether the route carries no waypoints and no tracks.
func (r *Route) Empty() bool {
	return len(r.Waypoints) == 0 && len(r.Tracks) == 0
}

// AllCoordinates flattens every track point into [lon, lat] pairs, the order
// map libraries expect.
func (r *Route) AllCoordinates() [][2]float64 {
	var coords [][2]float64
	for _, t := range r.Tracks {
		for _, s := range t.Segments {
			for _, p := range s.Points {
				coords = append(coords, [2]float64{p.Lon, p.Lat})
			}
		}
	}
	return coords
}

// Validate checks every coordinate in the route. Extractors never produce
// out-of-range values, but routes decoded from JSON bypass them.
func (r *Route) Validate() error {
	for i, w := range r.Waypoints {
		if !w.Coord.Valid() {
			return fmt.Errorf("waypoint %d (%g,%g): %w", i, w.Coord.Lat, w.Coord.Lon, ErrCoordinateRange)
		}
	}
	for ti, t := range r.Tracks {
		for si, s := range t.Segments {
			for pi, p := range s.Points {
				if !p.Valid() {
					return fmt.Errorf("track %d segment %d point %d (%g,%g): %w", ti, si, pi, p.Lat, p.Lon, ErrCoordinateRange)
				}
			}
		}
	}
	return nil
}
