package route

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
)

// Bounds is the bounding box of a route.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Summary is a compact description of a route for API responses.
type Summary struct {
	Name         string  `json:"name,omitempty"`
	Waypoints    int     `json:"waypoints"`
	Tracks       int     `json:"tracks"`
	Points       int     `json:"points"`
	LengthMeters float64 `json:"length_meters"`
	Bounds       *Bounds `json:"bounds,omitempty"`
}

func toPoint(c Coordinate) orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// Summarize computes counts, bounds and the haversine length of all tracks.
func (r *Route) Summarize() Summary {
	s := Summary{
		Name:      r.Name,
		Waypoints: len(r.Waypoints),
		Tracks:    len(r.Tracks),
	}

	var all orb.MultiPoint
	for _, w := range r.Waypoints {
		all = append(all, toPoint(w.Coord))
	}
	for _, t := range r.Tracks {
		for _, seg := range t.Segments {
			for i, p := range seg.Points {
				all = append(all, toPoint(p))
				if i > 0 {
					s.LengthMeters += geo.Distance(toPoint(seg.Points[i-1]), toPoint(p))
				}
			}
			s.Points += len(seg.Points)
		}
	}

	if len(all) > 0 {
		b := all.Bound()
		s.Bounds = &Bounds{
			MinLat: b.Min.Lat(),
			MinLon: b.Min.Lon(),
			MaxLat: b.Max.Lat(),
			MaxLon: b.Max.Lon(),
		}
	}
	return s
}

// GeoJSON renders the route as a FeatureCollection: one Point feature per
// waypoint and one LineString (or MultiLineString) feature per track.
func (r *Route) GeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if r.Name != "" {
		fc.ExtraMembers = geojson.Properties{"name": r.Name}
	}

	for _, w := range r.Waypoints {
		f := geojson.NewFeature(toPoint(w.Coord))
		f.Properties["kind"] = "waypoint"
		if w.Name != "" {
			f.Properties["name"] = w.Name
		}
		if w.Coord.Ele != nil {
			f.Properties["ele"] = *w.Coord.Ele
		}
		fc.Append(f)
	}

	for _, t := range r.Tracks {
		lines := make(orb.MultiLineString, 0, len(t.Segments))
		for _, seg := range t.Segments {
			ls := make(orb.LineString, 0, len(seg.Points))
			for _, p := range seg.Points {
				ls = append(ls, toPoint(p))
			}
			lines = append(lines, ls)
		}

		var g orb.Geometry = lines
		if len(lines) == 1 {
			g = lines[0]
		}
		f := geojson.NewFeature(g)
		f.Properties["kind"] = "track"
		if t.Name != "" {
			f.Properties["name"] = t.Name
		}
		fc.Append(f)
	}
	return fc
}
