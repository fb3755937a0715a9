// Package kml extracts waypoints and tracks from KML documents in a single
// forward pass over the XML token stream.
package kml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/mapsgpx/internal/route"
	"golang.org/x/net/html/charset"
)

// ErrXML wraps any tokenizer failure. A malformed document aborts the parse.
var ErrXML = errors.New("kml: malformed xml")

// Parse walks a KML document held in memory.
func Parse(document string) (*route.Route, error) {
	return ParseReader(strings.NewReader(document))
}

// ParseReader walks a KML document read from r.
func ParseReader(r io.Reader) (*route.Route, error) {
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel
	d.Entity = xml.HTMLEntity

	w := &walker{}
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrXML, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			w.start(t.Name.Local)
		case xml.EndElement:
			w.end(t.Name.Local)
		case xml.CharData:
			w.text(string(t))
		}
	}
	return &w.route, nil
}

// geometry is the kind of KML geometry element currently open. Point and
// LineString are mutually exclusive by construction.
type geometry int

const (
	geomNone geometry = iota
	geomPoint
	geomLineString
)

// placemark holds the state of an open <Placemark>.
type placemark struct {
	name string
}

type walker struct {
	route route.Route

	element   string     // most recently opened element
	placemark *placemark // nil outside a Placemark
	geom      geometry
}

func (w *walker) start(name string) {
	w.element = name
	switch name {
	case "Placemark":
		w.placemark = &placemark{}
	case "Point":
		w.geom = geomPoint
	case "LineString":
		w.geom = geomLineString
	}
}

func (w *walker) end(name string) {
	switch name {
	case "Placemark":
		w.placemark = nil
	case "Point", "LineString":
		w.geom = geomNone
	}
}

func (w *walker) text(raw string) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return
	}

	switch w.element {
	case "name":
		if w.placemark != nil {
			w.placemark.name = text
		} else {
			w.route.Name = text
		}
	case "coordinates":
		w.coordinates(text)
	}
}

func (w *walker) pendingName() string {
	if w.placemark == nil {
		return ""
	}
	return w.placemark.name
}

func (w *walker) coordinates(text string) {
	switch w.geom {
	case geomPoint:
		if c, ok := parseCoordinate(text); ok {
			w.route.AddWaypoint(route.Waypoint{Coord: c, Name: w.pendingName()})
		}
	case geomLineString:
		var points []route.Coordinate
		for _, tuple := range strings.Fields(text) {
			if c, ok := parseCoordinate(tuple); ok {
				points = append(points, c)
			}
		}
		if len(points) > 0 {
			w.route.AddTrack(route.NewSegmentTrack(w.pendingName(), points))
		}
	}
}

// parseCoordinate reads a KML "lon,lat[,alt]" tuple. Tuples with a bad or
// out-of-range lon/lat are rejected; a malformed altitude is only dropped.
func parseCoordinate(tuple string) (route.Coordinate, bool) {
	parts := strings.Split(tuple, ",")
	if len(parts) < 2 {
		return route.Coordinate{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return route.Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return route.Coordinate{}, false
	}
	if !route.InRange(lat, lon) {
		return route.Coordinate{}, false
	}
	if len(parts) > 2 {
		if ele, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64); err == nil {
			return route.WithElevation(lat, lon, ele), true
		}
	}
	return route.NewCoordinate(lat, lon), true
}
