// Package gpx renders routes as GPX 1.1 documents.
package gpx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/dgallion1/mapsgpx/internal/route"
)

const (
	Creator        = "maps-to-gpx"
	namespace      = "http://www.topografix.com/GPX/1/1"
	xsiNamespace   = "http://www.w3.org/2001/XMLSchema-instance"
	schemaLocation = "http://www.topografix.com/GPX/1/1 http://www.topografix.com/GPX/1/1/gpx.xsd"
)

type document struct {
	XMLName        xml.Name   `xml:"gpx"`
	Version        string     `xml:"version,attr"`
	Creator        string     `xml:"creator,attr"`
	Xmlns          string     `xml:"xmlns,attr"`
	XmlnsXSI       string     `xml:"xmlns:xsi,attr"`
	SchemaLocation string     `xml:"xsi:schemaLocation,attr"`
	Metadata       metadata   `xml:"metadata"`
	Waypoints      []waypoint `xml:"wpt"`
	Tracks         []track    `xml:"trk"`
}

type metadata struct {
	Name string `xml:"name,omitempty"`
}

type waypoint struct {
	Lat  string  `xml:"lat,attr"`
	Lon  string  `xml:"lon,attr"`
	Ele  *string `xml:"ele"`
	Name string  `xml:"name,omitempty"`
}

type track struct {
	Name     string    `xml:"name,omitempty"`
	Segments []segment `xml:"trkseg"`
}

type segment struct {
	Points []point `xml:"trkpt"`
}

type point struct {
	Lat string  `xml:"lat,attr"`
	Lon string  `xml:"lon,attr"`
	Ele *string `xml:"ele"`
}

// Write renders r as an indented GPX document. Routes with out-of-range
// coordinates are rejected.
func Write(r *route.Route) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Encode streams the GPX document for r to w.
func Encode(w io.Writer, r *route.Route) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("gpx: %w", err)
	}

	doc := document{
		Version:        "1.1",
		Creator:        Creator,
		Xmlns:          namespace,
		XmlnsXSI:       xsiNamespace,
		SchemaLocation: schemaLocation,
		Metadata:       metadata{Name: r.Name},
	}
	for _, wp := range r.Waypoints {
		doc.Waypoints = append(doc.Waypoints, waypoint{
			Lat:  formatFloat(wp.Coord.Lat),
			Lon:  formatFloat(wp.Coord.Lon),
			Ele:  formatEle(wp.Coord.Ele),
			Name: wp.Name,
		})
	}
	for _, t := range r.Tracks {
		trk := track{Name: t.Name}
		for _, s := range t.Segments {
			seg := segment{Points: make([]point, 0, len(s.Points))}
			for _, p := range s.Points {
				seg.Points = append(seg.Points, point{
					Lat: formatFloat(p.Lat),
					Lon: formatFloat(p.Lon),
					Ele: formatEle(p.Ele),
				})
			}
			trk.Segments = append(trk.Segments, seg)
		}
		doc.Tracks = append(doc.Tracks, trk)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("gpx: encode: %w", err)
	}
	return enc.Close()
}

// formatFloat uses the shortest decimal that round-trips, never an exponent.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatEle(ele *float64) *string {
	if ele == nil {
		return nil
	}
	s := formatFloat(*ele)
	return &s
}
