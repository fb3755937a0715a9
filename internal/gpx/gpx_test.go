package gpx

import (
	"encoding/xml"
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/mapsgpx/internal/route"
)

func TestWrite_Header(t *testing.T) {
	out, err := Write(&route.Route{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("expected xml declaration, got %q", out[:40])
	}
	for _, want := range []string{
		`version="1.1"`,
		`creator="maps-to-gpx"`,
		`xmlns="http://www.topografix.com/GPX/1/1"`,
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"`,
		"<metadata></metadata>",
		"</gpx>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}

func TestWrite_Waypoint(t *testing.T) {
	r := &route.Route{Name: "Test Route"}
	r.AddWaypoint(route.Waypoint{Coord: route.WithElevation(37.7749, -122.4194, 100.5), Name: "San Francisco"})

	out, err := Write(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"<metadata>\n    <name>Test Route</name>\n  </metadata>",
		`<wpt lat="37.7749" lon="-122.4194">`,
		"<ele>100.5</ele>",
		"<name>San Francisco</name>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Index(out, "<ele>") > strings.Index(out, "<name>San Francisco") {
		t.Error("expected <ele> before <name> inside <wpt>")
	}
}

func TestWrite_TracksAndSegments(t *testing.T) {
	r := &route.Route{}
	r.AddTrack(route.NewSegmentTrack("My Ride", []route.Coordinate{
		route.NewCoordinate(37.7749, -122.4194),
		route.WithElevation(37.7835, -122.4089, 0),
	}))
	r.AddTrack(route.Track{Segments: []route.TrackSegment{
		{Points: []route.Coordinate{route.NewCoordinate(1, 2)}},
		{Points: []route.Coordinate{route.NewCoordinate(3, 4)}},
	}})

	out, err := Write(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := strings.Count(out, "<trk>"); n != 2 {
		t.Errorf("expected 2 <trk>, got %d", n)
	}
	if n := strings.Count(out, "<trkseg>"); n != 3 {
		t.Errorf("expected 3 <trkseg>, got %d", n)
	}
	if !strings.Contains(out, "<name>My Ride</name>") {
		t.Error("expected track name")
	}
	if !strings.Contains(out, "<ele>0</ele>") {
		t.Error("expected zero elevation to be written")
	}
	if strings.Count(out, "<ele>") != 1 {
		t.Errorf("expected exactly one <ele>, got %d", strings.Count(out, "<ele>"))
	}
}

func TestWrite_NumberFormatting(t *testing.T) {
	r := &route.Route{}
	r.AddWaypoint(route.Waypoint{Coord: route.NewCoordinate(0.00001, 180)})
	out, err := Write(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `lat="0.00001" lon="180"`) {
		t.Errorf("expected plain decimal formatting, got:\n%s", out)
	}
}

func TestWrite_EscapesNames(t *testing.T) {
	r := &route.Route{Name: "A & B <C>"}
	out, err := Write(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "A &amp; B &lt;C&gt;") {
		t.Errorf("expected escaped name, got:\n%s", out)
	}
}

func TestWrite_RejectsOutOfRange(t *testing.T) {
	r := &route.Route{}
	r.AddWaypoint(route.Waypoint{Coord: route.NewCoordinate(120, 0)})
	_, err := Write(r)
	if !errors.Is(err, route.ErrCoordinateRange) {
		t.Fatalf("expected ErrCoordinateRange, got %v", err)
	}
}

// The output must be readable by a plain GPX consumer.
func TestWrite_ParsesBack(t *testing.T) {
	r := &route.Route{Name: "Loop"}
	r.AddWaypoint(route.Waypoint{Coord: route.NewCoordinate(10, 20), Name: "Start"})
	r.AddTrack(route.NewSegmentTrack("", []route.Coordinate{route.NewCoordinate(10, 20), route.NewCoordinate(11, 21)}))
	out, err := Write(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed struct {
		Wpt []struct {
			Lat float64 `xml:"lat,attr"`
			Lon float64 `xml:"lon,attr"`
		} `xml:"wpt"`
		Trk []struct {
			Seg []struct {
				Pt []struct {
					Lat float64 `xml:"lat,attr"`
				} `xml:"trkpt"`
			} `xml:"trkseg"`
		} `xml:"trk"`
	}
	if err := xml.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(parsed.Wpt) != 1 || parsed.Wpt[0].Lon != 20 {
		t.Errorf("unexpected waypoints: %+v", parsed.Wpt)
	}
	if len(parsed.Trk) != 1 || len(parsed.Trk[0].Seg[0].Pt) != 2 {
		t.Errorf("unexpected tracks: %+v", parsed.Trk)
	}
}
