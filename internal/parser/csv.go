package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/mapsgpx/internal/route"
)

// CSVParser handles waypoint tables. The header row must name a latitude and
// a longitude column; name and elevation columns are optional. Rows with bad
// or out-of-range numbers are skipped.
type CSVParser struct{}

type csvColumns struct {
	lat, lon, name, ele int
}

func (p *CSVParser) Parse(r io.Reader, filename string) (*route.Route, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse csv: empty file")
	}

	cols, err := csvHeader(records[0])
	if err != nil {
		return nil, err
	}

	rt := &route.Route{}
	var points []route.Coordinate
	for _, row := range records[1:] {
		c, ok := csvCoordinate(row, cols)
		if !ok {
			continue
		}
		wp := route.Waypoint{Coord: c}
		if cols.name >= 0 && cols.name < len(row) {
			wp.Name = strings.TrimSpace(row[cols.name])
		}
		rt.AddWaypoint(wp)
		points = append(points, c)
	}
	if len(points) >= 2 {
		rt.AddTrack(route.NewSegmentTrack("", points))
	}
	nameRoute(rt, "", filename)
	return rt, nil
}

func csvHeader(header []string) (csvColumns, error) {
	cols := csvColumns{lat: -1, lon: -1, name: -1, ele: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "lat", "latitude":
			cols.lat = i
		case "lon", "lng", "long", "longitude":
			cols.lon = i
		case "name", "title", "label":
			cols.name = i
		case "ele", "elevation", "alt", "altitude":
			cols.ele = i
		}
	}
	if cols.lat < 0 || cols.lon < 0 {
		return cols, fmt.Errorf("parse csv: header must contain latitude and longitude columns")
	}
	return cols, nil
}

func csvCoordinate(row []string, cols csvColumns) (route.Coordinate, bool) {
	if cols.lat >= len(row) || cols.lon >= len(row) {
		return route.Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(row[cols.lat]), 64)
	if err != nil {
		return route.Coordinate{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(row[cols.lon]), 64)
	if err != nil || !route.InRange(lat, lon) {
		return route.Coordinate{}, false
	}
	if cols.ele >= 0 && cols.ele < len(row) {
		if ele, err := strconv.ParseFloat(strings.TrimSpace(row[cols.ele]), 64); err == nil {
			return route.WithElevation(lat, lon, ele), true
		}
	}
	return route.NewCoordinate(lat, lon), true
}
