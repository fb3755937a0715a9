package convert

import (
	"errors"

	"github.com/dgallion1/mapsgpx/internal/kml"
	"github.com/dgallion1/mapsgpx/internal/mapsurl"
	"github.com/dgallion1/mapsgpx/internal/parser"
	"github.com/dgallion1/mapsgpx/internal/polyline"
	"github.com/dgallion1/mapsgpx/internal/route"
)

// Classify maps an error to a stable machine-readable kind used in API
// bodies and metric labels.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, mapsurl.ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, mapsurl.ErrNotGoogleMaps):
		return "not_google_maps"
	case errors.Is(err, mapsurl.ErrNoRouteData):
		return "no_route_data"
	case errors.Is(err, kml.ErrXML):
		return "invalid_kml"
	case errors.Is(err, polyline.ErrInvalidEncoding), errors.Is(err, polyline.ErrUnexpectedEnd):
		return "invalid_polyline"
	case errors.Is(err, route.ErrCoordinateRange):
		return "coordinate_range"
	case errors.Is(err, parser.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, parser.ErrNoMapsLink):
		return "no_maps_link"
	case errors.Is(err, ErrUnknownKind):
		return "unknown_type"
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	default:
		return "internal"
	}
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	k := Classify(err)
	return k != "" && k != "internal"
}
