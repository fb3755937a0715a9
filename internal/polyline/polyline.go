// Package polyline implements Google's encoded polyline algorithm format:
// zig-zag signed deltas, packed as 5-bit little-endian chunks offset by 63.
package polyline

import (
	"errors"
	"math"
	"strings"

	"github.com/dgallion1/mapsgpx/internal/route"
)

var (
	ErrInvalidEncoding = errors.New("invalid polyline encoding")
	ErrUnexpectedEnd   = errors.New("unexpected end of polyline")
)

const precision = 1e5

// Decode turns an encoded polyline into coordinates. An empty string decodes
// to an empty, non-nil slice.
func Decode(encoded string) ([]route.Coordinate, error) {
	coords := make([]route.Coordinate, 0, len(encoded)/4)
	var lat, lon int64
	i := 0

	for i < len(encoded) {
		dLat, next, err := decodeValue(encoded, i)
		if err != nil {
			return nil, err
		}
		dLon, next, err := decodeValue(encoded, next)
		if err != nil {
			return nil, err
		}
		i = next
		lat += dLat
		lon += dLon
		coords = append(coords, route.NewCoordinate(float64(lat)/precision, float64(lon)/precision))
	}
	return coords, nil
}

// decodeValue reads one varint starting at start and returns the signed
// delta along with the index of the next unread byte.
func decodeValue(s string, start int) (int64, int, error) {
	var result int64
	var shift uint
	i := start

	for {
		if i >= len(s) {
			return 0, i, ErrUnexpectedEnd
		}
		b := s[i]
		if b < 63 || b > 127 {
			return 0, i, ErrInvalidEncoding
		}
		chunk := int64(b - 63)
		i++

		result |= (chunk & 0x1f) << shift
		shift += 5
		if chunk < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), i, nil
	}
	return result >> 1, i, nil
}

// Encode is the inverse of Decode. Coordinates are rounded to 1e-5 degrees;
// elevation is dropped.
func Encode(coords []route.Coordinate) string {
	var sb strings.Builder
	var prevLat, prevLon int64
	for _, c := range coords {
		lat := int64(math.Round(c.Lat * precision))
		lon := int64(math.Round(c.Lon * precision))
		encodeValue(&sb, lat-prevLat)
		encodeValue(&sb, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return sb.String()
}

func encodeValue(sb *strings.Builder, v int64) {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		sb.WriteByte(byte((0x20 | (u & 0x1f)) + 63))
		u >>= 5
	}
	sb.WriteByte(byte(u + 63))
}
