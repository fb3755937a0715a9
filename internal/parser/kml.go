package parser

import (
	"io"

	"github.com/dgallion1/mapsgpx/internal/kml"
	"github.com/dgallion1/mapsgpx/internal/route"
)

// KMLParser handles KML documents such as Google My Maps exports.
type KMLParser struct{}

func (p *KMLParser) Parse(r io.Reader, filename string) (*route.Route, error) {
	rt, err := kml.ParseReader(r)
	if err != nil {
		return nil, err
	}
	nameRoute(rt, "", filename)
	return rt, nil
}
