package parser

import (
	"bufio"
	"io"

	"github.com/dgallion1/mapsgpx/internal/route"
)

// TextParser handles plain text and .url files holding pasted links.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*route.Route, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var links []string
	for scanner.Scan() {
		links = appendLinks(links, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	rt, err := routeFromLinks(links)
	if err != nil {
		return nil, err
	}
	nameRoute(rt, "", filename)
	return rt, nil
}
