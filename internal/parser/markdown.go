package parser

import (
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/mapsgpx/internal/route"
)

// MarkdownParser handles Markdown notes using goldmark. Link destinations
// and autolinks are tried first, then bare URLs anywhere in the source.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*route.Route, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var links []string
	var title string
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if title == "" && node.Level == 1 {
				title = strings.TrimSpace(string(node.Text(src)))
			}
		case *ast.Link:
			links = appendLinks(links, string(node.Destination))
		case *ast.AutoLink:
			links = appendLinks(links, string(node.URL(src)))
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	// Inline parsing splits bare URLs at emphasis and image markers.
	links = appendLinks(links, string(src))

	rt, err := routeFromLinks(links)
	if err != nil {
		return nil, err
	}
	nameRoute(rt, title, filename)
	return rt, nil
}
