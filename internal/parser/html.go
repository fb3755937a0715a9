package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/dgallion1/mapsgpx/internal/mapsurl"
	"github.com/dgallion1/mapsgpx/internal/route"
)

// HTMLParser handles saved web pages. Links are taken from anchor hrefs,
// embedded map iframes, and bare URLs in body text, in document order.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*route.Route, error) {
	utf8Reader, err := charset.NewReader(r, "text/html")
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	doc, err := html.Parse(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style":
				return
			case "a", "area":
				links = appendAttrLink(links, n, "href")
			case "iframe":
				links = appendAttrLink(links, n, "src")
			}
		case html.TextNode:
			links = appendLinks(links, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	rt, err := routeFromLinks(links)
	if err != nil {
		return nil, err
	}
	nameRoute(rt, findTitle(doc), filename)
	return rt, nil
}

func appendAttrLink(links []string, n *html.Node, key string) []string {
	for _, a := range n.Attr {
		if a.Key != key {
			continue
		}
		v := strings.TrimSpace(a.Val)
		if !mapsurl.IsMapsURL(v) {
			return links
		}
		for _, have := range links {
			if have == v {
				return links
			}
		}
		return append(links, v)
	}
	return links
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}
