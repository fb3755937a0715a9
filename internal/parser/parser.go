package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dgallion1/mapsgpx/internal/mapsurl"
	"github.com/dgallion1/mapsgpx/internal/route"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file extension")
	ErrNoMapsLink        = errors.New("no google maps link found")
)

// Parser converts raw document bytes into a Route.
type Parser interface {
	Parse(r io.Reader, filename string) (*route.Route, error)
}

// Options tunes parsers that need external tooling.
type Options struct {
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".kml":      true,
	".csv":      true,
	".txt":      true,
	".url":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".kml":
		return &KMLParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".txt", ".url":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Extensions returns the supported extensions in sorted order.
func Extensions() []string {
	out := make([]string, 0, len(SupportedExtensions))
	for ext := range SupportedExtensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// routeFromLinks returns the route of the first link that yields one. When
// none does, the error of the first candidate is returned.
func routeFromLinks(links []string) (*route.Route, error) {
	if len(links) == 0 {
		return nil, ErrNoMapsLink
	}
	var firstErr error
	for _, link := range links {
		r, err := mapsurl.Parse(link)
		if err == nil {
			return r, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// appendLinks adds the maps links found in text to links, skipping repeats.
func appendLinks(links []string, text string) []string {
	for _, l := range mapsurl.Find(text) {
		dup := false
		for _, have := range links {
			if have == l {
				dup = true
				break
			}
		}
		if !dup {
			links = append(links, l)
		}
	}
	return links
}

// nameRoute fills an empty route name with the document title or, failing
// that, the file name without its extension.
func nameRoute(r *route.Route, title, filename string) {
	if r.Name != "" {
		return
	}
	if title = strings.TrimSpace(title); title != "" {
		r.Name = title
		return
	}
	base := filepath.Base(filename)
	r.Name = strings.TrimSuffix(base, filepath.Ext(base))
}
