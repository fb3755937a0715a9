package mapsurl

import (
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"'\x60]+`)

// Find returns the Google Maps URLs found in free text, in order of
// appearance and without duplicates.
func Find(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range urlPattern.FindAllString(text, -1) {
		m = strings.TrimRight(m, ".,;:)]}")
		if seen[m] || !IsMapsURL(m) {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
