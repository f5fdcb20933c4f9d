package spotify

import (
	"regexp"
	"strings"
)

var (
	webURLPattern = regexp.MustCompile(`^https?://open\.spotify\.com/(?:intl-[a-zA-Z-]+/)?(?:user/[a-zA-Z0-9_.-]+/)?(track|album|playlist|artist|episode|show)/([a-zA-Z0-9]+)`)
	uriPattern    = regexp.MustCompile(`^spotify:(track|album|playlist|artist|episode|show):([a-zA-Z0-9]+)$`)
)

// ParseURL classifies a Spotify web URL or spotify: URI, extracting the
// resource kind and identifier. ok is false for anything unrecognized.
func ParseURL(raw string) (kind Kind, id string, ok bool) {
	raw = strings.TrimSpace(raw)

	if m := uriPattern.FindStringSubmatch(raw); m != nil {
		return Kind(m[1]), m[2], true
	}
	if m := webURLPattern.FindStringSubmatch(raw); m != nil {
		return Kind(m[1]), m[2], true
	}
	return "", "", false
}
