package caldav

import (
	"net/url"
	"strings"
)

// NormalizeURL strips the scheme and host from an absolute calendar URL,
// leaving only the path. Relative URLs are returned unchanged, so the
// same calendar referenced absolutely and relatively normalizes to the
// same string.
func NormalizeURL(rawURL string) string {
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		if u, err := url.Parse(rawURL); err == nil {
			return u.Path
		}
	}
	return rawURL
}
