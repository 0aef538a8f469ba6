package thumbnail

import (
	"net/url"
	"strings"
)

// URL is the address the renderer serves a survey's title card from
func URL(baseURL, title string) string {
	return strings.TrimRight(baseURL, "/") + "/api/thumbnail?title=" + url.QueryEscape(title)
}
