package profile

import (
	"net/http"
	"strings"
)

// BrowserHeaders builds the header set a desktop Chrome sends on a top-level
// navigation. Client-hint headers are only emitted for Chromium user agents.
func BrowserHeaders(userAgent, locale string) http.Header {
	if locale == "" {
		locale = "en-US"
	}
	lang := locale
	if i := strings.Index(locale, "-"); i > 0 {
		lang = locale[:i]
	}

	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	h.Set("Accept-Language", locale+","+lang+";q=0.9")
	h.Set("Accept-Encoding", "gzip, deflate")
	h.Set("DNT", "1")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")
	h.Set("Cache-Control", "max-age=0")
	h.Set("Pragma", "no-cache")

	if isChromium(userAgent) {
		h.Set("Sec-CH-UA", `"Chromium";v="122", "Not(A:Brand";v="24", "Google Chrome";v="122"`)
		h.Set("Sec-CH-UA-Mobile", "?0")
		h.Set("Sec-CH-UA-Platform", `"`+platform(userAgent)+`"`)
	}
	return h
}

func isChromium(ua string) bool {
	return strings.Contains(ua, "Chrome/") && !strings.Contains(ua, "Firefox/")
}

func platform(ua string) string {
	switch {
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "Macintosh"):
		return "macOS"
	case strings.Contains(ua, "Linux"):
		return "Linux"
	default:
		return "Unknown"
	}
}
