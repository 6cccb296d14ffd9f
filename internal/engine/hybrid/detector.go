// internal/engine/hybrid/detector.go
package hybrid

import (
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/law-makers/scholarfetch/internal/classify"
)

// solverHints are script idioms interstitials use to set a clearance cookie
// or bounce the visitor onward
var solverHints = []string{
	"jschl",
	"cf_chl",
	"challenge-form",
	"document.cookie",
	"location.href",
	"location.replace",
	"window.location",
	"http-equiv=\"refresh\"",
}

// hintWindow is how much of the body is searched for solver hints
const hintWindow = 4096

// NeedsSolving reports whether a response looks like a script interstitial
// that evaluating its inline scripts could get past
func NeedsSolving(status int, body string) bool {
	head := strings.ToLower(classify.Head(body, hintWindow))
	if _, found := classify.ContainsMarker(head, 0, classify.WaitMarkers); found {
		return true
	}

	hints := 0
	for _, h := range solverHints {
		if strings.Contains(head, h) {
			hints++
		}
	}
	if hints == 0 {
		return false
	}

	// A real page may touch document.cookie too; only treat it as a
	// challenge when it is also refused or nearly empty
	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return classify.Length(body) < 2000
}

// MetaRefresh returns the target of a <meta http-equiv="refresh"> tag, or ""
func MetaRefresh(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	var target string
	doc.Find("meta").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if !strings.EqualFold(sel.AttrOr("http-equiv", ""), "refresh") {
			return true
		}
		content := sel.AttrOr("content", "")
		_, rest, ok := strings.Cut(content, ";")
		if !ok {
			return true
		}
		rest = strings.TrimSpace(rest)
		if len(rest) >= 4 && strings.EqualFold(rest[:4], "url=") {
			target = strings.Trim(strings.TrimSpace(rest[4:]), `'"`)
			return false
		}
		return true
	})
	return target
}
