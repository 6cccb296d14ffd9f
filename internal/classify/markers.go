package classify

import (
	"strings"
	"unicode/utf8"
)

// ChallengeMarkers are phrases found on anti-bot interstitials. The
// classifier and the browser challenge strategy both use them.
var ChallengeMarkers = []string{
	"challenge-running",
	"cf-browser-verification",
	"checking your browser",
	"ddos-guard",
	"just a moment",
	"verify you are human",
	"are you a robot",
	"attention required",
	"please enable javascript and cookies",
}

// WaitMarkers extend ChallengeMarkers with generic waiting-room phrases.
// They are too broad for the classifier but fine on a page that already
// looked like a challenge.
var WaitMarkers = append([]string{"please wait"}, ChallengeMarkers...)

// BlockMarkers flag explicit refusals in the head of a direct response
var BlockMarkers = []string{
	"blocked",
}

// InterstitialMarkers are checked by the challenge solver after resolving
var InterstitialMarkers = []string{
	"blocked",
	"captcha",
	"challenge",
	"attention required",
	"access denied",
}

// ContainsMarker reports whether any marker occurs (case-insensitive) in the
// first window runes of content. A window <= 0 scans everything.
func ContainsMarker(content string, window int, markers []string) (string, bool) {
	head := strings.ToLower(Head(content, window))
	for _, m := range markers {
		if strings.Contains(head, m) {
			return m, true
		}
	}
	return "", false
}

// Head returns at most n leading runes of s. n <= 0 returns s unchanged.
func Head(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Length counts characters (runes), not bytes
func Length(s string) int {
	return utf8.RuneCountInString(s)
}
