package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func page(n int) string {
	return "<html><body><p>" + strings.Repeat("scholarship ", n/12+1) + "</p></body></html>"
}

func TestClassify(t *testing.T) {
	c := New(DefaultPolicy())

	tests := []struct {
		name    string
		status  int
		content string
		want    Verdict
	}{
		{"approved", 200, page(800), Approved},
		{"unknown status approved", 0, page(800), Approved},
		{"forbidden", 403, page(800), Blocked},
		{"cloudflare origin error", 522, page(800), Blocked},
		{"rate limited", 429, "", Blocked},
		{"short", 200, "<html>tiny</html>", TooShort},
		{"challenge in head", 200, "<title>Just a moment...</title>" + page(800), ChallengePresent},
		{"challenge beyond window", 200, page(4000) + "just a moment", Approved},
		{"not found is not a block status", 404, page(800), Approved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.status, tt.content))
		})
	}
}

func TestClassify_CustomPolicy(t *testing.T) {
	c := New(Policy{MinLength: 10, Markers: []string{"robot"}})

	assert.Equal(t, Approved, c.Classify(200, "plenty of text here"))
	assert.Equal(t, ChallengePresent, c.Classify(200, "Are you a ROBOT? prove it"))
	assert.True(t, c.IsBlockStatus(503))
	assert.Equal(t, DefaultScanWindow, c.Policy().ScanWindow)
}

func TestLengthCountsRunes(t *testing.T) {
	s := strings.Repeat("é", 500)
	assert.Equal(t, 500, Length(s))
	assert.Equal(t, Approved, New(DefaultPolicy()).Classify(200, s))
}

func TestHead(t *testing.T) {
	assert.Equal(t, "héll", Head("héllo", 4))
	assert.Equal(t, "abc", Head("abc", 10))
	assert.Equal(t, "abc", Head("abc", 0))
}

func TestContainsMarker(t *testing.T) {
	m, ok := ContainsMarker("Access Denied by policy", 100, InterstitialMarkers)
	assert.True(t, ok)
	assert.Equal(t, "access denied", m)

	_, ok = ContainsMarker(strings.Repeat("x", 50)+"blocked", 20, BlockMarkers)
	assert.False(t, ok)
}
