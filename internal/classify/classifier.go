// Package classify decides whether a raw response is usable page content.
package classify

import "net/http"

// Verdict is the classifier result
type Verdict int

const (
	Approved Verdict = iota
	Blocked
	TooShort
	ChallengePresent
)

// String returns the string representation of the verdict
func (v Verdict) String() string {
	switch v {
	case Approved:
		return "approved"
	case Blocked:
		return "blocked"
	case TooShort:
		return "too_short"
	case ChallengePresent:
		return "challenge"
	default:
		return "unknown"
	}
}

// Default thresholds. These are heuristics carried over from the production
// scraper and are exposed through Policy so deployments can tune them.
const (
	DefaultMinLength  = 500
	DefaultMaxLength  = 50000
	DefaultScanWindow = 2048
)

// DefaultBlockStatuses are status codes anti-bot layers answer with
var DefaultBlockStatuses = []int{
	http.StatusForbidden,
	http.StatusTooManyRequests,
	http.StatusServiceUnavailable,
	520, 521, 522, 523, 524,
}

// Policy holds the classification thresholds and marker lists
type Policy struct {
	MinLength     int
	ScanWindow    int
	BlockStatuses []int
	Markers       []string
}

// DefaultPolicy returns the stock policy
func DefaultPolicy() Policy {
	return Policy{
		MinLength:     DefaultMinLength,
		ScanWindow:    DefaultScanWindow,
		BlockStatuses: DefaultBlockStatuses,
		Markers:       ChallengeMarkers,
	}
}

// Classifier applies a Policy to responses. The zero value is not usable;
// construct with New.
type Classifier struct {
	policy  Policy
	blocked map[int]struct{}
}

// New creates a Classifier. Zero-valued policy fields fall back to defaults.
func New(p Policy) *Classifier {
	def := DefaultPolicy()
	if p.MinLength <= 0 {
		p.MinLength = def.MinLength
	}
	if p.ScanWindow <= 0 {
		p.ScanWindow = def.ScanWindow
	}
	if p.BlockStatuses == nil {
		p.BlockStatuses = def.BlockStatuses
	}
	if p.Markers == nil {
		p.Markers = def.Markers
	}

	blocked := make(map[int]struct{}, len(p.BlockStatuses))
	for _, code := range p.BlockStatuses {
		blocked[code] = struct{}{}
	}
	return &Classifier{policy: p, blocked: blocked}
}

// Policy returns the effective policy
func (c *Classifier) Policy() Policy {
	return c.policy
}

// IsBlockStatus reports whether status is a block-signalling code
func (c *Classifier) IsBlockStatus(status int) bool {
	_, ok := c.blocked[status]
	return ok
}

// Classify inspects a response. status 0 means the status is unknown.
// Only Approved content may terminate the ladder successfully.
func (c *Classifier) Classify(status int, content string) Verdict {
	if c.IsBlockStatus(status) {
		return Blocked
	}
	if _, found := ContainsMarker(content, c.policy.ScanWindow, c.policy.Markers); found {
		return ChallengePresent
	}
	if Length(content) < c.policy.MinLength {
		return TooShort
	}
	return Approved
}
