package models

import (
	"strconv"
	"time"
)

// StrategyID identifies one rung of the escalation ladder.
// Values are ordered from cheapest to most expensive.
type StrategyID int

const (
	// StrategyTLSImpersonation issues direct requests with a browser TLS fingerprint
	StrategyTLSImpersonation StrategyID = iota + 1

	// StrategyBrowserHeaders uses a plain HTTP/2 client with a full browser header set
	StrategyBrowserHeaders

	// StrategyChallengeSolver resolves script interstitials without a browser
	StrategyChallengeSolver

	// StrategyBrowserBasic renders the page in headless Chrome with minimal stealth
	StrategyBrowserBasic

	// StrategyBrowserHuman renders with full stealth and simulated user input
	StrategyBrowserHuman

	// StrategyBrowserChallenge renders and waits out interstitial challenges
	StrategyBrowserChallenge
)

// AllStrategies lists every strategy in ladder order.
var AllStrategies = []StrategyID{
	StrategyTLSImpersonation,
	StrategyBrowserHeaders,
	StrategyChallengeSolver,
	StrategyBrowserBasic,
	StrategyBrowserHuman,
	StrategyBrowserChallenge,
}

// String returns the string representation of the strategy
func (s StrategyID) String() string {
	switch s {
	case StrategyTLSImpersonation:
		return "tls-impersonation"
	case StrategyBrowserHeaders:
		return "browser-headers"
	case StrategyChallengeSolver:
		return "challenge-solver"
	case StrategyBrowserBasic:
		return "browser-basic"
	case StrategyBrowserHuman:
		return "browser-human"
	case StrategyBrowserChallenge:
		return "browser-challenge"
	default:
		return "unknown"
	}
}

// IsBrowser reports whether the strategy drives a rendering engine
func (s StrategyID) IsBrowser() bool {
	return s >= StrategyBrowserBasic && s <= StrategyBrowserChallenge
}

// MarshalText lets strategy IDs appear by name in JSON output.
func (s StrategyID) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseStrategy resolves a strategy name (or its 1-based ladder position) to an ID.
func ParseStrategy(name string) (StrategyID, bool) {
	for _, id := range AllStrategies {
		if id.String() == name || strconv.Itoa(int(id)) == name {
			return id, true
		}
	}
	return 0, false
}

// AttemptOutcome is the result of one strategy attempt within a ladder run
type AttemptOutcome string

const (
	OutcomeSuccess   AttemptOutcome = "success"
	OutcomeBlocked   AttemptOutcome = "blocked"
	OutcomeTooShort  AttemptOutcome = "too_short"
	OutcomeChallenge AttemptOutcome = "challenge"
	OutcomeError     AttemptOutcome = "error"
)

// FetchAttempt records one top-level strategy attempt. It is never mutated once
// appended to a trace.
type FetchAttempt struct {
	Strategy      StrategyID     `json:"strategy"`
	URL           string         `json:"url"`
	Outcome       AttemptOutcome `json:"outcome"`
	StatusCode    int            `json:"status_code,omitempty"`
	ContentLength int            `json:"content_length"`
	Elapsed       time.Duration  `json:"elapsed_ns"`
	Detail        string         `json:"detail,omitempty"`
}

// OutcomeState is the ladder state for a single URL
type OutcomeState string

const (
	StatePending    OutcomeState = "pending"
	StateAttempting OutcomeState = "attempting"
	StateSucceeded  OutcomeState = "succeeded"
	StateExhausted  OutcomeState = "exhausted"
)

// FetchOutcome is the result of one ladder run for one URL
type FetchOutcome struct {
	URL      string         `json:"url"`
	Attempts []FetchAttempt `json:"attempts"`
	State    OutcomeState   `json:"state"`
	Strategy StrategyID     `json:"strategy,omitempty"`
	Title    string         `json:"title,omitempty"`
	Content  string         `json:"content,omitempty"`

	// Markup is the approved raw response body. It is kept for exports
	// (markdown) and never serialized.
	Markup string `json:"-"`
}

// Succeeded reports whether the ladder produced content
func (o *FetchOutcome) Succeeded() bool {
	return o != nil && o.State == StateSucceeded
}

// LastAttempt returns the terminal attempt of the trace, if any
func (o *FetchOutcome) LastAttempt() (FetchAttempt, bool) {
	if o == nil || len(o.Attempts) == 0 {
		return FetchAttempt{}, false
	}
	return o.Attempts[len(o.Attempts)-1], true
}

// BatchItemResult is the per-URL entry of a batch run
type BatchItemResult struct {
	URL            string         `json:"url"`
	Success        bool           `json:"success"`
	Content        string         `json:"content,omitempty"`
	Error          string         `json:"error,omitempty"`
	Strategy       StrategyID     `json:"strategy,omitempty"`
	Attempts       []FetchAttempt `json:"attempts,omitempty"`
	ProcessingTime time.Duration  `json:"processing_time_ns"`
}

// BatchSummary aggregates the results of a batch run. Results keep input order.
type BatchSummary struct {
	Total      int               `json:"total"`
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Results    []BatchItemResult `json:"results"`
	TotalTime  time.Duration     `json:"total_time_ns"`
}
