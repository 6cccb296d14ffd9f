// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/law-makers/scholarfetch/pkg/models"
)

// Common engine errors
var (
	ErrLadderExhausted = errors.New("all fetch strategies exhausted")
	ErrNoStrategies    = errors.New("no fetch strategies configured")
	ErrBrowserNotFound = errors.New("chrome browser not found")
	ErrInvalidURL      = errors.New("invalid URL")
)

// ErrorCode classifies why a strategy attempt failed
type ErrorCode string

const (
	ErrCodeTransport        ErrorCode = "TRANSPORT_FAILURE"
	ErrCodeBlockedByStatus  ErrorCode = "BLOCKED_BY_STATUS"
	ErrCodeContentTooShort  ErrorCode = "CONTENT_TOO_SHORT"
	ErrCodeChallenge        ErrorCode = "CHALLENGE_UNRESOLVED"
	ErrCodeRenderingEngine  ErrorCode = "RENDERING_ENGINE_FAILURE"
	ErrCodeUnexpectedStatus ErrorCode = "UNEXPECTED_STATUS"
	ErrCodeExhausted        ErrorCode = "LADDER_EXHAUSTED"
)

// FetchError wraps a strategy failure with its taxonomy code
type FetchError struct {
	Code       ErrorCode
	Strategy   models.StrategyID
	StatusCode int
	Message    string
	Underlying error
	Details    map[string]interface{}
}

// Error implements the error interface
func (e *FetchError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Underlying != nil {
		b.WriteString(": ")
		b.WriteString(e.Underlying.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *FetchError) Unwrap() error {
	return e.Underlying
}

// Is checks if the error matches the target
func (e *FetchError) Is(target error) bool {
	if t, ok := target.(*FetchError); ok {
		return e.Code == t.Code
	}
	return false
}

// GetStatusCode exposes the HTTP status to the retry policy
func (e *FetchError) GetStatusCode() int {
	return e.StatusCode
}

// NewFetchError creates a new FetchError
func NewFetchError(code ErrorCode, message string, err error) *FetchError {
	return &FetchError{
		Code:       code,
		Message:    message,
		Underlying: err,
		Details:    make(map[string]interface{}),
	}
}

// WithStatus records the HTTP status that caused the failure
func (e *FetchError) WithStatus(status int) *FetchError {
	e.StatusCode = status
	return e
}

// WithStrategy tags the error with the strategy that produced it
func (e *FetchError) WithStrategy(id models.StrategyID) *FetchError {
	e.Strategy = id
	return e
}

// WithDetail adds a detail to the error
func (e *FetchError) WithDetail(key string, value interface{}) *FetchError {
	e.Details[key] = value
	return e
}

// Convenience constructors, one per taxonomy entry.

func TransportFailure(err error) *FetchError {
	return NewFetchError(ErrCodeTransport, "request failed", err)
}

func BlockedByStatus(status int) *FetchError {
	return NewFetchError(ErrCodeBlockedByStatus, "block-signalling status", nil).WithStatus(status)
}

func UnexpectedStatus(status int) *FetchError {
	return NewFetchError(ErrCodeUnexpectedStatus, "unexpected status", nil).WithStatus(status)
}

func ContentTooShort(length, min int) *FetchError {
	return NewFetchError(ErrCodeContentTooShort, fmt.Sprintf("content length %d below %d", length, min), nil).
		WithDetail("length", length)
}

func ChallengeUnresolved(marker string) *FetchError {
	return NewFetchError(ErrCodeChallenge, fmt.Sprintf("challenge marker %q still present", marker), nil).
		WithDetail("marker", marker)
}

func RenderingEngineFailure(err error) *FetchError {
	return NewFetchError(ErrCodeRenderingEngine, "browser session failed", err)
}

// CodeOf returns the taxonomy code carried by err, if any
func CodeOf(err error) (ErrorCode, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Code, true
	}
	return "", false
}

// OutcomeFor maps a strategy failure onto the attempt outcome recorded in the trace
func OutcomeFor(err error) models.AttemptOutcome {
	code, ok := CodeOf(err)
	if !ok {
		return models.OutcomeError
	}
	switch code {
	case ErrCodeBlockedByStatus:
		return models.OutcomeBlocked
	case ErrCodeContentTooShort:
		return models.OutcomeTooShort
	case ErrCodeChallenge:
		return models.OutcomeChallenge
	default:
		return models.OutcomeError
	}
}

// ExhaustedError is returned when every strategy in the ladder failed.
// It carries the full attempt trace for diagnostics.
type ExhaustedError struct {
	URL      string
	Attempts []models.FetchAttempt
}

// Error implements the error interface
func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("failed to fetch content from %s: all %d strategies exhausted", e.URL, len(e.Attempts))
	if n := len(e.Attempts); n > 0 {
		last := e.Attempts[n-1]
		detail := last.Detail
		if detail == "" {
			detail = string(last.Outcome)
		}
		msg += fmt.Sprintf(" (last: %s: %s)", last.Strategy, detail)
	}
	return msg
}

// Unwrap lets errors.Is match ErrLadderExhausted
func (e *ExhaustedError) Unwrap() error {
	return ErrLadderExhausted
}

// Summary renders one line per attempt
func (e *ExhaustedError) Summary() string {
	lines := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		line := fmt.Sprintf("%s: %s", a.Strategy, a.Outcome)
		if a.Detail != "" {
			line += " (" + a.Detail + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "; ")
}
