package ui

import (
	"fmt"
	"time"

	"github.com/law-makers/scholarfetch/pkg/models"
)

// ANSI color and style constants for CLI output
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[97m"
	ColorRed    = "\033[31m"
)

// Convenience helper to build styled strings. Keep minimal so tests can use constants directly.
func Bold(s string) string {
	return ColorBold + s + ColorReset
}

func Success(s string) string {
	return ColorGreen + s + ColorReset
}

func Info(s string) string {
	return ColorDim + ColorYellow + s + ColorReset
}

func Error(s string) string {
	return ColorRed + s + ColorReset
}

func Dim(s string) string {
	return ColorDim + s + ColorReset
}

// Mark is a coloured tick or cross
func Mark(ok bool) string {
	if ok {
		return Success("✓")
	}
	return Error("✗")
}

// Outcome colours an attempt outcome by severity
func Outcome(o models.AttemptOutcome) string {
	switch o {
	case models.OutcomeSuccess:
		return Success(string(o))
	case models.OutcomeBlocked, models.OutcomeChallenge:
		return ColorYellow + string(o) + ColorReset
	default:
		return Error(string(o))
	}
}

// Attempt renders one trace line: "3. challenge-solver  blocked (HTTP 403) 1.2s"
func Attempt(i int, a models.FetchAttempt) string {
	line := fmt.Sprintf("%d. %-18s %s", i, a.Strategy, Outcome(a.Outcome))
	if a.StatusCode != 0 {
		line += Dim(fmt.Sprintf(" (HTTP %d)", a.StatusCode))
	}
	line += Dim(" " + a.Elapsed.Round(10*time.Millisecond).String())
	return line
}
