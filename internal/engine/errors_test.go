package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/law-makers/scholarfetch/pkg/models"
)

func TestFetchError(t *testing.T) {
	cause := errors.New("connection reset")
	err := TransportFailure(cause).WithStrategy(models.StrategyBrowserHeaders)

	assert.Equal(t, "TRANSPORT_FAILURE: request failed: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", err), &FetchError{Code: ErrCodeTransport})
	assert.NotErrorIs(t, err, &FetchError{Code: ErrCodeChallenge})

	blocked := BlockedByStatus(429)
	assert.Equal(t, "BLOCKED_BY_STATUS (HTTP 429): block-signalling status", blocked.Error())
	assert.Equal(t, 429, blocked.GetStatusCode())
}

func TestOutcomeFor(t *testing.T) {
	cases := map[error]models.AttemptOutcome{
		BlockedByStatus(403):                 models.OutcomeBlocked,
		ContentTooShort(10, 500):             models.OutcomeTooShort,
		ChallengeUnresolved("just a moment"): models.OutcomeChallenge,
		UnexpectedStatus(404):                models.OutcomeError,
		RenderingEngineFailure(nil):          models.OutcomeError,
		errors.New("plain"):                  models.OutcomeError,
	}
	for err, want := range cases {
		assert.Equal(t, want, OutcomeFor(err), err.Error())
	}
}

func TestExhaustedError(t *testing.T) {
	err := &ExhaustedError{
		URL: "https://example.org",
		Attempts: []models.FetchAttempt{
			{Strategy: models.StrategyTLSImpersonation, Outcome: models.OutcomeBlocked, Detail: "status 403"},
			{Strategy: models.StrategyBrowserHeaders, Outcome: models.OutcomeTooShort},
		},
	}

	assert.Equal(t,
		"failed to fetch content from https://example.org: all 2 strategies exhausted (last: browser-headers: too_short)",
		err.Error())
	assert.ErrorIs(t, err, ErrLadderExhausted)
	assert.Equal(t, "tls-impersonation: blocked (status 403); browser-headers: too_short", err.Summary())

	code, ok := CodeOf(err)
	assert.False(t, ok)
	assert.Empty(t, code)
}
