package engine

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/scholarfetch/internal/classify"
	"github.com/law-makers/scholarfetch/pkg/models"
)

// fakeStrategy returns a canned response or error and counts invocations
type fakeStrategy struct {
	id    models.StrategyID
	resp  *Response
	err   error
	panic bool
	calls atomic.Int32
}

func (f *fakeStrategy) ID() models.StrategyID { return f.id }

func (f *fakeStrategy) Attempt(ctx context.Context, rawURL string) (*Response, error) {
	f.calls.Add(1)
	if f.panic {
		panic("strategy exploded")
	}
	return f.resp, f.err
}

func article(n int) string {
	var b strings.Builder
	b.WriteString("<html><head><title>Merit Scholarship</title></head><body>")
	for i := 0; i < n; i++ {
		b.WriteString("<p>Applicants must submit a transcript and two references before the deadline.</p>")
	}
	b.WriteString("</body></html>")
	return b.String()
}

func ok(id models.StrategyID) *fakeStrategy {
	return &fakeStrategy{id: id, resp: &Response{StatusCode: 200, Body: article(20)}}
}

func blocked(id models.StrategyID) *fakeStrategy {
	return &fakeStrategy{id: id, err: BlockedByStatus(403).WithStrategy(id)}
}

func ladderOf(t *testing.T, s ...*fakeStrategy) *Ladder {
	strategies := make([]Strategy, len(s))
	for i := range s {
		strategies[i] = s[i]
	}
	l, err := NewLadder(strategies, nil, nil)
	require.NoError(t, err)
	return l
}

func TestLadder_FirstStrategySucceeds(t *testing.T) {
	fakes := []*fakeStrategy{ok(1), ok(2), ok(3), ok(4), ok(5), ok(6)}
	l := ladderOf(t, fakes...)

	out, err := l.Fetch(context.Background(), "https://example.org/award")
	require.NoError(t, err)

	assert.Equal(t, models.StateSucceeded, out.State)
	assert.Equal(t, models.StrategyTLSImpersonation, out.Strategy)
	require.Len(t, out.Attempts, 1)
	assert.Equal(t, models.OutcomeSuccess, out.Attempts[0].Outcome)
	assert.Equal(t, "Merit Scholarship", out.Title)
	assert.Contains(t, out.Content, "Applicants must submit")
	assert.NotContains(t, out.Content, "<p>")

	for _, f := range fakes[1:] {
		assert.Zero(t, f.calls.Load(), "strategy %s should not run", f.id)
	}
}

func TestLadder_EscalatesToChallengeSolver(t *testing.T) {
	s1 := blocked(models.StrategyTLSImpersonation)
	s2 := &fakeStrategy{id: models.StrategyBrowserHeaders, resp: &Response{StatusCode: 200, Body: "<p>short</p>"}}
	s3 := ok(models.StrategyChallengeSolver)
	s4, s5, s6 := ok(4), ok(5), ok(6)

	out, err := ladderOf(t, s1, s2, s3, s4, s5, s6).Fetch(context.Background(), "https://example.org")
	require.NoError(t, err)

	require.Len(t, out.Attempts, 3)
	assert.Equal(t, models.OutcomeBlocked, out.Attempts[0].Outcome)
	assert.Equal(t, 403, out.Attempts[0].StatusCode)
	assert.Equal(t, models.OutcomeTooShort, out.Attempts[1].Outcome)
	assert.Equal(t, models.OutcomeSuccess, out.Attempts[2].Outcome)
	assert.Equal(t, models.StrategyChallengeSolver, out.Strategy)

	for _, f := range []*fakeStrategy{s4, s5, s6} {
		assert.Zero(t, f.calls.Load())
	}
}

func TestLadder_AllBlockedExhausts(t *testing.T) {
	var fakes []*fakeStrategy
	for _, id := range models.AllStrategies {
		fakes = append(fakes, blocked(id))
	}

	out, err := ladderOf(t, fakes...).Fetch(context.Background(), "https://example.org/x")
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.ErrorIs(t, err, ErrLadderExhausted)
	assert.Contains(t, err.Error(), "failed to fetch content from https://example.org/x: all 6 strategies exhausted")
	assert.Contains(t, err.Error(), "last: browser-challenge")

	assert.Equal(t, models.StateExhausted, out.State)
	assert.Empty(t, out.Content)
	require.Len(t, out.Attempts, 6)
	for i, a := range out.Attempts {
		assert.Equal(t, models.AllStrategies[i], a.Strategy, "trace order")
		assert.Equal(t, models.OutcomeBlocked, a.Outcome)
	}
	for _, f := range fakes {
		assert.EqualValues(t, 1, f.calls.Load())
	}
}

func TestLadder_ClassifiesStrategyResponses(t *testing.T) {
	s1 := &fakeStrategy{id: 1, resp: &Response{StatusCode: 503, Body: article(20)}}
	s2 := &fakeStrategy{id: 2, resp: &Response{StatusCode: 200, Body: "<title>Just a moment...</title>" + article(20)}}
	s3 := &fakeStrategy{id: 3, err: errors.New("dial tcp: connection refused")}
	s4 := &fakeStrategy{id: 4, panic: true}
	s5 := &fakeStrategy{id: 5}
	s6 := ok(6)

	out, err := ladderOf(t, s1, s2, s3, s4, s5, s6).Fetch(context.Background(), "https://example.org")
	require.NoError(t, err)

	outcomes := make([]models.AttemptOutcome, len(out.Attempts))
	for i, a := range out.Attempts {
		outcomes[i] = a.Outcome
	}
	assert.Equal(t, []models.AttemptOutcome{
		models.OutcomeBlocked,
		models.OutcomeChallenge,
		models.OutcomeError,
		models.OutcomeError,
		models.OutcomeError,
		models.OutcomeSuccess,
	}, outcomes)
	assert.Contains(t, out.Attempts[3].Detail, "panicked")
	assert.Equal(t, -1, out.Attempts[2].ContentLength)
}

func TestLadder_ContentCapped(t *testing.T) {
	s := &fakeStrategy{id: 1, resp: &Response{StatusCode: 200, Body: article(2000)}}
	out, err := ladderOf(t, s).Fetch(context.Background(), "https://example.org")
	require.NoError(t, err)
	assert.LessOrEqual(t, classify.Length(out.Content), classify.DefaultMaxLength)
}

func TestLadder_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s1 := ok(1)
	out, err := ladderOf(t, s1, ok(2)).Fetch(ctx, "https://example.org")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.Attempts)
	assert.Zero(t, s1.calls.Load())
}

func TestNewLadder_Validation(t *testing.T) {
	_, err := NewLadder(nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoStrategies)

	_, err = NewLadder([]Strategy{ok(1), ok(1)}, nil, nil)
	assert.Error(t, err)

	l, err := NewLadder([]Strategy{ok(4), ok(1)}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []models.StrategyID{4, 1}, l.Strategies())
}
