package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/law-makers/scholarfetch/internal/classify"
	"github.com/law-makers/scholarfetch/internal/engine/metadata"
	"github.com/law-makers/scholarfetch/internal/normalize"
	"github.com/law-makers/scholarfetch/internal/reqctx"
	"github.com/law-makers/scholarfetch/pkg/models"
)

// Fetcher is anything that can run the full ladder for one URL.
// The batch orchestrator depends on this rather than on *Ladder.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*models.FetchOutcome, error)
}

// Ladder tries strategies in fixed order until one yields approved content
type Ladder struct {
	strategies []Strategy
	classifier *classify.Classifier
	normalizer *normalize.Normalizer
}

// NewLadder creates a Ladder. Strategies run in the order given; an ID may
// appear only once.
func NewLadder(strategies []Strategy, c *classify.Classifier, n *normalize.Normalizer) (*Ladder, error) {
	if len(strategies) == 0 {
		return nil, ErrNoStrategies
	}
	seen := make(map[models.StrategyID]bool, len(strategies))
	for _, s := range strategies {
		if s == nil {
			return nil, fmt.Errorf("nil strategy in ladder")
		}
		if seen[s.ID()] {
			return nil, fmt.Errorf("strategy %s registered twice", s.ID())
		}
		seen[s.ID()] = true
	}
	if c == nil {
		c = classify.New(classify.DefaultPolicy())
	}
	if n == nil {
		n = normalize.New(0, 0)
	}
	return &Ladder{
		strategies: append([]Strategy(nil), strategies...),
		classifier: c,
		normalizer: n,
	}, nil
}

// Strategies returns the configured ladder order
func (l *Ladder) Strategies() []models.StrategyID {
	ids := make([]models.StrategyID, len(l.strategies))
	for i, s := range l.strategies {
		ids[i] = s.ID()
	}
	return ids
}

// Fetch runs the ladder for rawURL. On success the outcome holds normalized
// content; otherwise the error is an *ExhaustedError and the outcome still
// carries the full trace.
func (l *Ladder) Fetch(ctx context.Context, rawURL string) (*models.FetchOutcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = reqctx.Ensure(ctx)
	rc := reqctx.GetRequestContext(ctx)

	outcome := &models.FetchOutcome{
		URL:      rawURL,
		State:    models.StatePending,
		Attempts: make([]models.FetchAttempt, 0, len(l.strategies)),
	}

	for _, s := range l.strategies {
		if err := ctx.Err(); err != nil {
			break
		}

		outcome.State = models.StateAttempting
		attempt, resp := l.attempt(ctx, s, rawURL)
		outcome.Attempts = append(outcome.Attempts, attempt)

		log.Debug().
			Str("request_id", rc.RequestID).
			Str("url", rawURL).
			Str("strategy", s.ID().String()).
			Str("outcome", string(attempt.Outcome)).
			Int("status", attempt.StatusCode).
			Dur("elapsed", attempt.Elapsed).
			Str("detail", attempt.Detail).
			Msg("Strategy attempt finished")

		if attempt.Outcome != models.OutcomeSuccess {
			continue
		}

		outcome.State = models.StateSucceeded
		outcome.Strategy = s.ID()
		outcome.Markup = resp.Body
		outcome.Title = metadata.Title(resp.Body)
		outcome.Content = l.normalizer.Normalize(resp.Body)

		log.Info().
			Str("request_id", rc.RequestID).
			Str("url", rawURL).
			Str("strategy", s.ID().String()).
			Int("attempts", len(outcome.Attempts)).
			Int("content_length", classify.Length(outcome.Content)).
			Dur("elapsed", time.Since(rc.StartTime)).
			Msg("Content acquired")
		return outcome, nil
	}

	outcome.State = models.StateExhausted
	if err := ctx.Err(); err != nil && len(outcome.Attempts) < len(l.strategies) {
		return outcome, fmt.Errorf("fetch of %s interrupted after %d attempts: %w", rawURL, len(outcome.Attempts), err)
	}
	exhausted := &ExhaustedError{URL: rawURL, Attempts: outcome.Attempts}

	log.Warn().
		Str("request_id", rc.RequestID).
		Str("url", rawURL).
		Int("attempts", len(outcome.Attempts)).
		Str("trace", exhausted.Summary()).
		Msg("Fetch ladder exhausted")

	return outcome, exhausted
}

// attempt runs one strategy and turns its result into a trace entry
func (l *Ladder) attempt(ctx context.Context, s Strategy, rawURL string) (models.FetchAttempt, *Response) {
	start := time.Now()
	resp, err := safeAttempt(ctx, s, rawURL)

	attempt := models.FetchAttempt{
		Strategy:      s.ID(),
		URL:           rawURL,
		ContentLength: -1,
		Elapsed:       time.Since(start),
	}

	if err != nil {
		attempt.Outcome = OutcomeFor(err)
		attempt.Detail = err.Error()
		var fe *FetchError
		if errors.As(err, &fe) {
			attempt.StatusCode = fe.StatusCode
		}
		return attempt, nil
	}
	if resp == nil {
		attempt.Outcome = models.OutcomeError
		attempt.Detail = "strategy returned no response"
		return attempt, nil
	}

	attempt.StatusCode = resp.StatusCode
	attempt.ContentLength = classify.Length(resp.Body)

	switch verdict := l.classifier.Classify(resp.StatusCode, resp.Body); verdict {
	case classify.Approved:
		attempt.Outcome = models.OutcomeSuccess
	case classify.Blocked:
		attempt.Outcome = models.OutcomeBlocked
		attempt.Detail = fmt.Sprintf("status %d", resp.StatusCode)
	case classify.TooShort:
		attempt.Outcome = models.OutcomeTooShort
		attempt.Detail = fmt.Sprintf("content length %d", attempt.ContentLength)
	case classify.ChallengePresent:
		attempt.Outcome = models.OutcomeChallenge
		attempt.Detail = "challenge markers in response"
	}
	return attempt, resp
}

// safeAttempt converts a panicking strategy into an ordinary failure
func safeAttempt(ctx context.Context, s Strategy, rawURL string) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = NewFetchError(ErrCodeTransport, fmt.Sprintf("strategy panicked: %v", r), nil).WithStrategy(s.ID())
		}
	}()
	return s.Attempt(ctx, rawURL)
}
