package engine

import (
	"context"

	"github.com/law-makers/scholarfetch/pkg/models"
)

// Strategy is one rung of the escalation ladder. Implementations own their
// timeouts and internal retries; the ladder calls Attempt exactly once per URL.
type Strategy interface {
	// ID identifies the strategy in attempt traces
	ID() models.StrategyID

	// Attempt fetches rawURL. A nil error means Response holds content the
	// strategy itself found plausible; the ladder still classifies it.
	Attempt(ctx context.Context, rawURL string) (*Response, error)
}

// Response is raw content returned by a strategy
type Response struct {
	StatusCode int
	Body       string
	FinalURL   string
}
