package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr int

func (s statusErr) Error() string      { return "status" }
func (s statusErr) GetStatusCode() int { return int(s) }

type fixedJitter struct{ lo, hi time.Duration }

func (f *fixedJitter) Between(lo, hi time.Duration) time.Duration {
	f.lo, f.hi = lo, hi
	return lo
}

func fast() Config {
	return Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Multiplier: 2}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	var seen []int
	err := Do(context.Background(), fast(), func(ctx context.Context, attempt int) error {
		seen = append(seen, attempt)
		if attempt < 2 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestDo_GivesUp(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast(), func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("down")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
}

func TestDo_PermanentStops(t *testing.T) {
	sentinel := errors.New("not found")
	calls := 0
	err := Do(context.Background(), fast(), func(ctx context.Context, attempt int) error {
		calls++
		return Permanent(sentinel)
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, sentinel)
}

func TestDo_StatusFilter(t *testing.T) {
	cfg := fast()
	cfg.RetryableStatusCodes = []int{403, 429}

	calls := 0
	_ = Do(context.Background(), cfg, func(ctx context.Context, attempt int) error {
		calls++
		return statusErr(404)
	})
	assert.Equal(t, 1, calls)

	calls = 0
	_ = Do(context.Background(), cfg, func(ctx context.Context, attempt int) error {
		calls++
		return statusErr(403)
	})
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fast()
	cfg.InitialBackoff = time.Hour
	cfg.MaxBackoff = time.Hour

	calls := 0
	err := Do(ctx, cfg, func(ctx context.Context, attempt int) error {
		calls++
		cancel()
		return errors.New("boom")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoff(t *testing.T) {
	cfg := Config{InitialBackoff: time.Second, MaxBackoff: 2 * time.Second, Multiplier: 1.5}
	assert.Equal(t, time.Second, Backoff(0, cfg))
	assert.Equal(t, 1500*time.Millisecond, Backoff(1, cfg))
	assert.Equal(t, 2*time.Second, Backoff(5, cfg))

	j := &fixedJitter{}
	cfg.Jitter = j
	cfg.JitterFraction = 0.5
	assert.Equal(t, 500*time.Millisecond, Backoff(0, cfg))
	assert.Equal(t, 1500*time.Millisecond, j.hi)
}

func TestSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}
