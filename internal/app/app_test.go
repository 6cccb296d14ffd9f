package app

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/scholarfetch/internal/config"
	"github.com/law-makers/scholarfetch/pkg/models"
)

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)
}

func TestStrategies_FullLadder(t *testing.T) {
	a, err := New(context.Background(), config.Default())
	require.NoError(t, err)

	var ids []models.StrategyID
	for _, s := range a.Strategies(http.Header{"X-Test": {"1"}}) {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, models.AllStrategies, ids)
	assert.True(t, a.UsesBrowser())

	ladder, err := a.NewLadder(nil)
	require.NoError(t, err)
	assert.Equal(t, models.AllStrategies, ladder.Strategies())
}

func TestStrategies_Subset(t *testing.T) {
	cfg := config.Default()
	ids, err := config.ParseStrategies([]string{"challenge-solver", "1"})
	require.NoError(t, err)
	cfg.StrategyIDs = ids

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, a.UsesBrowser())
	assert.Empty(t, a.ChromePath)

	ladder, err := a.NewLadder(nil)
	require.NoError(t, err)
	assert.Equal(t, []models.StrategyID{models.StrategyTLSImpersonation, models.StrategyChallengeSolver}, ladder.Strategies())
}

func TestNew_BadProxy(t *testing.T) {
	cfg := config.Default()
	cfg.Proxy = "ftp://nope:21"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNew_RateLimitToggle(t *testing.T) {
	cfg := config.Default()
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, a.RateLimiter)
	assert.NotNil(t, a.NewBatch(nil, nil))

	cfg.RateLimitRPS = 0
	a, err = New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, a.RateLimiter)
	assert.NoError(t, a.Close(context.Background()))
}
