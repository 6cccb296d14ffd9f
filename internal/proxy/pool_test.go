package proxy

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hosts(t *testing.T, p *Pool, n int) []string {
	t.Helper()
	out := make([]string, n)
	for i := range out {
		out[i] = p.Next().Host
	}
	return out
}

func TestPoolRotation(t *testing.T) {
	pool, err := NewPool([]string{"p1:8080", "http://p2:8080", "socks5://p3:1080"})
	require.NoError(t, err)
	require.Equal(t, 3, pool.Len())

	assert.Equal(t, []string{"p1:8080", "p2:8080", "p3:1080", "p1:8080"}, hosts(t, pool, 4))
}

func TestPoolCooldown(t *testing.T) {
	pool, err := NewPool([]string{"p1:1", "p2:1", "p3:1"})
	require.NoError(t, err)

	clock := time.Unix(1700000000, 0)
	pool.now = func() time.Time { return clock }

	p1 := pool.Next()
	p2 := pool.Next()
	pool.MarkFailed(p2)
	_ = pool.Next() // p3

	// p2 is skipped while cooling down
	assert.Equal(t, []string{"p1:1", "p3:1", "p1:1"}, hosts(t, pool, 3))

	clock = clock.Add(DefaultCooldown + time.Second)
	assert.Equal(t, []string{"p2:1"}, hosts(t, pool, 1))

	pool.MarkFailed(p1)
	pool.MarkHealthy(p1)
	assert.Equal(t, []string{"p3:1", "p1:1"}, hosts(t, pool, 2))
}

func TestPoolAllFailed(t *testing.T) {
	pool, err := NewPool([]string{"p1:1"})
	require.NoError(t, err)
	pool.MarkFailed(pool.Next())

	assert.Equal(t, "p1:1", pool.Next().Host)
}

func TestNilPool(t *testing.T) {
	pool, err := NewPool([]string{" ", ""})
	require.NoError(t, err)
	assert.Nil(t, pool)
	assert.Zero(t, pool.Len())
	assert.Nil(t, pool.Next())

	u, err := pool.ProxyFunc()(&http.Request{})
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestNewPoolRejectsBadScheme(t *testing.T) {
	_, err := NewPool([]string{"ftp://p1:21"})
	assert.Error(t, err)
}
