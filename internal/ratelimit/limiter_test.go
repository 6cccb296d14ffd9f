package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHostKey(t *testing.T) {
	assert.Equal(t, "example.org", HostKey("https://www.Example.org:8443/a"))
	assert.Equal(t, "example.org", HostKey("http://example.org"))
	assert.Equal(t, "", HostKey("not a url"))
}

func TestDomainLimiter_SharesBucketAcrossWWW(t *testing.T) {
	dl := NewDomainLimiter(0.001, 1)

	assert.True(t, dl.Allow("https://example.org/a"))
	assert.False(t, dl.Allow("https://www.example.org/b"))
	assert.True(t, dl.Allow("https://other.org/"))
	assert.Equal(t, 2, dl.Hosts())
}

func TestDomainLimiter_WaitHonoursContext(t *testing.T) {
	dl := NewDomainLimiter(0.001, 1)
	assert.NoError(t, dl.Wait(context.Background(), "https://example.org"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, dl.Wait(ctx, "https://example.org"))

	// unparseable URLs are not throttled
	assert.NoError(t, dl.Wait(ctx, "::"))
}

func TestDomainLimiter_SetLimit(t *testing.T) {
	dl := NewDomainLimiter(0.001, 1)
	dl.SetLimit("www.example.org", 1000, 5)
	for i := 0; i < 5; i++ {
		assert.True(t, dl.Allow("https://example.org"))
	}
}
