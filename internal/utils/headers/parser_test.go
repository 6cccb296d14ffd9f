package headers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	h, err := Parse([]string{"Referer: https://www.google.com/", "x-token:abc:def", "Cookie: a=1", "cookie: b=2"})
	require.NoError(t, err)

	assert.Equal(t, "https://www.google.com/", h.Get("Referer"))
	assert.Equal(t, "abc:def", h.Get("X-Token"))
	assert.Equal(t, []string{"a=1", "b=2"}, h.Values("Cookie"))

	_, err = Parse([]string{"no colon"})
	assert.Error(t, err)
	_, err = Parse([]string{": value"})
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	dst := http.Header{}
	dst.Set("User-Agent", "browser")
	dst.Set("Accept", "text/html")

	Merge(dst, http.Header{"User-Agent": {"override"}, "X-Extra": {"1"}})

	assert.Equal(t, "override", dst.Get("User-Agent"))
	assert.Equal(t, "text/html", dst.Get("Accept"))
	assert.Equal(t, "1", dst.Get("X-Extra"))
}
