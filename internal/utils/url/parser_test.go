package urlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	valid := []string{
		"http://example.com",
		"https://example.com/path",
		"https://scholarships.example.edu/awards?id=7",
	}
	for _, u := range valid {
		assert.NoError(t, ValidateURL(u), u)
	}

	invalid := []string{"ftp://example.com", "//example.com", "http:///", "example.com/awards", "https://exa mple.com"}
	for _, u := range invalid {
		assert.Error(t, ValidateURL(u), u)
	}
}

func TestHasHTTPScheme(t *testing.T) {
	assert.True(t, HasHTTPScheme("https://example.com"))
	assert.True(t, HasHTTPScheme("HTTP://EXAMPLE.COM"))
	assert.False(t, HasHTTPScheme("example.com"))
	assert.False(t, HasHTTPScheme("mailto:someone@example.com"))
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "https://example.edu/apply", ResolveURL("https://example.edu/awards/", "/apply"))
	assert.Equal(t, "https://example.edu/awards/form", ResolveURL("https://example.edu/awards/", "form"))
	assert.Equal(t, "https://other.org/x", ResolveURL("https://example.edu/", "https://other.org/x"))
}

func TestOrigin(t *testing.T) {
	assert.Equal(t, "https://example.edu", Origin("https://example.edu/awards/2025"))
	assert.Equal(t, "", Origin("not a url"))
}
