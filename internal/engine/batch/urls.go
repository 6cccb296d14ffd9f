package batch

import (
	"errors"
	"fmt"
	"strings"
)

// MaxURLs is the largest batch accepted at the boundary
const MaxURLs = 50

var (
	ErrNoURLs      = errors.New("no valid URLs provided")
	ErrTooManyURLs = fmt.Errorf("maximum %d URLs per batch", MaxURLs)
)

// PrepareURLs trims entries, drops blanks and enforces the batch size
// bounds. Order is preserved and duplicates are kept; malformed entries are
// reported per item by Run rather than rejected here.
func PrepareURLs(raw []string) ([]string, error) {
	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}

	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	if len(urls) > MaxURLs {
		return nil, ErrTooManyURLs
	}
	return urls, nil
}
