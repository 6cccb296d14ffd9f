package headers

import (
	"fmt"
	"net/http"
	"strings"
)

// Parse converts "Key: Value" strings from the command line into a header
// set. Repeated keys accumulate values.
func Parse(h []string) (http.Header, error) {
	out := http.Header{}
	for _, hdr := range h {
		key, value, ok := strings.Cut(hdr, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed header %q, want \"Key: Value\"", hdr)
		}
		out.Add(key, strings.TrimSpace(value))
	}
	return out, nil
}

// Merge copies extra onto dst, replacing any values dst already had for the
// same key. Strategies call it after building their browser header set.
func Merge(dst, extra http.Header) {
	for key, values := range extra {
		dst.Del(key)
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}
