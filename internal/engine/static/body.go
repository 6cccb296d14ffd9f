package static

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"

	"github.com/law-makers/scholarfetch/internal/classify"
	"github.com/law-makers/scholarfetch/internal/engine"
)

// maxBodyBytes caps how much of a response is read
const maxBodyBytes = 10 * 1024 * 1024

// blockScanWindow is how far into a direct response the block markers are
// searched
const blockScanWindow = 1000

// readBody decodes resp.Body according to its Content-Encoding and charset.
// It is used on connections where we set Accept-Encoding ourselves, so the
// transport does not decompress for us.
func readBody(resp *http.Response) (string, error) {
	var r io.Reader = io.LimitReader(resp.Body, maxBodyBytes)

	switch enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return "", fmt.Errorf("gzip body: %w", err)
		}
		defer gz.Close()
		r = gz
	case "deflate":
		dr, err := deflateReader(r)
		if err != nil {
			return "", fmt.Errorf("deflate body: %w", err)
		}
		defer dr.Close()
		r = dr
	case "br":
		r = brotli.NewReader(r)
	default:
		return "", fmt.Errorf("unsupported content encoding %q", enc)
	}

	if cr, err := charset.NewReader(r, resp.Header.Get("Content-Type")); err == nil {
		r = cr
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(b), nil
}

// deflateReader accepts both zlib-wrapped and raw deflate streams; servers
// send either under "deflate".
func deflateReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(2)
	if err != nil {
		return nil, err
	}
	if head[0]&0x0f == 8 && (uint16(head[0])<<8|uint16(head[1]))%31 == 0 {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

// checkDirect applies the acceptance rules for a direct response: 200, long
// enough, and no explicit refusal near the top of the page.
func checkDirect(c *classify.Classifier, status int, body string) *engine.FetchError {
	if fe := checkStatusAndLength(c, status, body); fe != nil {
		return fe
	}
	if marker, found := classify.ContainsMarker(body, blockScanWindow, classify.BlockMarkers); found {
		return engine.ChallengeUnresolved(marker).WithStatus(status)
	}
	return nil
}

func checkStatusAndLength(c *classify.Classifier, status int, body string) *engine.FetchError {
	if c.IsBlockStatus(status) {
		return engine.BlockedByStatus(status)
	}
	if status != http.StatusOK {
		return engine.UnexpectedStatus(status)
	}
	if n := classify.Length(body); n < c.Policy().MinLength {
		return engine.ContentTooShort(n, c.Policy().MinLength).WithStatus(status)
	}
	return nil
}
