package static

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	utls "github.com/refraction-networking/utls"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/scholarfetch/internal/engine"
	"github.com/law-makers/scholarfetch/internal/profile"
	"github.com/law-makers/scholarfetch/internal/proxy"
	"github.com/law-makers/scholarfetch/pkg/models"
)

var longPage = "<html><head><title>Fellowship</title></head><body>" +
	strings.Repeat("<p>The fellowship covers tuition and a monthly stipend for two years.</p>", 20) +
	"</body></html>"

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func testOptions() Options {
	return Options{
		Sampler:      profile.NewSampler(profile.Default(), 42),
		Timeout:      5 * time.Second,
		ExtraHeaders: http.Header{"X-Test": {"yes"}},
	}
}

func newImpersonator() *Impersonator {
	im := NewImpersonator(testOptions())
	im.sleep = noSleep
	return im
}

func newHeaderClient() *HeaderClient {
	hc := NewHeaderClient(testOptions())
	hc.retry.InitialBackoff = time.Millisecond
	hc.retry.MaxBackoff = time.Millisecond
	return hc
}

func TestImpersonator_Success(t *testing.T) {
	var ua, extra string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		extra = r.Header.Get("X-Test")
		io.WriteString(w, longPage)
	}))
	defer srv.Close()

	im := newImpersonator()
	assert.Equal(t, models.StrategyTLSImpersonation, im.ID())

	resp, err := im.Attempt(context.Background(), srv.URL+"/award")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, longPage, resp.Body)
	assert.Equal(t, srv.URL+"/award", resp.FinalURL)
	assert.Contains(t, ua, "Mozilla/5.0")
	assert.Equal(t, "yes", extra)
}

func TestImpersonator_FollowsRedirectWithCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc", Path: "/"})
			http.Redirect(w, r, "/final", http.StatusFound)
		case "/final":
			if c, err := r.Cookie("sid"); err != nil || c.Value != "abc" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			io.WriteString(w, longPage)
		}
	}))
	defer srv.Close()

	resp, err := newImpersonator().Attempt(context.Background(), srv.URL+"/start")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/final", resp.FinalURL)
}

func TestImpersonator_RotatesProfilesOnBlock(t *testing.T) {
	var hits atomic.Int32
	seen := make(chan string, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		seen <- r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newImpersonator().Attempt(context.Background(), srv.URL)
	require.Error(t, err)

	var fe *engine.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, engine.ErrCodeBlockedByStatus, fe.Code)
	assert.Equal(t, 429, fe.StatusCode)
	assert.Equal(t, models.StrategyTLSImpersonation, fe.Strategy)
	assert.EqualValues(t, 3, hits.Load())

	close(seen)
	uas := map[string]bool{}
	for ua := range seen {
		uas[ua] = true
	}
	assert.Len(t, uas, 3, "each try should present a different profile")
}

func TestImpersonator_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		code    engine.ErrorCode
		outcome models.AttemptOutcome
	}{
		{"short", 200, "<p>tiny</p>", engine.ErrCodeContentTooShort, models.OutcomeTooShort},
		{"refusal", 200, "<h1>You have been blocked</h1>" + longPage, engine.ErrCodeChallenge, models.OutcomeChallenge},
		{"not found", 404, longPage, engine.ErrCodeUnexpectedStatus, models.OutcomeError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := newImpersonator().Attempt(context.Background(), srv.URL)
			code, ok := engine.CodeOf(err)
			require.True(t, ok)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.outcome, engine.OutcomeFor(err))
		})
	}
}

func TestImpersonator_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := newImpersonator().Attempt(context.Background(), addr)
	code, ok := engine.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, engine.ErrCodeTransport, code)
}

func TestImpersonator_DecodesGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept-Encoding"), "gzip")
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		io.WriteString(gz, longPage)
		gz.Close()
	}))
	defer srv.Close()

	resp, err := newImpersonator().Attempt(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, longPage, resp.Body)
}

func TestHeaderClient_SendsBrowserHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		io.WriteString(w, longPage)
	}))
	defer srv.Close()

	hc := newHeaderClient()
	assert.Equal(t, models.StrategyBrowserHeaders, hc.ID())

	resp, err := hc.Attempt(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, longPage, resp.Body)

	assert.Equal(t, "navigate", got.Get("Sec-Fetch-Mode"))
	assert.Equal(t, "document", got.Get("Sec-Fetch-Dest"))
	assert.Equal(t, "1", got.Get("DNT"))
	assert.Contains(t, got.Get("Accept-Language"), "en-US")
	assert.Equal(t, "yes", got.Get("X-Test"))
	assert.NotEmpty(t, got.Get("User-Agent"))
}

func TestHeaderClient_TwoTriesThenBlocked(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, "<title>Just a moment...</title>")
	}))
	defer srv.Close()

	_, err := newHeaderClient().Attempt(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, models.OutcomeBlocked, engine.OutcomeFor(err))
	assert.EqualValues(t, 2, hits.Load())
}

func TestHeaderClient_RecoversOnSecondTry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		io.WriteString(w, longPage)
	}))
	defer srv.Close()

	resp, err := newHeaderClient().Attempt(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestReadBody_Deflate(t *testing.T) {
	var zbuf, fbuf bytes.Buffer
	zw := zlib.NewWriter(&zbuf)
	io.WriteString(zw, "zlib wrapped")
	zw.Close()
	fw, _ := flate.NewWriter(&fbuf, flate.DefaultCompression)
	io.WriteString(fw, "raw deflate")
	fw.Close()

	for want, buf := range map[string]*bytes.Buffer{"zlib wrapped": &zbuf, "raw deflate": &fbuf} {
		resp := &http.Response{
			Header: http.Header{"Content-Encoding": {"deflate"}},
			Body:   io.NopCloser(buf),
		}
		got, err := readBody(resp)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := readBody(&http.Response{
		Header: http.Header{"Content-Encoding": {"zstd"}},
		Body:   io.NopCloser(strings.NewReader("x")),
	})
	assert.Error(t, err)
}

func TestImpersonator_DecodesBrotli(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gzip, deflate, br", r.Header.Get("Accept-Encoding"))
		w.Header().Set("Content-Encoding", "br")
		bw := brotli.NewWriter(w)
		io.WriteString(bw, longPage)
		bw.Close()
	}))
	defer srv.Close()

	resp, err := newImpersonator().Attempt(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, longPage, resp.Body)
}

func TestImpersonator_ForwardsThroughHTTPProxy(t *testing.T) {
	var host, target string
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host = r.Host
		target = r.URL.String()
		io.WriteString(w, longPage)
	}))
	defer proxySrv.Close()

	pool, err := proxy.NewPool([]string{proxySrv.URL})
	require.NoError(t, err)

	opts := testOptions()
	opts.Proxies = pool
	im := NewImpersonator(opts)
	im.sleep = noSleep

	resp, err := im.Attempt(context.Background(), "http://awards.example.edu/apply")
	require.NoError(t, err)
	assert.Equal(t, longPage, resp.Body)
	assert.Equal(t, "awards.example.edu", host)
	assert.Equal(t, "http://awards.example.edu/apply", target)
}

func TestImpersonator_ProxyRefusesTunnel(t *testing.T) {
	var method atomic.Value
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method.Store(r.Method)
		w.WriteHeader(http.StatusProxyAuthRequired)
	}))
	defer proxySrv.Close()

	pool, err := proxy.NewPool([]string{proxySrv.URL})
	require.NoError(t, err)

	opts := testOptions()
	opts.Proxies = pool
	im := NewImpersonator(opts)
	im.sleep = noSleep

	_, err = im.Attempt(context.Background(), "https://awards.example.edu/apply")
	code, ok := engine.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, engine.ErrCodeTransport, code)
	assert.Contains(t, err.Error(), "CONNECT refused")
	assert.Equal(t, http.MethodConnect, method.Load())
}

func TestHelloFor(t *testing.T) {
	for _, p := range profile.Default().TLSProfiles {
		_, ok := helloIDs[p.Name]
		assert.True(t, ok, "profile %s has no ClientHello", p.Name)
	}
	assert.Equal(t, utls.HelloChrome_Auto, helloFor("netscape4"))
	assert.Equal(t, utls.HelloSafari_16_0, helloFor("safari16"))
}
