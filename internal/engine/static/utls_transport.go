package static

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
	xproxy "golang.org/x/net/proxy"

	"github.com/law-makers/scholarfetch/internal/proxy"
)

// helloIDs maps profile names onto uTLS ClientHello fingerprints
var helloIDs = map[string]utls.ClientHelloID{
	"chrome100": utls.HelloChrome_100,
	"chrome102": utls.HelloChrome_102,
	"chrome106": utls.HelloChrome_106_Shuffle,
	"chrome115": utls.HelloChrome_115_PQ,
	"chrome120": utls.HelloChrome_120,
	"edge106":   utls.HelloEdge_106,
	"safari16":  utls.HelloSafari_16_0,
}

// helloFor resolves a profile name, falling back to the newest Chrome
func helloFor(name string) utls.ClientHelloID {
	if id, ok := helloIDs[name]; ok {
		return id
	}
	return utls.HelloChrome_Auto
}

// helloTransport performs one request per connection with a chosen
// ClientHello. Connections are never pooled: each profile try must present
// a fresh handshake.
type helloTransport struct {
	dialer  *net.Dialer
	proxies *proxy.Pool
}

func newHelloTransport(proxies *proxy.Pool) *helloTransport {
	return &helloTransport{
		dialer: &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		},
		proxies: proxies,
	}
}

// roundTrip sends req over a new connection. Plain http URLs skip TLS. For
// https the protocol follows ALPN: h2 when the server picks it, HTTP/1.1
// otherwise. The returned body owns the connection.
func (t *helloTransport) roundTrip(req *http.Request, hello utls.ClientHelloID) (*http.Response, error) {
	ctx := req.Context()
	host := req.URL.Hostname()
	port := req.URL.Port()
	if port == "" {
		port = "443"
		if req.URL.Scheme == "http" {
			port = "80"
		}
	}

	raw, forward, err := t.dial(ctx, req, net.JoinHostPort(host, port))
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = raw.SetDeadline(deadline)
	}

	if forward != nil {
		return t.http1Proxy(raw, req, forward)
	}
	if req.URL.Scheme == "http" {
		return t.http1(raw, req)
	}

	conn := utls.UClient(raw, &utls.Config{ServerName: host}, hello)
	if err := handshake(ctx, conn); err != nil {
		raw.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	if conn.ConnectionState().NegotiatedProtocol == http2.NextProtoTLS {
		return t.http2(conn, req)
	}
	return t.http1(conn, req)
}

// dial connects to addr directly or through the next proxy in the pool.
// SOCKS5 and HTTP CONNECT give a tunnel to addr. A plain http request
// through an HTTP proxy is not tunnelled; forward is then the proxy and
// the request must be sent in absolute form.
func (t *helloTransport) dial(ctx context.Context, req *http.Request, addr string) (conn net.Conn, forward *url.URL, err error) {
	pu := t.proxies.Next()
	if pu == nil {
		conn, err = t.dialer.DialContext(ctx, "tcp", addr)
		return conn, nil, err
	}
	defer func() {
		if err != nil {
			t.proxies.MarkFailed(pu)
			err = fmt.Errorf("proxy %s: %w", pu.Host, err)
		} else {
			t.proxies.MarkHealthy(pu)
		}
	}()

	if pu.Scheme == "socks5" {
		d, err := xproxy.FromURL(pu, t.dialer)
		if err != nil {
			return nil, nil, err
		}
		cd, ok := d.(xproxy.ContextDialer)
		if !ok {
			return nil, nil, errors.New("socks dialer does not support contexts")
		}
		conn, err = cd.DialContext(ctx, "tcp", addr)
		return conn, nil, err
	}

	conn, err = t.dialer.DialContext(ctx, "tcp", proxyAddr(pu))
	if err != nil {
		return nil, nil, err
	}
	if pu.Scheme == "https" {
		tc := utls.Client(conn, &utls.Config{ServerName: pu.Hostname()})
		if err := tc.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("proxy tls: %w", err)
		}
		conn = tc
	}
	if req.URL.Scheme == "http" {
		return conn, pu, nil
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := connect(conn, pu, addr); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, nil, nil
}

// connect opens a CONNECT tunnel to addr over a proxy connection
func connect(conn net.Conn, pu *url.URL, addr string) error {
	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: addr},
		Host:   addr,
		Header: make(http.Header),
	}
	if auth := proxyAuth(pu); auth != "" {
		req.Header.Set("Proxy-Authorization", auth)
	}
	if err := req.Write(conn); err != nil {
		return fmt.Errorf("write CONNECT: %w", err)
	}
	// The server sends nothing after its reply until our ClientHello, so
	// the reader cannot swallow tunnel bytes
	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		return fmt.Errorf("read CONNECT response: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("CONNECT refused: %s", resp.Status)
	}
	return nil
}

func proxyAddr(pu *url.URL) string {
	if pu.Port() != "" {
		return pu.Host
	}
	if pu.Scheme == "https" {
		return net.JoinHostPort(pu.Hostname(), "443")
	}
	return net.JoinHostPort(pu.Hostname(), "80")
}

func proxyAuth(pu *url.URL) string {
	if pu.User == nil {
		return ""
	}
	pass, _ := pu.User.Password()
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(pu.User.Username()+":"+pass))
}

func handshake(ctx context.Context, conn *utls.UConn) error {
	errc := make(chan error, 1)
	go func() { errc <- conn.Handshake() }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		conn.Close()
		<-errc
		return ctx.Err()
	}
}

func (t *helloTransport) http1(conn net.Conn, req *http.Request) (*http.Response, error) {
	req.Header.Set("Connection", "close")
	if err := req.Write(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write request: %w", err)
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read response: %w", err)
	}
	resp.Body = &connBody{ReadCloser: resp.Body, conn: conn}
	return resp, nil
}

// http1Proxy sends a plain http request to a forwarding proxy
func (t *helloTransport) http1Proxy(conn net.Conn, req *http.Request, pu *url.URL) (*http.Response, error) {
	req.Header.Set("Connection", "close")
	if auth := proxyAuth(pu); auth != "" {
		req.Header.Set("Proxy-Authorization", auth)
	}
	if err := req.WriteProxy(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write request: %w", err)
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read response: %w", err)
	}
	resp.Body = &connBody{ReadCloser: resp.Body, conn: conn}
	return resp, nil
}

func (t *helloTransport) http2(conn net.Conn, req *http.Request) (*http.Response, error) {
	tr := &http2.Transport{}
	cc, err := tr.NewClientConn(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("h2 client conn: %w", err)
	}
	resp, err := cc.RoundTrip(req)
	if err != nil {
		cc.Close()
		return nil, err
	}
	resp.Body = &connBody{ReadCloser: resp.Body, conn: cc}
	return resp, nil
}

// connBody closes the underlying connection along with the body
type connBody struct {
	io.ReadCloser
	conn io.Closer
}

func (b *connBody) Close() error {
	err := b.ReadCloser.Close()
	b.conn.Close()
	return err
}
