package transport

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// defaultMaxRedirects caps redirect chains.
const defaultMaxRedirects = 10

// checkProxyTimeout bounds the SOCKS5 handshake performed by CheckProxy.
const checkProxyTimeout = 2 * time.Second

// SOCKS5 protocol constants used by CheckProxy.
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5AuthPassword = 0x02
	socks5AuthNoAccept = 0xFF
)

// BrowserHeaders returns the headers sent with every request.
// The listing host rejects clients that do not look like a desktop browser.
func BrowserHeaders(userAgent string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Connection", "keep-alive")
	h.Set("Upgrade-Insecure-Requests", "1")
	return h
}

// Client performs GET requests with browser-like headers.
//
// Design decision: Headers are injected by a RoundTripper rather than on
// each request so redirects and robots.txt requests carry them too.
type Client struct {
	// httpClient is the underlying client. Its Timeout covers the body transfer.
	httpClient *http.Client

	// proxyAddress is the SOCKS5 proxy in "host:port" format, empty for direct.
	proxyAddress string

	// proxyAuth holds optional SOCKS5 credentials.
	proxyAuth *proxy.Auth

	userAgent    string
	timeout      time.Duration
	maxRedirects int
	headers      http.Header
	base         http.RoundTripper
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithProxy routes all connections through a SOCKS5 proxy.
// An empty address keeps direct connections.
func WithProxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithMaxRedirects sets how many redirects are followed.
func WithMaxRedirects(n int) Option {
	return func(c *Client) {
		c.maxRedirects = n
	}
}

// WithHeader adds or replaces a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = http.Header{}
		}
		c.headers.Set(key, value)
	}
}

// WithBaseTransport replaces the underlying RoundTripper.
// It is intended for tests; a configured proxy is ignored.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.base = rt
	}
}

// New creates a Client.
//
// The proxy address is validated here but the proxy is not contacted;
// call CheckProxy to verify it is reachable.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		timeout:      30 * time.Second,
		maxRedirects: defaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(c)
	}

	headers := BrowserHeaders(c.userAgent)
	if c.userAgent == "" {
		headers.Del("User-Agent")
	}
	for k, v := range c.headers {
		headers[k] = v
	}
	c.headers = headers

	base := c.base
	if base == nil {
		transport, err := c.newTransport()
		if err != nil {
			return nil, err
		}
		base = transport
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	maxRedirects := c.maxRedirects
	c.httpClient = &http.Client{
		Transport: &headerInjectingTransport{base: base, headers: c.headers},
		Timeout:   c.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	return c, nil
}

// newTransport builds the http.Transport, dialing through SOCKS5 when configured.
func (c *Client) newTransport() (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
	transport.Proxy = nil

	if c.proxyAddress == "" {
		return transport, nil
	}

	addr, auth, err := parseProxyAddress(c.proxyAddress)
	if err != nil {
		return nil, err
	}
	c.proxyAddress = addr
	c.proxyAuth = auth

	dialer, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, address string) (net.Conn, error) {
			return dialer.Dial(network, address)
		}
	}
	return transport, nil
}

// parseProxyAddress accepts "host:port" or "socks5://[user:pass@]host:port".
func parseProxyAddress(address string) (string, *proxy.Auth, error) {
	var auth *proxy.Auth
	hostport := address

	if strings.Contains(address, "://") {
		u, err := url.Parse(address)
		if err != nil || (u.Scheme != "socks5" && u.Scheme != "socks5h") {
			return "", nil, ErrInvalidProxyAddress
		}
		hostport = u.Host
		if u.User != nil {
			pass, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: pass}
		}
	}

	if !isValidProxyAddress(hostport) {
		return "", nil, ErrInvalidProxyAddress
	}
	return hostport, auth, nil
}

// isValidProxyAddress checks if the address is in valid "host:port" format.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// HTTPClient returns the configured *http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// ProxyAddress returns the proxy "host:port", or empty for direct connections.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// UserAgent returns the User-Agent sent with every request.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// Get issues a GET for rawURL with params merged into its query.
// The caller owns the response body. Non-2xx responses are returned together
// with an error wrapping ErrUnexpectedStatus, after the body has been closed.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			q.Del(k)
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // draining for connection reuse
		_ = resp.Body.Close()                                        //nolint:errcheck // body is discarded
		return resp, fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, resp.StatusCode, u.Redacted())
	}
	return resp, nil
}

// ExpectContentType returns an error wrapping ErrContentType unless the
// response declares the wanted media type. Parameters such as charset are
// ignored and the comparison is case-insensitive.
func ExpectContentType(resp *http.Response, want string) error {
	got := resp.Header.Get("Content-Type")
	if MatchesMediaType(got, want) {
		return nil
	}
	return fmt.Errorf("%w: got %q, want %q", ErrContentType, got, want)
}

// MatchesMediaType reports whether a Content-Type header value names want.
// Unparsable headers fall back to a case-insensitive substring match.
func MatchesMediaType(contentType, want string) bool {
	want = strings.ToLower(want)
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		return strings.ToLower(mediaType) == want
	}
	return strings.Contains(strings.ToLower(contentType), want)
}

// CheckProxy verifies that the configured proxy speaks SOCKS5.
// It performs only the method negotiation; no connection is made through it.
func (c *Client) CheckProxy(ctx context.Context) ProxyStatus {
	if c.proxyAddress == "" {
		return ProxyStatusOK
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	method := byte(socks5AuthNone)
	if c.proxyAuth != nil {
		method = socks5AuthPassword
	}
	if _, err := conn.Write([]byte{socks5Version, 0x01, method}); err != nil {
		return ProxyStatusCannotConnect
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}
	if resp[0] != socks5Version || resp[1] == socks5AuthNoAccept || resp[1] != method {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// headers into every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	headers http.Header
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for key, values := range t.headers {
		if clone.Header.Get(key) != "" {
			continue
		}
		clone.Header[key] = values
	}
	return t.base.RoundTrip(clone)
}
