package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	neturl "net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/bnema/zepp-steps-cli/internal/log"
)

// DefaultUserAgent mirrors the companion mobile app release the remote
// backend expects.
const DefaultUserAgent = "MiFit6.14.0 (M2007J1SC; Android 12; Density/2.75)"

const (
	defaultMaxAttempts = 4
	defaultTimeout     = 30 * time.Second

	linearBackoffStep = 300 * time.Millisecond
	linearBackoffCap  = 2 * time.Second
	rateLimitCap      = 8 * time.Second
)

// Options configures a Client. The zero value yields a direct client with no
// proxying, no IP spoofing and no outbound rate cap.
type Options struct {
	// IssuerURL is the proxy lease issuer endpoint. Empty disables proxying.
	IssuerURL string
	// UserAgent overrides DefaultUserAgent when non-empty.
	UserAgent string
	// SpoofIP attaches randomized forwarded-IP headers to every request.
	SpoofIP bool
	// MaxAttempts bounds both the transport-error rotation budget and the
	// rate-limit retry budget per request. Zero means defaultMaxAttempts.
	MaxAttempts int
	// MaxRPS caps outbound request rate across the client. Zero disables.
	MaxRPS float64
	// Timeout is the per-request HTTP timeout. Zero means defaultTimeout.
	Timeout time.Duration
}

// Client is an HTTP client hardened for a hostile remote backend: it rotates
// proxy leases on transport failures, backs off exponentially on 429s, and
// never follows redirects (the login flow reads raw 303 responses).
type Client struct {
	direct  *http.Client
	proxied *http.Client

	issuerURL   string
	userAgent   string
	spoofIP     bool
	maxAttempts int
	limiter     *rate.Limiter
	log         zerolog.Logger

	mu           sync.Mutex
	lease        *Lease
	proxyEnabled bool

	// Seams for deterministic tests.
	sleep  func(time.Duration)
	jitter func() time.Duration
	randIP func() string
}

func New(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	c := &Client{
		issuerURL:    opts.IssuerURL,
		userAgent:    opts.UserAgent,
		spoofIP:      opts.SpoofIP,
		maxAttempts:  opts.MaxAttempts,
		proxyEnabled: opts.IssuerURL != "",
		log:          log.WithComponent("transport"),
		sleep:        time.Sleep,
		jitter: func() time.Duration {
			return 100*time.Millisecond + time.Duration(rand.Int63n(int64(800*time.Millisecond)))
		},
		randIP: randomPublicIPv4,
	}
	if opts.MaxRPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.MaxRPS), 1)
	}

	noRedirect := func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	c.direct = &http.Client{
		Timeout:       opts.Timeout,
		CheckRedirect: noRedirect,
	}
	c.proxied = &http.Client{
		Timeout:       opts.Timeout,
		CheckRedirect: noRedirect,
		Transport: &http.Transport{
			// Consulted per connection, so a rotated lease takes effect on
			// the next request without rebuilding the client.
			Proxy: func(*http.Request) (*neturl.URL, error) {
				return c.currentProxyURL(), nil
			},
		},
	}

	return c
}

// RequestOptions shape a single logical request through Do.
type RequestOptions struct {
	Header   http.Header
	Body     []byte
	UseProxy bool
	// RotateOnRateLimit requests a fresh lease before each 429 retry.
	RotateOnRateLimit bool
}

// Do issues the request with the client's full resilience policy. Transport
// errors while a lease is active rotate the lease and retry with linear
// backoff; 429 responses retry with capped exponential backoff plus jitter.
// When the rate-limit budget is exhausted the final 429 response is returned
// without error so callers can inspect it.
func (c *Client) Do(ctx context.Context, method, url string, opts RequestOptions) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := c.send(ctx, method, url, opts)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if opts.UseProxy && c.ProxyActive() {
				c.log.Warn().Err(err).Str("event", "transport.rotate").Int("attempt", attempt+1).Msg("transport failure, rotating lease")
				c.AcquireLease(ctx)
				c.sleep(linearBackoff(attempt))
				continue
			}
			return nil, &Error{Op: method, URL: url, Err: err}
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		if attempt == c.maxAttempts-1 {
			// Budget exhausted: hand the 429 back intact.
			return resp, nil
		}

		drain(resp)
		if opts.RotateOnRateLimit && opts.UseProxy {
			c.AcquireLease(ctx)
		}
		delay := rateLimitBackoff(attempt) + c.jitter()
		c.log.Warn().Str("event", "transport.ratelimited").Int("attempt", attempt+1).Dur("backoff", delay).Msg("rate limited by remote")
		c.sleep(delay)
	}

	return nil, &Error{Op: method, URL: url, Err: lastErr}
}

func (c *Client) send(ctx context.Context, method, url string, opts RequestOptions) (*http.Response, error) {
	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.spoofIP {
		// A fresh address per call so consecutive requests never share one.
		ip := c.randIP()
		for _, h := range spoofHeaders {
			req.Header.Set(h, ip)
		}
	}

	if opts.UseProxy && c.ProxyActive() {
		return c.proxied.Do(req)
	}
	return c.direct.Do(req)
}

func linearBackoff(attempt int) time.Duration {
	d := linearBackoffStep * time.Duration(attempt+1)
	if d > linearBackoffCap {
		return linearBackoffCap
	}
	return d
}

func rateLimitBackoff(attempt int) time.Duration {
	d := time.Second << uint(attempt)
	if d > rateLimitCap {
		return rateLimitCap
	}
	return d
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()
}

// Error wraps a transport-level failure that survived the retry policy.
type Error struct {
	Op  string
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
