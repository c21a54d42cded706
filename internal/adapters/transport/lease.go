package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxLeaseResponseBytes = 4 << 10

// ErrLeaseMalformed signals a proxy descriptor with fewer than four
// colon-delimited fields. It is surfaced in logs only: acquisition fails open
// and the client continues without a proxy.
var ErrLeaseMalformed = errors.New("malformed proxy descriptor")

// Lease is a temporary proxy endpoint issued by the external proxy service.
// Leases are replaced wholesale on rotation, never mutated.
type Lease struct {
	Host     string
	Port     string
	Username string
	Password string
}

// ParseLease decodes the issuer's plaintext "host:port:username:password"
// descriptor.
func ParseLease(descriptor string) (Lease, error) {
	parts := strings.Split(strings.TrimSpace(descriptor), ":")
	if len(parts) < 4 {
		return Lease{}, fmt.Errorf("%w: %q", ErrLeaseMalformed, descriptor)
	}

	return Lease{
		Host:     parts[0],
		Port:     parts[1],
		Username: parts[2],
		Password: parts[3],
	}, nil
}

// URL renders the lease as an HTTP proxy URL.
func (l Lease) URL() *url.URL {
	return &url.URL{
		Scheme: "http",
		User:   url.UserPassword(l.Username, l.Password),
		Host:   l.Host + ":" + l.Port,
	}
}

func (l Lease) Addr() string {
	return l.Host + ":" + l.Port
}

// AcquireLease fetches a fresh proxy lease from the issuer. A malformed
// descriptor disables proxying for the remainder of this client's life
// without returning an error; transport failures while contacting the issuer
// do the same. Callers that need a fresh exit before a sensitive request
// (challenge endpoints) invoke this directly.
func (c *Client) AcquireLease(ctx context.Context) {
	if c.issuerURL == "" {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.issuerURL, nil)
	if err != nil {
		c.disableProxy(fmt.Errorf("build lease request: %w", err))
		return
	}

	resp, err := c.direct.Do(req)
	if err != nil {
		c.disableProxy(fmt.Errorf("contact proxy issuer: %w", err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLeaseResponseBytes))
	if err != nil {
		c.disableProxy(fmt.Errorf("read lease descriptor: %w", err))
		return
	}

	lease, err := ParseLease(string(body))
	if err != nil {
		c.disableProxy(err)
		return
	}

	c.mu.Lock()
	c.lease = &lease
	c.proxyEnabled = true
	c.mu.Unlock()

	c.log.Debug().Str("event", "lease.acquired").Str("proxy", lease.Addr()).Msg("proxy lease acquired")
}

func (c *Client) disableProxy(cause error) {
	c.mu.Lock()
	c.lease = nil
	c.proxyEnabled = false
	c.mu.Unlock()

	c.log.Warn().Err(cause).Str("event", "lease.disabled").Msg("proxying disabled for this client")
}

// ProxyActive reports whether a usable lease is currently held.
func (c *Client) ProxyActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proxyEnabled && c.lease != nil
}

func (c *Client) currentProxyURL() *url.URL {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.proxyEnabled || c.lease == nil {
		return nil
	}
	return c.lease.URL()
}
