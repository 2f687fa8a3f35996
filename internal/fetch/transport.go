package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// NewHTTPClient returns an HTTP client tuned for parallel provider fan-out.
// With an empty proxyURL the environment proxy settings apply. socks5 and
// socks5h proxies dial through golang.org/x/net/proxy so that hostnames such
// as .onion are resolved by the proxy; http and https proxies use CONNECT /
// absolute-URI forwarding.
func NewHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          0,   // no global limit
		MaxIdleConnsPerHost:   128, // providers are few, requests are many
		MaxConnsPerHost:       0,   // unlimited
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if p := strings.TrimSpace(proxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "socks5", "socks5h":
			d, err := proxy.FromURL(u, dialer)
			if err != nil {
				return nil, fmt.Errorf("socks dialer: %w", err)
			}
			transport.Proxy = nil
			if cd, ok := d.(proxy.ContextDialer); ok {
				transport.DialContext = cd.DialContext
			} else {
				transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
					return d.Dial(network, addr)
				}
			}
			// overlay portals rarely speak h2 through a socks hop
			transport.ForceAttemptHTTP2 = false
		case "http", "https":
			transport.Proxy = http.ProxyURL(u)
			transport.ForceAttemptHTTP2 = false
		default:
			return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

// ValidateProxyURL reports whether s is usable by NewHTTPClient. Empty is valid.
func ValidateProxyURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	switch strings.ToLower(u.Scheme) {
	case "socks5", "socks5h", "http", "https":
	default:
		return fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("proxy url %q has no host", s)
	}
	return nil
}

// CloseIdle releases pooled connections held by c.
func CloseIdle(c *http.Client) {
	if c == nil {
		return
	}
	c.CloseIdleConnections()
}
