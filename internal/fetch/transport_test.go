package fetch

import (
	"net/http"
	"testing"
	"time"
)

func TestNewHTTPClient_Direct(t *testing.T) {
	c, err := NewHTTPClient("", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Timeout != 10*time.Second {
		t.Fatalf("timeout = %v", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected http.Transport")
	}
	if tr.MaxIdleConnsPerHost < 100 {
		t.Fatalf("expected large MaxIdleConnsPerHost, got %d", tr.MaxIdleConnsPerHost)
	}
	if tr == http.DefaultTransport {
		t.Fatalf("transport should not be default")
	}
}

func TestNewHTTPClient_HTTPProxy(t *testing.T) {
	c, err := NewHTTPClient("http://127.0.0.1:4444", 30*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := c.Transport.(*http.Transport)
	req, _ := http.NewRequest(http.MethodGet, "http://example.i2p/", nil)
	u, err := tr.Proxy(req)
	if err != nil || u == nil || u.Host != "127.0.0.1:4444" {
		t.Fatalf("expected proxy 127.0.0.1:4444, got %v (err %v)", u, err)
	}
}

func TestNewHTTPClient_SOCKS5(t *testing.T) {
	c, err := NewHTTPClient("socks5://127.0.0.1:9050", 30*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := c.Transport.(*http.Transport)
	if tr.Proxy != nil {
		t.Fatalf("socks transport must not also use an http proxy")
	}
	if tr.DialContext == nil {
		t.Fatalf("expected socks dialer")
	}
}

func TestNewHTTPClient_RejectsUnknownScheme(t *testing.T) {
	if _, err := NewHTTPClient("ftp://127.0.0.1:21", time.Second); err == nil {
		t.Fatalf("expected error for ftp proxy")
	}
}

func TestValidateProxyURL(t *testing.T) {
	for _, ok := range []string{"", "socks5://localhost:9050", "socks5h://localhost:9050", "http://localhost:4444"} {
		if err := ValidateProxyURL(ok); err != nil {
			t.Errorf("ValidateProxyURL(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"gopher://x:1", "socks5://"} {
		if err := ValidateProxyURL(bad); err == nil {
			t.Errorf("ValidateProxyURL(%q) should fail", bad)
		}
	}
}
