package request

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Connection pool tuning for the shared transport.
const (
	maxIdleConns        = 100
	maxIdleConnsPerHost = 10
	idleConnTimeout     = 90 * time.Second
)

// NewHTTPClient builds the *http.Client the executor sends through.
//
// The timeout triple maps onto the transport as follows: Connect bounds
// dialing and the TLS handshake, Read bounds the wait for response
// headers. Overall is not set on the client: the executor enforces it
// per attempt through the request context, so per-request overrides
// keep working in both directions.
//
// proxyURL, when non-empty, routes every request through that proxy.
// Empty means honor the standard proxy environment variables.
func NewHTTPClient(t Timeouts, proxyURL string) (*http.Client, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	proxy := http.ProxyFromEnvironment
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url %q: %w", proxyURL, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q: must be absolute", proxyURL)
		}
		proxy = http.ProxyURL(u)
	}

	transport := &http.Transport{
		Proxy: proxy,
		DialContext: (&net.Dialer{
			Timeout:   t.Connect,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   t.Connect,
		ResponseHeaderTimeout: t.Read,
		MaxIdleConns:          maxIdleConns,
		MaxIdleConnsPerHost:   maxIdleConnsPerHost,
		IdleConnTimeout:       idleConnTimeout,
	}

	return &http.Client{Transport: transport}, nil
}
