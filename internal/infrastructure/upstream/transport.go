package upstream

import (
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// NewTransport returns the connection pool shared by the HTS and Federal Register clients
func NewTransport() *http.Transport {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	// An error here only means HTTP/2 was already configured.
	_ = http2.ConfigureTransport(tr)
	return tr
}

// NewClient returns an http.Client with a hard timeout over transport
func NewClient(transport http.RoundTripper, timeout time.Duration) *http.Client {
	if transport == nil {
		transport = NewTransport()
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
