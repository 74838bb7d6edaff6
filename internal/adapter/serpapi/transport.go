package serpapi

import (
	"net"
	"net/http"
	"time"
)

// Connection pool sizing. All traffic goes to one host, so the per-host
// limits are the ones that matter.
const (
	defaultMaxIdleConns        = 16
	defaultMaxIdleConnsPerHost = 16
	defaultMaxConnsPerHost     = 32
	defaultIdleConnTimeout     = 90 * time.Second
	defaultDialTimeout         = 10 * time.Second
)

// NewPooledTransport creates an http.Transport with connection pooling for
// SerpApi. respTimeout bounds the wait for response headers.
func NewPooledTransport(respTimeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   defaultDialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: respTimeout,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		MaxConnsPerHost:       defaultMaxConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		ForceAttemptHTTP2:     true,
	}
}

// NewHTTPClient returns a client whose total request time, including reading
// the body, is capped at timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Transport: NewPooledTransport(timeout),
		Timeout:   timeout,
	}
}
