// Package httpclient configures the HTTP client used to call the coordinate
// catalog.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

const DefaultUserAgent = "airfoil-geometry/1 (+https://github.com/mohammed-shakir/airfoil-geometry)"

type options struct {
	timeout   time.Duration
	userAgent string
}

type Option func(*options)

// WithTimeout bounds a whole request including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// NewOutbound creates a new outbound http client
func NewOutbound(opts ...Option) *http.Client {
	o := options{timeout: 30 * time.Second, userAgent: DefaultUserAgent}
	for _, f := range opts {
		f(&o)
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: &uaTransport{next: transport, ua: o.userAgent},
		Timeout:   o.timeout,
	}
}

type uaTransport struct {
	next http.RoundTripper
	ua   string
}

func (t *uaTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if t.ua == "" || r.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(r)
	}
	r = r.Clone(r.Context())
	r.Header.Set("User-Agent", t.ua)
	return t.next.RoundTrip(r)
}
