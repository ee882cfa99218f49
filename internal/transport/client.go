package transport

import (
	"net/http"
	"time"
)

// userAgentTransport stamps every outbound request with a fixed User-Agent.
// Reddit throttles or rejects clients that send a generic one.
type userAgentTransport struct {
	userAgent string
	next      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if t.userAgent != "" {
		r = r.Clone(r.Context())
		r.Header.Set("User-Agent", t.userAgent)
	}
	return t.next.RoundTrip(r)
}

// NewClient returns an http.Client that sets userAgent on every request and
// gives up after timeout. A nil base uses http.DefaultTransport.
func NewClient(userAgent string, timeout time.Duration, base http.RoundTripper) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &userAgentTransport{userAgent: userAgent, next: base},
	}
}
