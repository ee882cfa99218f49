package auth

import (
	"net/url"
	"strings"
)

// CallbackParameters are the query parameters Reddit sends to the redirect URI.
type CallbackParameters struct {
	// Code is the one-time authorization code.
	// Example: /auth/callback?state=...&code=Xo3_k9...
	// Only present when the user granted access.
	Code string

	// State echoes the value sent in the authorize request.
	// Must exactly match the state stored in the session.
	State string

	// Error is set instead of Code when authorization failed.
	// Examples: "access_denied", "unsupported_response_type", "invalid_scope"
	Error string
}

// ParseCallbackParameters reads the callback parameters from a query string.
func ParseCallbackParameters(values url.Values) CallbackParameters {
	return CallbackParameters{
		Code:  strings.TrimSpace(values.Get("code")),
		State: values.Get("state"),
		Error: strings.TrimSpace(values.Get("error")),
	}
}
