package sessions

import (
	"time"
)

// Tokens is the OAuth token record cached in a session. An empty AccessToken
// means no token, and in that state every other field is cleared as well.
type Tokens struct {
	AccessToken  string // Bearer credential for API calls, never logged
	RefreshToken string // Long-lived credential used to mint new access tokens
	TokenType    string // Usually "bearer"
	Expires      int64  // Absolute epoch second, 0 when there is no token
	Scope        string // Comma separated, as Reddit reports it
}

// IsStale reports whether the access token has expired. A zero expiry is always stale.
func (t Tokens) IsStale(now time.Time) bool {
	return t.Expires < now.Unix()
}

// HasAccessToken reports whether an access token is cached.
func (t Tokens) HasAccessToken() bool {
	return t.AccessToken != ""
}

// Session is the per-browser state the sign-in flow reads and writes.
type Session struct {
	ID         string    // Unique session identifier (UUID), carried in the session cookie
	Tokens     Tokens    // Cached Reddit tokens
	OAuthState string    // Anti-forgery value for the in-flight login attempt
	UserID     string    // Local user ID once logged in
	CreatedAt  time.Time // When the session was created
	UpdatedAt  time.Time // Last time the session was persisted
}

// New returns an empty session with the given ID.
func New(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now, UpdatedAt: now}
}

// ClearTokens resets all token fields together.
func (s *Session) ClearTokens() {
	s.Tokens = Tokens{}
}

// IsAuthenticated reports whether a local user is logged in on this session.
func (s *Session) IsAuthenticated() bool {
	return s.UserID != ""
}
