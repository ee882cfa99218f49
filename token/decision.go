package token

import (
	"time"

	"github.com/jrsteele09/go-reddit-auth/sessions"
)

// Action is what Acquire does with the cached token record.
type Action int

const (
	ActionUseCached Action = iota
	ActionExchangeCode
	ActionRefresh
	ActionFail
)

func (a Action) String() string {
	switch a {
	case ActionUseCached:
		return "use_cached"
	case ActionExchangeCode:
		return "exchange_code"
	case ActionRefresh:
		return "refresh"
	case ActionFail:
		return "fail"
	}
	return "unknown"
}

// Decide picks exactly one action. Branches are checked in order and the first
// match wins:
//  1. stale token and an authorization code: exchange the code
//  2. forced or stale, with a refresh token: refresh
//  3. a fresh access token is cached: reuse it
//  4. nothing usable: fail
//
// A stale access token with nothing to renew it is not reused; it can only
// earn a 401.
func Decide(tokens sessions.Tokens, code string, forceRefresh bool, now time.Time) Action {
	stale := tokens.IsStale(now)
	switch {
	case stale && code != "":
		return ActionExchangeCode
	case (forceRefresh || stale) && tokens.RefreshToken != "":
		return ActionRefresh
	case tokens.HasAccessToken() && !stale:
		return ActionUseCached
	default:
		return ActionFail
	}
}
