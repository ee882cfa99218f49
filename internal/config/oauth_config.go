package config

import (
	"strings"
	"time"
)

const (
	DefaultAuthURL        = "https://ssl.reddit.com/api/v1/authorize"
	DefaultTokenURL       = "https://ssl.reddit.com/api/v1/access_token"
	DefaultAPIBaseURL     = "https://oauth.reddit.com"
	DefaultRequestTimeout = 10 * time.Second
)

type OAuthConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetRedirectURI() string
	GetAuthURL() string
	GetTokenURL() string
	GetAPIBaseURL() string
	GetDuration() string
	GetScopes() []string
	GetUserAgent() string
	GetRequestTimeout() time.Duration
	GetErrorRedirect() string
	GetSuccessRedirect() string
}

// OAuth holds the Reddit application registration and the redirect targets.
type OAuth struct {
	ClientID     string `yaml:"client_id" env:"REDDIT_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"REDDIT_CLIENT_SECRET"`
	RedirectURI  string `yaml:"redirect_uri" env:"REDDIT_REDIRECT_URI"`
	AuthURL      string `yaml:"auth_url" env:"REDDIT_AUTH_URL"`
	TokenURL     string `yaml:"token_url" env:"REDDIT_TOKEN_URL"`
	APIBaseURL   string `yaml:"api_base_url" env:"REDDIT_API_BASE_URL"`
	// Duration is "temporary" or "permanent"; only permanent grants come with a refresh token.
	Duration        string        `yaml:"duration" env:"REDDIT_DURATION"`
	Scope           string        `yaml:"scope" env:"REDDIT_SCOPE"`
	UserAgent       string        `yaml:"user_agent" env:"REDDIT_USER_AGENT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"REDDIT_REQUEST_TIMEOUT"`
	ErrorRedirect   string        `yaml:"error_redirect" env:"REDDIT_REDIRECT_AUTH_ERROR"`
	SuccessRedirect string        `yaml:"success_redirect" env:"REDDIT_REDIRECT_AUTH_SUCCESS"`
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetClientID() string     { return o.ClientID }
func (o OAuth) GetClientSecret() string { return o.ClientSecret }
func (o OAuth) GetRedirectURI() string  { return o.RedirectURI }
func (o OAuth) GetAuthURL() string      { return o.AuthURL }
func (o OAuth) GetTokenURL() string     { return o.TokenURL }
func (o OAuth) GetAPIBaseURL() string   { return strings.TrimSuffix(o.APIBaseURL, "/") }
func (o OAuth) GetDuration() string     { return o.Duration }
func (o OAuth) GetUserAgent() string    { return o.UserAgent }

// GetScopes splits the comma separated scope setting.
func (o OAuth) GetScopes() []string {
	var scopes []string
	for _, s := range strings.Split(o.Scope, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

func (o OAuth) GetRequestTimeout() time.Duration {
	if o.RequestTimeout <= 0 {
		return DefaultRequestTimeout
	}
	return o.RequestTimeout
}

func (o OAuth) GetErrorRedirect() string   { return o.ErrorRedirect }
func (o OAuth) GetSuccessRedirect() string { return o.SuccessRedirect }
