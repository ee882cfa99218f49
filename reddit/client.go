package reddit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-reddit-auth/internal/config"
	"github.com/jrsteele09/go-reddit-auth/internal/transport"
	"github.com/jrsteele09/go-reddit-auth/sessions"
	"github.com/rs/zerolog/log"
)

// TokenAcquirer hands out access tokens for a session.
type TokenAcquirer interface {
	Acquire(ctx context.Context, sess *sessions.Session, code string, forceRefresh bool) (string, error)
}

// Client calls the Reddit API on behalf of a session. Every failure, whether
// transport, status or decoding, is reported as ok=false and never as an error.
type Client struct {
	tokens     TokenAcquirer
	httpClient *http.Client
	baseURL    string
}

type Option func(*Client)

// WithHTTPClient overrides the client used for resource calls.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithBaseURL points the client at another API host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(cl *Client) { cl.baseURL = strings.TrimSuffix(u, "/") }
}

func NewClient(cfg config.OAuthConfig, tokens TokenAcquirer, opts ...Option) *Client {
	c := &Client{
		tokens:     tokens,
		httpClient: transport.NewClient(cfg.GetUserAgent(), cfg.GetRequestTimeout(), nil),
		baseURL:    cfg.GetAPIBaseURL(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL joins path onto the API base URL.
func (c *Client) URL(path string) string {
	return c.baseURL + path
}

// Call performs an authenticated GET of resourceURL. When the first attempt
// gets no response or a 401, the token is force-refreshed and the request is
// retried exactly once. Only a 200 with a JSON body counts as success.
func (c *Client) Call(ctx context.Context, sess *sessions.Session, resourceURL string, params url.Values) (json.RawMessage, bool) {
	accessToken, _ := c.tokens.Acquire(ctx, sess, "", false)
	resp := c.dispatch(ctx, accessToken, resourceURL, params)

	if resp == nil || resp.StatusCode == http.StatusUnauthorized {
		closeBody(resp)
		log.Debug().Str("session_id", sess.ID).Str("url", resourceURL).Msg("access denied, refreshing token and retrying")
		accessToken, _ = c.tokens.Acquire(ctx, sess, "", true)
		resp = c.dispatch(ctx, accessToken, resourceURL, params)
	}
	if resp == nil {
		return nil, false
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		log.Warn().Str("url", resourceURL).Int("status", resp.StatusCode).Msg("reddit api call failed")
		return nil, false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Err(err).Str("url", resourceURL).Msg("read reddit api response")
		return nil, false
	}
	if !json.Valid(body) {
		log.Warn().Str("url", resourceURL).Msg("reddit api returned invalid json")
		return nil, false
	}
	return json.RawMessage(body), true
}

// dispatch sends one GET. It returns nil when there is no token or the
// request never produced a response.
func (c *Client) dispatch(ctx context.Context, accessToken, resourceURL string, params url.Values) *http.Response {
	if accessToken == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		log.Err(err).Str("url", resourceURL).Msg("build reddit api request")
		return nil
	}
	if len(params) > 0 {
		q := req.URL.Query()
		for k, vs := range params {
			q[k] = vs
		}
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Authorization", "bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("url", resourceURL).Msg("reddit api request failed")
		return nil
	}
	log.Debug().Str("url", resourceURL).Int("status", resp.StatusCode).Msg("reddit api responded")
	return resp
}

// get calls path and decodes the body into out.
func (c *Client) get(ctx context.Context, sess *sessions.Session, path string, params url.Values, out any) bool {
	body, ok := c.Call(ctx, sess, c.URL(path), params)
	if !ok {
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		log.Err(err).Str("path", path).Msg("decode reddit api response")
		return false
	}
	return true
}

func closeBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}
}
