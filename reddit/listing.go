package reddit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/jrsteele09/go-reddit-auth/sessions"
	"github.com/rs/zerolog/log"
)

// DefaultPageSize is the largest page Reddit serves for subreddit listings.
const DefaultPageSize = 100

// Subreddit is the fixed set of fields kept from a raw listing item.
type Subreddit struct {
	ID                string  `json:"id"`
	URL               string  `json:"url"` // e.g. "/r/golang/"
	Over18            bool    `json:"over18"`
	Lang              string  `json:"lang"`
	Title             string  `json:"title"`
	HeaderTitle       string  `json:"header_title"`
	DisplayName       string  `json:"display_name"`
	SubredditType     string  `json:"subreddit_type"` // public, private, restricted, ...
	Subscribers       int64   `json:"subscribers"`
	CreatedUTC        float64 `json:"created_utc"`
	Quarantine        bool    `json:"quarantine"`
	UserIsContributor bool    `json:"user_is_contributor"`
	UserIsModerator   bool    `json:"user_is_moderator"`
	UserIsSubscriber  bool    `json:"user_is_subscriber"`
	UserIsBanned      bool    `json:"user_is_banned"`
	UserIsMuted       bool    `json:"user_is_muted"`
}

type rawListing struct {
	Data *struct {
		After    string `json:"after"`
		Children []struct {
			Data Subreddit `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type listingPage struct {
	items []Subreddit
	after string
}

// NormalizeListing strips a raw subreddit listing down to its items. Absent
// input reports ok=false, so "no data" stays distinct from an empty listing.
func NormalizeListing(raw json.RawMessage) ([]Subreddit, bool) {
	page, ok := parseListing(raw)
	if !ok {
		return nil, false
	}
	return page.items, true
}

func parseListing(raw json.RawMessage) (listingPage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("false")) {
		return listingPage{}, false
	}

	var listing rawListing
	if err := json.Unmarshal(trimmed, &listing); err != nil {
		log.Err(err).Msg("decode subreddit listing")
		return listingPage{}, false
	}
	if listing.Data == nil {
		return listingPage{}, false
	}

	items := make([]Subreddit, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		items = append(items, child.Data)
	}
	return listingPage{items: items, after: listing.Data.After}, true
}

// SubscribedSubreddits lists the subreddits the user subscribes to. A limit of
// 1..100 is served from a single page of that size. A larger limit is still
// sent as the first page size, then the listing is followed 100 at a time
// until the cursor runs out or limit items are collected; limit <= 0 means no
// limit.
func (c *Client) SubscribedSubreddits(ctx context.Context, sess *sessions.Session, limit int) ([]Subreddit, bool) {
	pageSize := limit
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(pageSize))

	page, ok := c.listingPage(ctx, sess, PathSubredditsSubscriber, params)
	if !ok {
		return nil, false
	}
	if limit > 0 && limit <= DefaultPageSize {
		return page.items, true
	}

	params.Set("limit", strconv.Itoa(DefaultPageSize))
	subreddits := page.items
	after := page.after
	for after != "" {
		if limit > 0 && len(subreddits) >= limit {
			break
		}
		params.Set("count", strconv.Itoa(len(subreddits)))
		params.Set("after", after)

		next, ok := c.listingPage(ctx, sess, PathSubredditsSubscriber, params)
		if !ok {
			log.Warn().Str("session_id", sess.ID).Int("collected", len(subreddits)).Msg("subreddit pagination stopped early")
			break
		}
		subreddits = append(subreddits, next.items...)
		after = next.after
	}

	if limit > 0 && len(subreddits) > limit {
		subreddits = subreddits[:limit]
	}
	return subreddits, true
}

// ContributorSubreddits lists subreddits where the user is an approved submitter.
func (c *Client) ContributorSubreddits(ctx context.Context, sess *sessions.Session) ([]Subreddit, bool) {
	return c.listing(ctx, sess, PathSubredditsContributor)
}

// ModeratorSubreddits lists subreddits the user moderates.
func (c *Client) ModeratorSubreddits(ctx context.Context, sess *sessions.Session) ([]Subreddit, bool) {
	return c.listing(ctx, sess, PathSubredditsModerator)
}

func (c *Client) listing(ctx context.Context, sess *sessions.Session, path string) ([]Subreddit, bool) {
	page, ok := c.listingPage(ctx, sess, path, nil)
	if !ok {
		return nil, false
	}
	return page.items, true
}

func (c *Client) listingPage(ctx context.Context, sess *sessions.Session, path string, params url.Values) (listingPage, bool) {
	raw, ok := c.Call(ctx, sess, c.URL(path), params)
	if !ok {
		return listingPage{}, false
	}
	return parseListing(raw)
}
