package reddit

import (
	"context"

	"github.com/jrsteele09/go-reddit-auth/sessions"
)

// API paths, relative to the OAuth API host.
const (
	PathMe                    = "/api/v1/me"
	PathTrophies              = "/api/v1/me/trophies"
	PathKarma                 = "/api/v1/me/karma"
	PathSubredditsSubscriber  = "/subreddits/mine/subscriber"
	PathSubredditsContributor = "/subreddits/mine/contributor"
	PathSubredditsModerator   = "/subreddits/mine/moderator"
)

// Identity is the part of /api/v1/me this application uses. Name is required.
type Identity struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	CreatedUTC       float64 `json:"created_utc"`
	LinkKarma        int64   `json:"link_karma"`
	CommentKarma     int64   `json:"comment_karma"`
	Verified         bool    `json:"verified"`
	HasVerifiedEmail bool    `json:"has_verified_email"`
	IconImg          string  `json:"icon_img,omitempty"`
}

// Me fetches the identity of the session's Reddit user. A response without a
// username counts as no identity.
func (c *Client) Me(ctx context.Context, sess *sessions.Session) (*Identity, bool) {
	var id Identity
	if !c.get(ctx, sess, PathMe, nil, &id) || id.Name == "" {
		return nil, false
	}
	return &id, true
}

// Trophy is a single award from the trophy list.
type Trophy struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	AwardID     string `json:"award_id,omitempty"`
	Icon70      string `json:"icon_70,omitempty"`
	URL         string `json:"url,omitempty"`
}

type trophyList struct {
	Data struct {
		Trophies []struct {
			Data Trophy `json:"data"`
		} `json:"trophies"`
	} `json:"data"`
}

// Trophies fetches the user's trophy list.
func (c *Client) Trophies(ctx context.Context, sess *sessions.Session) ([]Trophy, bool) {
	var raw trophyList
	if !c.get(ctx, sess, PathTrophies, nil, &raw) {
		return nil, false
	}
	trophies := make([]Trophy, 0, len(raw.Data.Trophies))
	for _, t := range raw.Data.Trophies {
		trophies = append(trophies, t.Data)
	}
	return trophies, true
}

// Karma is the user's karma in one subreddit.
type Karma struct {
	Subreddit    string `json:"sr"`
	CommentKarma int64  `json:"comment_karma"`
	LinkKarma    int64  `json:"link_karma"`
}

// KarmaBreakdown fetches the user's karma per subreddit.
func (c *Client) KarmaBreakdown(ctx context.Context, sess *sessions.Session) ([]Karma, bool) {
	var raw struct {
		Data []Karma `json:"data"`
	}
	if !c.get(ctx, sess, PathKarma, nil, &raw) {
		return nil, false
	}
	return raw.Data, true
}
