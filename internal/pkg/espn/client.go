// Package espn loads sports, leagues, news and scoreboards from the ESPN
// site API and normalizes the loosely specified documents it returns.
package espn

import (
	"context"
	"log/slog"

	"github.com/Vodeneev/sportsfeed/internal/pkg/models"
	"github.com/Vodeneev/sportsfeed/internal/pkg/resolver"
)

// Fetcher is satisfied by *resolver.Resolver.
type Fetcher interface {
	Resolve(ctx context.Context, target string) (*resolver.Outcome, error)
}

type Client struct {
	fetcher Fetcher
	urls    URLs
	limit   int
}

func NewClient(fetcher Fetcher, baseURL string) *Client {
	return &Client{
		fetcher: fetcher,
		urls:    URLs{Base: baseURL},
		limit:   DefaultLimit,
	}
}

// WithLimit returns a copy of the client keeping at most n articles and
// games per feed; n <= 0 keeps everything.
func (c *Client) WithLimit(n int) *Client {
	cp := *c
	cp.limit = n
	return &cp
}

func (c *Client) URLs() URLs { return c.urls }

func (c *Client) Sports(ctx context.Context) ([]models.Sport, error) {
	doc, err := load[sportsDoc](ctx, c.fetcher, c.urls.Sports(), "sports")
	if err != nil {
		return nil, err
	}
	return normalizeSports(doc), nil
}

func (c *Client) Leagues(ctx context.Context, sport string) ([]models.League, error) {
	doc, err := load[sportDoc](ctx, c.fetcher, c.urls.Sport(sport), "leagues")
	if err != nil {
		return nil, err
	}
	return normalizeLeagues(sport, doc), nil
}

func (c *Client) News(ctx context.Context, sport, league string) ([]models.Article, error) {
	doc, err := load[newsDoc](ctx, c.fetcher, c.urls.News(sport, league), "news")
	if err != nil {
		return nil, err
	}
	return normalizeNews(doc, c.limit), nil
}

func (c *Client) Scores(ctx context.Context, sport, league string) ([]models.Game, error) {
	doc, err := load[scoreboardDoc](ctx, c.fetcher, c.urls.Scoreboard(sport, league), "scores")
	if err != nil {
		return nil, err
	}
	return normalizeScores(doc, c.limit), nil
}

// load resolves target and decodes it into D. Only resolver errors are
// returned; a plain-text or oddly shaped body yields an empty document.
func load[D any](ctx context.Context, f Fetcher, target, feed string) (D, error) {
	var doc D
	out, err := f.Resolve(ctx, target)
	if err != nil {
		return doc, err
	}
	if !out.IsJSON() {
		slog.Warn("Feed returned plain text, treating as empty", "feed", feed, "stage", out.Stage, "bytes", len(out.Body))
		return doc, nil
	}
	if err := out.Decode(&doc); err != nil {
		slog.Warn("Feed returned unexpected document shape, treating as empty", "feed", feed, "stage", out.Stage, "error", err)
		var empty D
		return empty, nil
	}
	return doc, nil
}
