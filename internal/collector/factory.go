package collector

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/qepting91/postwatch/internal/domain"
)

// Router sends each source URL to the adapter that understands it: reddit
// user pages to the reddit clients, feed URLs to the feed client, anything
// else to the HTML scraper. All adapters share one limiter, so fetches stay
// spaced even across adapter kinds.
type Router struct {
	html   domain.Collector
	feed   domain.Collector
	reddit domain.Collector
}

func (r *Router) FetchProfile(ctx context.Context, sourceURL string, limit int) (domain.Profile, error) {
	return r.route(sourceURL).FetchProfile(ctx, sourceURL, limit)
}

func (r *Router) route(sourceURL string) domain.Collector {
	if _, ok := redditUser(sourceURL); ok {
		return r.reddit
	}
	if looksLikeFeed(sourceURL) {
		return r.feed
	}
	return r.html
}

func looksLikeFeed(sourceURL string) bool {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return false
	}
	p := strings.ToLower(strings.TrimRight(u.Path, "/"))
	for _, suffix := range []string{".xml", ".rss", ".atom", "/feed", "/rss", "/atom"} {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return strings.Contains(p, "/feeds/")
}

// NewCollector selects the correct implementation based on the mode
func NewCollector(opts Options) (domain.Collector, error) {
	opts = opts.withDefaults()

	switch opts.Mode {
	case "", "live":
		limiter := newLimiter(opts.Interval)
		r := &Router{
			html: NewHTMLClient(opts, limiter),
			feed: NewFeedClient(opts, limiter),
		}
		if opts.Reddit.complete() {
			api, err := NewAPIClient(opts, limiter)
			if err != nil {
				return nil, fmt.Errorf("reddit api client: %w", err)
			}
			r.reddit = api
		} else {
			r.reddit = NewPublicClient(opts, limiter)
		}
		return r, nil
	case "mock":
		return NewMockClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown collector mode: %s (use 'live' or 'mock')", opts.Mode)
	}
}
