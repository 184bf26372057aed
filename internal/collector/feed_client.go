package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/qepting91/postwatch/internal/domain"
	"golang.org/x/time/rate"
)

// FeedClient reads profiles that publish RSS or Atom.
type FeedClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	now        func() time.Time
	loc        *time.Location
}

func NewFeedClient(opts Options, limiter *rate.Limiter) *FeedClient {
	opts = opts.withDefaults()
	return &FeedClient{
		httpClient: newHTTPClient(opts.Timeout),
		limiter:    limiter,
		userAgent:  opts.UserAgent,
		now:        opts.Now,
		loc:        opts.Location,
	}
}

func (fc *FeedClient) FetchProfile(ctx context.Context, sourceURL string, limit int) (domain.Profile, error) {
	if err := fc.limiter.Wait(ctx); err != nil {
		return domain.Profile{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", fc.userAgent)

	resp, err := fc.httpClient.Do(req)
	if err != nil {
		return domain.Profile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Profile{}, fmt.Errorf("feed status: %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("parse feed: %w", err)
	}

	label := strings.TrimSpace(feed.Title)
	if label == "" {
		label = FallbackLabel(sourceURL)
	}

	today := domain.DayOf(fc.now(), fc.loc)
	items := make([]domain.ScrapedItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if limit > 0 && len(items) >= limit {
			break
		}
		if entry.Link == "" {
			continue
		}

		var published *time.Time
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed
		}

		item := domain.ScrapedItem{
			Title:       strings.TrimSpace(entry.Title),
			Link:        entry.Link,
			SourceLabel: label,
		}
		if published != nil {
			item.RawTime = published.In(fc.loc).Format("2006-01-02 15:04")
			item.ObservedAsToday = domain.DayOf(*published, fc.loc) == today
		}
		items = append(items, item)
	}

	return domain.Profile{Label: label, Items: items}, nil
}
