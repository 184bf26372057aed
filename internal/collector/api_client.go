package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/loganintech/go-reddit/v2/reddit"
	"github.com/qepting91/postwatch/internal/domain"
	"golang.org/x/time/rate"
)

// APIClient reads reddit user profiles through the authenticated API.
type APIClient struct {
	client  *reddit.Client
	limiter *rate.Limiter
	now     func() time.Time
	loc     *time.Location
}

func NewAPIClient(opts Options, limiter *rate.Limiter) (*APIClient, error) {
	return newAPIClient(opts, limiter)
}

// newAPIClient accepts extra go-reddit options, e.g. endpoint overrides.
func newAPIClient(opts Options, limiter *rate.Limiter, extra ...reddit.Opt) (*APIClient, error) {
	opts = opts.withDefaults()
	creds := reddit.Credentials{
		ID:       opts.Reddit.ClientID,
		Secret:   opts.Reddit.ClientSecret,
		Username: opts.Reddit.Username,
		Password: opts.Reddit.Password,
	}

	client, err := reddit.NewClient(creds, append([]reddit.Opt{reddit.WithUserAgent(opts.UserAgent)}, extra...)...)
	if err != nil {
		return nil, err
	}

	return &APIClient{client: client, limiter: limiter, now: opts.Now, loc: opts.Location}, nil
}

func (ac *APIClient) FetchProfile(ctx context.Context, sourceURL string, limit int) (domain.Profile, error) {
	user, ok := redditUser(sourceURL)
	if !ok {
		return domain.Profile{}, fmt.Errorf("not a reddit user profile: %s", sourceURL)
	}
	if err := ac.limiter.Wait(ctx); err != nil {
		return domain.Profile{}, err
	}

	posts, _, err := ac.client.User.PostsOf(ctx, user, &reddit.ListUserOverviewOptions{
		ListOptions: reddit.ListOptions{Limit: limit},
	})
	if err != nil {
		return domain.Profile{}, fmt.Errorf("authenticated api error: %w", err)
	}

	label := "u/" + user
	today := domain.DayOf(ac.now(), ac.loc)
	items := make([]domain.ScrapedItem, 0, len(posts))
	for _, p := range posts {
		item := domain.ScrapedItem{
			Title:       p.Title,
			Link:        redditPermalink(p.Permalink),
			SourceLabel: label,
		}
		if p.Created != nil {
			item.RawTime = p.Created.Time.In(ac.loc).Format("2006-01-02 15:04")
			item.ObservedAsToday = domain.DayOf(p.Created.Time, ac.loc) == today
		}
		items = append(items, item)
	}
	return domain.Profile{Label: label, Items: items}, nil
}
