package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/qepting91/postwatch/internal/domain"
	"golang.org/x/time/rate"
)

const redditBaseURL = "https://www.reddit.com"

// PublicClient reads reddit user profiles from the public JSON listing.
type PublicClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	baseURL    string
	now        func() time.Time
	loc        *time.Location
}

type redditJSONResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				ID         string  `json:"id"`
				Title      string  `json:"title"`
				Subreddit  string  `json:"subreddit_name_prefixed"`
				Author     string  `json:"author"`
				Permalink  string  `json:"permalink"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func NewPublicClient(opts Options, limiter *rate.Limiter) *PublicClient {
	opts = opts.withDefaults()
	return &PublicClient{
		httpClient: newHTTPClient(opts.Timeout),
		limiter:    limiter,
		userAgent:  opts.UserAgent,
		baseURL:    redditBaseURL,
		now:        opts.Now,
		loc:        opts.Location,
	}
}

func (pc *PublicClient) FetchProfile(ctx context.Context, sourceURL string, limit int) (domain.Profile, error) {
	user, ok := redditUser(sourceURL)
	if !ok {
		return domain.Profile{}, fmt.Errorf("not a reddit user profile: %s", sourceURL)
	}
	if err := pc.limiter.Wait(ctx); err != nil {
		return domain.Profile{}, err
	}

	endpoint := fmt.Sprintf("%s/user/%s/submitted.json?limit=%d", pc.baseURL, url.PathEscape(user), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", pc.userAgent)

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return domain.Profile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Profile{}, fmt.Errorf("reddit public access status: %d", resp.StatusCode)
	}

	var rResp redditJSONResponse
	if err := json.NewDecoder(resp.Body).Decode(&rResp); err != nil {
		return domain.Profile{}, fmt.Errorf("decode listing: %w", err)
	}

	label := "u/" + user
	today := domain.DayOf(pc.now(), pc.loc)
	var items []domain.ScrapedItem
	for _, child := range rResp.Data.Children {
		d := child.Data
		if d.Permalink == "" {
			continue
		}
		created := time.Unix(int64(d.CreatedUTC), 0)
		items = append(items, domain.ScrapedItem{
			Title:           d.Title,
			Link:            redditPermalink(d.Permalink),
			SourceLabel:     label,
			ObservedAsToday: domain.DayOf(created, pc.loc) == today,
			RawTime:         created.In(pc.loc).Format("2006-01-02 15:04"),
		})
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return domain.Profile{Label: label, Items: items}, nil
}

// redditUser extracts the user name from /user/<name> or /u/<name> on a reddit host.
func redditUser(sourceURL string) (string, bool) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host != "reddit.com" && !strings.HasSuffix(host, ".reddit.com") {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || (parts[0] != "user" && parts[0] != "u") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// redditPermalink makes listing permalinks absolute, so identities do not
// depend on which client fetched the post.
func redditPermalink(p string) string {
	if strings.HasPrefix(p, "/") {
		return redditBaseURL + p
	}
	return p
}
