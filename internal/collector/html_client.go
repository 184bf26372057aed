package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/qepting91/postwatch/internal/domain"
	"golang.org/x/time/rate"
)

// HTMLClient scrapes a profile page with CSS selectors.
type HTMLClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	sel        Selectors
	namePat    *regexp.Regexp
	now        func() time.Time
	loc        *time.Location
}

func NewHTMLClient(opts Options, limiter *rate.Limiter) *HTMLClient {
	opts = opts.withDefaults()
	return &HTMLClient{
		httpClient: newHTTPClient(opts.Timeout),
		limiter:    limiter,
		userAgent:  opts.UserAgent,
		sel:        opts.Selectors,
		namePat:    compileNamePattern(opts.Selectors.NamePattern),
		now:        opts.Now,
		loc:        opts.Location,
	}
}

func (hc *HTMLClient) FetchProfile(ctx context.Context, sourceURL string, limit int) (domain.Profile, error) {
	if err := hc.limiter.Wait(ctx); err != nil {
		return domain.Profile{}, err
	}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("parse source url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", hc.userAgent)

	resp, err := hc.httpClient.Do(req)
	if err != nil {
		return domain.Profile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Profile{}, fmt.Errorf("profile page status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("parse profile page: %w", err)
	}

	label := FallbackLabel(sourceURL)
	if hc.namePat != nil {
		if m := hc.namePat.FindStringSubmatch(doc.Text()); len(m) > 1 && strings.TrimSpace(m[1]) != "" {
			label = strings.TrimSpace(m[1])
		}
	}

	marker := todayMarker(hc.now(), hc.loc)
	var items []domain.ScrapedItem
	doc.Find(hc.sel.Item).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if limit > 0 && len(items) >= limit {
			return false
		}
		a := s.Find(hc.sel.Link).First()
		if a.Length() == 0 {
			return true
		}
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}

		raw := ""
		if hc.sel.Time != "" {
			raw = strings.TrimSpace(s.Find(hc.sel.Time).First().Text())
		}
		items = append(items, domain.ScrapedItem{
			Title:           strings.TrimSpace(a.Text()),
			Link:            base.ResolveReference(ref).String(),
			SourceLabel:     label,
			ObservedAsToday: raw != "" && strings.Contains(raw, marker),
			RawTime:         raw,
		})
		return true
	})

	return domain.Profile{Label: label, Items: items}, nil
}
