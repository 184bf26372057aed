package collector

import (
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Selectors tell the HTML client where posts live on a profile page.
type Selectors struct {
	Item string
	Link string
	Time string
	// NamePattern's first group is the profile's display name in the page text.
	NamePattern string
}

// RedditCredentials switch reddit profiles to the authenticated API.
type RedditCredentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

func (c RedditCredentials) complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.Username != "" && c.Password != ""
}

type Options struct {
	Mode      string // "live" or "mock"
	Timeout   time.Duration
	Interval  time.Duration
	UserAgent string
	Selectors Selectors
	Reddit    RedditCredentials
	Location  *time.Location
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 40 * time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = "postwatch/1.0"
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// newLimiter spaces consecutive fetches by interval; zero disables spacing.
func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// FallbackLabel names a source from its URL when the page gives no name:
// the last path segment, or the host.
func FallbackLabel(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return sourceURL
	}
	seg := path.Base(strings.TrimRight(u.Path, "/"))
	if seg == "." || seg == "/" || seg == "" {
		return u.Host
	}
	return seg
}

func compileNamePattern(p string) *regexp.Regexp {
	if p == "" {
		return nil
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil
	}
	return re
}

// todayMarker is how profile pages print today's date, e.g. "06-01".
func todayMarker(now time.Time, loc *time.Location) string {
	return now.In(loc).Format("01-02")
}
