package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Wechat pushes a short notice through a wxsend worker, which relays it to
// a WeChat account. The notice carries counts only; the site has the posts.
type Wechat struct {
	endpoint string
	token    string
	site     string
	client   *http.Client
}

func NewWechat(workerURL, token, site string, timeout time.Duration) *Wechat {
	return &Wechat{
		endpoint: wxsendEndpoint(workerURL),
		token:    token,
		site:     site,
		client:   &http.Client{Timeout: timeout},
	}
}

func (w *Wechat) Name() string { return "wechat" }

// wxsendEndpoint accepts either the worker root or its /wxsend path.
func wxsendEndpoint(workerURL string) string {
	u := strings.TrimSpace(workerURL)
	if strings.HasSuffix(u, "/wxsend") || strings.Contains(u, "/wxsend?") {
		return u
	}
	return strings.TrimRight(u, "/") + "/wxsend"
}

// PushContent is the notice body for d.
func PushContent(d Digest) string {
	return fmt.Sprintf("%d new posts\n\n%s\n\nSee the site for details", len(d.Entries), d.Day)
}

func (w *Wechat) Send(ctx context.Context, d Digest) error {
	u, err := url.Parse(w.endpoint)
	if err != nil {
		return fmt.Errorf("wechat worker url: %w", err)
	}
	q := u.Query()
	q.Set("token", w.token)
	q.Set("title", d.Subject())
	q.Set("content", PushContent(d))
	if w.site != "" {
		q.Set("site", w.site)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("wechat push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("wechat push: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
