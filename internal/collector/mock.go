package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/qepting91/postwatch/internal/domain"
)

// MockClient implements domain.Collector but returns fake data
type MockClient struct {
	now func() time.Time
	loc *time.Location
}

func NewMockClient(opts Options) *MockClient {
	opts = opts.withDefaults()
	return &MockClient{now: opts.Now, loc: opts.Location}
}

// FetchProfile returns limit stable posts per source. Links depend only on
// the source URL, so repeated runs exercise the "already seen" path.
func (mc *MockClient) FetchProfile(ctx context.Context, sourceURL string, limit int) (domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return domain.Profile{}, err
	}
	if limit <= 0 {
		limit = 3
	}

	label := "mock " + FallbackLabel(sourceURL)
	marker := todayMarker(mc.now(), mc.loc)
	base := strings.TrimRight(sourceURL, "/")

	items := make([]domain.ScrapedItem, 0, limit)
	for i := 1; i <= limit; i++ {
		raw := "older"
		if i == 1 {
			raw = marker
		}
		items = append(items, domain.ScrapedItem{
			Title:           fmt.Sprintf("Simulated post #%d from %s", i, label),
			Link:            fmt.Sprintf("%s/post/%d", base, i),
			SourceLabel:     label,
			ObservedAsToday: i == 1,
			RawTime:         raw,
		})
	}
	return domain.Profile{Label: label, Items: items}, nil
}
