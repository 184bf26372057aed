// Package novelty decides which scraped items have never been seen before
// and records them in the history and daily bucket stores.
package novelty

import (
	"fmt"
	"time"

	"github.com/qepting91/postwatch/internal/domain"
	"github.com/qepting91/postwatch/internal/identity"
	"github.com/rs/zerolog"
)

// History is the subset of the history store the resolver needs. It must
// already be loaded.
type History interface {
	Contains(id domain.Identity) bool
	Insert(id domain.Identity, rec domain.HistoryRecord) error
	Persist() error
}

// Buckets receives the novel entries of a run under the run's day.
type Buckets interface {
	Append(day domain.Day, entries []domain.Entry) error
}

// Result is what one run found.
type Result struct {
	Day   domain.Day
	Novel []domain.Entry
	// NovelBySource counts novel items per source URL, for reporting.
	NovelBySource map[string]int
}

// Resolver is built once per run and used for exactly one Resolve call.
type Resolver struct {
	history History
	buckets Buckets
	now     func() time.Time
	loc     *time.Location
	log     zerolog.Logger
}

type Option func(*Resolver)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLocation sets the zone whose calendar defines "today".
func WithLocation(loc *time.Location) Option {
	return func(r *Resolver) { r.loc = loc }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) { r.log = l.With().Str("component", "novelty").Logger() }
}

func New(history History, buckets Buckets, opts ...Option) *Resolver {
	r := &Resolver{
		history: history,
		buckets: buckets,
		now:     time.Now,
		loc:     time.Local,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve walks sources in order and items in adapter order. The first time
// an identity appears it is inserted into history straight away, so a link
// repeated later in the same batch counts as seen.
//
// Commit order is history first, then the day's bucket. If the history write
// fails nothing is durable and the same items come back as novel next run.
// If the bucket write fails the error is returned and the run must be
// reported as failed.
func (r *Resolver) Resolve(batch []domain.SourceResult) (Result, error) {
	today := domain.DayOf(r.now(), r.loc)
	res := Result{
		Day:           today,
		Novel:         []domain.Entry{},
		NovelBySource: make(map[string]int),
	}

	for _, src := range batch {
		for _, item := range src.Items {
			if item.Link == "" {
				r.log.Debug().Str("source", src.URL).Str("title", item.Title).Msg("skipping item without link")
				continue
			}

			id := identity.Fingerprint(item.Link)
			if r.history.Contains(id) {
				continue
			}

			label := item.SourceLabel
			if label == "" {
				label = src.Label
			}
			rec := domain.HistoryRecord{
				Identity:     id,
				Title:        item.Title,
				Link:         item.Link,
				Source:       label,
				FirstSeenDay: today,
			}
			if err := r.history.Insert(id, rec); err != nil {
				return res, fmt.Errorf("record %s: %w", item.Link, err)
			}

			res.Novel = append(res.Novel, domain.Entry{Title: item.Title, Link: item.Link, Source: label})
			res.NovelBySource[src.URL]++
			r.log.Debug().Str("source", label).Str("link", item.Link).Msg("new item")
		}
	}

	if err := r.history.Persist(); err != nil {
		return res, fmt.Errorf("persist history: %w", err)
	}
	if err := r.buckets.Append(today, res.Novel); err != nil {
		return res, fmt.Errorf("append bucket %s: %w", today, err)
	}

	return res, nil
}
