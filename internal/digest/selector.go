// Package digest assembles the reporting window of novel items.
package digest

import (
	"time"

	"github.com/qepting91/postwatch/internal/domain"
)

// Source is the read side of the daily bucket store.
type Source interface {
	LoadRange(days []domain.Day) ([]domain.Entry, error)
}

type Selector struct {
	buckets Source
	loc     *time.Location
}

// NewSelector returns a selector reading from buckets. A nil loc means time.Local.
func NewSelector(buckets Source, loc *time.Location) *Selector {
	if loc == nil {
		loc = time.Local
	}
	return &Selector{buckets: buckets, loc: loc}
}

// Window returns the days covered by a digest at now: yesterday, then today.
func (s *Selector) Window(now time.Time) []domain.Day {
	today := domain.DayOf(now, s.loc)
	return []domain.Day{today.AddDays(-1), today}
}

// Select returns yesterday's then today's novel entries. An empty window
// yields domain.ErrNoDigestContent, which callers treat as "nothing to send".
// The read has no side effects, so equal inputs give equal output.
func (s *Selector) Select(now time.Time) ([]domain.Entry, error) {
	entries, err := s.buckets.LoadRange(s.Window(now))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, domain.ErrNoDigestContent
	}
	return entries, nil
}
