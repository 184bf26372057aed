package domain

import (
	"context"
	"time"
)

// DayLayout is the on-disk and display form of a calendar day.
const DayLayout = "2006-01-02"

// Day is a calendar day in the run's configured time zone, formatted as YYYY-MM-DD.
type Day string

// DayOf returns the calendar day containing t as observed in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc != nil {
		t = t.In(loc)
	}
	return Day(t.Format(DayLayout))
}

// ParseDay validates s as a YYYY-MM-DD day.
func ParseDay(s string) (Day, error) {
	if _, err := time.Parse(DayLayout, s); err != nil {
		return "", err
	}
	return Day(s), nil
}

// AddDays shifts d by n calendar days. An invalid d yields "".
func (d Day) AddDays(n int) Day {
	t, err := time.Parse(DayLayout, string(d))
	if err != nil {
		return ""
	}
	return Day(t.AddDate(0, 0, n).Format(DayLayout))
}

// Before reports whether d is strictly earlier than other.
// YYYY-MM-DD sorts lexically in calendar order.
func (d Day) Before(other Day) bool { return d < other }

func (d Day) String() string { return string(d) }

// Identity is the stable fingerprint of a scraped item, derived from its link only.
type Identity string

// ScrapedItem is one post as a Source Adapter saw it during this run.
type ScrapedItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	SourceLabel string `json:"source_label"`
	// ObservedAsToday is the adapter's guess that the post is from today.
	// Display only; it never decides novelty.
	ObservedAsToday bool   `json:"observed_as_today"`
	RawTime         string `json:"time,omitempty"`
}

// Entry is the reporting shape of a novel item: what goes into daily buckets and digests.
type Entry struct {
	Title  string `json:"title"`
	Link   string `json:"link"`
	Source string `json:"source,omitempty"`
}

// HistoryRecord is written once, when an identity is first seen, and never changed.
type HistoryRecord struct {
	Identity     Identity `json:"identity"`
	Title        string   `json:"title"`
	Link         string   `json:"link"`
	Source       string   `json:"source,omitempty"`
	FirstSeenDay Day      `json:"first_seen_day"`
}

// Profile is what a Collector returns for one source URL.
type Profile struct {
	Label string
	Items []ScrapedItem
}

// SourceResult records one source of a run. A failed fetch keeps the source
// with no items and Err set, so reports can show it as unavailable.
type SourceResult struct {
	URL   string
	Label string
	Items []ScrapedItem
	Err   error
}

// Failed reports whether the source could not be fetched this run.
func (r SourceResult) Failed() bool { return r.Err != nil }

// Collector defines the interface for data fetching
type Collector interface {
	FetchProfile(ctx context.Context, sourceURL string, limit int) (Profile, error)
}

// Target is one line of the sources file.
type Target struct {
	URL  string
	Name string // optional display name; the adapter's label wins when present
}
