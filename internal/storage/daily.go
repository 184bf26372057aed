package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/qepting91/postwatch/internal/domain"
)

const (
	bucketPrefix = "daily_"
	bucketSuffix = ".json"
)

// DailyStore keeps one JSON file per calendar day listing the items first
// seen that day, in detection order.
type DailyStore struct {
	dir string
}

func NewDailyStore(dir string) *DailyStore {
	return &DailyStore{dir: dir}
}

func (s *DailyStore) path(day domain.Day) string {
	return filepath.Join(s.dir, bucketPrefix+string(day)+bucketSuffix)
}

// Load returns the bucket for day, or an empty slice when there is none.
func (s *DailyStore) Load(day domain.Day) ([]domain.Entry, error) {
	data, err := os.ReadFile(s.path(day))
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read bucket %s: %v", domain.ErrStorageCorrupt, day, err)
	}

	var entries []domain.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: parse bucket %s: %v", domain.ErrStorageCorrupt, day, err)
	}
	if entries == nil {
		entries = []domain.Entry{}
	}
	return entries, nil
}

// Append adds entries to day's bucket, keeping their order. Links already
// in the bucket are skipped, so replaying a run cannot duplicate entries.
// The bucket file is created on the first non-empty append.
func (s *DailyStore) Append(day domain.Day, entries []domain.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	existing, err := s.Load(day)
	if err != nil {
		return err
	}

	present := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		present[e.Link] = struct{}{}
	}

	merged := existing
	for _, e := range entries {
		if _, ok := present[e.Link]; ok {
			continue
		}
		present[e.Link] = struct{}{}
		merged = append(merged, e)
	}
	if len(merged) == len(existing) {
		return nil
	}

	if err := WriteJSONAtomic(s.path(day), merged); err != nil {
		return fmt.Errorf("%w: bucket %s: %v", domain.ErrStoragePersist, day, err)
	}
	return nil
}

// LoadRange concatenates the buckets for days in the order given.
func (s *DailyStore) LoadRange(days []domain.Day) ([]domain.Entry, error) {
	out := []domain.Entry{}
	for _, day := range days {
		entries, err := s.Load(day)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

// Counts returns the bucket size for each day, 0 where no bucket exists.
func (s *DailyStore) Counts(days []domain.Day) ([]int, error) {
	counts := make([]int, len(days))
	for i, day := range days {
		entries, err := s.Load(day)
		if err != nil {
			return nil, err
		}
		counts[i] = len(entries)
	}
	return counts, nil
}

// Days lists the days that have a bucket on disk, oldest first.
func (s *DailyStore) Days() ([]domain.Day, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, bucketPrefix+"*"+bucketSuffix))
	if err != nil {
		return nil, err
	}

	var days []domain.Day
	for _, m := range matches {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), bucketPrefix), bucketSuffix)
		day, err := domain.ParseDay(name)
		if err != nil {
			continue
		}
		days = append(days, day)
	}
	// Glob returns lexical order, which for YYYY-MM-DD is calendar order.
	return days, nil
}

// Prune deletes buckets for days before the given day.
func (s *DailyStore) Prune(before domain.Day) (int, error) {
	days, err := s.Days()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, day := range days {
		if !day.Before(before) {
			continue
		}
		if err := os.Remove(s.path(day)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove bucket %s: %w", day, err)
		}
		removed++
	}
	return removed, nil
}
