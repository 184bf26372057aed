package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/qepting91/postwatch/internal/domain"
)

// SnapshotPosts caps how many posts per source the snapshot keeps.
const SnapshotPosts = 3

// Snapshot is the last run's view of every source, kept for manual sends.
type Snapshot struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Sources     []SnapshotSource `json:"sources"`
}

type SnapshotSource struct {
	Label string               `json:"label"`
	URL   string               `json:"url"`
	Error string               `json:"error,omitempty"`
	Posts []domain.ScrapedItem `json:"posts"`
}

// NewSnapshot builds a snapshot from a run's source results.
func NewSnapshot(at time.Time, results []domain.SourceResult) Snapshot {
	snap := Snapshot{GeneratedAt: at, Sources: make([]SnapshotSource, 0, len(results))}
	for _, r := range results {
		src := SnapshotSource{Label: r.Label, URL: r.URL, Posts: []domain.ScrapedItem{}}
		if r.Err != nil {
			src.Error = r.Err.Error()
		}
		for i, item := range r.Items {
			if i == SnapshotPosts {
				break
			}
			src.Posts = append(src.Posts, item)
		}
		snap.Sources = append(snap.Sources, src)
	}
	return snap
}

// WriteSnapshot stores snap at path atomically.
func WriteSnapshot(path string, snap Snapshot) error {
	if err := WriteJSONAtomic(path, snap); err != nil {
		return fmt.Errorf("%w: snapshot: %v", domain.ErrStoragePersist, err)
	}
	return nil
}

// ReadSnapshot loads the snapshot written by the last run.
func ReadSnapshot(path string) (Snapshot, error) {
	var snap Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, fmt.Errorf("read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("%w: parse snapshot: %v", domain.ErrStorageCorrupt, err)
	}
	return snap, nil
}

// Entries flattens the snapshot into digest entries, source by source.
func (s Snapshot) Entries() []domain.Entry {
	var out []domain.Entry
	for _, src := range s.Sources {
		for _, p := range src.Posts {
			out = append(out, domain.Entry{Title: p.Title, Link: p.Link, Source: src.Label})
		}
	}
	return out
}
