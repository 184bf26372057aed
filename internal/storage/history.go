// Package storage persists the seen-item history and the per-day buckets of
// novel items.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/qepting91/postwatch/internal/domain"
)

// History is the durable seen-set. Load once per run, mutate in memory,
// Persist at the commit point.
type History interface {
	Load() (map[domain.Identity]domain.HistoryRecord, error)
	Contains(id domain.Identity) bool
	Insert(id domain.Identity, rec domain.HistoryRecord) error
	Persist() error
	Len() int
	// Compact drops records first seen before the given day and persists.
	Compact(before domain.Day) (int, error)
	Close() error
}

// JSONHistory keeps the whole history in one JSON object keyed by identity.
type JSONHistory struct {
	path    string
	records map[domain.Identity]domain.HistoryRecord
}

// NewJSONHistory returns a store backed by path. Nothing is read until Load.
func NewJSONHistory(path string) *JSONHistory {
	return &JSONHistory{
		path:    path,
		records: make(map[domain.Identity]domain.HistoryRecord),
	}
}

// Load reads the history file. A missing file is the first-run case and
// yields an empty map; an unreadable or unparsable file is ErrStorageCorrupt.
func (h *JSONHistory) Load() (map[domain.Identity]domain.HistoryRecord, error) {
	data, err := os.ReadFile(h.path)
	if errors.Is(err, fs.ErrNotExist) {
		h.records = make(map[domain.Identity]domain.HistoryRecord)
		return h.snapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStorageCorrupt, h.path, err)
	}

	raw := make(map[string]domain.HistoryRecord)
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrStorageCorrupt, h.path, err)
	}

	records := make(map[domain.Identity]domain.HistoryRecord, len(raw))
	for key, rec := range raw {
		// Older files only stored {title, link} under the key.
		if rec.Identity == "" {
			rec.Identity = domain.Identity(key)
		}
		records[domain.Identity(key)] = rec
	}
	h.records = records
	return h.snapshot(), nil
}

func (h *JSONHistory) snapshot() map[domain.Identity]domain.HistoryRecord {
	out := make(map[domain.Identity]domain.HistoryRecord, len(h.records))
	for k, v := range h.records {
		out[k] = v
	}
	return out
}

func (h *JSONHistory) Contains(id domain.Identity) bool {
	_, ok := h.records[id]
	return ok
}

// Insert adds rec under id. Inserting an identity twice is ErrDuplicateIdentity.
func (h *JSONHistory) Insert(id domain.Identity, rec domain.HistoryRecord) error {
	if _, ok := h.records[id]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateIdentity, id)
	}
	rec.Identity = id
	h.records[id] = rec
	return nil
}

// Persist writes the full map atomically.
func (h *JSONHistory) Persist() error {
	if err := WriteJSONAtomic(h.path, h.records); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoragePersist, err)
	}
	return nil
}

func (h *JSONHistory) Len() int { return len(h.records) }

// Compact removes records first seen before the given day. Records without a
// first-seen day predate day tracking and are kept.
func (h *JSONHistory) Compact(before domain.Day) (int, error) {
	removed := 0
	for id, rec := range h.records {
		if rec.FirstSeenDay != "" && rec.FirstSeenDay.Before(before) {
			delete(h.records, id)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, h.Persist()
}

func (h *JSONHistory) Close() error { return nil }
