package storage

import (
	"database/sql"
	"fmt"

	"github.com/qepting91/postwatch/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteHistory is the History backend for deployments that prefer a
// database file. The seen-set is mirrored in memory; Persist flushes the
// identities inserted since Load in a single transaction.
type SQLiteHistory struct {
	db      *sql.DB
	path    string
	records map[domain.Identity]domain.HistoryRecord
	pending []domain.Identity
}

// OpenSQLiteHistory opens (creating if needed) the database at dbPath.
func OpenSQLiteHistory(dbPath string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Single writer, single reader per invocation.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", domain.ErrStorageCorrupt, dbPath, err)
	}

	h := &SQLiteHistory{
		db:      db,
		path:    dbPath,
		records: make(map[domain.Identity]domain.HistoryRecord),
	}
	if err := h.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageCorrupt, err)
	}
	return h, nil
}

func (h *SQLiteHistory) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		identity TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		link TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		first_seen_day TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_first_seen ON history(first_seen_day);
	`
	if _, err := h.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Load reads every record into memory.
func (h *SQLiteHistory) Load() (map[domain.Identity]domain.HistoryRecord, error) {
	rows, err := h.db.Query(`SELECT identity, title, link, source, first_seen_day FROM history`)
	if err != nil {
		return nil, fmt.Errorf("%w: query history: %v", domain.ErrStorageCorrupt, err)
	}
	defer rows.Close()

	records := make(map[domain.Identity]domain.HistoryRecord)
	for rows.Next() {
		var rec domain.HistoryRecord
		var id, day string
		if err := rows.Scan(&id, &rec.Title, &rec.Link, &rec.Source, &day); err != nil {
			return nil, fmt.Errorf("%w: scan history: %v", domain.ErrStorageCorrupt, err)
		}
		rec.Identity = domain.Identity(id)
		rec.FirstSeenDay = domain.Day(day)
		records[rec.Identity] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate history: %v", domain.ErrStorageCorrupt, err)
	}

	h.records = records
	h.pending = nil

	out := make(map[domain.Identity]domain.HistoryRecord, len(records))
	for k, v := range records {
		out[k] = v
	}
	return out, nil
}

func (h *SQLiteHistory) Contains(id domain.Identity) bool {
	_, ok := h.records[id]
	return ok
}

func (h *SQLiteHistory) Insert(id domain.Identity, rec domain.HistoryRecord) error {
	if _, ok := h.records[id]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateIdentity, id)
	}
	rec.Identity = id
	h.records[id] = rec
	h.pending = append(h.pending, id)
	return nil
}

// Persist commits pending inserts atomically; on failure nothing is written
// and the pending set is kept.
func (h *SQLiteHistory) Persist() error {
	if len(h.pending) == 0 {
		return nil
	}

	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrStoragePersist, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO history (identity, title, link, source, first_seen_day) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %v", domain.ErrStoragePersist, err)
	}
	defer stmt.Close()

	for _, id := range h.pending {
		rec := h.records[id]
		if _, err := stmt.Exec(string(id), rec.Title, rec.Link, rec.Source, string(rec.FirstSeenDay)); err != nil {
			return fmt.Errorf("%w: insert %s: %v", domain.ErrStoragePersist, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrStoragePersist, err)
	}
	h.pending = nil
	return nil
}

func (h *SQLiteHistory) Len() int { return len(h.records) }

// Compact flushes pending inserts first so they are not resurrected later.
func (h *SQLiteHistory) Compact(before domain.Day) (int, error) {
	if err := h.Persist(); err != nil {
		return 0, err
	}
	res, err := h.db.Exec(`DELETE FROM history WHERE first_seen_day != '' AND first_seen_day < ?`, string(before))
	if err != nil {
		return 0, fmt.Errorf("%w: compact: %v", domain.ErrStoragePersist, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: compact rows affected: %v", domain.ErrStoragePersist, err)
	}

	for id, rec := range h.records {
		if rec.FirstSeenDay != "" && rec.FirstSeenDay.Before(before) {
			delete(h.records, id)
		}
	}
	return int(n), nil
}

func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}
