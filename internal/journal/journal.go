// Package journal persists an append-only trace of every delta applied
// to a project's document.
//
// Writes are asynchronous: the mutation path enqueues into a buffered
// channel and a single flush goroutine batches rows into SQLite. If the
// buffer fills, entries are dropped rather than applying backpressure
// to editing - the journal is diagnostics, not durability.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - pre-versioning
// 1 - initial mutations table
const currentSchemaVersion = 1

// Entry is one journaled mutation.
type Entry struct {
	Seq       int64     `json:"seq"`
	Kind      string    `json:"kind"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

// Journal records mutation deltas to a per-project SQLite database.
type Journal struct {
	db   *sql.DB
	ch   chan *Entry
	done chan struct{}
	once sync.Once
}

// Open creates or opens the journal database at path and starts the
// flush goroutine. Idempotent across restarts; schema migrations are
// applied automatically.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal: %w", err)
	}

	// SQLite allows one writer; keep the pool at a single connection
	// to avoid SQLITE_BUSY under the flush goroutine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}

	j := &Journal{
		db:   db,
		ch:   make(chan *Entry, 1024),
		done: make(chan struct{}),
	}
	go j.flushLoop()
	return j, nil
}

// RecordAsync queues one delta for persistence. Non-blocking; drops the
// entry if the buffer is full.
func (j *Journal) RecordAsync(kind string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("journal payload not serializable", "kind", kind, "error", err)
		data = []byte("{}")
	}
	e := &Entry{Kind: kind, Payload: string(data), CreatedAt: time.Now()}
	select {
	case j.ch <- e:
	default:
		// Buffer full - drop silently to keep the mutation path free
		// of backpressure.
	}
}

// Entries returns the most recent journaled mutations, newest-first.
func (j *Journal) Entries(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, kind, payload, created_at
		FROM mutations
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.Seq, &e.Kind, &e.Payload, &ts); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		e.CreatedAt = time.Unix(0, ts).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close drains the buffer and stops the flush goroutine.
func (j *Journal) Close() error {
	j.once.Do(func() {
		close(j.ch)
		<-j.done
	})
	return j.db.Close()
}

func (j *Journal) flushLoop() {
	defer close(j.done)

	batch := make([]*Entry, 0, 64)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-j.ch:
			if !ok {
				j.flush(batch)
				return
			}
			batch = append(batch, e)
			if len(batch) >= 64 {
				j.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				j.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (j *Journal) flush(batch []*Entry) {
	if len(batch) == 0 {
		return
	}
	tx, err := j.db.Begin()
	if err != nil {
		slog.Warn("journal flush failed", "error", err, "dropped", len(batch))
		return
	}
	stmt, err := tx.Prepare(`INSERT INTO mutations (kind, payload, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		slog.Warn("journal flush failed", "error", err, "dropped", len(batch))
		return
	}
	for _, e := range batch {
		if _, err := stmt.Exec(e.Kind, e.Payload, e.CreatedAt.UnixNano()); err != nil {
			slog.Warn("journal insert failed", "kind", e.Kind, "error", err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		slog.Warn("journal commit failed", "error", err, "dropped", len(batch))
	}
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}
