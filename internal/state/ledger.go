// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package state keeps a SQLite ledger of converted files so incremental
// batches can skip sources that have not changed since their last
// conversion.
package state

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/zeebo/blake3"
)

// FileName is the ledger's file name inside a batch output directory.
const FileName = ".nbu-state.db"

// Entry is one recorded conversion.
type Entry struct {
	Source      string    `json:"source" yaml:"source"`
	Target      string    `json:"target" yaml:"target"`
	SourceHash  string    `json:"source_hash" yaml:"source_hash"`
	ConvertedAt time.Time `json:"converted_at" yaml:"converted_at"`
}

// Ledger records the content hash of every source a batch converted.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger database at path, creating its
// directory and schema as needed.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	// Batch workers share the ledger; one connection serializes writes.
	db.SetMaxOpenConns(1)

	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	_, err := l.db.Exec(`CREATE TABLE IF NOT EXISTS conversions (
		source TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		source_hash TEXT NOT NULL,
		converted_at TEXT NOT NULL
	)`)
	return err
}

// Hash returns the hex BLAKE3 digest of data.
func Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Unchanged reports whether source was last converted to target from
// content with the given hash.
func (l *Ledger) Unchanged(ctx context.Context, source, target, hash string) (bool, error) {
	var storedTarget, storedHash string
	err := l.db.QueryRowContext(ctx,
		`SELECT target, source_hash FROM conversions WHERE source = ?`, source,
	).Scan(&storedTarget, &storedHash)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying ledger for %s: %w", source, err)
	}
	return storedTarget == target && storedHash == hash, nil
}

// Record stores a successful conversion of source to target.
func (l *Ledger) Record(ctx context.Context, source, target, hash string) error {
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO conversions (source, target, source_hash, converted_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(source) DO UPDATE SET
			target=excluded.target, source_hash=excluded.source_hash, converted_at=excluded.converted_at`,
		source, target, hash, ts,
	)
	if err != nil {
		return fmt.Errorf("recording %s in ledger: %w", source, err)
	}
	return nil
}

// Entries returns every recorded conversion ordered by source path.
func (l *Ledger) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT source, target, source_hash, converted_at FROM conversions ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("listing ledger: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.Source, &e.Target, &e.SourceHash, &ts); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		e.ConvertedAt, _ = time.Parse(time.RFC3339Nano, ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
