package provenance

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// Store persists the transition log in SQLite. It is both the target of
// the ingest command and a Source for the graph builder, so queries can
// be served without re-reading raw log files.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new store instance. Open must be called before use.
func NewStore() *Store {
	return &Store{}
}

// Open opens the SQLite database. Use ":memory:" for an in-memory store.
func (s *Store) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open provenance store: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping provenance store: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Append writes transitions to the log. Records without a transition id
// are assigned one. An existing id is overwritten (idempotent re-runs).
func (s *Store) Append(ctx context.Context, records []Transition) error {
	if s.db == nil {
		return fmt.Errorf("provenance store not opened")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transitions
			(id, source_layer, source_table, target_layer, target_table, transforms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_layer = excluded.source_layer,
			source_table = excluded.source_table,
			target_layer = excluded.target_layer,
			target_table = excluded.target_table,
			transforms   = excluded.transforms,
			recorded_at  = excluded.recorded_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		id := rec.ID
		if id == "" {
			id = uuid.New().String()
		}
		ts := rec.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			id, rec.FromLayer, rec.FromTable, rec.ToLayer, rec.ToTable,
			strings.Join(rec.Transforms, ","), ts.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("failed to insert transition %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of stored transitions.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("provenance store not opened")
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transitions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transitions: %w", err)
	}
	return n, nil
}

// Each implements Source, streaming stored transitions in insertion
// order. Rows with an unparsable timestamp or missing endpoints are
// skipped and counted.
func (s *Store) Each(ctx context.Context, fn func(Transition) error) (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("provenance store not opened")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_layer, source_table, target_layer, target_table, transforms, recorded_at
		FROM transitions ORDER BY rowid`)
	if err != nil {
		return 0, fmt.Errorf("failed to read transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	skipped := 0
	for rows.Next() {
		var rec Transition
		var transforms, recordedAt string
		if err := rows.Scan(&rec.ID, &rec.FromLayer, &rec.FromTable,
			&rec.ToLayer, &rec.ToTable, &transforms, &recordedAt); err != nil {
			skipped++
			continue
		}
		if transforms != "" {
			rec.Transforms = strings.Split(transforms, ",")
		}
		ts, err := time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			skipped++
			continue
		}
		rec.Timestamp = ts

		if !rec.Valid() {
			skipped++
			continue
		}
		if err := fn(rec); err != nil {
			return skipped, err
		}
	}
	if err := rows.Err(); err != nil {
		return skipped, fmt.Errorf("failed to scan transitions: %w", err)
	}

	return skipped, nil
}
