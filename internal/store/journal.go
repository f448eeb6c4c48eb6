package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Entry is one executed request.
type Entry struct {
	// ID is a UUIDv7 assigned by the engine.
	ID string `json:"id"`

	// Seq is the engine's logical clock value at execution time.
	Seq int64 `json:"seq"`

	Resource  string `json:"resource"`
	Operation string `json:"operation"`
	Method    string `json:"method"`
	URL       string `json:"url"`

	// PlanHash groups requests with the same method, path and parameters.
	PlanHash string `json:"plan_hash"`

	// Body is the JSON request body, empty for GET and DELETE.
	Body string `json:"body,omitempty"`

	// Status is the HTTP status, 0 when the request never completed.
	Status int `json:"status"`

	// Error is the failure message, empty on success.
	Error string `json:"error,omitempty"`
}

// Append records an executed request.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) Append(ctx context.Context, e Entry) error {
	var body sql.NullString
	if e.Body != "" {
		body = sql.NullString{String: e.Body, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests
		(id, seq, resource, operation, method, url, plan_hash, body, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID,
		e.Seq,
		e.Resource,
		e.Operation,
		e.Method,
		e.URL,
		e.PlanHash,
		body,
		e.Status,
		e.Error,
	)
	if err != nil {
		return fmt.Errorf("append request: %w", err)
	}
	return nil
}

// Filter narrows ReadEntries. Zero fields match everything.
type Filter struct {
	Resource string
	PlanHash string

	// FailedOnly keeps entries with an error or a status outside 200/201.
	FailedOnly bool

	// Limit caps the number of entries; 0 means no limit.
	Limit int
}

// ReadEntries returns journaled requests ordered by seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ReadEntries(ctx context.Context, f Filter) ([]Entry, error) {
	query := `
		SELECT id, seq, resource, operation, method, url, plan_hash, body, status, error
		FROM requests
		WHERE 1 = 1`
	var args []any
	if f.Resource != "" {
		query += " AND resource = ?"
		args = append(args, f.Resource)
	}
	if f.PlanHash != "" {
		query += " AND plan_hash = ?"
		args = append(args, f.PlanHash)
	}
	if f.FailedOnly {
		query += " AND (error != '' OR status NOT IN (200, 201))"
	}
	query += " ORDER BY seq ASC, id COLLATE BINARY ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return entries, nil
}

// ReadEntry returns a single request by id.
// Returns sql.ErrNoRows (wrapped) when the id is unknown.
func (s *Store) ReadEntry(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, resource, operation, method, url, plan_hash, body, status, error
		FROM requests
		WHERE id = ?
	`, id)
	e, err := scanEntry(row)
	if err != nil {
		return Entry{}, fmt.Errorf("read request %s: %w", id, err)
	}
	return e, nil
}

// MaxSeq returns the highest journaled seq, or 0 for an empty journal.
// Used to resume the engine clock across runs.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(seq) FROM requests").Scan(&seq); err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq.Int64, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	var body sql.NullString
	if err := row.Scan(
		&e.ID,
		&e.Seq,
		&e.Resource,
		&e.Operation,
		&e.Method,
		&e.URL,
		&e.PlanHash,
		&body,
		&e.Status,
		&e.Error,
	); err != nil {
		return Entry{}, fmt.Errorf("scan request: %w", err)
	}
	e.Body = body.String
	return e, nil
}
