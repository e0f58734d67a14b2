package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("request not found")

// Request is one journal row.
type Request struct {
	ID         string
	Seq        int64
	Operation  string
	Method     string
	URL        string
	State      string
	Outcome    string
	StatusCode int
	Records    int
	Error      string
	StartedAt  time.Time
	Duration   time.Duration
}

// ListOptions filters List.
type ListOptions struct {
	// Limit keeps only the most recent rows. Zero means all.
	Limit int

	// State and Operation restrict rows to an exact value when non-empty.
	State     string
	Operation string
}

// Record appends req to the journal, stamping it with the next seq.
// Re-recording an existing id is a no-op.
func (s *Store) Record(ctx context.Context, req Request) (Request, error) {
	if req.ID == "" {
		return req, fmt.Errorf("record request: empty id")
	}
	req.Seq = s.clock.Next()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests
		(id, seq, operation, method, url, state, outcome, status_code, records, error, started_at, duration_us)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		req.ID,
		req.Seq,
		req.Operation,
		req.Method,
		req.URL,
		req.State,
		req.Outcome,
		req.StatusCode,
		req.Records,
		req.Error,
		req.StartedAt.UTC().Format(time.RFC3339Nano),
		req.Duration.Microseconds(),
	)
	if err != nil {
		return req, fmt.Errorf("record request: %w", err)
	}
	return req, nil
}

// Get returns the row for id.
func (s *Store) Get(ctx context.Context, id string) (Request, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, operation, method, url, state, outcome, status_code, records, error, started_at, duration_us
		FROM requests
		WHERE id = ?
	`, id)

	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Request{}, fmt.Errorf("get request %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Request{}, fmt.Errorf("get request %s: %w", id, err)
	}
	return req, nil
}

// List returns journal rows in seq order. With a Limit, the most recent rows
// are kept, still in ascending order.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Request, error) {
	var (
		where []string
		args  []any
	)
	if opts.State != "" {
		where = append(where, "state = ?")
		args = append(args, opts.State)
	}
	if opts.Operation != "" {
		where = append(where, "operation = ?")
		args = append(args, opts.Operation)
	}

	query := `
		SELECT id, seq, operation, method, url, state, outcome, status_code, records, error, started_at, duration_us
		FROM requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC, id COLLATE BINARY DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	requests := []Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}

	// Newest-first from the query; callers read history oldest-first.
	for i, j := 0, len(requests)-1; i < j; i, j = i+1, j-1 {
		requests[i], requests[j] = requests[j], requests[i]
	}
	return requests, nil
}

// Count returns the number of rows per state.
func (s *Store) Count(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM requests GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("count requests: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[state] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (Request, error) {
	var (
		req        Request
		startedAt  string
		durationUS int64
	)
	err := row.Scan(
		&req.ID,
		&req.Seq,
		&req.Operation,
		&req.Method,
		&req.URL,
		&req.State,
		&req.Outcome,
		&req.StatusCode,
		&req.Records,
		&req.Error,
		&startedAt,
		&durationUS,
	)
	if err != nil {
		return Request{}, err
	}

	req.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Request{}, fmt.Errorf("parse started_at for %s: %w", req.ID, err)
	}
	req.Duration = time.Duration(durationUS) * time.Microsecond
	return req, nil
}
