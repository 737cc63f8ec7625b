// Package state records query run history in a local SQLite database.
//
// Every query the run command executes is recorded with its compiled SQL,
// status, row count, and timing. The history command reads this database;
// nothing else in relq depends on it, so deleting the file only loses
// history.
package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	// sqlite driver for the history database.
	_ "modernc.org/sqlite"
)

// RunStatus is the outcome of one executed query.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// QueryRun is one recorded query execution. RunID groups the queries
// executed by a single run invocation.
type QueryRun struct {
	ID        string
	RunID     string
	Query     string
	File      string
	Target    string
	Dialect   string
	SQL       string
	Status    RunStatus
	Rows      int64
	ElapsedMS int64
	StartedAt time.Time
	Error     string
}

// Store is a SQLite-backed history store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the history database at path, creating it if needed.
// Use ":memory:" for an in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// OpenReadOnly opens an existing history database without write access.
func OpenReadOnly(path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the underlying connection for raw inspection queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// NewRunID returns an identifier grouping the queries of one invocation.
func NewRunID() string {
	return uuid.New().String()
}

// RecordQueryRun inserts one executed query. A missing ID is generated and
// a zero StartedAt is stamped with the current time.
func (s *Store) RecordQueryRun(qr *QueryRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if qr.ID == "" {
		qr.ID = uuid.New().String()
	}
	if qr.StartedAt.IsZero() {
		qr.StartedAt = time.Now().UTC()
	}

	var errPtr *string
	if qr.Error != "" {
		errPtr = &qr.Error
	}

	_, err := s.db.Exec(
		`INSERT INTO query_runs (id, run_id, query, file, target, dialect, sql_text, status, row_count, elapsed_ms, started_at, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		qr.ID, qr.RunID, qr.Query, qr.File, qr.Target, qr.Dialect, qr.SQL, qr.Status, qr.Rows, qr.ElapsedMS, qr.StartedAt, errPtr,
	)
	if err != nil {
		return fmt.Errorf("failed to record query run: %w", err)
	}
	return nil
}

const queryRunColumns = `id, run_id, query, file, target, dialect, sql_text, status, row_count, elapsed_ms, started_at, error`

func scanQueryRun(row interface{ Scan(...any) error }) (*QueryRun, error) {
	qr := &QueryRun{}
	var errMsg sql.NullString
	err := row.Scan(&qr.ID, &qr.RunID, &qr.Query, &qr.File, &qr.Target, &qr.Dialect,
		&qr.SQL, &qr.Status, &qr.Rows, &qr.ElapsedMS, &qr.StartedAt, &errMsg)
	if err != nil {
		return nil, err
	}
	if errMsg.Valid {
		qr.Error = errMsg.String
	}
	return qr, nil
}

// GetQueryRun retrieves a recorded run by ID.
func (s *Store) GetQueryRun(id string) (*QueryRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(`SELECT `+queryRunColumns+` FROM query_runs WHERE id = ?`, id)
	qr, err := scanQueryRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("query run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get query run: %w", err)
	}
	return qr, nil
}

// FindQueryRun retrieves a recorded run by ID or unique ID prefix. Prefix
// lookup lets short IDs from listings be pasted back.
func (s *Store) FindQueryRun(id string) (*QueryRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	qr, err := s.GetQueryRun(id)
	if err == nil {
		return qr, nil
	}

	matches, err := s.listRuns(`SELECT `+queryRunColumns+` FROM query_runs WHERE id LIKE ? ORDER BY started_at DESC, id`, 2, id+"%")
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("query run not found: %s", id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous run id prefix %q, use more characters", id)
	}
}

// ListQueryRuns returns the most recent runs, newest first. A limit of 0
// returns everything.
func (s *Store) ListQueryRuns(limit int) ([]*QueryRun, error) {
	return s.listRuns(`SELECT `+queryRunColumns+` FROM query_runs ORDER BY started_at DESC, id`, limit)
}

// ListQueryRunsFor returns the most recent runs of one named query.
func (s *Store) ListQueryRunsFor(query string, limit int) ([]*QueryRun, error) {
	return s.listRuns(`SELECT `+queryRunColumns+` FROM query_runs WHERE query = ? ORDER BY started_at DESC, id`, limit, query)
}

func (s *Store) listRuns(q string, limit int, args ...any) ([]*QueryRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*QueryRun
	for rows.Next() {
		qr, err := scanQueryRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query run: %w", err)
		}
		runs = append(runs, qr)
	}
	return runs, rows.Err()
}

// Clear deletes all recorded runs and returns how many were removed.
func (s *Store) Clear() (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}
	res, err := s.db.Exec(`DELETE FROM query_runs`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
