package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite ledger instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path + "?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// WithDB wraps an existing connection. The caller owns the connection's
// lifecycle; Close is a no-op path-wise but still closes the handle.
func WithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func generateID() string {
	return uuid.New().String()
}

// --- Run operations ---

// CreateRun records the start of a pretraining run.
func (s *SQLiteStore) CreateRun(runName, configHash string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:         generateID(),
		RunName:    runName,
		ConfigHash: configHash,
		Status:     RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (id, run_name, config_hash, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.RunName, run.ConfigHash, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT id, run_name, config_hash, status, started_at, completed_at, error
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	return run, err
}

// LatestRun returns the most recently started run with the given name, or nil
// when the name has never run.
func (s *SQLiteStore) LatestRun(runName string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(
		`SELECT id, run_name, config_hash, status, started_at, completed_at, error
		 FROM runs WHERE run_name = ? ORDER BY started_at DESC LIMIT 1`, runName)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// CompleteRun marks a run completed, or failed when runErr is non-nil.
func (s *SQLiteStore) CompleteRun(id string, runErr error) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	status := RunStatusCompleted
	errMsg := sql.NullString{}
	if runErr != nil {
		status = RunStatusFailed
		errMsg = sql.NullString{String: runErr.Error(), Valid: true}
	}

	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		status, time.Now().UTC(), errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// ListRuns returns runs newest first, up to limit (0 means no limit).
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	query := `SELECT id, run_name, config_hash, status, started_at, completed_at, error
	          FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	var completedAt sql.NullTime
	var errMsg sql.NullString

	err := row.Scan(&run.ID, &run.RunName, &run.ConfigHash, &run.Status,
		&run.StartedAt, &completedAt, &errMsg)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return run, nil
}

// --- Checkpoint operations ---

// RecordCheckpoint records a checkpoint file written by a run.
func (s *SQLiteStore) RecordCheckpoint(runID, path string, batch int64) (*Checkpoint, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	ckpt := &Checkpoint{
		ID:      generateID(),
		RunID:   runID,
		Path:    path,
		Batch:   batch,
		SavedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO checkpoints (id, run_id, path, batch, saved_at) VALUES (?, ?, ?, ?, ?)`,
		ckpt.ID, ckpt.RunID, ckpt.Path, ckpt.Batch, ckpt.SavedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record checkpoint: %w", err)
	}
	return ckpt, nil
}

// ListCheckpoints returns a run's checkpoints in batch order.
func (s *SQLiteStore) ListCheckpoints(runID string) ([]*Checkpoint, error) {
	return s.queryCheckpoints(
		`SELECT id, run_id, path, batch, saved_at, uploaded_at
		 FROM checkpoints WHERE run_id = ? ORDER BY batch`, runID)
}

// MarkUploaded records that a checkpoint has been synced to the hub.
func (s *SQLiteStore) MarkUploaded(checkpointID string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.Exec(
		`UPDATE checkpoints SET uploaded_at = ? WHERE id = ?`,
		time.Now().UTC(), checkpointID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark checkpoint uploaded: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("checkpoint %s not found", checkpointID)
	}
	return nil
}

// UnuploadedCheckpoints lists checkpoints not yet synced, oldest first.
func (s *SQLiteStore) UnuploadedCheckpoints(runID string) ([]*Checkpoint, error) {
	return s.queryCheckpoints(
		`SELECT id, run_id, path, batch, saved_at, uploaded_at
		 FROM checkpoints WHERE run_id = ? AND uploaded_at IS NULL ORDER BY batch`, runID)
}

func (s *SQLiteStore) queryCheckpoints(query string, args ...any) ([]*Checkpoint, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoints: %w", err)
	}
	defer rows.Close()

	var ckpts []*Checkpoint
	for rows.Next() {
		ckpt := &Checkpoint{}
		var uploadedAt sql.NullTime
		if err := rows.Scan(&ckpt.ID, &ckpt.RunID, &ckpt.Path, &ckpt.Batch,
			&ckpt.SavedAt, &uploadedAt); err != nil {
			return nil, err
		}
		if uploadedAt.Valid {
			ckpt.UploadedAt = &uploadedAt.Time
		}
		ckpts = append(ckpts, ckpt)
	}
	return ckpts, rows.Err()
}
