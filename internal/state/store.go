// Package state is the local run ledger: a SQLite database tracking
// pretraining runs, the config hash each one started from, and the
// checkpoints written (and uploaded) along the way. Autoresume and checkpoint
// sync both consult it.
package state

import "time"

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded pretraining run.
type Run struct {
	ID          string
	RunName     string
	ConfigHash  string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// Checkpoint is one checkpoint file written during a run.
type Checkpoint struct {
	ID         string
	RunID      string
	Path       string
	Batch      int64
	SavedAt    time.Time
	UploadedAt *time.Time
}

// Uploaded reports whether the checkpoint has been synced to the hub.
func (c *Checkpoint) Uploaded() bool {
	return c.UploadedAt != nil
}

// Store is the run ledger interface.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	CreateRun(runName, configHash string) (*Run, error)
	GetRun(id string) (*Run, error)
	// LatestRun returns the most recently started run with the given name,
	// or nil when none exists. Autoresume uses it to decide whether a run
	// continues or starts fresh.
	LatestRun(runName string) (*Run, error)
	CompleteRun(id string, runErr error) error
	ListRuns(limit int) ([]*Run, error)

	RecordCheckpoint(runID, path string, batch int64) (*Checkpoint, error)
	ListCheckpoints(runID string) ([]*Checkpoint, error)
	MarkUploaded(checkpointID string) error
	// UnuploadedCheckpoints lists checkpoints not yet synced, oldest first.
	UnuploadedCheckpoints(runID string) ([]*Checkpoint, error)
}
