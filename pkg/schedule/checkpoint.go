package schedule

import (
	"fmt"

	"github.com/nlpforge/bertrun/pkg/runconfig"
)

// CheckpointSchedule enumerates the batches at which checkpoints are saved and
// which of them survive the retention policy.
type CheckpointSchedule struct {
	// IntervalBatches is the save cadence.
	IntervalBatches int64
	// TotalBatches is the run length.
	TotalBatches int64
	// Keep is the retention count; -1 keeps everything.
	Keep int
}

// NewCheckpointSchedule resolves a config's checkpoint policy against the run
// clock.
func NewCheckpointSchedule(cfg *runconfig.Config, clock Clock) (*CheckpointSchedule, error) {
	interval, err := clock.Batches(cfg.SaveInterval)
	if err != nil {
		return nil, fmt.Errorf("save_interval: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("save_interval resolves to zero batches")
	}
	total, err := clock.Batches(cfg.MaxDuration)
	if err != nil {
		return nil, fmt.Errorf("max_duration: %w", err)
	}
	return &CheckpointSchedule{
		IntervalBatches: interval,
		TotalBatches:    total,
		Keep:            cfg.SaveNumCheckpointsToKeep,
	}, nil
}

// SavePoints returns every batch index at which a checkpoint is written. The
// final batch always gets one, whether or not it lands on the interval.
func (s *CheckpointSchedule) SavePoints() []int64 {
	var points []int64
	for ba := s.IntervalBatches; ba < s.TotalBatches; ba += s.IntervalBatches {
		points = append(points, ba)
	}
	if s.TotalBatches > 0 {
		points = append(points, s.TotalBatches)
	}
	return points
}

// Retained filters save points down to the ones still on disk at the end of
// the run under the retention policy: the most recent Keep checkpoints.
func (s *CheckpointSchedule) Retained() []int64 {
	points := s.SavePoints()
	if s.Keep < 0 || s.Keep >= len(points) {
		return points
	}
	return points[len(points)-s.Keep:]
}

// Count returns the total number of checkpoints written over the run.
func (s *CheckpointSchedule) Count() int {
	return len(s.SavePoints())
}
