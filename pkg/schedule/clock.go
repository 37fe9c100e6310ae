// Package schedule turns run config durations into concrete token, sample and
// batch counts and evaluates derived schedules: learning-rate multipliers,
// batch-size ramps, and checkpoint save points.
package schedule

import (
	"fmt"

	"github.com/nlpforge/bertrun/pkg/runconfig"
)

// Clock converts durations between time units for one run. All conversions go
// through tokens, the finest unit: a batch is GlobalBatchSize samples of
// SeqLen tokens each.
type Clock struct {
	// SeqLen is the training sequence length in tokens.
	SeqLen int
	// GlobalBatchSize is the optimizer batch size in samples.
	GlobalBatchSize int
	// SamplesPerEpoch is the dataset size in samples. Zero when unknown, in
	// which case epoch durations cannot be converted.
	SamplesPerEpoch int64
	// MaxDuration anchors fractional ("dur") durations.
	MaxDuration runconfig.Duration
}

// NewClock builds a clock from a validated run config.
func NewClock(cfg *runconfig.Config) Clock {
	return Clock{
		SeqLen:          cfg.TrainLoader.Dataset.MaxSeqLen,
		GlobalBatchSize: cfg.GlobalTrainBatchSize,
		MaxDuration:     cfg.MaxDuration,
	}
}

// TokensPerBatch returns the token throughput of one optimizer batch.
func (c Clock) TokensPerBatch() int64 {
	return int64(c.GlobalBatchSize) * int64(c.SeqLen)
}

// Tokens converts a duration to a token count.
func (c Clock) Tokens(d runconfig.Duration) (int64, error) {
	switch d.Unit {
	case runconfig.UnitToken:
		return int64(d.Value), nil
	case runconfig.UnitBatch:
		return int64(d.Value) * c.TokensPerBatch(), nil
	case runconfig.UnitSample:
		return int64(d.Value) * int64(c.SeqLen), nil
	case runconfig.UnitEpoch:
		if c.SamplesPerEpoch <= 0 {
			return 0, fmt.Errorf("cannot convert %s: dataset size unknown", d)
		}
		return int64(d.Value) * c.SamplesPerEpoch * int64(c.SeqLen), nil
	case runconfig.UnitFraction:
		if c.MaxDuration.Unit == runconfig.UnitFraction {
			return 0, fmt.Errorf("max_duration cannot itself be fractional")
		}
		max, err := c.Tokens(c.MaxDuration)
		if err != nil {
			return 0, err
		}
		return int64(d.Value * float64(max)), nil
	default:
		return 0, fmt.Errorf("cannot convert duration with unit %q", d.Unit)
	}
}

// Batches converts a duration to a count of optimizer batches. Partial batches
// round up, so a token budget is never undershot.
func (c Clock) Batches(d runconfig.Duration) (int64, error) {
	if d.Unit == runconfig.UnitBatch {
		return int64(d.Value), nil
	}
	tokens, err := c.Tokens(d)
	if err != nil {
		return 0, err
	}
	per := c.TokensPerBatch()
	if per <= 0 {
		return 0, fmt.Errorf("tokens per batch is zero: seq_len=%d global_batch=%d", c.SeqLen, c.GlobalBatchSize)
	}
	return (tokens + per - 1) / per, nil
}

// Samples converts a duration to a sample count.
func (c Clock) Samples(d runconfig.Duration) (int64, error) {
	if d.Unit == runconfig.UnitSample {
		return int64(d.Value), nil
	}
	tokens, err := c.Tokens(d)
	if err != nil {
		return 0, err
	}
	if c.SeqLen <= 0 {
		return 0, fmt.Errorf("sequence length is zero")
	}
	return (tokens + int64(c.SeqLen) - 1) / int64(c.SeqLen), nil
}
