// Package plan derives a concrete training plan from a validated run config:
// token and batch totals, batch geometry, the LR curve, and the checkpoint
// schedule. The plan is what `bertrun plan` renders.
package plan

import (
	"fmt"

	"github.com/nlpforge/bertrun/pkg/runconfig"
	"github.com/nlpforge/bertrun/pkg/schedule"
)

// Plan is the fully resolved shape of one pretraining run.
type Plan struct {
	RunName    string `koanf:"run_name" json:"run_name" yaml:"run_name"`
	ConfigHash string `koanf:"config_hash" json:"config_hash" yaml:"config_hash"`
	Precision  string `koanf:"precision" json:"precision" yaml:"precision"`

	SeqLen       int   `koanf:"seq_len" json:"seq_len" yaml:"seq_len"`
	TotalTokens  int64 `koanf:"total_tokens" json:"total_tokens" yaml:"total_tokens"`
	TotalBatches int64 `koanf:"total_batches" json:"total_batches" yaml:"total_batches"`
	TotalSamples int64 `koanf:"total_samples" json:"total_samples" yaml:"total_samples"`
	WarmupTokens int64 `koanf:"warmup_tokens" json:"warmup_tokens" yaml:"warmup_tokens"`

	Geometry        schedule.BatchGeometry `koanf:"geometry" json:"geometry" yaml:"geometry"`
	BatchRampTokens int64                  `koanf:"batch_ramp_tokens" json:"batch_ramp_tokens" yaml:"batch_ramp_tokens"`

	BaseLR    float64          `koanf:"base_lr" json:"base_lr" yaml:"base_lr"`
	Scheduler string           `koanf:"scheduler" json:"scheduler" yaml:"scheduler"`
	LRCurve   []schedule.Point `koanf:"lr_curve" json:"lr_curve" yaml:"lr_curve"`

	SaveEveryBatches int64   `koanf:"save_every_batches" json:"save_every_batches" yaml:"save_every_batches"`
	CheckpointCount  int     `koanf:"checkpoint_count" json:"checkpoint_count" yaml:"checkpoint_count"`
	RetainedCount    int     `koanf:"retained_count" json:"retained_count" yaml:"retained_count"`
	SaveFolder       string  `koanf:"save_folder" json:"save_folder" yaml:"save_folder"`
	EvalEveryBatches int64   `koanf:"eval_every_batches,omitempty" json:"eval_every_batches,omitempty" yaml:"eval_every_batches,omitempty"`
	PaddingWaste     float64 `koanf:"padding_waste" json:"padding_waste" yaml:"padding_waste"`

	lr          *schedule.LRSchedule
	checkpoints *schedule.CheckpointSchedule
}

// Options tunes plan construction.
type Options struct {
	// WorldSize is the number of training devices. Defaults to 8.
	WorldSize int
	// MeanSeqLen estimates real sequence lengths for the padding-waste
	// figure. Zero skips the estimate.
	MeanSeqLen int
	// LRSamples is the number of LR curve sample points. Defaults to 21.
	LRSamples int
}

const (
	defaultWorldSize = 8
	defaultLRSamples = 21
)

// Build resolves a validated run config into a plan.
func Build(cfg *runconfig.Config, opts Options) (*Plan, error) {
	if opts.WorldSize == 0 {
		opts.WorldSize = defaultWorldSize
	}
	if opts.LRSamples == 0 {
		opts.LRSamples = defaultLRSamples
	}

	clock := schedule.NewClock(cfg)

	totalTokens, err := clock.Tokens(cfg.MaxDuration)
	if err != nil {
		return nil, fmt.Errorf("max_duration: %w", err)
	}
	totalBatches, err := clock.Batches(cfg.MaxDuration)
	if err != nil {
		return nil, fmt.Errorf("max_duration: %w", err)
	}
	totalSamples, err := clock.Samples(cfg.MaxDuration)
	if err != nil {
		return nil, fmt.Errorf("max_duration: %w", err)
	}
	warmupTokens, err := clock.Tokens(cfg.TWarmup)
	if err != nil {
		return nil, fmt.Errorf("t_warmup: %w", err)
	}

	geometry, err := schedule.ComputeGeometry(cfg.GlobalTrainBatchSize, cfg.DeviceTrainMicrobatchSize, opts.WorldSize)
	if err != nil {
		return nil, err
	}

	var rampTokens int64
	if cfg.BSWarmup != nil {
		rampTokens, err = clock.Tokens(*cfg.BSWarmup)
		if err != nil {
			return nil, fmt.Errorf("bs_warmup: %w", err)
		}
	}

	lr, err := schedule.NewLRSchedule(cfg, clock)
	if err != nil {
		return nil, err
	}
	checkpoints, err := schedule.NewCheckpointSchedule(cfg, clock)
	if err != nil {
		return nil, err
	}

	hash, err := cfg.Hash()
	if err != nil {
		return nil, err
	}

	p := &Plan{
		RunName:    cfg.RunName,
		ConfigHash: hash,
		Precision:  cfg.Precision,

		SeqLen:       clock.SeqLen,
		TotalTokens:  totalTokens,
		TotalBatches: totalBatches,
		TotalSamples: totalSamples,
		WarmupTokens: warmupTokens,

		Geometry:        geometry,
		BatchRampTokens: rampTokens,

		BaseLR:    cfg.Optimizer.LR,
		Scheduler: cfg.Scheduler.Name,
		LRCurve:   lr.Sample(opts.LRSamples),

		SaveEveryBatches: checkpoints.IntervalBatches,
		CheckpointCount:  checkpoints.Count(),
		RetainedCount:    len(checkpoints.Retained()),
		SaveFolder:       cfg.SaveFolder,

		PaddingWaste: schedule.PaddingWaste(opts.MeanSeqLen, clock.SeqLen, cfg.TrainLoader.SequencePacking),

		lr:          lr,
		checkpoints: checkpoints,
	}

	if cfg.EvalLoader != nil {
		evalBatches, err := clock.Batches(cfg.EvalInterval)
		if err != nil {
			return nil, fmt.Errorf("eval_interval: %w", err)
		}
		p.EvalEveryBatches = evalBatches
	}

	return p, nil
}

// LRSchedule returns the underlying LR schedule.
func (p *Plan) LRSchedule() *schedule.LRSchedule { return p.lr }

// Checkpoints returns the underlying checkpoint schedule.
func (p *Plan) Checkpoints() *schedule.CheckpointSchedule { return p.checkpoints }
