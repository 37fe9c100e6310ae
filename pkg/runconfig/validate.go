package runconfig

import (
	"fmt"

	"github.com/nlpforge/bertrun/pkg/component"
)

// Validate checks the run config for schema and value-range errors: required
// fields, registry membership of every named component, probability and batch
// geometry sanity, and duration consistency. It returns the first error found.
func (c *Config) Validate() error {
	if c.RunName == "" {
		return fmt.Errorf("run_name is required")
	}
	if c.MaxSeqLen <= 0 {
		return fmt.Errorf("max_seq_len must be positive, got %d", c.MaxSeqLen)
	}
	if c.TokenizerName == "" {
		return fmt.Errorf("tokenizer_name is required")
	}
	if c.MLMProbability <= 0 || c.MLMProbability >= 1 {
		return fmt.Errorf("mlm_probability must be in (0, 1), got %v", c.MLMProbability)
	}
	if c.LR <= 0 {
		return fmt.Errorf("lr must be positive, got %v", c.LR)
	}
	if c.MaxDuration.IsZero() {
		return fmt.Errorf("max_duration is required")
	}
	if c.SaveInterval.IsZero() {
		return fmt.Errorf("save_interval is required")
	}
	if c.SaveNumCheckpointsToKeep < -1 {
		return fmt.Errorf("save_num_checkpoints_to_keep must be >= -1, got %d", c.SaveNumCheckpointsToKeep)
	}
	if c.SaveFolder == "" {
		return fmt.Errorf("save_folder is required")
	}
	if c.LogToConsole && c.ConsoleLogInterval.IsZero() {
		return fmt.Errorf("console_log_interval is required when log_to_console is set")
	}

	if err := c.validateBatchSizes(); err != nil {
		return err
	}
	if err := c.validateDurations(); err != nil {
		return err
	}

	if _, err := component.Lookup(component.KindPrecision, c.Precision); err != nil {
		return fmt.Errorf("precision: %w", err)
	}

	if err := c.validateModel(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if err := validateLoader(&c.TrainLoader, true); err != nil {
		return fmt.Errorf("train_loader: %w", err)
	}
	if c.EvalLoader != nil {
		if err := validateLoader(c.EvalLoader, false); err != nil {
			return fmt.Errorf("eval_loader: %w", err)
		}
		if c.EvalInterval.IsZero() {
			return fmt.Errorf("eval_interval is required when an eval_loader is configured")
		}
	}
	if err := c.validateScheduler(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := c.validateOptimizer(); err != nil {
		return fmt.Errorf("optimizer: %w", err)
	}
	if err := c.validateAlgorithms(); err != nil {
		return fmt.Errorf("algorithms: %w", err)
	}

	for name, params := range c.Callbacks {
		if err := component.ValidateParams(component.KindCallback, name, params); err != nil {
			return fmt.Errorf("callbacks: %w", err)
		}
	}
	for name, params := range c.Loggers {
		if err := component.ValidateParams(component.KindLogger, name, params); err != nil {
			return fmt.Errorf("loggers: %w", err)
		}
	}

	return nil
}

func (c *Config) validateBatchSizes() error {
	if c.GlobalTrainBatchSize <= 0 {
		return fmt.Errorf("global_train_batch_size must be positive, got %d", c.GlobalTrainBatchSize)
	}
	if c.DeviceTrainMicrobatchSize <= 0 {
		return fmt.Errorf("device_train_microbatch_size must be positive, got %d", c.DeviceTrainMicrobatchSize)
	}
	if c.DeviceTrainMicrobatchSize > c.GlobalTrainBatchSize {
		return fmt.Errorf("device_train_microbatch_size %d exceeds global_train_batch_size %d",
			c.DeviceTrainMicrobatchSize, c.GlobalTrainBatchSize)
	}
	if c.GlobalEvalBatchSize <= 0 {
		return fmt.Errorf("global_eval_batch_size must be positive, got %d", c.GlobalEvalBatchSize)
	}
	if c.DeviceEvalBatchSize <= 0 {
		return fmt.Errorf("device_eval_batch_size must be positive, got %d", c.DeviceEvalBatchSize)
	}
	return nil
}

func (c *Config) validateDurations() error {
	// Cross-duration comparisons are only meaningful within a unit.
	if c.TWarmup.Unit == c.MaxDuration.Unit && c.TWarmup.Value > c.MaxDuration.Value {
		return fmt.Errorf("t_warmup %s exceeds max_duration %s", c.TWarmup, c.MaxDuration)
	}
	if c.BSWarmup != nil && c.BSWarmup.Unit == c.MaxDuration.Unit && c.BSWarmup.Value > c.MaxDuration.Value {
		return fmt.Errorf("bs_warmup %s exceeds max_duration %s", c.BSWarmup, c.MaxDuration)
	}
	if c.Scheduler.TDecay != nil && c.Scheduler.TDecay.Unit == c.MaxDuration.Unit &&
		c.Scheduler.TDecay.Value > c.MaxDuration.Value {
		return fmt.Errorf("scheduler t_decay %s exceeds max_duration %s", c.Scheduler.TDecay, c.MaxDuration)
	}
	return nil
}

func (c *Config) validateModel() error {
	if _, err := component.Lookup(component.KindModel, c.Model.Name); err != nil {
		return err
	}

	arch := &c.Model.ModelConfig
	if arch.NumHiddenLayers <= 0 {
		return fmt.Errorf("model_config.num_hidden_layers must be positive, got %d", arch.NumHiddenLayers)
	}
	if arch.HiddenSize <= 0 {
		return fmt.Errorf("model_config.hidden_size must be positive, got %d", arch.HiddenSize)
	}
	if arch.NumAttentionHeads <= 0 {
		return fmt.Errorf("model_config.num_attention_heads must be positive, got %d", arch.NumAttentionHeads)
	}
	if arch.HiddenSize%arch.NumAttentionHeads != 0 {
		return fmt.Errorf("model_config.hidden_size %d is not divisible by num_attention_heads %d",
			arch.HiddenSize, arch.NumAttentionHeads)
	}
	if arch.AttentionProbsDropoutProb < 0 || arch.AttentionProbsDropoutProb >= 1 {
		return fmt.Errorf("model_config.attention_probs_dropout_prob must be in [0, 1), got %v",
			arch.AttentionProbsDropoutProb)
	}
	if arch.SlidingWindow < 0 {
		return fmt.Errorf("model_config.sliding_window must be non-negative, got %d", arch.SlidingWindow)
	}
	if arch.GlobalAttnEveryNLayers < 0 || arch.GlobalAttnEveryNLayers > arch.NumHiddenLayers {
		return fmt.Errorf("model_config.global_attn_every_n_layers must be in [0, %d], got %d",
			arch.NumHiddenLayers, arch.GlobalAttnEveryNLayers)
	}
	if arch.SlidingWindow > 0 && arch.GlobalAttnEveryNLayers == 0 {
		return fmt.Errorf("model_config.sliding_window requires global_attn_every_n_layers")
	}

	if arch.AttentionLayer != "" {
		if _, err := component.Lookup(component.KindAttention, arch.AttentionLayer); err != nil {
			return fmt.Errorf("model_config.attention_layer: %w", err)
		}
	}
	if arch.Normalization != "" {
		if _, err := component.Lookup(component.KindNormalization, arch.Normalization); err != nil {
			return fmt.Errorf("model_config.normalization: %w", err)
		}
	}
	if arch.HiddenAct != "" {
		if _, err := component.Lookup(component.KindActivation, arch.HiddenAct); err != nil {
			return fmt.Errorf("model_config.hidden_act: %w", err)
		}
	}
	if arch.LossFunction != "" {
		if err := component.ValidateParams(component.KindLoss, arch.LossFunction, arch.LossKwargs); err != nil {
			return fmt.Errorf("model_config.loss_function: %w", err)
		}
	}

	return nil
}

func validateLoader(l *LoaderConfig, training bool) error {
	if l.Name != "text" {
		return fmt.Errorf("name must be \"text\", got %q", l.Name)
	}
	if l.NumWorkers < 0 {
		return fmt.Errorf("num_workers must be non-negative, got %d", l.NumWorkers)
	}

	d := &l.Dataset
	if d.MaxSeqLen <= 0 {
		return fmt.Errorf("dataset.max_seq_len must be positive, got %d", d.MaxSeqLen)
	}
	if !d.Streaming && d.Local == "" {
		return fmt.Errorf("dataset.local is required when streaming is disabled")
	}
	if d.EOSTokenID != nil && d.BOSTokenID != nil {
		return fmt.Errorf("dataset: eos_token_id and bos_token_id are mutually exclusive; " +
			"use eos_token_id if sequences end with EOS, bos_token_id if they start with BOS")
	}
	if l.SequencePacking && d.EOSTokenID == nil && d.BOSTokenID == nil {
		return fmt.Errorf("sequence_packing requires eos_token_id or bos_token_id to mark sequence boundaries")
	}
	if training && (d.MLMProbability <= 0 || d.MLMProbability >= 1) {
		return fmt.Errorf("dataset.mlm_probability must be in (0, 1), got %v", d.MLMProbability)
	}

	for name, stream := range d.Streams {
		modes := 0
		if stream.Proportion != nil {
			modes++
		}
		if stream.Repeat != nil {
			modes++
		}
		if stream.Choose != nil {
			modes++
		}
		if modes > 1 {
			return fmt.Errorf("dataset.streams.%s: proportion, repeat and choose are mutually exclusive", name)
		}
		if stream.Remote == "" && stream.Local == "" && d.Remote == "" && d.Local == "" {
			return fmt.Errorf("dataset.streams.%s: a remote or local path is required", name)
		}
	}

	return nil
}

func (c *Config) validateScheduler() error {
	s := &c.Scheduler
	if _, err := component.Lookup(component.KindScheduler, s.Name); err != nil {
		return err
	}
	if s.AlphaF < 0 || s.AlphaF > 1 {
		return fmt.Errorf("alpha_f must be in [0, 1], got %v", s.AlphaF)
	}
	if s.Name == "warmup_stable_decay" && (s.TDecay == nil || s.TDecay.IsZero()) {
		return fmt.Errorf("warmup_stable_decay requires t_decay")
	}
	return nil
}

func (c *Config) validateOptimizer() error {
	o := &c.Optimizer
	if _, err := component.Lookup(component.KindOptimizer, o.Name); err != nil {
		return err
	}
	if o.LR <= 0 {
		return fmt.Errorf("lr must be positive, got %v", o.LR)
	}
	if len(o.Betas) != 2 {
		return fmt.Errorf("betas must have exactly two values, got %d", len(o.Betas))
	}
	for i, beta := range o.Betas {
		if beta < 0 || beta >= 1 {
			return fmt.Errorf("betas[%d] must be in [0, 1), got %v", i, beta)
		}
	}
	if o.Eps <= 0 {
		return fmt.Errorf("eps must be positive, got %v", o.Eps)
	}
	if o.WeightDecay < 0 {
		return fmt.Errorf("weight_decay must be non-negative, got %v", o.WeightDecay)
	}
	return nil
}

func (c *Config) validateAlgorithms() error {
	gc := c.Algorithms.GradientClipping
	if gc == nil {
		return nil
	}
	switch gc.ClippingType {
	case "norm", "value", "adaptive":
	default:
		return fmt.Errorf("gradient_clipping.clipping_type must be norm, value or adaptive, got %q", gc.ClippingType)
	}
	if gc.ClippingThreshold <= 0 {
		return fmt.Errorf("gradient_clipping.clipping_threshold must be positive, got %v", gc.ClippingThreshold)
	}
	return nil
}
