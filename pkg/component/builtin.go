package component

import (
	"fmt"
)

// Built-in components. Names follow the identifiers the training YAML uses.

func init() {
	registerModels()
	registerOptimizers()
	registerSchedulers()
	registerCallbacks()
	registerLoggers()
	registerLosses()
	registerLayers()
	registerPrecisions()
}

func registerModels() {
	Register(&Spec{Name: "flex_bert", Kind: KindModel,
		Summary: "FlexBERT encoder with configurable attention, normalization and MLP layers"})
	Register(&Spec{Name: "mosaic_bert", Kind: KindModel,
		Summary: "MosaicBERT encoder with ALiBi attention and Gated Linear Units"})
	Register(&Spec{Name: "hf_bert", Kind: KindModel,
		Summary: "Stock HuggingFace BERT architecture"})
}

func registerOptimizers() {
	Register(&Spec{Name: "decoupled_adamw", Kind: KindOptimizer,
		Summary: "AdamW with weight decay decoupled from the learning rate"})
	Register(&Spec{Name: "decoupled_stableadamw", Kind: KindOptimizer,
		Summary: "StableAdamW with update clipping and decoupled weight decay"})
	Register(&Spec{Name: "adamw", Kind: KindOptimizer,
		Summary: "Standard AdamW"})
}

func registerSchedulers() {
	Register(&Spec{Name: "linear_decay_with_warmup", Kind: KindScheduler,
		Summary: "Linear warmup followed by linear decay to alpha_f"})
	Register(&Spec{Name: "cosine_with_warmup", Kind: KindScheduler,
		Summary: "Linear warmup followed by cosine decay to alpha_f"})
	Register(&Spec{Name: "warmup_stable_decay", Kind: KindScheduler,
		Summary: "Trapezoid schedule: warmup, constant plateau, then decay over t_decay"})
	Register(&Spec{Name: "constant_with_warmup", Kind: KindScheduler,
		Summary: "Linear warmup followed by a constant learning rate"})
}

func registerCallbacks() {
	Register(&Spec{Name: "speed_monitor", Kind: KindCallback,
		Summary: "Logs throughput in samples and tokens per second",
		Validate: func(params map[string]any) error {
			return requirePositiveInt(params, "window_size")
		}})
	Register(&Spec{Name: "lr_monitor", Kind: KindCallback,
		Summary: "Logs the learning rate of every parameter group"})
	Register(&Spec{Name: "memory_monitor", Kind: KindCallback,
		Summary: "Logs device memory statistics"})
	Register(&Spec{Name: "runtime_estimator", Kind: KindCallback,
		Summary: "Estimates remaining wall-clock time from observed throughput"})
	Register(&Spec{Name: "scheduled_gc", Kind: KindCallback,
		Summary: "Runs garbage collection on a fixed batch interval",
		Validate: func(params map[string]any) error {
			return requirePositiveInt(params, "batch_interval")
		}})
	Register(&Spec{Name: "log_grad_norm", Kind: KindCallback,
		Summary: "Logs gradient norms on a batch interval",
		Validate: func(params map[string]any) error {
			return requirePositiveInt(params, "batch_log_interval")
		}})
	Register(&Spec{Name: "packing_efficiency", Kind: KindCallback,
		Summary: "Logs the fraction of non-padding tokens per packed batch",
		Validate: func(params map[string]any) error {
			return requirePositiveInt(params, "log_interval")
		}})
	Register(&Spec{Name: "dataloader_speed", Kind: KindCallback,
		Summary: "Logs time spent waiting on the dataloader"})
	Register(&Spec{Name: "hf_sync", Kind: KindCallback,
		Summary: "Uploads new checkpoints to a HuggingFace repository after each save",
		Validate: func(params map[string]any) error {
			repoID, ok, err := paramString(params, "repo_id")
			if err != nil {
				return err
			}
			if !ok || repoID == "" {
				return fmt.Errorf("repo_id is required")
			}
			if _, _, err := paramString(params, "save_folder"); err != nil {
				return err
			}
			return nil
		}})
}

func registerLoggers() {
	Register(&Spec{Name: "wandb", Kind: KindLogger,
		Summary: "Weights & Biases experiment tracking",
		Validate: func(params map[string]any) error {
			project, ok, err := paramString(params, "project")
			if err != nil {
				return err
			}
			if !ok || project == "" {
				return fmt.Errorf("project is required")
			}
			return nil
		}})
	Register(&Spec{Name: "tensorboard", Kind: KindLogger,
		Summary: "TensorBoard event files"})
	Register(&Spec{Name: "file", Kind: KindLogger,
		Summary: "Plain-text metric log file"})
}

func registerLosses() {
	Register(&Spec{Name: "cross_entropy", Kind: KindLoss,
		Summary: "Token-level cross entropy"})
	Register(&Spec{Name: "fa_cross_entropy", Kind: KindLoss,
		Summary: "Fused FlashAttention cross entropy",
		Validate: func(params map[string]any) error {
			reduction, ok, err := paramString(params, "reduction")
			if err != nil {
				return err
			}
			if ok && reduction != "mean" && reduction != "sum" && reduction != "none" {
				return fmt.Errorf("reduction must be mean, sum or none, got %q", reduction)
			}
			return nil
		}})
}

func registerLayers() {
	Register(&Spec{Name: "base", Kind: KindAttention,
		Summary: "Full global attention with learned position embeddings"})
	Register(&Spec{Name: "rope", Kind: KindAttention,
		Summary: "Attention with rotary position embeddings"})
	Register(&Spec{Name: "rope_parallel", Kind: KindAttention,
		Summary: "Rotary attention with a parallel attention/MLP block"})

	Register(&Spec{Name: "layernorm", Kind: KindNormalization,
		Summary: "Standard LayerNorm"})
	Register(&Spec{Name: "low_precision_layernorm", Kind: KindNormalization,
		Summary: "LayerNorm computed in the autocast precision"})
	Register(&Spec{Name: "rmsnorm", Kind: KindNormalization,
		Summary: "Root-mean-square normalization without centering"})
	Register(&Spec{Name: "dynamic_tanh", Kind: KindNormalization,
		Summary: "Normalization-free dynamic tanh layer"})

	Register(&Spec{Name: "gelu", Kind: KindActivation, Summary: "Gaussian error linear unit"})
	Register(&Spec{Name: "silu", Kind: KindActivation, Summary: "Sigmoid linear unit"})
	Register(&Spec{Name: "relu", Kind: KindActivation, Summary: "Rectified linear unit"})
}

func registerPrecisions() {
	Register(&Spec{Name: "amp_bf16", Kind: KindPrecision, Summary: "Automatic mixed precision with bfloat16"})
	Register(&Spec{Name: "amp_fp16", Kind: KindPrecision, Summary: "Automatic mixed precision with float16"})
	Register(&Spec{Name: "bf16", Kind: KindPrecision, Summary: "Pure bfloat16"})
	Register(&Spec{Name: "fp32", Kind: KindPrecision, Summary: "Full float32"})
}
