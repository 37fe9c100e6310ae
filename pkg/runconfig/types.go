// Package runconfig owns the schema of MLM pretraining run documents: typed
// configuration structs, YAML loading with `${key}` interpolation, defaults,
// and validation against the component registries.
//
// A run document is parsed once and read-only thereafter.
package runconfig

// Config is a full pretraining run document.
type Config struct {
	// Data source shorthand, usually referenced by loaders via interpolation.
	DataLocal  string `koanf:"data_local"`
	DataRemote string `koanf:"data_remote"`

	MaxSeqLen          int     `koanf:"max_seq_len"`
	TokenizerName      string  `koanf:"tokenizer_name"`
	MLMProbability     float64 `koanf:"mlm_probability"`
	CountPaddingTokens bool    `koanf:"count_padding_tokens"`

	RunName string `koanf:"run_name"`

	// Learning rate and schedule budget.
	LR          float64   `koanf:"lr"`
	TWarmup     Duration  `koanf:"t_warmup"`
	BSWarmup    *Duration `koanf:"bs_warmup"`
	MaxDuration Duration  `koanf:"max_duration"`

	EvalInterval              Duration `koanf:"eval_interval"`
	GlobalTrainBatchSize      int      `koanf:"global_train_batch_size"`
	GlobalEvalBatchSize       int      `koanf:"global_eval_batch_size"`
	Seed                      int      `koanf:"seed"`
	DeviceEvalBatchSize       int      `koanf:"device_eval_batch_size"`
	DeviceTrainMicrobatchSize int      `koanf:"device_train_microbatch_size"`
	Precision                 string   `koanf:"precision"`

	ProgressBar        bool     `koanf:"progress_bar"`
	LogToConsole       bool     `koanf:"log_to_console"`
	ConsoleLogInterval Duration `koanf:"console_log_interval"`

	// Checkpoint policy.
	SaveInterval             Duration `koanf:"save_interval"`
	SaveNumCheckpointsToKeep int      `koanf:"save_num_checkpoints_to_keep"`
	SaveFolder               string   `koanf:"save_folder"`
	RepoID                   string   `koanf:"repo_id"`
	Autoresume               bool     `koanf:"autoresume"`

	Model       ModelConfig      `koanf:"model"`
	TrainLoader LoaderConfig     `koanf:"train_loader"`
	EvalLoader  *LoaderConfig    `koanf:"eval_loader"`
	Scheduler   SchedulerConfig  `koanf:"scheduler"`
	Optimizer   OptimizerConfig  `koanf:"optimizer"`
	Algorithms  AlgorithmsConfig `koanf:"algorithms"`

	// Callbacks and loggers are named hooks with free-form per-hook settings.
	// Names are validated against the component registry.
	Callbacks map[string]map[string]any `koanf:"callbacks"`
	Loggers   map[string]map[string]any `koanf:"loggers"`

	// raw is the interpolation-resolved document as loaded. Kept for
	// round-trip serialization and hashing.
	raw map[string]any
}

// ModelConfig selects the model architecture and its hyperparameters.
type ModelConfig struct {
	Name                string     `koanf:"name"`
	PretrainedModelName string     `koanf:"pretrained_model_name"`
	TokenizerName       string     `koanf:"tokenizer_name"`
	ModelConfig         ArchConfig `koanf:"model_config"`
}

// ArchConfig holds the architecture hyperparameters passed to the model
// constructor.
type ArchConfig struct {
	VocabSize         int `koanf:"vocab_size"`
	NumHiddenLayers   int `koanf:"num_hidden_layers"`
	HiddenSize        int `koanf:"hidden_size"`
	IntermediateSize  int `koanf:"intermediate_size"`
	NumAttentionHeads int `koanf:"num_attention_heads"`

	AttentionLayer            string  `koanf:"attention_layer"`
	AttentionProbsDropoutProb float64 `koanf:"attention_probs_dropout_prob"`
	GlobalAttnEveryNLayers    int     `koanf:"global_attn_every_n_layers"`
	SlidingWindow             int     `koanf:"sliding_window"`
	RotaryEmbBase             float64 `koanf:"rotary_emb_base"`
	LocalAttnRotaryEmbBase    float64 `koanf:"local_attn_rotary_emb_base"`

	Normalization string         `koanf:"normalization"`
	NormKwargs    map[string]any `koanf:"norm_kwargs"`

	HiddenAct         string  `koanf:"hidden_act"`
	HiddenDropoutProb float64 `koanf:"hidden_dropout_prob"`
	BertLayer         string  `koanf:"bert_layer"`
	PaddingStrategy   string  `koanf:"padding"`
	InitMethod        string  `koanf:"init_method"`

	LossFunction string         `koanf:"loss_function"`
	LossKwargs   map[string]any `koanf:"loss_kwargs"`
}

// LoaderConfig configures a train or eval dataloader.
type LoaderConfig struct {
	Name              string        `koanf:"name"`
	Dataset           DatasetConfig `koanf:"dataset"`
	DropLast          bool          `koanf:"drop_last"`
	NumWorkers        int           `koanf:"num_workers"`
	PinMemory         bool          `koanf:"pin_memory"`
	PrefetchFactor    int           `koanf:"prefetch_factor"`
	PersistentWorkers bool          `koanf:"persistent_workers"`
	SequencePacking   bool          `koanf:"sequence_packing"`
}

// DatasetConfig configures the streaming text dataset behind a loader.
type DatasetConfig struct {
	Local         string `koanf:"local"`
	Remote        string `koanf:"remote"`
	Split         string `koanf:"split"`
	TokenizerName string `koanf:"tokenizer_name"`
	MaxSeqLen     int    `koanf:"max_seq_len"`

	Streaming bool `koanf:"streaming"`

	Shuffle     bool   `koanf:"shuffle"`
	ShuffleAlgo string `koanf:"shuffle_algo"`
	ShuffleSeed int    `koanf:"shuffle_seed"`

	MLMProbability float64 `koanf:"mlm_probability"`

	// Sequence boundary token for packed samples. At most one of the two may
	// be set: eos_token_id when sequences end with EOS, bos_token_id when
	// they start with BOS.
	EOSTokenID *int `koanf:"eos_token_id"`
	BOSTokenID *int `koanf:"bos_token_id"`

	DownloadRetry     int     `koanf:"download_retry"`
	DownloadTimeout   float64 `koanf:"download_timeout"`
	Predownload       int     `koanf:"predownload"`
	NumCanonicalNodes int     `koanf:"num_canonical_nodes"`
	CacheLimit        string  `koanf:"cache_limit"`

	// Streams weights sub-datasets; per-stream fields fall back to the
	// dataset-level values.
	Streams map[string]StreamConfig `koanf:"streams"`
}

// StreamConfig weights one sub-dataset of a mixed streaming dataset.
type StreamConfig struct {
	Remote string `koanf:"remote"`
	Local  string `koanf:"local"`
	Split  string `koanf:"split"`

	// Exactly one of proportion/repeat/choose selects the sampling mode;
	// all absent means sample proportionally to size.
	Proportion *float64 `koanf:"proportion"`
	Repeat     *float64 `koanf:"repeat"`
	Choose     *int     `koanf:"choose"`

	DownloadRetry   int     `koanf:"download_retry"`
	DownloadTimeout float64 `koanf:"download_timeout"`
}

// SchedulerConfig names the LR scheduler and its knobs.
type SchedulerConfig struct {
	Name    string    `koanf:"name"`
	TWarmup Duration  `koanf:"t_warmup"`
	AlphaF  float64   `koanf:"alpha_f"`
	TDecay  *Duration `koanf:"t_decay"`
	TMax    *Duration `koanf:"t_max"`
}

// OptimizerConfig names the optimizer and its hyperparameters.
type OptimizerConfig struct {
	Name             string    `koanf:"name"`
	LR               float64   `koanf:"lr"`
	Betas            []float64 `koanf:"betas"`
	Eps              float64   `koanf:"eps"`
	WeightDecay      float64   `koanf:"weight_decay"`
	FilterBiasNormWD bool      `koanf:"filter_bias_norm_wd"`
	LogGradNorm      bool      `koanf:"log_grad_norm"`
}

// AlgorithmsConfig holds the optional training algorithms block.
type AlgorithmsConfig struct {
	GradientClipping *GradientClippingConfig `koanf:"gradient_clipping"`
}

// GradientClippingConfig configures gradient clipping.
type GradientClippingConfig struct {
	ClippingType      string  `koanf:"clipping_type"`
	ClippingThreshold float64 `koanf:"clipping_threshold"`
}

// Raw returns the interpolation-resolved document as a nested map. The map is
// shared; callers must not mutate it.
func (c *Config) Raw() map[string]any {
	return c.raw
}
