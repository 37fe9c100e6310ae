package runconfig

// Default values matching the training framework's behavior.
const (
	DefaultSeed      = 17
	DefaultPrecision = "amp_bf16"

	DefaultDownloadRetry     = 2
	DefaultDownloadTimeout   = 60.0
	DefaultPredownload       = 100_000
	DefaultNumCanonicalNodes = 128
	DefaultShuffleAlgo       = "py1s"
	DefaultShuffleSeed       = 9176
	DefaultPrefetchFactor    = 2
)

// applyDefaults fills unset fields after decoding. Presence checks go through
// the raw document so an explicit zero or false is never overwritten.
func (c *Config) applyDefaults() {
	if c.Seed == 0 && !c.has("seed") {
		c.Seed = DefaultSeed
	}
	if c.Precision == "" {
		c.Precision = DefaultPrecision
	}
	if !c.has("save_num_checkpoints_to_keep") {
		// Keep everything unless told otherwise.
		c.SaveNumCheckpointsToKeep = -1
	}
	if c.GlobalEvalBatchSize == 0 {
		c.GlobalEvalBatchSize = c.GlobalTrainBatchSize
	}
	if c.DeviceEvalBatchSize == 0 {
		c.DeviceEvalBatchSize = c.DeviceTrainMicrobatchSize
	}

	if c.Model.TokenizerName == "" {
		c.Model.TokenizerName = c.TokenizerName
	}

	if c.Scheduler.TWarmup.Unit == "" {
		c.Scheduler.TWarmup = c.TWarmup
	}
	if c.Optimizer.LR == 0 {
		c.Optimizer.LR = c.LR
	}
	if c.Optimizer.Eps == 0 {
		c.Optimizer.Eps = 1e-6
	}
	if len(c.Optimizer.Betas) == 0 {
		c.Optimizer.Betas = []float64{0.9, 0.98}
	}

	c.applyLoaderDefaults(&c.TrainLoader, "train_loader", true)
	if c.EvalLoader != nil {
		c.applyLoaderDefaults(c.EvalLoader, "eval_loader", false)
	}
}

func (c *Config) applyLoaderDefaults(l *LoaderConfig, key string, training bool) {
	if l.Name == "" {
		l.Name = "text"
	}
	if !c.has(key + ".pin_memory") {
		l.PinMemory = true
	}
	if !c.has(key + ".persistent_workers") {
		l.PersistentWorkers = true
	}
	if l.PrefetchFactor == 0 {
		l.PrefetchFactor = DefaultPrefetchFactor
	}

	d := &l.Dataset
	if d.MaxSeqLen == 0 {
		d.MaxSeqLen = c.MaxSeqLen
	}
	if d.TokenizerName == "" {
		d.TokenizerName = c.TokenizerName
	}
	if d.Local == "" {
		d.Local = c.DataLocal
	}
	if d.Remote == "" {
		d.Remote = c.DataRemote
	}
	if !c.has(key + ".dataset.streaming") {
		d.Streaming = true
	}
	if training && d.MLMProbability == 0 {
		d.MLMProbability = c.MLMProbability
	}
	if d.ShuffleSeed == 0 {
		d.ShuffleSeed = DefaultShuffleSeed
	}
	if d.ShuffleAlgo == "" {
		d.ShuffleAlgo = DefaultShuffleAlgo
	}
	if d.DownloadRetry == 0 {
		d.DownloadRetry = DefaultDownloadRetry
	}
	if d.DownloadTimeout == 0 {
		d.DownloadTimeout = DefaultDownloadTimeout
	}
	if d.Predownload == 0 {
		d.Predownload = DefaultPredownload
	}
	if d.NumCanonicalNodes == 0 {
		d.NumCanonicalNodes = DefaultNumCanonicalNodes
	}
}
