package schedule

import "fmt"

// BatchGeometry resolves how a global batch splits across devices and
// gradient-accumulation steps.
type BatchGeometry struct {
	GlobalBatchSize int
	WorldSize       int
	// DeviceBatchSize is the per-device share of the global batch.
	DeviceBatchSize int
	// MicrobatchSize is the largest slice that fits on a device at once.
	MicrobatchSize int
	// GradAccumSteps is the number of microbatches accumulated per optimizer
	// step on each device.
	GradAccumSteps int
}

// ComputeGeometry splits a global batch over worldSize devices with the given
// microbatch size. The global batch must divide evenly across devices, and the
// device batch evenly into microbatches.
func ComputeGeometry(globalBatchSize, microbatchSize, worldSize int) (BatchGeometry, error) {
	if worldSize <= 0 {
		return BatchGeometry{}, fmt.Errorf("world size must be positive, got %d", worldSize)
	}
	if globalBatchSize%worldSize != 0 {
		return BatchGeometry{}, fmt.Errorf(
			"global_train_batch_size %d is not divisible by world size %d", globalBatchSize, worldSize)
	}
	deviceBatch := globalBatchSize / worldSize
	if microbatchSize > deviceBatch {
		return BatchGeometry{}, fmt.Errorf(
			"device_train_microbatch_size %d exceeds per-device batch %d", microbatchSize, deviceBatch)
	}
	if deviceBatch%microbatchSize != 0 {
		return BatchGeometry{}, fmt.Errorf(
			"per-device batch %d is not divisible by device_train_microbatch_size %d", deviceBatch, microbatchSize)
	}
	return BatchGeometry{
		GlobalBatchSize: globalBatchSize,
		WorldSize:       worldSize,
		DeviceBatchSize: deviceBatch,
		MicrobatchSize:  microbatchSize,
		GradAccumSteps:  deviceBatch / microbatchSize,
	}, nil
}

// BatchSizeAt returns the effective global batch size at a token position for
// a linear batch-size warmup over rampTokens. The ramp starts at one
// microbatch per device and grows to the full global batch; intermediate sizes
// round down to a whole number of microbatches per device.
func (g BatchGeometry) BatchSizeAt(tok, rampTokens int64) int {
	if rampTokens <= 0 || tok >= rampTokens {
		return g.GlobalBatchSize
	}
	step := g.MicrobatchSize * g.WorldSize
	start := step
	if tok <= 0 {
		return start
	}
	frac := float64(tok) / float64(rampTokens)
	size := start + int(frac*float64(g.GlobalBatchSize-start))
	size -= size % step
	if size < start {
		size = start
	}
	return size
}

// PaddingWaste estimates the fraction of compute spent on padding tokens for
// sequences with the given mean length. Sequence packing concatenates samples
// up to max_seq_len, so waste is at most one partial sequence per slot.
func PaddingWaste(meanSeqLen, maxSeqLen int, sequencePacking bool) float64 {
	if maxSeqLen <= 0 || meanSeqLen <= 0 || meanSeqLen >= maxSeqLen {
		return 0
	}
	if sequencePacking {
		// Expected leftover is roughly half a mean sequence per packed slot.
		return float64(meanSeqLen) / 2 / float64(maxSeqLen)
	}
	return 1 - float64(meanSeqLen)/float64(maxSeqLen)
}
