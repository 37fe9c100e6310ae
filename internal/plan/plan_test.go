package plan

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlpforge/bertrun/pkg/runconfig"
)

const planYAML = `
run_name: plan-test
max_seq_len: 1024
tokenizer_name: bclavie/olmo_bert_template
mlm_probability: 0.3
lr: 8.0e-4
t_warmup: 10000ba
max_duration: 100000ba
global_train_batch_size: 4608
device_train_microbatch_size: 96
save_interval: 3500ba
save_num_checkpoints_to_keep: 5
save_folder: checkpoints/plan-test
model:
  name: flex_bert
  model_config:
    num_hidden_layers: 22
    hidden_size: 768
    num_attention_heads: 12
train_loader:
  dataset:
    eos_token_id: 50282
scheduler:
  name: linear_decay_with_warmup
  alpha_f: 0.02
optimizer:
  name: decoupled_stableadamw
`

func loadPlanConfig(t *testing.T, extra string) *runconfig.Config {
	t.Helper()
	cfg, err := runconfig.LoadBytes([]byte(planYAML + extra))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestBuild(t *testing.T) {
	cfg := loadPlanConfig(t, "")

	p, err := Build(cfg, Options{WorldSize: 8})
	require.NoError(t, err)

	perBatch := int64(4608) * 1024
	assert.Equal(t, "plan-test", p.RunName)
	assert.Equal(t, 100000*perBatch, p.TotalTokens)
	assert.Equal(t, int64(100000), p.TotalBatches)
	assert.Equal(t, 10000*perBatch, p.WarmupTokens)
	assert.Equal(t, 576, p.Geometry.DeviceBatchSize)
	assert.Equal(t, 6, p.Geometry.GradAccumSteps)
	assert.Equal(t, int64(3500), p.SaveEveryBatches)
	assert.Equal(t, 5, p.RetainedCount)
	assert.Equal(t, 0.0008, p.BaseLR)
	assert.Len(t, p.ConfigHash, 64)
	assert.Len(t, p.LRCurve, defaultLRSamples)
	assert.Zero(t, p.EvalEveryBatches)
}

func TestBuildWithEvalAndRamp(t *testing.T) {
	cfg := loadPlanConfig(t, `
eval_interval: 2000ba
bs_warmup: 1000000000tok
eval_loader:
  dataset:
    split: val
`)

	p, err := Build(cfg, Options{WorldSize: 8})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), p.EvalEveryBatches)
	assert.Equal(t, int64(1_000_000_000), p.BatchRampTokens)
}

func TestBuildBadWorldSize(t *testing.T) {
	cfg := loadPlanConfig(t, "")
	_, err := Build(cfg, Options{WorldSize: 7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not divisible")
}

func TestRenderTable(t *testing.T) {
	cfg := loadPlanConfig(t, "")
	p, err := Build(cfg, Options{WorldSize: 8})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.Render(&buf, "table"))

	out := buf.String()
	assert.Contains(t, out, "plan-test")
	assert.Contains(t, out, "471,859,200,000")
	assert.Contains(t, out, "LR curve:")
}

func TestRenderJSON(t *testing.T) {
	cfg := loadPlanConfig(t, "")
	p, err := Build(cfg, Options{WorldSize: 8})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.Render(&buf, "json"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "plan-test", decoded["run_name"])
	assert.EqualValues(t, 100000, decoded["total_batches"])
}

func TestRenderYAML(t *testing.T) {
	cfg := loadPlanConfig(t, "")
	p, err := Build(cfg, Options{WorldSize: 8})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.Render(&buf, "yaml"))
	assert.True(t, strings.Contains(buf.String(), "run_name: plan-test"))
}

func TestRenderUnknownFormat(t *testing.T) {
	cfg := loadPlanConfig(t, "")
	p, err := Build(cfg, Options{WorldSize: 8})
	require.NoError(t, err)

	err = p.Render(&bytes.Buffer{}, "csv")
	require.Error(t, err)
}

func TestHumanCount(t *testing.T) {
	assert.Equal(t, "0", humanCount(0))
	assert.Equal(t, "999", humanCount(999))
	assert.Equal(t, "1,000", humanCount(1000))
	assert.Equal(t, "471,859,200,000", humanCount(471_859_200_000))
}
