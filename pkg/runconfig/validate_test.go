package runconfig

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopkg.in/yaml.v3"
)

// mutateFixture loads the fixture document, applies the mutation to the raw
// mapping, and reloads it through the full pipeline.
func mutateFixture(t *testing.T, mutate func(doc map[string]any)) (*Config, error) {
	t.Helper()

	cfg, err := Load(filepath.Join("testdata", "modernbert-base.yaml"))
	require.NoError(t, err)

	doc := copyTree(cfg.Raw()).(map[string]any)
	mutate(doc)

	b, err := yaml.Marshal(doc)
	require.NoError(t, err)
	return LoadBytes(b)
}

func child(doc map[string]any, path ...string) map[string]any {
	cur := doc
	for _, seg := range path {
		cur = cur[seg].(map[string]any)
	}
	return cur
}

func TestValidateFixture(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "modernbert-base.yaml"))
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(doc map[string]any)
		wantErr string
	}{
		{
			name:    "missing run_name",
			mutate:  func(doc map[string]any) { delete(doc, "run_name") },
			wantErr: "run_name",
		},
		{
			name:    "missing max_duration",
			mutate:  func(doc map[string]any) { delete(doc, "max_duration") },
			wantErr: "max_duration",
		},
		{
			name:    "missing save_folder",
			mutate:  func(doc map[string]any) { doc["save_folder"] = "" },
			wantErr: "save_folder",
		},
		{
			name:    "mlm_probability out of range",
			mutate:  func(doc map[string]any) { doc["mlm_probability"] = 1.5 },
			wantErr: "mlm_probability",
		},
		{
			name:    "negative lr",
			mutate:  func(doc map[string]any) { doc["lr"] = -0.001 },
			wantErr: "lr",
		},
		{
			name:    "warmup exceeds max_duration",
			mutate:  func(doc map[string]any) { doc["t_warmup"] = "2000000000000tok" },
			wantErr: "t_warmup",
		},
		{
			name:    "microbatch exceeds global batch",
			mutate:  func(doc map[string]any) { doc["device_train_microbatch_size"] = 10000 },
			wantErr: "device_train_microbatch_size",
		},
		{
			name:    "unknown precision",
			mutate:  func(doc map[string]any) { doc["precision"] = "fp7" },
			wantErr: "precision",
		},
		{
			name:    "console logging without interval",
			mutate:  func(doc map[string]any) { doc["console_log_interval"] = "0" },
			wantErr: "console_log_interval",
		},
		{
			name:    "unknown model",
			mutate:  func(doc map[string]any) { child(doc, "model")["name"] = "flax_bert" },
			wantErr: "unknown model",
		},
		{
			name: "hidden size not divisible by heads",
			mutate: func(doc map[string]any) {
				child(doc, "model", "model_config")["hidden_size"] = 770
			},
			wantErr: "divisible",
		},
		{
			name: "sliding window without global attention",
			mutate: func(doc map[string]any) {
				child(doc, "model", "model_config")["global_attn_every_n_layers"] = 0
			},
			wantErr: "sliding_window",
		},
		{
			name: "unknown attention layer",
			mutate: func(doc map[string]any) {
				child(doc, "model", "model_config")["attention_layer"] = "linformer"
			},
			wantErr: "attention_layer",
		},
		{
			name: "bad loss reduction",
			mutate: func(doc map[string]any) {
				child(doc, "model", "model_config", "loss_kwargs")["reduction"] = "max"
			},
			wantErr: "reduction",
		},
		{
			name: "eos and bos together",
			mutate: func(doc map[string]any) {
				child(doc, "train_loader", "dataset")["bos_token_id"] = 50281
			},
			wantErr: "mutually exclusive",
		},
		{
			name: "packing without boundary token",
			mutate: func(doc map[string]any) {
				delete(child(doc, "train_loader", "dataset"), "eos_token_id")
			},
			wantErr: "sequence_packing",
		},
		{
			name: "local required when not streaming",
			mutate: func(doc map[string]any) {
				ds := child(doc, "train_loader", "dataset")
				ds["streaming"] = false
				ds["local"] = ""
				doc["data_local"] = ""
			},
			wantErr: "local",
		},
		{
			name: "unknown scheduler",
			mutate: func(doc map[string]any) {
				child(doc, "scheduler")["name"] = "step_decay"
			},
			wantErr: "unknown scheduler",
		},
		{
			name: "warmup_stable_decay without t_decay",
			mutate: func(doc map[string]any) {
				delete(child(doc, "scheduler"), "t_decay")
			},
			wantErr: "t_decay",
		},
		{
			name: "alpha_f out of range",
			mutate: func(doc map[string]any) {
				child(doc, "scheduler")["alpha_f"] = 1.2
			},
			wantErr: "alpha_f",
		},
		{
			name: "unknown optimizer",
			mutate: func(doc map[string]any) {
				child(doc, "optimizer")["name"] = "sgd_turbo"
			},
			wantErr: "unknown optimizer",
		},
		{
			name: "wrong betas arity",
			mutate: func(doc map[string]any) {
				child(doc, "optimizer")["betas"] = []any{0.9}
			},
			wantErr: "betas",
		},
		{
			name: "bad clipping type",
			mutate: func(doc map[string]any) {
				child(doc, "algorithms", "gradient_clipping")["clipping_type"] = "soft"
			},
			wantErr: "clipping_type",
		},
		{
			name: "unknown callback",
			mutate: func(doc map[string]any) {
				child(doc, "callbacks")["memory_snapshot"] = map[string]any{}
			},
			wantErr: "unknown callback",
		},
		{
			name: "hf_sync without repo_id",
			mutate: func(doc map[string]any) {
				delete(child(doc, "callbacks", "hf_sync"), "repo_id")
			},
			wantErr: "repo_id",
		},
		{
			name: "wandb without project",
			mutate: func(doc map[string]any) {
				delete(child(doc, "loggers", "wandb"), "project")
			},
			wantErr: "project",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := mutateFixture(t, tt.mutate)
			require.NoError(t, err)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateStreams(t *testing.T) {
	cfg, err := mutateFixture(t, func(doc map[string]any) {
		ds := child(doc, "train_loader", "dataset")
		ds["streams"] = map[string]any{
			"c4": map[string]any{
				"remote":     "s3://bert-data/mds/c4",
				"proportion": 0.7,
			},
			"wiki": map[string]any{
				"remote":     "s3://bert-data/mds/wiki",
				"proportion": 0.3,
			},
		}
	})
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	cfg, err = mutateFixture(t, func(doc map[string]any) {
		ds := child(doc, "train_loader", "dataset")
		ds["streams"] = map[string]any{
			"c4": map[string]any{
				"remote":     "s3://bert-data/mds/c4",
				"proportion": 0.7,
				"repeat":     2.0,
			},
		}
	})
	require.NoError(t, err)
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestValidateEvalIntervalRequired(t *testing.T) {
	cfg, err := mutateFixture(t, func(doc map[string]any) {
		delete(doc, "eval_interval")
	})
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eval_interval")
}
