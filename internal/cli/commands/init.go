package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// starterConfig is the scaffold `bertrun init` writes: a ModernBERT-base
// pretraining recipe with the common knobs present and interpolation wired.
const starterConfig = `data_local: /tmp/mds/text
data_remote: # e.g. s3://bucket/mds/text
max_seq_len: 1024
tokenizer_name: bclavie/olmo_bert_template
mlm_probability: 0.3
count_padding_tokens: false

run_name: modernbert-base-pretrain
lr: 8.0e-4
t_warmup: 3000000000tok
max_duration: 1719900000000tok
eval_interval: 2000ba
global_train_batch_size: 4608
global_eval_batch_size: 512
seed: 17
device_eval_batch_size: 128
device_train_microbatch_size: 96
precision: amp_bf16
progress_bar: false
log_to_console: true
console_log_interval: 100ba
save_interval: 3500ba
save_num_checkpoints_to_keep: -1
save_folder: checkpoints/${run_name}
autoresume: true

model:
  name: flex_bert
  pretrained_model_name: bert-base-uncased
  tokenizer_name: ${tokenizer_name}
  model_config:
    vocab_size: 50368
    num_hidden_layers: 22
    hidden_size: 768
    intermediate_size: 1152
    num_attention_heads: 12
    attention_layer: rope
    global_attn_every_n_layers: 3
    sliding_window: 128
    rotary_emb_base: 160000
    normalization: layernorm
    hidden_act: gelu
    padding: unpadded
    loss_function: fa_cross_entropy

train_loader:
  name: text
  dataset:
    local: ${data_local}
    remote: ${data_remote}
    split: train
    tokenizer_name: ${tokenizer_name}
    max_seq_len: ${max_seq_len}
    shuffle: true
    mlm_probability: ${mlm_probability}
    eos_token_id: 50282
  drop_last: true
  num_workers: 6
  sequence_packing: true

scheduler:
  name: warmup_stable_decay
  t_warmup: ${t_warmup}
  alpha_f: 0.0
  t_decay: 85995000000tok

optimizer:
  name: decoupled_stableadamw
  lr: ${lr}
  betas:
    - 0.9
    - 0.98
  eps: 1.0e-6
  weight_decay: 1.0e-5
  filter_bias_norm_wd: true

algorithms:
  gradient_clipping:
    clipping_type: norm
    clipping_threshold: 1.0

callbacks:
  speed_monitor:
    window_size: 100

loggers:
  wandb:
    project: modernbert
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter run config",
		Long:  `Init writes a ModernBERT-base starter run config to the given path (default: run.yaml).`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "run.yaml"
			if len(args) == 1 {
				path = args[0]
			}

			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}
			if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}
