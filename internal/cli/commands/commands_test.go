package commands

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlpforge/bertrun/internal/cli/config"
	"github.com/nlpforge/bertrun/internal/testutil"
)

func testToolConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		StatePath: filepath.Join(t.TempDir(), "state.db"),
		Output:    "table",
		WorldSize: 8,
	}
}

func execCommand(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)

	ctx := WithConfig(context.Background(), cfg)
	ctx = config.WithLogger(ctx, slog.New(slog.DiscardHandler))
	err := cmd.ExecuteContext(ctx)
	return buf.String(), err
}

// writeStarter writes the init scaffold into a temp dir and returns its path.
func writeStarter(t *testing.T, cfg *config.Config) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	out, err := execCommand(t, NewInitCommand(), cfg, path)
	require.NoError(t, err)
	require.Contains(t, out, "Wrote")
	return path
}

func TestInitRefusesOverwrite(t *testing.T) {
	cfg := testToolConfig(t)
	path := writeStarter(t, cfg)

	_, err := execCommand(t, NewInitCommand(), cfg, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execCommand(t, NewInitCommand(), cfg, path, "--force")
	assert.NoError(t, err)
}

func TestValidateCommand(t *testing.T) {
	cfg := testToolConfig(t)
	path := writeStarter(t, cfg)

	out, err := execCommand(t, NewValidateCommand(), cfg, path)
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
	assert.Contains(t, out, "modernbert-base-pretrain")
}

func TestValidateCommandBadConfig(t *testing.T) {
	cfg := testToolConfig(t)
	path := testutil.WriteRunConfig(t, "run_name: x\nmax_len: 512\n")

	_, err := execCommand(t, NewValidateCommand(), cfg, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_len")
}

func TestResolveCommand(t *testing.T) {
	cfg := testToolConfig(t)
	path := writeStarter(t, cfg)

	out, err := execCommand(t, NewResolveCommand(), cfg, path)
	require.NoError(t, err)
	assert.Contains(t, out, "save_folder: checkpoints/modernbert-base-pretrain")
	assert.NotContains(t, out, "${run_name}")
}

func TestResolveCommandJSON(t *testing.T) {
	cfg := testToolConfig(t)
	cfg.Output = "json"
	path := writeStarter(t, cfg)

	out, err := execCommand(t, NewResolveCommand(), cfg, path)
	require.NoError(t, err)
	assert.Contains(t, out, `"run_name": "modernbert-base-pretrain"`)
}

func TestPlanCommand(t *testing.T) {
	cfg := testToolConfig(t)
	cfg.Output = "json"
	path := writeStarter(t, cfg)

	out, err := execCommand(t, NewPlanCommand(), cfg, path)
	require.NoError(t, err)
	assert.Contains(t, out, `"total_tokens": 1719900000000`)
	assert.Contains(t, out, `"run_name": "modernbert-base-pretrain"`)
}

func TestSchemaCommand(t *testing.T) {
	cfg := testToolConfig(t)

	out, err := execCommand(t, NewSchemaCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "flex_bert")
	assert.Contains(t, out, "warmup_stable_decay")
	assert.Contains(t, out, "amp_bf16")

	out, err = execCommand(t, NewSchemaCommand(), cfg, "optimizer")
	require.NoError(t, err)
	assert.Contains(t, out, "decoupled_stableadamw")
	assert.NotContains(t, out, "flex_bert")
}

func TestRunsLifecycle(t *testing.T) {
	cfg := testToolConfig(t)
	path := writeStarter(t, cfg)

	out, err := execCommand(t, NewRunsCommand(), cfg, "start", path)
	require.NoError(t, err)
	require.Contains(t, out, "Started run modernbert-base-pretrain")

	m := regexp.MustCompile(`\(([0-9a-f-]{36})\)`).FindStringSubmatch(out)
	require.NotNil(t, m, "run id in output: %s", out)
	runID := m[1]

	// The starter sets autoresume, so starting again resumes.
	out, err = execCommand(t, NewRunsCommand(), cfg, "start", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Resuming run")

	out, err = execCommand(t, NewRunsCommand(), cfg, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "modernbert-base-pretrain")
	assert.Contains(t, out, "running")

	out, err = execCommand(t, NewRunsCommand(), cfg, "checkpoints", runID)
	require.NoError(t, err)
	assert.Contains(t, out, "no checkpoints")

	out, err = execCommand(t, NewRunsCommand(), cfg, "complete", runID)
	require.NoError(t, err)
	assert.Contains(t, out, "completed")

	out, err = execCommand(t, NewRunsCommand(), cfg, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")
}

func TestRunsCompleteWithError(t *testing.T) {
	cfg := testToolConfig(t)
	path := writeStarter(t, cfg)

	out, err := execCommand(t, NewRunsCommand(), cfg, "start", path)
	require.NoError(t, err)
	m := regexp.MustCompile(`\(([0-9a-f-]{36})\)`).FindStringSubmatch(out)
	require.NotNil(t, m)

	out, err = execCommand(t, NewRunsCommand(), cfg, "complete", m[1], "--error", "loss diverged")
	require.NoError(t, err)
	assert.Contains(t, out, "failed")
}

func TestVersionCommand(t *testing.T) {
	cfg := testToolConfig(t)
	out, err := execCommand(t, NewVersionCommand("1.2.3", "today", "abc"), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "bertrun 1.2.3")
}
