package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chtemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	chtemp(t)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultStateFile, cfg.StatePath)
	assert.Equal(t, "https://huggingface.co", cfg.Endpoint)
	assert.Equal(t, DefaultWorldSize, cfg.WorldSize)
	assert.Equal(t, "table", cfg.Output)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfigFile(t *testing.T) {
	dir := chtemp(t)
	path := filepath.Join(dir, "bertrun.yaml")
	require.NoError(t, os.WriteFile(path, []byte("state_path: /var/lib/bertrun.db\nworld_size: 16\n"), 0o644))

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/bertrun.db", cfg.StatePath)
	assert.Equal(t, 16, cfg.WorldSize)
	assert.Equal(t, path, filepath.Join(dir, GetConfigFileUsed()))
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	chtemp(t)
	require.NoError(t, os.WriteFile("bertrun.yaml", []byte("world_size: 16\n"), 0o644))
	t.Setenv("BERTRUN_WORLD_SIZE", "32")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.WorldSize)
}

func TestLoadConfigFlagsWin(t *testing.T) {
	chtemp(t)
	t.Setenv("BERTRUN_OUTPUT", "yaml")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "", "")
	flags.String("state", "", "")
	require.NoError(t, flags.Parse([]string{"--output=json", "--state=ledger.db"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, "ledger.db", cfg.StatePath)
}

func TestLoadConfigHFTokenFallback(t *testing.T) {
	chtemp(t)
	t.Setenv("HF_TOKEN", "hf_fallback")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "hf_fallback", cfg.HFToken)

	t.Setenv("BERTRUN_HF_TOKEN", "hf_explicit")
	cfg, err = LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "hf_explicit", cfg.HFToken)
}
