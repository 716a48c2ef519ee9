package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewReturnsAllDefaults(t *testing.T) {
	cfg := New()

	require.Equal(t, "gpt-4o-mini", cfg.Judge.Model)
	require.Equal(t, "redis://localhost:6379", cfg.Redis.URL)
	require.Equal(t, "loopless", cfg.Redis.Prefix)
	require.Equal(t, 4, cfg.Eval.Workers)
	require.Equal(t, 20, cfg.Eval.RunLimit)
}

func TestLoadNoFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, New(), cfg)
}

func TestLoadMergesFileOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
judge:
  model: gpt-5
redis:
  prefix: staging
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".loopcheck.yaml"), content, 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, "gpt-5", cfg.Judge.Model)
	require.Equal(t, "staging", cfg.Redis.Prefix)
	// Untouched fields keep defaults.
	require.Equal(t, DefaultRedisURL, cfg.Redis.URL)
	require.Equal(t, DefaultWorkers, cfg.Eval.Workers)
}

func TestLoadWalksUpToParent(t *testing.T) {
	parent := t.TempDir()
	child := filepath.Join(parent, "a", "b")
	require.NoError(t, os.MkdirAll(child, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(parent, ".loopcheck.yaml"),
		[]byte("eval:\n  run_limit: 50\n"), 0644))

	cfg, err := Load(child)
	require.NoError(t, err)
	require.Equal(t, 50, cfg.Eval.RunLimit)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".loopcheck.yaml"),
		[]byte("judge: [unclosed"), 0644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".loopcheck.yaml"),
		[]byte("judge:\n  model: from-file\n"), 0644))

	t.Setenv(EnvJudgeModel, "from-env")
	t.Setenv(EnvRedisURL, "redis://remote:6380")
	t.Setenv(EnvRedisPrefix, "prod")

	cfg, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, "from-env", cfg.Judge.Model)
	require.Equal(t, "redis://remote:6380", cfg.Redis.URL)
	require.Equal(t, "prod", cfg.Redis.Prefix)
}
