package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retcheck/internal/analysis"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, analysis.DefaultPolicy(), cfg.AnalysisPolicy())
	assert.Equal(t, analysis.SeverityLow, cfg.Threshold())
	assert.Equal(t, "text", cfg.Format)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
policy:
  max_check_depth: 2
  strict_join: true
  exit_is_effect: true
  helper_summaries:
    _verifyCallResult: [0]
severity: medium
workers: 3
timeout: 30s
format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Policy.MaxCheckDepth)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, analysis.SeverityMedium, cfg.Threshold())

	policy := cfg.AnalysisPolicy()
	assert.True(t, policy.StrictJoin)
	assert.True(t, policy.ExitIsEffect)
	assert.False(t, policy.LogsAreEffects)
	require.NotNil(t, policy.Summaries)
	assert.True(t, policy.Summaries.ChecksArgument("_verifyCallResult", 0))
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := Load(writeConfig(t, "workers: 8\n"))
	require.NoError(t, err)
	assert.Equal(t, analysis.DefaultMaxCheckDepth, cfg.Policy.MaxCheckDepth)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, 8, cfg.Workers)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "policy:\n  strict_joins: true\n"))
	assert.ErrorContains(t, err, "strict_joins")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.MaxCheckDepth = -1
	cfg.Severity = "critical"
	cfg.Workers = -2
	cfg.Format = "xml"
	cfg.Policy.Summaries = map[string][]int{"h": {-1}}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"max_check_depth", "severity", "workers", "format", "argument index"} {
		assert.ErrorContains(t, err, want)
	}
}
