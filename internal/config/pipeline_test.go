package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "reconpipe/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pipeline.yaml"), []byte(content), 0o644))
	return dir
}

func TestLoadPipelineConfigDefaults(t *testing.T) {
	cfg, err := LoadPipelineConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, PortScanAfterProbe, cfg.PortScanOrder)
	assert.Equal(t, 10*time.Minute, cfg.SoftBudget)
	assert.Equal(t, 15*time.Minute, cfg.HardBudget)
	assert.Equal(t, 2, cfg.MaxConcurrent)
}

func TestLoadPipelineConfigFromFile(t *testing.T) {
	dir := writeConfig(t, `
batch_size: 25
workers: 8
port_scan_order: before-probe
soft_budget: 2m
hard_budget: 5m
capabilities:
  subdomain-discovery:
    tools:
      - name: subfinder
        command: subfinder
        args: ["-d", "{{domain}}", "-o", "{{output}}"]
`)

	cfg, err := LoadPipelineConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, PortScanBeforeProbe, cfg.PortScanOrder)
	assert.Equal(t, 2*time.Minute, cfg.SoftBudget)

	require.Contains(t, cfg.Capabilities, "subdomain-discovery")
	tools := cfg.Capabilities["subdomain-discovery"].Tools
	require.Len(t, tools, 1)
	assert.Equal(t, "subfinder", tools[0].Name)
	assert.Contains(t, tools[0].Args, "{{domain}}")
}

func TestLoadPipelineConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Zero Batch Size", "batch_size: 0"},
		{"Zero Workers", "workers: 0"},
		{"Unknown Port Scan Order", "port_scan_order: whenever"},
		{"Hard Budget Below Soft", "soft_budget: 10m\nhard_budget: 1m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeConfig(t, tt.content)
			_, err := LoadPipelineConfig(dir)
			assert.ErrorIs(t, err, pkgerrors.ErrInvalidConfig)
		})
	}
}
