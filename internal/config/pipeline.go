package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	pkgerrors "reconpipe/pkg/errors"
)

// Port-scan placement relative to the web-probe stage. Both orderings are
// valid operating modes; the choice is explicit configuration, never guessed.
const (
	PortScanBeforeProbe = "before-probe"
	PortScanAfterProbe  = "after-probe"
)

// ToolConfig describes one external tool backing a capability. Args entries
// may contain the placeholders {{domain}}, {{input}} and {{output}}, which
// are substituted per invocation.
type ToolConfig struct {
	Name    string   `mapstructure:"name" yaml:"name"`
	Command string   `mapstructure:"command" yaml:"command"`
	Args    []string `mapstructure:"args" yaml:"args"`
}

// CapabilityConfig groups the tools configured for one capability.
type CapabilityConfig struct {
	Tools []ToolConfig `mapstructure:"tools" yaml:"tools"`
}

// PipelineConfig carries everything the sequencer and executor need:
// batching limits, worker pool size, execution budgets and the tool
// definitions behind each capability.
type PipelineConfig struct {
	Workspace     string                      `mapstructure:"workspace" yaml:"workspace"`
	BatchSize     int                         `mapstructure:"batch_size" yaml:"batch_size"`
	Workers       int                         `mapstructure:"workers" yaml:"workers"`
	PortScanOrder string                      `mapstructure:"port_scan_order" yaml:"port_scan_order"`
	SoftBudget    time.Duration               `mapstructure:"soft_budget" yaml:"soft_budget"`
	HardBudget    time.Duration               `mapstructure:"hard_budget" yaml:"hard_budget"`
	MaxConcurrent int                         `mapstructure:"max_concurrent_scans" yaml:"max_concurrent_scans"`
	Capabilities  map[string]CapabilityConfig `mapstructure:"capabilities" yaml:"capabilities"`
}

// LoadPipelineConfig reads the pipeline configuration from the given
// directory (pipeline.yaml), falling back to defaults for anything unset.
func LoadPipelineConfig(configPath string) (*PipelineConfig, error) {
	v := viper.New()
	v.SetConfigName("pipeline")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	v.SetDefault("workspace", "./scans")
	v.SetDefault("batch_size", 50)
	v.SetDefault("workers", 4)
	v.SetDefault("port_scan_order", PortScanAfterProbe)
	v.SetDefault("soft_budget", "10m")
	v.SetDefault("hard_budget", "15m")
	v.SetDefault("max_concurrent_scans", 2)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read pipeline config: %w", err)
		}
	}

	var cfg PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the tunables that would otherwise fail deep inside a run.
func (c *PipelineConfig) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch_size must be >= 1, got %d", pkgerrors.ErrInvalidConfig, c.BatchSize)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", pkgerrors.ErrInvalidConfig, c.Workers)
	}
	if c.PortScanOrder != PortScanBeforeProbe && c.PortScanOrder != PortScanAfterProbe {
		return fmt.Errorf("%w: port_scan_order must be %q or %q, got %q",
			pkgerrors.ErrInvalidConfig, PortScanBeforeProbe, PortScanAfterProbe, c.PortScanOrder)
	}
	if c.SoftBudget > 0 && c.HardBudget > 0 && c.HardBudget < c.SoftBudget {
		return fmt.Errorf("%w: hard_budget %s is shorter than soft_budget %s",
			pkgerrors.ErrInvalidConfig, c.HardBudget, c.SoftBudget)
	}
	return nil
}
