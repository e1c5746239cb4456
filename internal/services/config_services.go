package services

import (
	"github.com/sirupsen/logrus"

	"reconpipe/internal/config"
	"reconpipe/pkg/logger"
)

// CapabilitySummary describes one configured capability for the API.
type CapabilitySummary struct {
	Capability string   `json:"capability"`
	Tools      []string `json:"tools"`
}

type ConfigServiceMethods interface {
	GetCapabilities() []CapabilitySummary
	GetSettings() map[string]interface{}
}

type configService struct {
	cfg *config.PipelineConfig
	log *logger.Logger
}

func NewConfigService(cfg *config.PipelineConfig) ConfigServiceMethods {
	return &configService{
		cfg: cfg,
		log: logger.NewLogger(logrus.InfoLevel),
	}
}

func (c *configService) GetCapabilities() []CapabilitySummary {
	summaries := make([]CapabilitySummary, 0, len(c.cfg.Capabilities))
	for name, capCfg := range c.cfg.Capabilities {
		tools := make([]string, 0, len(capCfg.Tools))
		for _, tool := range capCfg.Tools {
			tools = append(tools, tool.Name)
		}
		summaries = append(summaries, CapabilitySummary{Capability: name, Tools: tools})
	}
	return summaries
}

func (c *configService) GetSettings() map[string]interface{} {
	return map[string]interface{}{
		"batch_size":           c.cfg.BatchSize,
		"workers":              c.cfg.Workers,
		"port_scan_order":      c.cfg.PortScanOrder,
		"soft_budget":          c.cfg.SoftBudget.String(),
		"hard_budget":          c.cfg.HardBudget.String(),
		"max_concurrent_scans": c.cfg.MaxConcurrent,
	}
}
