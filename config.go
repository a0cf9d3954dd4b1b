package approvals

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/approvals/service/decision"
	"github.com/viant/approvals/service/escalation"
	"github.com/viant/approvals/service/notification"
	"github.com/viant/approvals/service/orchestrator"
	"github.com/viant/approvals/service/risk"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the engine configuration. It
// can be populated from JSON or YAML. The zero-value is useful; all nested
// fields inherit their package defaults.
type Config struct {
	Orchestrator orchestrator.Config        `json:"orchestrator" yaml:"orchestrator"`
	Risk         risk.Config                `json:"risk" yaml:"risk"`
	Decision     decision.Config            `json:"decision" yaml:"decision"`
	Escalation   escalation.Config          `json:"escalation" yaml:"escalation"`
	Webhook      notification.WebhookConfig `json:"webhook,omitempty" yaml:"webhook,omitempty"`
	// StoreBaseURL enables filesystem persistence when set; any afs scheme
	// works (file, mem, s3, gs).
	StoreBaseURL string `json:"storeBaseURL,omitempty" yaml:"storeBaseURL,omitempty"`
}

// DefaultConfig returns a Config populated with every package default.
func DefaultConfig() *Config {
	return &Config{
		Orchestrator: orchestrator.DefaultConfig(),
		Risk:         risk.DefaultConfig(),
		Decision:     decision.DefaultConfig(),
		Escalation:   escalation.DefaultConfig(),
	}
}

// Validate returns an aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Orchestrator.Capacity < 0 {
		return fmt.Errorf("orchestrator.capacity must be >= 0")
	}
	if c.Decision.QualityFloor < 0 || c.Decision.QualityFloor > 100 {
		return fmt.Errorf("decision.qualityFloor must be within 0..100")
	}
	if c.Orchestrator.DefaultQuorum < 0 || c.Orchestrator.DefaultQuorum > 1 {
		return fmt.Errorf("orchestrator.defaultQuorum must be within 0..1")
	}
	return nil
}

// LoadConfig reads a YAML configuration from any afs-supported URL.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", URL, err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", URL, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
