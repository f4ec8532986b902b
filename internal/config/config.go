package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"studiohub/internal/domain"
)

// Config models studiohub.yml.
type Config struct {
	Workspace struct {
		Name string `yaml:"name"`
	} `yaml:"workspace"`
	Plans   map[domain.PlanTier]Plan `yaml:"plans"`
	Scoring Scoring                  `yaml:"scoring"`
	Storage Storage                  `yaml:"storage"`
	Server  Server                   `yaml:"server"`
}

// Plan is a billing tier with its attachment byte ceiling.
type Plan struct {
	QuotaBytes int64 `yaml:"quota_bytes"`
}

// Scoring holds the weights behind the presentation-only productivity
// heuristics. The formulas are not load-bearing and are deliberately
// configurable rather than fixed.
type Scoring struct {
	CompletionWeight float64 `yaml:"completion_weight"`
	ProgressWeight   float64 `yaml:"progress_weight"`
	OverduePenalty   float64 `yaml:"overdue_penalty"`
}

// Storage configures the blob storage collaborator.
type Storage struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Server configures the HTTP API.
type Server struct {
	Addr      string `yaml:"addr"`
	JWTSecret string `yaml:"jwt_secret"`
}

// Path returns the config file path for a workspace directory.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "studiohub.yml")
}

// Load reads and validates config from the workspace, falling back to
// defaults when the file does not exist.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes. Omitted plans
// and scoring weights fall back to defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if len(c.Plans) == 0 {
		return fmt.Errorf("config.plans is required")
	}
	for tier, plan := range c.Plans {
		if !domain.ValidPlanTier(tier) {
			return fmt.Errorf("config.plans contains unknown tier %s", tier)
		}
		if plan.QuotaBytes <= 0 {
			return fmt.Errorf("plan %s must have a positive quota_bytes", tier)
		}
	}
	for _, tier := range []domain.PlanTier{domain.PlanFree, domain.PlanPro, domain.PlanAgency} {
		if _, ok := c.Plans[tier]; !ok {
			return fmt.Errorf("config.plans must define tier %s", tier)
		}
	}
	if c.Scoring.CompletionWeight < 0 || c.Scoring.ProgressWeight < 0 || c.Scoring.OverduePenalty < 0 {
		return fmt.Errorf("config.scoring weights must be nonnegative")
	}
	return nil
}

// Quota returns the byte ceiling for a plan tier. Unknown tiers get the
// free ceiling.
func (c *Config) Quota(tier domain.PlanTier) int64 {
	if plan, ok := c.Plans[tier]; ok {
		return plan.QuotaBytes
	}
	return c.Plans[domain.PlanFree].QuotaBytes
}

// Default returns the default Config struct.
func Default() *Config {
	cfg := &Config{}
	cfg.Workspace.Name = "Studio Hub"
	cfg.Plans = map[domain.PlanTier]Plan{
		domain.PlanFree:   {QuotaBytes: 10 << 20},
		domain.PlanPro:    {QuotaBytes: 10 << 30},
		domain.PlanAgency: {QuotaBytes: 100 << 30},
	}
	cfg.Scoring = Scoring{
		CompletionWeight: 10,
		ProgressWeight:   0.5,
		OverduePenalty:   5,
	}
	cfg.Storage.Bucket = "studiohub-files"
	cfg.Server.Addr = ":8484"
	return cfg
}

// GenerateDefault returns default config YAML for `hub init`.
func GenerateDefault() string {
	out, _ := yaml.Marshal(Default())
	return string(out)
}
