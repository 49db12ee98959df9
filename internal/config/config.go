package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"retcheck/internal/analysis"
)

// FileName is looked up in the working directory when no config path is given
const FileName = "retcheck.yaml"

type PolicyConfig struct {
	MaxCheckDepth  int              `yaml:"max_check_depth"`
	StrictJoin     bool             `yaml:"strict_join"`
	LogsAreEffects bool             `yaml:"logs_are_effects"`
	ExitIsEffect   bool             `yaml:"exit_is_effect"`
	Summaries      map[string][]int `yaml:"helper_summaries"`
}

type Config struct {
	Policy   PolicyConfig  `yaml:"policy"`
	Severity string        `yaml:"severity"`
	Workers  int           `yaml:"workers"`
	Timeout  time.Duration `yaml:"timeout"`
	Format   string        `yaml:"format"`
}

// DefaultConfig returns the settings used when no file is present
func DefaultConfig() *Config {
	return &Config{
		Policy:   PolicyConfig{MaxCheckDepth: analysis.DefaultMaxCheckDepth},
		Severity: analysis.SeverityLow.String(),
		Format:   "text",
	}
}

// Load reads a config file over the defaults. An empty path looks for
// FileName in the working directory and falls back to the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		if _, err := os.Stat(FileName); err != nil {
			return cfg, nil
		}
		path = FileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate rejects settings the analysis cannot honor
func (c *Config) Validate() error {
	var errs []error
	if c.Policy.MaxCheckDepth < 0 {
		errs = append(errs, fmt.Errorf("policy.max_check_depth must not be negative, got %d", c.Policy.MaxCheckDepth))
	}
	for callee, args := range c.Policy.Summaries {
		for _, idx := range args {
			if idx < 0 {
				errs = append(errs, fmt.Errorf("policy.helper_summaries.%s: argument index %d is negative", callee, idx))
			}
		}
	}
	if _, err := analysis.ParseSeverity(c.Severity); err != nil {
		errs = append(errs, fmt.Errorf("severity: %w", err))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	switch c.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("format must be text or json, got %q", c.Format))
	}
	return errors.Join(errs...)
}

// AnalysisPolicy converts the policy section for the analyzer
func (c *Config) AnalysisPolicy() analysis.Policy {
	policy := analysis.Policy{
		MaxCheckDepth:  c.Policy.MaxCheckDepth,
		StrictJoin:     c.Policy.StrictJoin,
		LogsAreEffects: c.Policy.LogsAreEffects,
		ExitIsEffect:   c.Policy.ExitIsEffect,
	}
	if len(c.Policy.Summaries) > 0 {
		policy.Summaries = analysis.SummaryTable(c.Policy.Summaries)
	}
	return policy
}

// Threshold is the lowest severity that is reported. Call Validate first.
func (c *Config) Threshold() analysis.Severity {
	severity, err := analysis.ParseSeverity(c.Severity)
	if err != nil {
		return analysis.SeverityLow
	}
	return severity
}
