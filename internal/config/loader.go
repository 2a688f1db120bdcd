package config

import (
	"fmt"
	"net/netip"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// ConfigFile represents an HCL configuration file with preserved source,
// allowing round-trip display while keeping comments and formatting.
type ConfigFile struct {
	Path     string
	Config   *Config
	hclFile  *hclwrite.File
	original []byte
}

// LoadFile loads an HCL config file, applies defaults and validates.
func LoadFile(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return LoadBytes(path, data)
}

// LoadBytes loads config from bytes, preserving source for round-trip.
func LoadBytes(filename string, data []byte) (*ConfigFile, error) {
	hclFile, diags := hclwrite.ParseConfig(data, filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}

	var cfg Config
	if err := hclsimple.Decode(filename, data, nil, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &ConfigFile{
		Path:     filename,
		Config:   &cfg,
		hclFile:  hclFile,
		original: data,
	}, nil
}

// RawHCL returns the current HCL source as a string.
func (cf *ConfigFile) RawHCL() string {
	return string(cf.hclFile.Bytes())
}

// Validate checks the configuration for semantic errors.
func (c *Config) Validate() error {
	if c.Windows.MaxAlertIdleMs < 0 || c.Windows.MaxAlertLenMs < 0 || c.Windows.BenignLenMs < 0 {
		return fmt.Errorf("window durations must be non-negative")
	}
	if c.Ruleset.MaxRules <= 0 {
		return fmt.Errorf("ruleset max_rules must be positive, got %d", c.Ruleset.MaxRules)
	}
	if c.Replay.UpdateTimeMs <= 0 {
		return fmt.Errorf("replay update_time_ms must be positive, got %d", c.Replay.UpdateTimeMs)
	}
	if c.Replay.FPR < 0 || c.Replay.FPR > 1 {
		return fmt.Errorf("replay fpr must be in [0, 1], got %v", c.Replay.FPR)
	}
	if c.Heuristic.Eps < 0 || c.Heuristic.Eps > 1 {
		return fmt.Errorf("heuristic eps must be in [0, 1], got %v", c.Heuristic.Eps)
	}
	if c.Agent.MaxAttempts <= 0 {
		return fmt.Errorf("agent max_attempts must be positive, got %d", c.Agent.MaxAttempts)
	}
	if c.Agent.TargetCBR < 0 || c.Agent.TargetCBR > 1 {
		return fmt.Errorf("agent target_cbr must be in [0, 1], got %v", c.Agent.TargetCBR)
	}
	if c.Agent.TargetWBR < 0 || c.Agent.TargetWBR > 1 {
		return fmt.Errorf("agent target_wbr must be in [0, 1], got %v", c.Agent.TargetWBR)
	}
	for _, s := range c.CriticalSubnets {
		if _, err := netip.ParsePrefix(s); err != nil {
			return fmt.Errorf("critical subnet %q is not a valid CIDR: %w", s, err)
		}
	}
	seen := make(map[string]bool)
	for _, d := range c.Datasets {
		if d.Name == "" {
			return fmt.Errorf("dataset block requires a name label")
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate dataset %q", d.Name)
		}
		seen[d.Name] = true
		if d.Path == "" {
			return fmt.Errorf("dataset %q requires a path", d.Name)
		}
	}
	return nil
}
