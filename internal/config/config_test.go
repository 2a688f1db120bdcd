package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBytes(t *testing.T) {
	src := `
windows {
  max_alert_window_idle_ms = 30000
}

ruleset {
  max_rules = 5
}

dataset "nb15" {
  path        = "data/nb15/nb15.csv"
  predictions = "results/nids/rf_nb15_seed42_pred.csv"
}

critical_subnets = ["10.0.0.0/8"]
`
	cf, err := LoadBytes("test.hcl", []byte(src))
	require.NoError(t, err)

	cfg := cf.Config
	assert.Equal(t, int64(30000), cfg.Windows.MaxAlertIdleMs)
	// Unset fields fall back to defaults.
	assert.Equal(t, int64(600000), cfg.Windows.MaxAlertLenMs)
	assert.Equal(t, 5, cfg.Ruleset.MaxRules)
	assert.Equal(t, int64(1800000), cfg.Replay.UpdateTimeMs)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.CriticalSubnets)

	ds := cfg.Dataset("nb15")
	require.NotNil(t, ds)
	assert.Equal(t, "data/nb15/nb15.csv", ds.Path)
	assert.Nil(t, cfg.Dataset("missing"))
}

func TestLoadBytesInvalidHCL(t *testing.T) {
	_, err := LoadBytes("bad.hcl", []byte("windows {"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"NegativeMaxRules", func(c *Config) { c.Ruleset.MaxRules = -1 }, "max_rules"},
		{"BadFPR", func(c *Config) { c.Replay.FPR = 1.5 }, "fpr"},
		{"BadEps", func(c *Config) { c.Heuristic.Eps = -0.5 }, "eps"},
		{"BadAttempts", func(c *Config) { c.Agent.MaxAttempts = -3 }, "max_attempts"},
		{"BadSubnet", func(c *Config) { c.CriticalSubnets = []string{"not-a-cidr"} }, "critical subnet"},
		{"DatasetNoPath", func(c *Config) { c.Datasets = []DatasetConfig{{Name: "x"}} }, "path"},
		{
			"DuplicateDataset",
			func(c *Config) {
				c.Datasets = []DatasetConfig{{Name: "x", Path: "a"}, {Name: "x", Path: "b"}}
			},
			"duplicate",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestDefaultHCLRoundTrip(t *testing.T) {
	data := DefaultHCL()
	require.True(t, strings.Contains(string(data), "critical_subnets"))

	cf, err := LoadBytes("default.hcl", data)
	require.NoError(t, err)

	d := Default()
	assert.Equal(t, d.Windows, cf.Config.Windows)
	assert.Equal(t, d.Ruleset, cf.Config.Ruleset)
	assert.Equal(t, d.Agent, cf.Config.Agent)
	assert.Equal(t, d.CriticalSubnets, cf.Config.CriticalSubnets)
}
