// Package config provides HCL configuration handling for replay runs.
package config

import (
	"time"
)

// Config is the top-level structure for a NIRS configuration.
type Config struct {
	Windows   *WindowsConfig   `hcl:"windows,block" json:"windows,omitempty"`
	Ruleset   *RulesetConfig   `hcl:"ruleset,block" json:"ruleset,omitempty"`
	Replay    *ReplayConfig    `hcl:"replay,block" json:"replay,omitempty"`
	Heuristic *HeuristicConfig `hcl:"heuristic,block" json:"heuristic,omitempty"`
	LLM       *LLMConfig       `hcl:"llm,block" json:"llm,omitempty"`
	Agent     *AgentConfig     `hcl:"agent,block" json:"agent,omitempty"`
	Datasets  []DatasetConfig  `hcl:"dataset,block" json:"datasets,omitempty"`
	Results   *ResultsConfig   `hcl:"results,block" json:"results,omitempty"`
	Metrics   *MetricsConfig   `hcl:"metrics,block" json:"metrics,omitempty"`

	// CriticalSubnets are protected CIDR networks; candidate rules that
	// overlap any of them are rejected by the agent's evaluator.
	CriticalSubnets []string `hcl:"critical_subnets,optional" json:"critical_subnets,omitempty"`
}

// WindowsConfig parameterises the evidence windows.
type WindowsConfig struct {
	MaxAlertIdleMs int64 `hcl:"max_alert_window_idle_ms,optional" json:"max_alert_window_idle_ms"`
	MaxAlertLenMs  int64 `hcl:"max_alert_window_len_ms,optional" json:"max_alert_window_len_ms"`
	BenignLenMs    int64 `hcl:"benign_traffic_window_len_ms,optional" json:"benign_traffic_window_len_ms"`
}

// RulesetConfig bounds the active ruleset.
type RulesetConfig struct {
	MaxRules int `hcl:"max_rules,optional" json:"max_rules"`
}

// ReplayConfig parameterises the scheduler.
type ReplayConfig struct {
	UpdateTimeMs int64 `hcl:"update_time_ms,optional" json:"update_time_ms"`
	Seed         int   `hcl:"seed,optional" json:"seed"`
	FPR          float64 `hcl:"fpr,optional" json:"fpr"`
}

// HeuristicConfig parameterises the frequency-based strategy.
type HeuristicConfig struct {
	// Eps is the max fraction of the benign window a blocked IP may cover.
	Eps float64 `hcl:"eps,optional" json:"eps"`
}

// LLMConfig parameterises the chat model endpoint shared by the llm and
// agent strategies.
type LLMConfig struct {
	Address     string `hcl:"address,optional" json:"address"`
	Model       string `hcl:"model,optional" json:"model"`
	NumCtx      int    `hcl:"num_ctx,optional" json:"num_ctx"`
	KPrompt     int    `hcl:"k_prompt,optional" json:"k_prompt"`
	TimeoutSecs int    `hcl:"timeout_s,optional" json:"timeout_s"`
}

// Timeout returns the request timeout as a duration.
func (c *LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// AgentConfig parameterises the iterative strategy.
type AgentConfig struct {
	TargetCBR   float64 `hcl:"target_cbr,optional" json:"target_cbr"`
	TargetWBR   float64 `hcl:"target_wbr,optional" json:"target_wbr"`
	MaxAttempts int     `hcl:"max_attempts,optional" json:"max_attempts"`
}

// DatasetConfig names a flow corpus and how to load it.
type DatasetConfig struct {
	Name string `hcl:"name,label" json:"name"`
	// Path is the flow CSV.
	Path string `hcl:"path" json:"path"`
	// Manifest is an optional YAML column-mapping file; datasets with a
	// built-in manifest (nb15) may omit it.
	Manifest string `hcl:"manifest,optional" json:"manifest,omitempty"`
	// Predictions is the per-flow NIDS score CSV for this dataset.
	Predictions string `hcl:"predictions,optional" json:"predictions,omitempty"`
}

// ResultsConfig controls run persistence.
type ResultsConfig struct {
	Dir    string `hcl:"dir,optional" json:"dir"`
	DBPath string `hcl:"db_path,optional" json:"db_path,omitempty"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `hcl:"enabled,optional" json:"enabled"`
	Listen  string `hcl:"listen,optional" json:"listen"`
}

// Default returns a configuration carrying the standard experiment
// constants.
func Default() *Config {
	return &Config{
		Windows: &WindowsConfig{
			MaxAlertIdleMs: 60_000,
			MaxAlertLenMs:  600_000,
			BenignLenMs:    600_000,
		},
		Ruleset: &RulesetConfig{MaxRules: 10},
		Replay: &ReplayConfig{
			UpdateTimeMs: 1_800_000,
			Seed:         42,
			FPR:          0.1,
		},
		Heuristic: &HeuristicConfig{Eps: 0.01},
		LLM: &LLMConfig{
			Address:     "http://localhost:11434",
			Model:       "llama3.1:8b",
			NumCtx:      1024,
			KPrompt:     10,
			TimeoutSecs: 300,
		},
		Agent: &AgentConfig{
			TargetCBR:   0.30,
			TargetWBR:   1.00,
			MaxAttempts: 5,
		},
		Results: &ResultsConfig{Dir: "results"},
		Metrics: &MetricsConfig{Enabled: false, Listen: "127.0.0.1:9309"},
		CriticalSubnets: []string{
			"59.166.0.0/24",
			"149.171.126.0/24",
		},
	}
}

// ApplyDefaults fills unset blocks and fields from Default.
func (c *Config) ApplyDefaults() {
	d := Default()
	if c.Windows == nil {
		c.Windows = d.Windows
	} else {
		if c.Windows.MaxAlertIdleMs == 0 {
			c.Windows.MaxAlertIdleMs = d.Windows.MaxAlertIdleMs
		}
		if c.Windows.MaxAlertLenMs == 0 {
			c.Windows.MaxAlertLenMs = d.Windows.MaxAlertLenMs
		}
		if c.Windows.BenignLenMs == 0 {
			c.Windows.BenignLenMs = d.Windows.BenignLenMs
		}
	}
	if c.Ruleset == nil {
		c.Ruleset = d.Ruleset
	} else if c.Ruleset.MaxRules == 0 {
		c.Ruleset.MaxRules = d.Ruleset.MaxRules
	}
	if c.Replay == nil {
		c.Replay = d.Replay
	} else {
		if c.Replay.UpdateTimeMs == 0 {
			c.Replay.UpdateTimeMs = d.Replay.UpdateTimeMs
		}
		if c.Replay.FPR == 0 {
			c.Replay.FPR = d.Replay.FPR
		}
	}
	if c.Heuristic == nil {
		c.Heuristic = d.Heuristic
	} else if c.Heuristic.Eps == 0 {
		c.Heuristic.Eps = d.Heuristic.Eps
	}
	if c.LLM == nil {
		c.LLM = d.LLM
	} else {
		if c.LLM.Address == "" {
			c.LLM.Address = d.LLM.Address
		}
		if c.LLM.Model == "" {
			c.LLM.Model = d.LLM.Model
		}
		if c.LLM.NumCtx == 0 {
			c.LLM.NumCtx = d.LLM.NumCtx
		}
		if c.LLM.KPrompt == 0 {
			c.LLM.KPrompt = d.LLM.KPrompt
		}
		if c.LLM.TimeoutSecs == 0 {
			c.LLM.TimeoutSecs = d.LLM.TimeoutSecs
		}
	}
	if c.Agent == nil {
		c.Agent = d.Agent
	} else {
		if c.Agent.TargetCBR == 0 {
			c.Agent.TargetCBR = d.Agent.TargetCBR
		}
		if c.Agent.TargetWBR == 0 {
			c.Agent.TargetWBR = d.Agent.TargetWBR
		}
		if c.Agent.MaxAttempts == 0 {
			c.Agent.MaxAttempts = d.Agent.MaxAttempts
		}
	}
	if c.Results == nil {
		c.Results = d.Results
	} else if c.Results.Dir == "" {
		c.Results.Dir = d.Results.Dir
	}
	if c.Metrics == nil {
		c.Metrics = d.Metrics
	} else if c.Metrics.Listen == "" {
		c.Metrics.Listen = d.Metrics.Listen
	}
	if c.CriticalSubnets == nil {
		c.CriticalSubnets = d.CriticalSubnets
	}
}

// Dataset returns the dataset block with the given name, or nil.
func (c *Config) Dataset(name string) *DatasetConfig {
	for i := range c.Datasets {
		if c.Datasets[i].Name == name {
			return &c.Datasets[i]
		}
	}
	return nil
}
