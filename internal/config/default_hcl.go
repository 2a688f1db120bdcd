package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// DefaultHCL renders the default configuration as commented HCL source,
// suitable for seeding a new installation.
func DefaultHCL() []byte {
	d := Default()
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	windows := body.AppendNewBlock("windows", nil).Body()
	windows.SetAttributeValue("max_alert_window_idle_ms", cty.NumberIntVal(d.Windows.MaxAlertIdleMs))
	windows.SetAttributeValue("max_alert_window_len_ms", cty.NumberIntVal(d.Windows.MaxAlertLenMs))
	windows.SetAttributeValue("benign_traffic_window_len_ms", cty.NumberIntVal(d.Windows.BenignLenMs))
	body.AppendNewline()

	ruleset := body.AppendNewBlock("ruleset", nil).Body()
	ruleset.SetAttributeValue("max_rules", cty.NumberIntVal(int64(d.Ruleset.MaxRules)))
	body.AppendNewline()

	replay := body.AppendNewBlock("replay", nil).Body()
	replay.SetAttributeValue("update_time_ms", cty.NumberIntVal(d.Replay.UpdateTimeMs))
	replay.SetAttributeValue("seed", cty.NumberIntVal(int64(d.Replay.Seed)))
	replay.SetAttributeValue("fpr", cty.NumberFloatVal(d.Replay.FPR))
	body.AppendNewline()

	heuristic := body.AppendNewBlock("heuristic", nil).Body()
	heuristic.SetAttributeValue("eps", cty.NumberFloatVal(d.Heuristic.Eps))
	body.AppendNewline()

	llm := body.AppendNewBlock("llm", nil).Body()
	llm.SetAttributeValue("address", cty.StringVal(d.LLM.Address))
	llm.SetAttributeValue("model", cty.StringVal(d.LLM.Model))
	llm.SetAttributeValue("num_ctx", cty.NumberIntVal(int64(d.LLM.NumCtx)))
	llm.SetAttributeValue("k_prompt", cty.NumberIntVal(int64(d.LLM.KPrompt)))
	body.AppendNewline()

	agent := body.AppendNewBlock("agent", nil).Body()
	agent.SetAttributeValue("target_cbr", cty.NumberFloatVal(d.Agent.TargetCBR))
	agent.SetAttributeValue("target_wbr", cty.NumberFloatVal(d.Agent.TargetWBR))
	agent.SetAttributeValue("max_attempts", cty.NumberIntVal(int64(d.Agent.MaxAttempts)))
	body.AppendNewline()

	results := body.AppendNewBlock("results", nil).Body()
	results.SetAttributeValue("dir", cty.StringVal(d.Results.Dir))
	body.AppendNewline()

	subnets := make([]cty.Value, len(d.CriticalSubnets))
	for i, s := range d.CriticalSubnets {
		subnets[i] = cty.StringVal(s)
	}
	body.SetAttributeValue("critical_subnets", cty.ListVal(subnets))

	return f.Bytes()
}

// WriteDefault writes the default configuration to path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := os.WriteFile(path, DefaultHCL(), 0644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}
