package cmd

import (
	"fmt"

	"grimm.is/nirs/internal/brand"
	"grimm.is/nirs/internal/config"
)

// RunCheck validates the configuration file syntax and semantics.
func RunCheck(configFile string, verbose bool) error {
	if configFile == "" {
		return fmt.Errorf("usage: %s check [-v] <config-file>", brand.BinaryName)
	}

	cf, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	cfg := cf.Config
	fmt.Println("Configuration valid!")
	fmt.Printf("Datasets: %d\n", len(cfg.Datasets))
	fmt.Printf("Critical subnets: %d\n", len(cfg.CriticalSubnets))
	fmt.Printf("Max rules: %d\n", cfg.Ruleset.MaxRules)
	fmt.Printf("Update interval: %d ms\n", cfg.Replay.UpdateTimeMs)

	if verbose {
		fmt.Println()
		fmt.Printf("Alert window: idle %d ms, span %d ms\n",
			cfg.Windows.MaxAlertIdleMs, cfg.Windows.MaxAlertLenMs)
		fmt.Printf("Benign window: %d ms\n", cfg.Windows.BenignLenMs)
		fmt.Printf("Heuristic eps: %g\n", cfg.Heuristic.Eps)
		fmt.Printf("LLM: %s @ %s (num_ctx %d, k %d)\n",
			cfg.LLM.Model, cfg.LLM.Address, cfg.LLM.NumCtx, cfg.LLM.KPrompt)
		fmt.Printf("Agent: CBR >= %.2f, WBR <= %.2f, max %d attempts\n",
			cfg.Agent.TargetCBR, cfg.Agent.TargetWBR, cfg.Agent.MaxAttempts)
		for _, d := range cfg.Datasets {
			fmt.Printf("Dataset %q: %s\n", d.Name, d.Path)
		}
	}
	return nil
}
