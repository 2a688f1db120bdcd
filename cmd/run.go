// Package cmd implements the nirs subcommands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"grimm.is/nirs/internal/brand"
	"grimm.is/nirs/internal/config"
	"grimm.is/nirs/internal/events"
	"grimm.is/nirs/internal/flow"
	"grimm.is/nirs/internal/logging"
	"grimm.is/nirs/internal/metrics"
	"grimm.is/nirs/internal/nirs"
	"grimm.is/nirs/internal/ollama"
	"grimm.is/nirs/internal/replay"
	"grimm.is/nirs/internal/results"
)

// RunOptions collects the run subcommand's flags. Flag values override the
// corresponding config file settings.
type RunOptions struct {
	ConfigFile string
	Dataset    string
	NIDS       string // NIDS identifier, or "ideal" to alert on ground truth
	Strategy   string // base, heuristic, llm, agent

	FPR          float64
	Eps          float64
	KPrompt      int
	TargetCBR    float64
	TargetWBR    float64
	MaxAttempts  int
	UpdateTimeMs int64
	Seed         int
	OutFile      string
}

// RunReplay loads the dataset, replays it through the selected strategy and
// persists the per-flow outcome.
func RunReplay(opts RunOptions) error {
	cfg, err := loadConfig(opts.ConfigFile)
	if err != nil {
		return err
	}
	applyOverrides(cfg, &opts)

	logger := logging.WithComponent("run")

	table, err := loadDataset(cfg, opts.Dataset, opts.NIDS, opts.Seed)
	if err != nil {
		return err
	}
	logger.Info("dataset loaded", "dataset", opts.Dataset, "flows", len(table))

	if opts.NIDS == "ideal" {
		for i := range table {
			table[i].IsAlert = table[i].Label == 1
		}
	} else {
		threshold, err := flow.QuantileThreshold(table, cfg.Replay.FPR)
		if err != nil {
			return fmt.Errorf("threshold gate: %w", err)
		}
		flow.ApplyThreshold(table, threshold)
		fpr, tpr := flow.AlertRates(table)
		logger.Info("threshold applied", "fpr_target", cfg.Replay.FPR,
			"threshold", threshold, "fpr", fpr, "tpr", tpr)
	}

	hub := events.NewHub()
	drainEvents(hub, logger)

	if cfg.Metrics.Enabled {
		metrics.Serve(cfg.Metrics.Listen)
		logger.Info("metrics listening", "addr", cfg.Metrics.Listen)
	}

	strategy, err := buildStrategy(cfg, opts.Strategy, hub)
	if err != nil {
		return err
	}

	core := nirs.New(nirs.WindowConfig{
		MaxAlertIdleMs: cfg.Windows.MaxAlertIdleMs,
		MaxAlertLenMs:  cfg.Windows.MaxAlertLenMs,
		BenignLenMs:    cfg.Windows.BenignLenMs,
	}, cfg.Ruleset.MaxRules, strategy, nirs.WithHub(hub))

	sched := replay.NewScheduler(replay.Config{UpdateTimeMs: cfg.Replay.UpdateTimeMs}, core, hub)

	summary, err := sched.Run(context.Background(), table)
	if err != nil {
		return err
	}

	params := replay.RunParams{
		NIDS:         opts.NIDS,
		Dataset:      opts.Dataset,
		Strategy:     opts.Strategy,
		FPR:          cfg.Replay.FPR,
		Eps:          cfg.Heuristic.Eps,
		KPrompt:      cfg.LLM.KPrompt,
		Seed:         opts.Seed,
		UpdateTimeMs: cfg.Replay.UpdateTimeMs,
	}
	outFile := opts.OutFile
	if outFile == "" {
		outFile = filepath.Join(cfg.Results.Dir, replay.ResultFileName(params))
	}
	if err := replay.WriteResults(outFile, table); err != nil {
		return err
	}
	logger.Info("results written", "file", outFile)

	if err := recordRun(cfg, params, summary, outFile); err != nil {
		// Run history is best-effort; the result file is the artifact.
		logger.Warn("failed to record run history", "error", err)
	}

	fmt.Printf("CBR: %.4f\n", summary.CBR)
	fmt.Printf("WBR: %.4f\n", summary.WBR)
	for _, r := range summary.Rules {
		fmt.Println(r)
	}
	return nil
}

// loadConfig loads the named file, or falls back to defaults when no file
// was requested and none exists at the default location.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(brand.DefaultConfigPath()); err != nil {
			cfg := config.Default()
			return cfg, nil
		}
		path = brand.DefaultConfigPath()
	}
	cf, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return cf.Config, nil
}

func applyOverrides(cfg *config.Config, opts *RunOptions) {
	if opts.FPR >= 0 {
		cfg.Replay.FPR = opts.FPR
	}
	if opts.Eps >= 0 {
		cfg.Heuristic.Eps = opts.Eps
	}
	if opts.KPrompt > 0 {
		cfg.LLM.KPrompt = opts.KPrompt
	}
	if opts.TargetCBR >= 0 {
		cfg.Agent.TargetCBR = opts.TargetCBR
	}
	if opts.TargetWBR >= 0 {
		cfg.Agent.TargetWBR = opts.TargetWBR
	}
	if opts.MaxAttempts > 0 {
		cfg.Agent.MaxAttempts = opts.MaxAttempts
	}
	if opts.UpdateTimeMs > 0 {
		cfg.Replay.UpdateTimeMs = opts.UpdateTimeMs
	}
	cfg.Replay.Seed = opts.Seed
}

// loadDataset resolves the dataset block, loads the flow CSV and attaches
// NIDS predictions.
func loadDataset(cfg *config.Config, name, nids string, seed int) (flow.Table, error) {
	ds := cfg.Dataset(name)

	var manifest *flow.Manifest
	var err error
	switch {
	case ds != nil && ds.Manifest != "":
		manifest, err = flow.LoadManifest(ds.Manifest)
		if err != nil {
			return nil, err
		}
	case name == "nb15":
		manifest = flow.NB15Manifest()
	default:
		return nil, fmt.Errorf("unknown dataset %q: no dataset block and no built-in manifest", name)
	}

	path := fmt.Sprintf("data/%s/%s.csv", name, name)
	if ds != nil {
		path = ds.Path
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("dataset file: %w", err)
	}

	table, err := flow.LoadCSV(path, manifest)
	if err != nil {
		return nil, err
	}

	if nids != "ideal" {
		predPath := ""
		if ds != nil {
			predPath = ds.Predictions
		}
		if predPath == "" {
			predPath = filepath.Join(cfg.Results.Dir, "nids",
				fmt.Sprintf("%s_%s_seed%d_pred.csv", nids, name, seed))
		}
		if err := flow.LoadPredictions(predPath, table); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// buildStrategy wires the selected synthesis strategy.
func buildStrategy(cfg *config.Config, name string, hub *events.Hub) (nirs.Strategy, error) {
	switch name {
	case "base":
		return nirs.Noop{}, nil
	case "heuristic":
		return nirs.NewHeuristic(cfg.Heuristic.Eps), nil
	case "llm":
		return nirs.NewLLM(newChatClient(cfg), cfg.LLM.KPrompt), nil
	case "agent":
		critical, err := nirs.ParseCriticalSubnets(cfg.CriticalSubnets)
		if err != nil {
			return nil, fmt.Errorf("critical subnets: %w", err)
		}
		return nirs.NewAgent(newChatClient(cfg), nirs.AgentConfig{
			NumExamples: cfg.LLM.KPrompt,
			TargetCBR:   cfg.Agent.TargetCBR,
			TargetWBR:   cfg.Agent.TargetWBR,
			MaxAttempts: cfg.Agent.MaxAttempts,
			Critical:    critical,
		}, hub), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (want base, heuristic, llm, or agent)", name)
	}
}

func newChatClient(cfg *config.Config) *ollama.Client {
	return ollama.NewClient(ollama.Config{
		Address: cfg.LLM.Address,
		Model:   cfg.LLM.Model,
		NumCtx:  cfg.LLM.NumCtx,
		Seed:    cfg.Replay.Seed,
		Timeout: cfg.LLM.Timeout(),
	})
}

// drainEvents logs hub traffic at debug level so a -v run shows the full
// replay narrative without wiring every component to the logger.
func drainEvents(hub *events.Hub, logger *logging.Logger) {
	ch := hub.Subscribe(1024)
	go func() {
		for e := range ch {
			logger.Debug("event", "type", string(e.Type), "source", e.Source)
		}
	}()
}

func recordRun(cfg *config.Config, params replay.RunParams, summary *replay.Summary, outFile string) error {
	dbPath := cfg.Results.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(cfg.Results.Dir, "runs.db")
	}
	store, err := results.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.Record(results.Run{
		Dataset:      params.Dataset,
		NIDS:         params.NIDS,
		Strategy:     params.Strategy,
		FPR:          params.FPR,
		Eps:          params.Eps,
		KPrompt:      params.KPrompt,
		UpdateTimeMs: params.UpdateTimeMs,
		Seed:         params.Seed,
		Steps:        summary.Steps,
		CBR:          summary.CBR,
		WBR:          summary.WBR,
		Rules:        summary.Rules,
		ResultFile:   outFile,
		Duration:     summary.Duration,
	})
	return err
}
