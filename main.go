package main

import (
	"flag"
	"fmt"
	"os"

	"grimm.is/nirs/cmd"
	"grimm.is/nirs/internal/brand"
	"grimm.is/nirs/internal/config"
	"grimm.is/nirs/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runFlags := flag.NewFlagSet("run", flag.ExitOnError)
		configFile := runFlags.String("config", "", "Configuration file (optional)")
		runFlags.StringVar(configFile, "c", "", "Configuration file (short)")

		dataset := runFlags.String("dataset", "nb15", "Dataset to replay")
		nids := runFlags.String("nids", "rf", "NIDS whose scores drive alerts (\"ideal\" uses ground truth)")
		strategy := runFlags.String("strategy", "heuristic", "Rule synthesis strategy: base, heuristic, llm, agent")
		fpr := runFlags.Float64("fpr", -1, "Target false positive rate for the threshold gate")
		eps := runFlags.Float64("eps", -1, "Heuristic benign tolerance")
		kPrompt := runFlags.Int("k-prompt", 0, "Flow examples per window in LLM prompts")
		targetCBR := runFlags.Float64("target-cbr", -1, "Agent correct block rate target")
		targetWBR := runFlags.Float64("target-wbr", -1, "Agent wrong block rate target")
		maxAttempts := runFlags.Int("max-attempts", 0, "Agent proposal attempt cap")
		updateMs := runFlags.Int64("update-ms", 0, "Scheduler update interval in milliseconds")
		seed := runFlags.Int("seed", 42, "PRNG seed")
		out := runFlags.String("out", "", "Result file path (default derived from run parameters)")
		verbose := runFlags.Bool("v", false, "Verbose (debug) logging")

		runFlags.Parse(os.Args[2:])
		setupLogging(*verbose)

		fail(cmd.RunReplay(cmd.RunOptions{
			ConfigFile:   *configFile,
			Dataset:      *dataset,
			NIDS:         *nids,
			Strategy:     *strategy,
			FPR:          *fpr,
			Eps:          *eps,
			KPrompt:      *kPrompt,
			TargetCBR:    *targetCBR,
			TargetWBR:    *targetWBR,
			MaxAttempts:  *maxAttempts,
			UpdateTimeMs: *updateMs,
			Seed:         *seed,
			OutFile:      *out,
		}))

	case "check":
		checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
		verbose := checkFlags.Bool("v", false, "Verbose output")
		checkFlags.Parse(os.Args[2:])

		configFile := checkFlags.Arg(0)
		fail(cmd.RunCheck(configFile, *verbose))

	case "init":
		initFlags := flag.NewFlagSet("init", flag.ExitOnError)
		initFlags.Parse(os.Args[2:])

		path := initFlags.Arg(0)
		if path == "" {
			path = brand.DefaultConfigPath()
		}
		fail(config.WriteDefault(path))
		fmt.Printf("Wrote default configuration to %s\n", path)

	case "runs":
		runsFlags := flag.NewFlagSet("runs", flag.ExitOnError)
		configFile := runsFlags.String("config", "", "Configuration file (optional)")
		limit := runsFlags.Int("n", 20, "Number of runs to show")
		runsFlags.Parse(os.Args[2:])

		fail(cmd.RunList(*configFile, *limit))

	case "version":
		fmt.Printf("%s %s (%s, built %s)\n", brand.BinaryName, brand.Version, brand.GitCommit, brand.BuildTime)
		fmt.Printf("%s <%s>\n", brand.Vendor, brand.Website)
		fmt.Printf("License: %s\n", brand.License)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func setupLogging(verbose bool) {
	cfg := logging.DefaultConfig()
	if verbose {
		cfg.Level = logging.LevelDebug
	}
	logging.SetDefault(logging.New(cfg))
}

func fail(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - %s

Usage: %s <command> [options]

Commands:
  run       Replay a flow dataset through a response strategy
  check     Validate a configuration file
  init      Write a default configuration file
  runs      Show recent run history
  version   Show version information
  help      Show this help

Run '%s <command> -h' for command options.
`, brand.BinaryName, brand.Description, brand.BinaryName, brand.BinaryName)
}
