package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"grimm.is/nirs/internal/results"
)

// RunList prints the most recent runs from the run-history database.
func RunList(configFile string, limit int) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	dbPath := cfg.Results.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(cfg.Results.Dir, "runs.db")
	}
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("no run history at %s", dbPath)
	}

	store, err := results.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tDATASET\tNIDS\tSTRATEGY\tFPR\tCBR\tWBR\tRULES\tSTEPS")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%.4f\t%.4f\t%d\t%d\n",
			r.StartedAt.Format(time.DateTime), r.Dataset, r.NIDS, r.Strategy,
			r.FPR, r.CBR, r.WBR, len(r.Rules), r.Steps)
	}
	return w.Flush()
}
