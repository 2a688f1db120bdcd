package replay

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"grimm.is/nirs/internal/flow"
)

// RunParams captures the knobs that name a result file, mirroring the
// naming scheme of the experiment pipeline the results feed into.
type RunParams struct {
	NIDS         string
	Dataset      string
	Strategy     string
	FPR          float64
	Eps          float64
	KPrompt      int
	Seed         int
	UpdateTimeMs int64
}

// ResultFileName derives the canonical result file name for a run.
func ResultFileName(p RunParams) string {
	pretty := func(f float64) string {
		return strings.ReplaceAll(strconv.FormatFloat(f, 'g', -1, 64), ".", "_")
	}

	name := fmt.Sprintf("%s_nids_%s_%snirs_fpr%s_update_%d_seed%d.csv",
		p.NIDS, p.Dataset, p.Strategy, pretty(p.FPR), p.UpdateTimeMs, p.Seed)

	switch p.Strategy {
	case "heuristic":
		name = fmt.Sprintf("%s_nids_%s_%snirs_fpr%s_eps%s_update_%d_seed%d.csv",
			p.NIDS, p.Dataset, p.Strategy, pretty(p.FPR), pretty(p.Eps), p.UpdateTimeMs, p.Seed)
	case "llm", "agent":
		name = fmt.Sprintf("%s_nids_%s_%snirs_fpr%s_k%d_update_%d_seed%d.csv",
			p.NIDS, p.Dataset, p.Strategy, pretty(p.FPR), p.KPrompt, p.UpdateTimeMs, p.Seed)
	}
	return name
}

// WriteResults persists the per-flow outcome: timestamp and final blocked
// flag, one row per flow in table order.
func WriteResults(path string, table flow.Table) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create results dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "is_blocked"}); err != nil {
		return err
	}
	for i := range table {
		blocked := "0"
		if table[i].IsBlocked {
			blocked = "1"
		}
		if err := w.Write([]string{strconv.FormatInt(table[i].Timestamp, 10), blocked}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
