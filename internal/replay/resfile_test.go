package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/nirs/internal/flow"
)

func TestResultFileName(t *testing.T) {
	base := RunParams{
		NIDS:         "rf",
		Dataset:      "nb15",
		FPR:          0.1,
		Eps:          0.01,
		KPrompt:      10,
		Seed:         42,
		UpdateTimeMs: 1_800_000,
	}

	base.Strategy = "base"
	assert.Equal(t, "rf_nids_nb15_basenirs_fpr0_1_update_1800000_seed42.csv", ResultFileName(base))

	base.Strategy = "heuristic"
	assert.Equal(t, "rf_nids_nb15_heuristicnirs_fpr0_1_eps0_01_update_1800000_seed42.csv", ResultFileName(base))

	base.Strategy = "llm"
	assert.Equal(t, "rf_nids_nb15_llmnirs_fpr0_1_k10_update_1800000_seed42.csv", ResultFileName(base))

	base.Strategy = "agent"
	assert.Equal(t, "rf_nids_nb15_agentnirs_fpr0_1_k10_update_1800000_seed42.csv", ResultFileName(base))
}

func TestWriteResults(t *testing.T) {
	table := flow.Table{
		{Timestamp: 1000, IsBlocked: false},
		{Timestamp: 2000, IsBlocked: true},
	}

	path := filepath.Join(t.TempDir(), "out", "res.csv")
	require.NoError(t, WriteResults(path, table))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "timestamp,is_blocked\n1000,0\n2000,1\n", string(data))
}
