package results

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRecordAndList(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	id, err := store.Record(Run{
		Dataset:      "nb15",
		NIDS:         "rf",
		Strategy:     "heuristic",
		FPR:          0.1,
		Eps:          0.01,
		UpdateTimeMs: 1_800_000,
		Seed:         42,
		Steps:        120,
		CBR:          0.41,
		WBR:          0.002,
		Rules:        []string{"-A FORWARD -s 1.2.3.4 -j DROP", "-A FORWARD -s 5.6.7.8 -j DROP"},
		ResultFile:   "results/rf_nids_nb15.csv",
		Duration:     12.5,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	runs, err := store.List(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	r := runs[0]
	assert.Equal(t, id, r.ID)
	assert.Equal(t, "heuristic", r.Strategy)
	assert.Equal(t, 0.41, r.CBR)
	assert.Len(t, r.Rules, 2)
	assert.WithinDuration(t, time.Now(), r.StartedAt, time.Minute)
}

func TestStoreListNewestFirst(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Record(Run{Strategy: "base", StartedAt: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	_, err = store.Record(Run{Strategy: "agent", StartedAt: time.Now()})
	require.NoError(t, err)

	runs, err := store.List(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "agent", runs[0].Strategy)
}
