package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoredTable() Table {
	var t Table
	// 10 benign flows with scores 0.0 .. 0.9.
	for i := 0; i < 10; i++ {
		t = append(t, Flow{Label: 0, NIDSPred: float64(i) / 10})
	}
	// Malicious flows and a training flow; neither feeds the quantile.
	t = append(t, Flow{Label: 1, NIDSPred: 0.95})
	t = append(t, Flow{Label: 0, NIDSPred: -1})
	return t
}

func TestQuantileThreshold(t *testing.T) {
	table := scoredTable()

	// 1-0.1 = 0.9 quantile of {0.0 .. 0.9} by nearest rank.
	threshold, err := QuantileThreshold(table, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, threshold, 1e-9)

	ApplyThreshold(table, threshold)

	var alerts int
	for i := range table {
		if table[i].IsAlert {
			alerts++
		}
	}
	// Scores strictly above 0.8: the 0.9 benign flow and the 0.95
	// malicious one. The training flow (-1) stays quiet.
	assert.Equal(t, 2, alerts)
}

func TestQuantileThresholdBounds(t *testing.T) {
	table := scoredTable()

	_, err := QuantileThreshold(table, -0.5)
	require.Error(t, err)

	_, err = QuantileThreshold(Table{{Label: 1, NIDSPred: 0.5}}, 0.1)
	require.Error(t, err, "no benign scored flows")
}

func TestAlertRates(t *testing.T) {
	table := Table{
		{Label: 0, IsAlert: true},
		{Label: 0, IsAlert: false},
		{Label: 1, IsAlert: true},
		{Label: 1, IsAlert: true},
	}
	fpr, tpr := AlertRates(table)
	assert.InDelta(t, 0.5, fpr, 1e-9)
	assert.InDelta(t, 1.0, tpr, 1e-9)
}
