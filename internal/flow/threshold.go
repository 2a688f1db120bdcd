package flow

import (
	"fmt"
	"math"
	"sort"
)

// QuantileThreshold computes the alert threshold for a target false positive
// rate: the (1-fpr) quantile of NIDS scores restricted to benign flows with
// non-negative scores. Flows with score < 0 are training flows and excluded.
func QuantileThreshold(t Table, fpr float64) (float64, error) {
	if fpr < 0 || fpr > 1 {
		return 0, fmt.Errorf("fpr must be in [0, 1], got %v", fpr)
	}

	var scores []float64
	for i := range t {
		if t[i].NIDSPred >= 0 && t[i].Label == 0 {
			scores = append(scores, t[i].NIDSPred)
		}
	}
	if len(scores) == 0 {
		return 0, fmt.Errorf("no benign scored flows to compute threshold from")
	}

	sort.Float64s(scores)
	return quantileNearest(scores, 1-fpr), nil
}

// quantileNearest returns the nearest-rank quantile of a sorted slice.
func quantileNearest(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	i := int(math.Round(pos))
	if i < 0 {
		i = 0
	}
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}

// ApplyThreshold sets IsAlert = NIDSPred > threshold on every flow.
func ApplyThreshold(t Table, threshold float64) {
	for i := range t {
		t[i].IsAlert = t[i].NIDSPred > threshold
	}
}

// AlertRates returns the observed FPR and TPR after thresholding, for
// logging. Flows with negative scores are still counted, matching the way
// the replay consumes the full table.
func AlertRates(t Table) (fpr, tpr float64) {
	var benign, benignAlerts, malicious, maliciousAlerts int
	for i := range t {
		if t[i].Label == 0 {
			benign++
			if t[i].IsAlert {
				benignAlerts++
			}
		} else {
			malicious++
			if t[i].IsAlert {
				maliciousAlerts++
			}
		}
	}
	if benign > 0 {
		fpr = float64(benignAlerts) / float64(benign)
	}
	if malicious > 0 {
		tpr = float64(maliciousAlerts) / float64(malicious)
	}
	return fpr, tpr
}
