package nirs

import (
	"context"
	"fmt"
	"sort"

	"grimm.is/nirs/internal/flow"
	"grimm.is/nirs/internal/iptables"
)

// Heuristic synthesizes source-drop rules from IP frequency: it walks the
// alert window's most frequent endpoint addresses and emits a drop for the
// first one that stays under the benign tolerance.
type Heuristic struct {
	// BenignTolerance is the fraction of the benign window a candidate IP
	// may appear in before it is skipped.
	BenignTolerance float64
}

// NewHeuristic creates the frequency-based strategy.
func NewHeuristic(benignTolerance float64) *Heuristic {
	return &Heuristic{BenignTolerance: benignTolerance}
}

// Name implements Strategy.
func (h *Heuristic) Name() string { return "heuristic" }

// MinAlertFlows implements Strategy.
func (h *Heuristic) MinAlertFlows() int { return 1 }

// Synthesize implements Strategy.
func (h *Heuristic) Synthesize(ctx context.Context, ev Evidence) (*iptables.Rule, error) {
	rs := rulesetOf(ev.Rules)
	alerts := rs.FilterUnmatched(ev.AlertWindow)
	benign := rs.FilterUnmatched(ev.BenignWindow)

	alertCounts := ipCounts(alerts)
	benignCounts := ipCounts(benign)

	limit := h.BenignTolerance * float64(len(benign))

	for _, candidate := range sortedByCount(alertCounts) {
		if float64(benignCounts[candidate]) > limit {
			continue
		}

		text := fmt.Sprintf("-A FORWARD -s %s -j DROP", candidate)
		rule, err := iptables.Parse(text)
		if err != nil {
			return nil, err
		}
		// The walk stops at the first candidate either way: a duplicate
		// means the evidence points at an already-covered address.
		for _, have := range ev.Rules {
			if have.Equal(rule) {
				return nil, nil
			}
		}
		return rule, nil
	}

	return nil, nil
}

// ipCounts builds the multiset of addresses over src_ip union dst_ip.
func ipCounts(t flow.Table) map[string]int {
	counts := make(map[string]int, len(t)*2)
	for i := range t {
		counts[t[i].SrcIP]++
		counts[t[i].DstIP]++
	}
	return counts
}

// sortedByCount orders addresses by descending count, breaking ties
// lexicographically so runs are deterministic.
func sortedByCount(counts map[string]int) []string {
	ips := make([]string, 0, len(counts))
	for ip := range counts {
		ips = append(ips, ip)
	}
	sort.Slice(ips, func(i, j int) bool {
		if counts[ips[i]] != counts[ips[j]] {
			return counts[ips[i]] > counts[ips[j]]
		}
		return ips[i] < ips[j]
	})
	return ips
}

// rulesetOf wraps a rule snapshot for matching helpers.
func rulesetOf(rules []*iptables.Rule) *Ruleset {
	rs := NewRuleset(0)
	rs.rules = rules
	return rs
}
