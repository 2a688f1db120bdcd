package nirs

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/nirs/internal/flow"
	"grimm.is/nirs/internal/iptables"
	"grimm.is/nirs/internal/testutil"
)

// repeatFlows builds n flows from the given source, each towards a distinct
// destination so only the source accumulates frequency.
func repeatFlows(src string, n int, base int, opts ...testutil.FlowOpt) flow.Table {
	var t flow.Table
	for i := 0; i < n; i++ {
		id := base + i
		dst := fmt.Sprintf("198.51.%d.%d", id/250, id%250)
		t = append(t, testutil.NewFlow(id, int64(id), src, dst, opts...))
	}
	return t
}

func TestHeuristicSkipsHighBenignOverlap(t *testing.T) {
	// A appears 10x in the alert window but 20x among 100 benign flows:
	// over the 10% tolerance. B appears 5x in alerts and 3x in benign:
	// under tolerance, so B is blocked.
	alerts := append(repeatFlows("1.1.1.1", 10, 0), repeatFlows("2.2.2.2", 5, 100)...)

	var benign flow.Table
	benign = append(benign, repeatFlows("1.1.1.1", 20, 200)...)
	benign = append(benign, repeatFlows("2.2.2.2", 3, 300)...)
	benign = append(benign, repeatFlows("9.9.9.9", 77, 400)...)

	h := NewHeuristic(0.1)
	rule, err := h.Synthesize(context.Background(), Evidence{
		AlertWindow:  alerts,
		BenignWindow: benign,
	})
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "-A FORWARD -s 2.2.2.2 -j DROP", rule.String())
}

func TestHeuristicPicksMostFrequent(t *testing.T) {
	alerts := append(repeatFlows("5.5.5.5", 2, 0), repeatFlows("6.6.6.6", 8, 10)...)

	h := NewHeuristic(0.1)
	rule, err := h.Synthesize(context.Background(), Evidence{AlertWindow: alerts})
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "-A FORWARD -s 6.6.6.6 -j DROP", rule.String())
}

func TestHeuristicDeterministicTieBreak(t *testing.T) {
	// Equal counts: lexicographically smaller address wins, every run.
	alerts := append(repeatFlows("8.0.0.2", 3, 0), repeatFlows("8.0.0.1", 3, 10)...)

	h := NewHeuristic(0.1)
	for i := 0; i < 5; i++ {
		rule, err := h.Synthesize(context.Background(), Evidence{AlertWindow: alerts})
		require.NoError(t, err)
		require.NotNil(t, rule)
		assert.Equal(t, "-A FORWARD -s 8.0.0.1 -j DROP", rule.String())
	}
}

func TestHeuristicDuplicateAbstains(t *testing.T) {
	// Zero-data flows are not matched by the existing rule (data gating),
	// so the address still dominates the counts; the candidate collides
	// with the existing rule text and the strategy abstains.
	alerts := repeatFlows("7.7.7.7", 5, 0, testutil.Data(0, 0))
	existing := mustRule(t, "-A FORWARD -s 7.7.7.7 -j DROP")

	h := NewHeuristic(0.1)
	rule, err := h.Synthesize(context.Background(), Evidence{
		Rules:       []*iptables.Rule{existing},
		AlertWindow: alerts,
	})
	require.NoError(t, err)
	assert.Nil(t, rule)
}

func TestHeuristicIgnoresCoveredEvidence(t *testing.T) {
	// Flows already matched by an existing rule are pruned before
	// counting, so the next address gets blocked.
	existing := mustRule(t, "-A FORWARD -s 3.3.3.3 -j DROP")
	alerts := append(repeatFlows("3.3.3.3", 10, 0), repeatFlows("4.4.4.4", 2, 100)...)

	h := NewHeuristic(0.1)
	rule, err := h.Synthesize(context.Background(), Evidence{
		Rules:       []*iptables.Rule{existing},
		AlertWindow: alerts,
	})
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "-A FORWARD -s 4.4.4.4 -j DROP", rule.String())
}

func TestHeuristicEmptyWindowAbstains(t *testing.T) {
	h := NewHeuristic(0.1)
	rule, err := h.Synthesize(context.Background(), Evidence{})
	require.NoError(t, err)
	assert.Nil(t, rule)
}
