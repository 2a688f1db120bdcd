package nirs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/nirs/internal/flow"
	"grimm.is/nirs/internal/iptables"
	"grimm.is/nirs/internal/testutil"
)

func mustRule(t *testing.T, text string) *iptables.Rule {
	t.Helper()
	r, err := iptables.Parse(text)
	require.NoError(t, err)
	return r
}

func TestRulesetAppendAndCap(t *testing.T) {
	rs := NewRuleset(3)

	for i := 0; i < 3; i++ {
		added, evicted := rs.Append(mustRule(t, fmt.Sprintf("-A FORWARD -s 10.0.0.%d -j DROP", i)))
		assert.True(t, added)
		assert.Empty(t, evicted)
	}
	assert.Equal(t, 3, rs.Len())

	// The fourth rule evicts the oldest.
	added, evicted := rs.Append(mustRule(t, "-A FORWARD -s 10.0.0.9 -j DROP"))
	assert.True(t, added)
	require.Len(t, evicted, 1)
	assert.Equal(t, "-A FORWARD -s 10.0.0.0 -j DROP", evicted[0].String())
	assert.Equal(t, 3, rs.Len())
	assert.Equal(t, "-A FORWARD -s 10.0.0.1 -j DROP", rs.Rules()[0].String())
}

func TestRulesetDuplicateRejected(t *testing.T) {
	rs := NewRuleset(10)
	rule := mustRule(t, "-A FORWARD -s 10.0.0.1 -j DROP")

	added, _ := rs.Append(rule)
	assert.True(t, added)

	dup := mustRule(t, "-A FORWARD -s 10.0.0.1 -j DROP")
	added, _ = rs.Append(dup)
	assert.False(t, added)
	assert.Equal(t, 1, rs.Len())
}

func TestRulesetMatchUnion(t *testing.T) {
	rs := NewRuleset(10)
	rs.Append(mustRule(t, "-A FORWARD -s 10.0.0.1 -j DROP"))
	rs.Append(mustRule(t, "-A FORWARD -s 20.0.0.1 -j DROP"))

	table := flow.Table{
		testutil.NewFlow(0, 0, "10.0.0.1", "99.0.0.1"),
		testutil.NewFlow(1, 1, "99.0.0.2", "99.0.0.3"),
		testutil.NewFlow(2, 2, "20.0.0.1", "99.0.0.4"),
		// Matched by both rules; must appear once.
		testutil.NewFlow(3, 3, "10.0.0.1", "20.0.0.1"),
	}

	assert.Equal(t, []int{0, 2, 3}, rs.Match(table))
}

func TestRulesetStatus(t *testing.T) {
	rs := NewRuleset(10)
	assert.Equal(t, "[Empty]", rs.Status())

	rs.Append(mustRule(t, "-A FORWARD -s 10.0.0.1 -j DROP"))
	assert.Equal(t, "-A FORWARD -s 10.0.0.1 -j DROP\n", rs.Status())
}

func TestFilterUnmatched(t *testing.T) {
	rs := NewRuleset(10)
	rs.Append(mustRule(t, "-A FORWARD -s 10.0.0.1 -j DROP"))

	table := flow.Table{
		testutil.NewFlow(0, 0, "10.0.0.1", "99.0.0.1"),
		testutil.NewFlow(1, 1, "99.0.0.2", "99.0.0.3"),
	}

	rest := rs.FilterUnmatched(table)
	require.Len(t, rest, 1)
	assert.Equal(t, 1, rest[0].Idx)
}
