package iptables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/nirs/internal/flow"
)

func matchTable() flow.Table {
	return flow.Table{
		{Idx: 0, Timestamp: 1, SrcIP: "1.1.1.1", DstIP: "2.2.2.2", SrcPort: 80, DstPort: 80, Protocol: "tcp", SrcData: 1, DstData: 2},
		{Idx: 1, Timestamp: 2, SrcIP: "3.3.3.3", DstIP: "4.4.4.4", SrcPort: 1000, DstPort: 3000, Protocol: "tcp", SrcData: 3, DstData: 4},
		{Idx: 2, Timestamp: 3, SrcIP: "172.16.0.1", DstIP: "172.16.0.2", SrcPort: 22, DstPort: 22, Protocol: "tcp", SrcData: 5, DstData: 6},
		{Idx: 3, Timestamp: 4, SrcIP: "172.16.0.3", DstIP: "172.16.0.4", SrcPort: 22, DstPort: 22, Protocol: "tcp", SrcData: 7, DstData: 8},
	}
}

func TestMatchDstPortRule(t *testing.T) {
	rule, err := Parse("-A FORWARD -d 172.16.0.1/32 -p tcp --dport 22 -j DROP")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, rule.Match(matchTable()))
}

func TestMatchDstSubnetRule(t *testing.T) {
	rule, err := Parse("-A FORWARD -d 172.16.0.1/16 -p tcp -j DROP")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, rule.Match(matchTable()))
}

func TestMatchSrcRuleBidirectional(t *testing.T) {
	table := flow.Table{
		{Idx: 0, SrcIP: "1.2.3.4", DstIP: "9.9.9.9", Protocol: "tcp", SrcData: 10, DstData: 0},
		{Idx: 1, SrcIP: "9.9.9.9", DstIP: "1.2.3.4", Protocol: "tcp", SrcData: 0, DstData: 10},
		{Idx: 2, SrcIP: "1.2.3.4", DstIP: "9.9.9.9", Protocol: "tcp", SrcData: 0, DstData: 10},
		{Idx: 3, SrcIP: "9.9.9.9", DstIP: "8.8.8.8", Protocol: "tcp", SrcData: 5, DstData: 5},
	}
	rule, err := Parse("-A FORWARD -s 1.2.3.4 -j DROP")
	require.NoError(t, err)

	// Row 0: src match with src_data > 0. Row 1: dst match with dst_data > 0.
	// Row 2: src match but zero src_data, dst side is a different address.
	assert.Equal(t, []int{0, 1}, rule.Match(table))
}

func TestMatchZeroDataRejected(t *testing.T) {
	table := flow.Table{
		{Idx: 0, SrcIP: "1.2.3.4", DstIP: "9.9.9.9", Protocol: "tcp", SrcData: 0, DstData: 0},
	}
	rule, err := Parse("-A FORWARD -s 1.2.3.4 -j DROP")
	require.NoError(t, err)
	assert.Empty(t, rule.Match(table))
}

func TestMatchProtocolPrefilter(t *testing.T) {
	table := flow.Table{
		{Idx: 0, SrcIP: "5.5.5.5", DstIP: "6.6.6.6", Protocol: "udp", SrcData: 1, DstData: 1},
		{Idx: 1, SrcIP: "5.5.5.5", DstIP: "6.6.6.6", Protocol: "tcp", SrcData: 1, DstData: 1},
	}
	rule, err := Parse("-A FORWARD -d 6.6.6.6 -p tcp -j DROP")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, rule.Match(table))
}

func TestInSubnet(t *testing.T) {
	tests := []struct {
		ip, subnet string
		expected   bool
	}{
		{"10.2.0.4", "10.2.0.4/32", true},
		{"10.2.0.5", "10.2.0.4/32", false},
		{"10.2.0.4", "10.2.0.0/24", true},
		{"10.2.1.4", "10.2.0.0/24", false},
		{"10.2.1.4", "10.2.0.0/16", true},
		{"10.3.1.4", "10.2.0.0/16", false},
		{"10.3.1.4", "10.0.0.0/8", true},
		{"11.3.1.4", "10.0.0.0/8", false},
		{"10.2.0.4", "10.2.0.0/23", true},
		{"10.2.2.4", "10.2.0.0/23", false},
		{"fe80::1", "10.0.0.0/8", false},
		{"fe80::1", "fe80::/23", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, InSubnet(tc.ip, tc.subnet), "InSubnet(%q, %q)", tc.ip, tc.subnet)
	}
}
