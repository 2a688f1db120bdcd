// Package iptables models the restricted iptables rule dialect the NIRS
// emits, and matches rules against flow tables.
//
// Only append-to-FORWARD DROP rules are accepted:
//
//	-A FORWARD -s <ip-or-cidr> -j DROP
//	-A FORWARD -d <ip-or-cidr> -p <proto> -j DROP
//	-A FORWARD -d <ip-or-cidr> -p <proto> --dport <port> -j DROP
package iptables

import (
	"grimm.is/nirs/internal/flow"
)

// Any is the wildcard value for optional rule fields.
const Any = "any"

// Rule is a parsed, validated rule. Fields other than Option/Table/Jump are
// either Any or a concrete value. Rules are immutable once validated.
type Rule struct {
	Option   string // -A
	Table    string // FORWARD
	SrcIP    string // IP, CIDR, or Any
	DstIP    string // IP, CIDR, or Any
	Protocol string // tcp, udp, icmp, hopopt, or Any
	SrcPort  string // numeric string or Any
	DstPort  string // numeric string or Any
	Jump     string // DROP

	text string // original textual form, the duplicate-detection key
}

// String returns the rule's original textual form.
func (r *Rule) String() string {
	return r.text
}

// Equal reports textual equality, the ruleset's duplicate key.
func (r *Rule) Equal(other *Rule) bool {
	return other != nil && r.text == other.text
}

// Match returns the ordered Idx values of flows the rule matches. A rule
// matches a flow iff all of its non-wildcard constraints hold. Address
// matching is bidirectional and gated on the byte count of the matched
// direction, mirroring how a border firewall sees both halves of a
// conversation. A destination port is enforced only together with a
// destination address: on a rule without -d, the --dport value is not
// checked.
func (r *Rule) Match(t flow.Table) []int {
	var matched []int
	for i := range t {
		if r.matches(&t[i]) {
			matched = append(matched, t[i].Idx)
		}
	}
	return matched
}

func (r *Rule) matches(f *flow.Flow) bool {
	if r.Protocol != Any && f.Protocol != r.Protocol {
		return false
	}

	if r.SrcIP != Any {
		if !(ipInNet(f.SrcIP, r.SrcIP) && f.SrcData > 0) &&
			!(ipInNet(f.DstIP, r.SrcIP) && f.DstData > 0) {
			return false
		}
	}

	switch {
	case r.DstIP != Any && r.SrcPort == Any && r.DstPort == Any:
		if !(ipInNet(f.DstIP, r.DstIP) && f.SrcData > 0) &&
			!(ipInNet(f.SrcIP, r.DstIP) && f.DstData > 0) {
			return false
		}
	case r.DstIP != Any && r.SrcPort == Any && r.DstPort != Any:
		// The parser guarantees a port-bearing protocol here.
		port := portValue(r.DstPort)
		if !(ipInNet(f.SrcIP, r.DstIP) && f.SrcPort == port && f.SrcData > 0) &&
			!(ipInNet(f.DstIP, r.DstIP) && f.DstPort == port && f.DstData > 0) {
			return false
		}
	}

	return true
}
