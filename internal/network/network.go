// Package network provides address utilities shared by the rule matcher
// and the dataset loaders.
package network

import (
	"net/netip"
)

// ProtocolNumbers maps lowercase protocol tokens to IANA protocol numbers.
var ProtocolNumbers = map[string]int{
	"hopopt":    0,
	"icmp":      1,
	"igmp":      2,
	"ggp":       3,
	"ipv4":      4,
	"tcp":       6,
	"egp":       8,
	"igp":       9,
	"udp":       17,
	"gre":       47,
	"esp":       50,
	"ah":        51,
	"ipv6-icmp": 58,
	"sctp":      132,
	"udplite":   136,
}

// ProtocolName returns the lowercase token for an IANA protocol number, or
// "" if unknown.
func ProtocolName(number int) string {
	for name, n := range ProtocolNumbers {
		if n == number {
			return name
		}
	}
	return ""
}

// IsInterSubnet reports whether ip1 and ip2 lie in different /24 IPv4
// subnets. The /24 mask is a modelling choice for the evaluation corpus,
// not a general primitive. Any non-IPv4 operand yields false.
func IsInterSubnet(ip1, ip2 string) bool {
	a, err := netip.ParseAddr(ip1)
	if err != nil || !a.Is4() {
		return false
	}
	b, err := netip.ParseAddr(ip2)
	if err != nil || !b.Is4() {
		return false
	}
	pfx, err := b.Prefix(24)
	if err != nil {
		return false
	}
	return !pfx.Contains(a)
}
