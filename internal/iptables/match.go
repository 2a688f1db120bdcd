package iptables

import (
	"net/netip"
	"strings"
)

// InSubnet reports whether ip lies in the given CIDR network. For the /8,
// /16, /24 and /32 masks that cover the rule corpus it compares leading
// dotted octets; any other mask falls back to integer prefix containment.
// Non-IPv4 addresses never match.
func InSubnet(ip, subnet string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is4() {
		return false
	}
	slash := strings.IndexByte(subnet, '/')
	if slash < 0 {
		return ip == subnet
	}
	base, mask := subnet[:slash], subnet[slash+1:]

	switch mask {
	case "32":
		return ip == base
	case "24":
		return octetPrefixMatch(ip, base, 3)
	case "16":
		return octetPrefixMatch(ip, base, 2)
	case "8":
		return octetPrefixMatch(ip, base, 1)
	}

	// General mask: integer comparison.
	pfx, err := netip.ParsePrefix(subnet)
	if err != nil || !pfx.Addr().Is4() {
		return false
	}
	return pfx.Masked().Contains(addr)
}

// octetPrefixMatch compares the first n dotted octets of ip and base.
func octetPrefixMatch(ip, base string, n int) bool {
	ipParts := strings.Split(ip, ".")
	baseParts := strings.Split(base, ".")
	if len(ipParts) != 4 || len(baseParts) < n {
		return false
	}
	for i := 0; i < n; i++ {
		if ipParts[i] != baseParts[i] {
			return false
		}
	}
	return true
}

// ipInNet matches a flow address against a rule address, which may be a
// single IP or a CIDR network.
func ipInNet(ip, ruleAddr string) bool {
	if strings.Contains(ruleAddr, "/") {
		return InSubnet(ip, ruleAddr)
	}
	return ip == ruleAddr
}
