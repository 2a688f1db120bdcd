package nirs

import (
	"net/netip"
	"strings"

	"grimm.is/nirs/internal/flow"
	"grimm.is/nirs/internal/iptables"
)

// Evaluation is the result of checking a candidate rule against the
// evidence windows.
type Evaluation struct {
	Status string  `json:"status"`
	CBR    float64 `json:"cbr"`
	WBR    float64 `json:"wbr"`
}

// Valid reports whether the rule passed all structural checks.
func (e Evaluation) Valid() bool {
	return !strings.Contains(e.Status, "INVALID")
}

// BlockedCritical reports whether the rule was rejected for overlapping a
// protected subnet.
func (e Evaluation) BlockedCritical() bool {
	return strings.Contains(e.Status, "critical subnet")
}

// Evaluation status strings. The agent's critique routing keys off these.
const (
	statusNone     = "INVALID: Rule is 'none'"
	statusCritical = "INVALID: Rule blocks a critical subnet"
	statusParse    = "INVALID: Rule syntax could not be parsed"
	statusValid    = "VALID: Rule passed checks"
)

// EvaluateRule is the agent's evaluation tool: a pure function over the
// candidate text, the two windows and the protected subnets. It never
// mutates its inputs; CBR and WBR are the fractions of each window the
// rule matches (zero denominator yields 0). A rejected candidate ("none",
// unparseable, or overlapping a critical subnet) reports CBR 0 and WBR 1.
func EvaluateRule(text string, alerts, benign flow.Table, critical []netip.Prefix) Evaluation {
	if strings.EqualFold(strings.TrimSpace(text), "none") {
		return Evaluation{Status: statusNone, CBR: 0, WBR: 1}
	}

	rule, err := iptables.Parse(text)
	if err != nil {
		return Evaluation{Status: statusParse, CBR: 0, WBR: 1}
	}

	if BlocksCriticalSubnet(rule, critical) {
		return Evaluation{Status: statusCritical, CBR: 0, WBR: 1}
	}

	ev := Evaluation{Status: statusValid}
	if len(alerts) > 0 {
		ev.CBR = float64(len(rule.Match(alerts))) / float64(len(alerts))
	}
	if len(benign) > 0 {
		ev.WBR = float64(len(rule.Match(benign))) / float64(len(benign))
	}
	return ev
}

// BlocksCriticalSubnet reports whether the rule's source or destination
// network overlaps any protected subnet.
func BlocksCriticalSubnet(rule *iptables.Rule, critical []netip.Prefix) bool {
	for _, addr := range []string{rule.SrcIP, rule.DstIP} {
		if addr == iptables.Any {
			continue
		}
		pfx, ok := addrPrefix(addr)
		if !ok {
			continue
		}
		for _, crit := range critical {
			if pfx.Overlaps(crit) {
				return true
			}
		}
	}
	return false
}

// addrPrefix normalises a rule address (single IP or CIDR) to a prefix.
func addrPrefix(addr string) (netip.Prefix, bool) {
	if pfx, err := netip.ParsePrefix(addr); err == nil {
		return pfx.Masked(), true
	}
	if ip, err := netip.ParseAddr(addr); err == nil {
		return netip.PrefixFrom(ip, ip.BitLen()), true
	}
	return netip.Prefix{}, false
}

// ParseCriticalSubnets parses the configured protected CIDR list.
func ParseCriticalSubnets(cidrs []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, s := range cidrs {
		pfx, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, err
		}
		out = append(out, pfx.Masked())
	}
	return out, nil
}
