package iptables

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// ErrInvalidRule is the sentinel for rules that fail parsing or validation.
// Strategies treat it as "abstain"; it never aborts a replay.
var ErrInvalidRule = fmt.Errorf("invalid iptables rule")

var (
	validOptions = []string{"-A"} // allow only append
	validTables  = []string{"FORWARD"}

	// Protocols seen in the evaluation corpora.
	validProtocols          = []string{"tcp", "udp", "icmp", "hopopt"}
	validProtocolsWithPorts = []string{"tcp", "udp"}

	validJumps = []string{"DROP"} // allow only blocking actions
)

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Parse tokenises a rule string on whitespace and validates the result.
// A /32 suffix on an address is stripped: netmask /32 means one single host.
func Parse(text string) (*Rule, error) {
	r := &Rule{
		SrcIP:    Any,
		DstIP:    Any,
		Protocol: Any,
		SrcPort:  Any,
		DstPort:  Any,
		text:     text,
	}

	tokens := strings.Fields(text)
	for len(tokens) > 0 {
		token := tokens[0]
		tokens = tokens[1:]

		pop := func() string {
			if len(tokens) == 0 {
				return ""
			}
			v := tokens[0]
			tokens = tokens[1:]
			return v
		}

		switch {
		case contains(validOptions, token):
			r.Option = token
			r.Table = pop()
		case token == "-s":
			r.SrcIP = strings.TrimSuffix(pop(), "/32")
		case token == "-d":
			r.DstIP = strings.TrimSuffix(pop(), "/32")
		case token == "-p":
			r.Protocol = pop()
		case token == "--dport":
			r.DstPort = pop()
		case token == "-j":
			r.Jump = pop()
		}
	}

	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Rule) validate() error {
	if !contains(validOptions, r.Option) {
		return fmt.Errorf("%w: invalid/missing option", ErrInvalidRule)
	}
	if !contains(validTables, r.Table) {
		return fmt.Errorf("%w: invalid/missing table", ErrInvalidRule)
	}
	if r.SrcIP != Any && !isValidAddr(r.SrcIP) {
		return fmt.Errorf("%w: source IP %q is not valid", ErrInvalidRule, r.SrcIP)
	}
	if r.DstIP != Any && !isValidAddr(r.DstIP) {
		return fmt.Errorf("%w: destination IP %q is not valid", ErrInvalidRule, r.DstIP)
	}
	if r.Protocol != Any && !contains(validProtocols, r.Protocol) {
		return fmt.Errorf("%w: protocol %q is not valid", ErrInvalidRule, r.Protocol)
	}
	if r.SrcPort != Any {
		if !contains(validProtocolsWithPorts, r.Protocol) {
			return fmt.Errorf("%w: source port cannot be specified for protocol %q", ErrInvalidRule, r.Protocol)
		}
		if !isValidPort(r.SrcPort) {
			return fmt.Errorf("%w: source port %q is not valid", ErrInvalidRule, r.SrcPort)
		}
	}
	if r.DstPort != Any {
		if !contains(validProtocolsWithPorts, r.Protocol) {
			return fmt.Errorf("%w: destination port cannot be specified for protocol %q", ErrInvalidRule, r.Protocol)
		}
		if !isValidPort(r.DstPort) {
			return fmt.Errorf("%w: destination port %q is not valid", ErrInvalidRule, r.DstPort)
		}
	}
	if !contains(validJumps, r.Jump) {
		return fmt.Errorf("%w: invalid/missing jump", ErrInvalidRule)
	}
	return nil
}

// isValidAddr accepts a plain IP address or a CIDR network.
func isValidAddr(s string) bool {
	if _, err := netip.ParseAddr(s); err == nil {
		return true
	}
	if _, err := netip.ParsePrefix(s); err == nil {
		return true
	}
	return false
}

func isValidPort(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func portValue(s string) uint16 {
	v, _ := strconv.Atoi(s)
	return uint16(v)
}
