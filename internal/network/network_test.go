package network

import "testing"

func TestIsInterSubnet(t *testing.T) {
	tests := []struct {
		name     string
		ip1, ip2 string
		expected bool
	}{
		{"DifferentSubnets", "89.0.142.86", "244.178.44.111", true},
		{"SameSubnet", "89.0.142.86", "89.0.142.178", false},
		{"AdjacentSubnet", "10.0.1.5", "10.0.2.5", true},
		{"IPv6First", "fe80::1", "10.0.0.1", false},
		{"IPv6Second", "10.0.0.1", "fe80::1", false},
		{"Garbage", "not-an-ip", "10.0.0.1", false},
		{"Empty", "", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsInterSubnet(tc.ip1, tc.ip2); got != tc.expected {
				t.Errorf("IsInterSubnet(%q, %q) = %v, expected %v", tc.ip1, tc.ip2, got, tc.expected)
			}
		})
	}
}

func TestProtocolNumbers(t *testing.T) {
	if ProtocolNumbers["tcp"] != 6 {
		t.Errorf("tcp = %d, expected 6", ProtocolNumbers["tcp"])
	}
	if ProtocolNumbers["udp"] != 17 {
		t.Errorf("udp = %d, expected 17", ProtocolNumbers["udp"])
	}
	if got := ProtocolName(1); got != "icmp" {
		t.Errorf("ProtocolName(1) = %q, expected icmp", got)
	}
	if got := ProtocolName(9999); got != "" {
		t.Errorf("ProtocolName(9999) = %q, expected empty", got)
	}
}
