// Package testutil provides shared helpers for building flow fixtures.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"grimm.is/nirs/internal/flow"
)

// FlowOpt mutates a fixture flow.
type FlowOpt func(*flow.Flow)

// Alert marks the flow as an alert.
func Alert() FlowOpt {
	return func(f *flow.Flow) { f.IsAlert = true }
}

// Malicious sets the ground-truth label to 1.
func Malicious() FlowOpt {
	return func(f *flow.Flow) { f.Label = 1 }
}

// IntraSubnet clears the inter-subnet flag.
func IntraSubnet() FlowOpt {
	return func(f *flow.Flow) { f.InterSubnet = false }
}

// Ports sets the source and destination ports.
func Ports(src, dst uint16) FlowOpt {
	return func(f *flow.Flow) {
		f.SrcPort = src
		f.DstPort = dst
	}
}

// Proto sets the protocol token.
func Proto(p string) FlowOpt {
	return func(f *flow.Flow) { f.Protocol = p }
}

// Data sets the byte counts.
func Data(src, dst int64) FlowOpt {
	return func(f *flow.Flow) {
		f.SrcData = src
		f.DstData = dst
	}
}

// NewFlow builds a plausible inter-subnet tcp flow with payload in both
// directions; options override.
func NewFlow(idx int, ts int64, srcIP, dstIP string, opts ...FlowOpt) flow.Flow {
	f := flow.Flow{
		Idx:         idx,
		Timestamp:   ts,
		SrcIP:       srcIP,
		DstIP:       dstIP,
		SrcPort:     1024,
		DstPort:     80,
		Protocol:    "tcp",
		SrcData:     100,
		DstData:     100,
		InterSubnet: true,
		NIDSPred:    -1,
	}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// WriteFile writes contents to a file under the test's temp dir and
// returns its path.
func WriteFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
