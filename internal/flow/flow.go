// Package flow defines the flow record that the replay scheduler, the rule
// matcher and the sliding windows operate on, plus the dataset loaders that
// produce it.
package flow

import (
	"fmt"
	"sort"
)

// Flow is one completed network connection record. Flows are immutable once
// ingested except for IsBlocked, which only ever transitions 0 -> 1.
type Flow struct {
	Idx         int
	Timestamp   int64 // milliseconds, non-decreasing across the stream
	SrcIP       string
	DstIP       string
	SrcPort     uint16
	DstPort     uint16
	Protocol    string // lowercase token: tcp, udp, icmp, hopopt, ...
	SrcData     int64  // bytes sent by the source
	DstData     int64  // bytes sent by the destination
	InterSubnet bool
	Label       int     // ground truth: 0 benign, 1 malicious (evaluation only)
	NIDSPred    float64 // per-flow alert score; < 0 means training flow
	AttackType  string
	IsAlert     bool
	IsBlocked   bool
}

// Table is an ordered collection of flows. The replay precondition is that
// it is sorted by Timestamp ascending.
type Table []Flow

// ErrUnsorted is returned when a table violates the timestamp ordering
// precondition.
var ErrUnsorted = fmt.Errorf("flow table is not sorted by timestamp")

// CheckSorted verifies the timestamp ordering precondition.
func (t Table) CheckSorted() error {
	for i := 1; i < len(t); i++ {
		if t[i].Timestamp < t[i-1].Timestamp {
			return fmt.Errorf("%w: row %d (t=%d) precedes row %d (t=%d)",
				ErrUnsorted, i, t[i].Timestamp, i-1, t[i-1].Timestamp)
		}
	}
	return nil
}

// SortByTimestamp sorts the table by timestamp ascending, preserving the
// relative order of equal timestamps.
func (t Table) SortByTimestamp() {
	sort.SliceStable(t, func(i, j int) bool {
		return t[i].Timestamp < t[j].Timestamp
	})
}

// Reindex assigns stable Idx values 0..n-1 in current order.
func (t Table) Reindex() {
	for i := range t {
		t[i].Idx = i
	}
}

// MinTimestamp returns the smallest timestamp, or 0 for an empty table.
func (t Table) MinTimestamp() int64 {
	if len(t) == 0 {
		return 0
	}
	min := t[0].Timestamp
	for _, f := range t[1:] {
		if f.Timestamp < min {
			min = f.Timestamp
		}
	}
	return min
}

// MaxTimestamp returns the largest timestamp, or 0 for an empty table.
func (t Table) MaxTimestamp() int64 {
	if len(t) == 0 {
		return 0
	}
	max := t[0].Timestamp
	for _, f := range t[1:] {
		if f.Timestamp > max {
			max = f.Timestamp
		}
	}
	return max
}

// Filter returns the flows for which keep returns true.
func (t Table) Filter(keep func(*Flow) bool) Table {
	var out Table
	for i := range t {
		if keep(&t[i]) {
			out = append(out, t[i])
		}
	}
	return out
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	copy(out, t)
	return out
}
