// Package nirs implements the response core: the sliding evidence windows,
// the bounded ruleset, and the pluggable rule-synthesis strategies.
package nirs

import (
	"grimm.is/nirs/internal/flow"
)

// WindowConfig parameterises the two evidence buffers.
type WindowConfig struct {
	// MaxAlertIdleMs resets the alert window when the gap between the
	// stored flows and a new slice exceeds it.
	MaxAlertIdleMs int64
	// MaxAlertLenMs bounds the temporal span of the alert window.
	MaxAlertLenMs int64
	// BenignLenMs bounds the benign window relative to the alert window's
	// newest timestamp (the benign horizon tracks alert time, not wall
	// clock).
	BenignLenMs int64
}

// Windows holds the two rolling evidence buffers that feed rule synthesis.
// The alert window holds only flows with IsAlert set; the benign window
// only flows without.
type Windows struct {
	cfg    WindowConfig
	alerts flow.Table
	benign flow.Table

	// onReset is notified when the idle threshold resets the alert window.
	onReset func(idleMs int64, newSize int)
}

// NewWindows creates empty windows with the given policy.
func NewWindows(cfg WindowConfig) *Windows {
	return &Windows{cfg: cfg}
}

// OnReset registers a callback for idle resets of the alert window.
func (w *Windows) OnReset(fn func(idleMs int64, newSize int)) {
	w.onReset = fn
}

// IngestAlerts folds a slice of alert flows into the alert window.
//
// If the window is empty the slice becomes the window. Otherwise, when the
// gap between the window's newest flow and the slice's oldest flow exceeds
// the idle threshold the window is reset to the slice; otherwise the slice
// is appended. Either way, entries older than the span bound (measured
// from the window max before ingestion) are evicted.
func (w *Windows) IngestAlerts(slice flow.Table) {
	if len(slice) == 0 {
		return
	}

	if len(w.alerts) == 0 {
		w.alerts = slice.Clone()
		return
	}

	tNewMin := slice.MinTimestamp()
	tCurMax := w.alerts.MaxTimestamp()

	if idle := tCurMax - tNewMin; idle > w.cfg.MaxAlertIdleMs {
		w.alerts = slice.Clone()
		if w.onReset != nil {
			w.onReset(idle, len(w.alerts))
		}
	} else {
		w.alerts = append(w.alerts, slice...)
	}

	cutoff := tCurMax - w.cfg.MaxAlertLenMs
	w.alerts = w.alerts.Filter(func(f *flow.Flow) bool {
		return f.Timestamp > cutoff
	})
}

// IngestBenign appends a slice of benign flows, then evicts everything
// behind the benign horizon. The horizon is anchored to the alert window's
// newest timestamp; until the first alerts arrive it is undefined and the
// benign window stays empty.
func (w *Windows) IngestBenign(slice flow.Table) {
	w.benign = append(w.benign, slice.Clone()...)
	if len(w.benign) == 0 {
		return
	}

	if len(w.alerts) == 0 {
		w.benign = nil
		return
	}

	cutoff := w.alerts.MaxTimestamp() - w.cfg.BenignLenMs
	w.benign = w.benign.Filter(func(f *flow.Flow) bool {
		return f.Timestamp > cutoff
	})
}

// Alerts returns a snapshot of the alert window.
func (w *Windows) Alerts() flow.Table {
	return w.alerts.Clone()
}

// Benign returns a snapshot of the benign window.
func (w *Windows) Benign() flow.Table {
	return w.benign.Clone()
}

// AlertLen returns the alert window size.
func (w *Windows) AlertLen() int { return len(w.alerts) }

// BenignLen returns the benign window size.
func (w *Windows) BenignLen() int { return len(w.benign) }
