// Package replay drives a recorded flow stream through the NIRS core in
// fixed update intervals and records which flows end up blocked.
package replay

import (
	"context"
	"fmt"
	"strconv"

	"grimm.is/nirs/internal/clock"
	"grimm.is/nirs/internal/events"
	"grimm.is/nirs/internal/flow"
	"grimm.is/nirs/internal/logging"
	"grimm.is/nirs/internal/metrics"
	"grimm.is/nirs/internal/nirs"
)

// Config parameterises a replay run.
type Config struct {
	// UpdateTimeMs is the fixed step the scheduler advances by.
	UpdateTimeMs int64
}

// Summary is the outcome of a finished replay.
type Summary struct {
	Steps    int
	Blocked  int
	CBR      float64 // blocked-malicious / total-malicious
	WBR      float64 // blocked-benign / total-benign
	Rules    []string
	Duration float64 // wall-clock seconds
}

// Scheduler owns the replay loop. It mutates only the IsBlocked column of
// the table it is given; everything else is treated as immutable.
type Scheduler struct {
	cfg    Config
	core   *nirs.Responder
	hub    *events.Hub
	logger *logging.Logger
}

// NewScheduler creates a scheduler around a NIRS core.
func NewScheduler(cfg Config, core *nirs.Responder, hub *events.Hub) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		core:   core,
		hub:    hub,
		logger: logging.WithComponent("replay"),
	}
}

// Run replays the table. The table must be sorted by timestamp ascending;
// apart from cancellation of ctx, that violation is the scheduler's only
// fatal condition. Within each step
// the current ruleset is applied to the full table, block marks are gated
// to flows inside the step that cross a subnet boundary, and the remaining
// fresh evidence is handed to the core.
func (s *Scheduler) Run(ctx context.Context, table flow.Table) (*Summary, error) {
	if err := table.CheckSorted(); err != nil {
		return nil, fmt.Errorf("replay precondition: %w", err)
	}

	m := metrics.Get()
	started := clock.Now()

	tCur := table.MinTimestamp()
	step := 0

	for s.remainingAlerts(table, tCur) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tNext := tCur + s.cfg.UpdateTimeMs
		inStep := func(f *flow.Flow) bool {
			return f.Timestamp >= tCur && f.Timestamp <= tNext
		}

		window := table.Filter(inStep)
		if len(window) == 0 {
			tCur = tNext
			step++
			continue
		}

		// Apply the current ruleset to the whole table; writes are gated
		// to this step so a rule never blocks retroactively.
		blockedIdx := s.core.ApplyRules(table)
		blocked := make(map[int]struct{}, len(blockedIdx))
		for _, idx := range blockedIdx {
			blocked[idx] = struct{}{}
		}

		blockedNow := 0
		for i := range table {
			f := &table[i]
			if _, hit := blocked[f.Idx]; !hit {
				continue
			}
			if !inStep(f) || !f.InterSubnet {
				continue
			}
			if !f.IsBlocked {
				f.IsBlocked = true
				blockedNow++
				m.FlowsBlocked.WithLabelValues(strconv.Itoa(f.Label)).Inc()
				if s.hub != nil {
					s.hub.EmitFlowBlocked(f.Idx, f.SrcIP, f.DstIP, f.Label, f.Timestamp)
				}
			}
		}

		// Only steps that still carry an unblocked inter-subnet alert with
		// payload feed the strategy.
		remaining := table.Filter(func(f *flow.Flow) bool {
			return f.IsAlert && inStep(f) && f.InterSubnet && !f.IsBlocked &&
				(f.SrcData > 0 || f.DstData > 0)
		})
		if len(remaining) == 0 {
			tCur = tNext
			step++
			continue
		}

		fresh := table.Filter(func(f *flow.Flow) bool {
			if _, hit := blocked[f.Idx]; hit {
				return false
			}
			return inStep(f) && f.InterSubnet && (f.SrcData > 0 || f.DstData > 0)
		})

		s.logger.Debug("step", "n", step, "stream_ms", tCur-table.MinTimestamp(),
			"window", len(window), "blocked", blockedNow, "fresh", len(fresh))

		s.core.Update(ctx, fresh)

		m.StepsTotal.Inc()
		m.StreamTime.Set(float64(tCur))
		if s.hub != nil {
			s.hub.EmitStep(step, tCur, blockedNow, len(fresh))
		}

		tCur = tNext
		step++
	}

	summary := s.summarize(table, step, clock.Since(started).Seconds())
	s.logger.Info("replay finished", "steps", summary.Steps, "blocked", summary.Blocked,
		"cbr", summary.CBR, "wbr", summary.WBR, "rules", len(summary.Rules))
	if s.hub != nil {
		s.hub.Publish(events.Event{Type: events.EventReplayDone, Source: "replay", Data: *summary})
	}
	return summary, nil
}

// remainingAlerts is the loop predicate: any alert flow strictly after the
// current time keeps the replay going.
func (s *Scheduler) remainingAlerts(table flow.Table, tCur int64) bool {
	for i := range table {
		if table[i].Timestamp > tCur && table[i].IsAlert {
			return true
		}
	}
	return false
}

func (s *Scheduler) summarize(table flow.Table, steps int, seconds float64) *Summary {
	summary := &Summary{Steps: steps, Duration: seconds}
	var benign, benignBlocked, malicious, maliciousBlocked int
	for i := range table {
		if table[i].IsBlocked {
			summary.Blocked++
		}
		if table[i].Label == 0 {
			benign++
			if table[i].IsBlocked {
				benignBlocked++
			}
		} else {
			malicious++
			if table[i].IsBlocked {
				maliciousBlocked++
			}
		}
	}
	if malicious > 0 {
		summary.CBR = float64(maliciousBlocked) / float64(malicious)
	}
	if benign > 0 {
		summary.WBR = float64(benignBlocked) / float64(benign)
	}
	for _, r := range s.core.Ruleset().Rules() {
		summary.Rules = append(summary.Rules, r.String())
	}
	return summary
}
