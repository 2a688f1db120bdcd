package nirs

import (
	"context"
	"errors"

	"grimm.is/nirs/internal/events"
	"grimm.is/nirs/internal/flow"
	"grimm.is/nirs/internal/iptables"
	"grimm.is/nirs/internal/logging"
	"grimm.is/nirs/internal/metrics"
)

// Responder is the NIRS core. It owns the ruleset and the two evidence
// windows; the replay scheduler drives it through ApplyRules and Update.
type Responder struct {
	windows  *Windows
	ruleset  *Ruleset
	strategy Strategy

	hub    *events.Hub
	logger *logging.Logger
}

// Option configures a Responder.
type Option func(*Responder)

// WithHub attaches an event hub for ruleset and window events.
func WithHub(hub *events.Hub) Option {
	return func(n *Responder) {
		n.hub = hub
	}
}

// WithLogger overrides the default component logger.
func WithLogger(l *logging.Logger) Option {
	return func(n *Responder) {
		n.logger = l
	}
}

// New creates a Responder with the given window policy, rule cap and
// synthesis strategy.
func New(wcfg WindowConfig, maxRules int, strategy Strategy, opts ...Option) *Responder {
	n := &Responder{
		windows:  NewWindows(wcfg),
		ruleset:  NewRuleset(maxRules),
		strategy: strategy,
		logger:   logging.WithComponent("nirs"),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.windows.OnReset(func(idleMs int64, newSize int) {
		metrics.Get().WindowResets.Inc()
		n.logger.Debug("alert window reset", "idle_ms", idleMs, "size", newSize)
		if n.hub != nil {
			n.hub.Publish(events.Event{
				Type:   events.EventWindowReset,
				Source: "nirs",
				Data:   events.WindowResetData{IdleMs: idleMs, Size: newSize},
			})
		}
	})
	return n
}

// Ruleset exposes the active ruleset.
func (n *Responder) Ruleset() *Ruleset { return n.ruleset }

// Windows exposes the evidence windows.
func (n *Responder) Windows() *Windows { return n.windows }

// ApplyRules matches every active rule against the flow table and returns
// the union of matched Idx values.
func (n *Responder) ApplyRules(t flow.Table) []int {
	return n.ruleset.Match(t)
}

// Update folds a fresh step slice into the windows and, when the alert
// portion is large enough for the strategy, asks it for at most one new
// rule. All recoverable synthesis errors collapse to "no rule added".
func (n *Responder) Update(ctx context.Context, slice flow.Table) {
	benign := slice.Filter(func(f *flow.Flow) bool { return !f.IsAlert })
	alerts := slice.Filter(func(f *flow.Flow) bool { return f.IsAlert })

	n.windows.IngestBenign(benign)

	m := metrics.Get()
	defer func() {
		m.AlertWindowSize.Set(float64(n.windows.AlertLen()))
		m.BenignWindowSize.Set(float64(n.windows.BenignLen()))
	}()

	if len(alerts) < n.strategy.MinAlertFlows() {
		return
	}
	n.windows.IngestAlerts(alerts)

	ev := Evidence{
		Rules:        n.ruleset.Rules(),
		AlertWindow:  n.windows.Alerts(),
		BenignWindow: n.windows.Benign(),
		Status:       n.ruleset.Status(),
	}

	rule, err := n.strategy.Synthesize(ctx, ev)
	if err != nil {
		if errors.Is(err, iptables.ErrInvalidRule) {
			m.RulesRejected.WithLabelValues("invalid").Inc()
		} else {
			m.RulesRejected.WithLabelValues("error").Inc()
		}
		n.logger.Warn("synthesis failed, no rule added", "strategy", n.strategy.Name(), "error", err)
		return
	}
	if rule == nil {
		return
	}

	added, evicted := n.ruleset.Append(rule)
	if !added {
		m.DuplicateRules.Inc()
		n.logger.Debug("duplicate rule dropped", "rule", rule.String())
		return
	}

	m.RulesAdded.WithLabelValues(n.strategy.Name()).Inc()
	m.ActiveRules.Set(float64(n.ruleset.Len()))
	n.logger.Info("rule added", "strategy", n.strategy.Name(), "rule", rule.String(), "ruleset_size", n.ruleset.Len())
	if n.hub != nil {
		n.hub.EmitRuleAdded(rule.String(), n.strategy.Name(), n.ruleset.Len())
	}
	for _, old := range evicted {
		m.RulesEvicted.Inc()
		n.logger.Info("rule evicted", "rule", old.String())
		if n.hub != nil {
			n.hub.EmitRuleEvicted(old.String(), n.ruleset.Len())
		}
	}
}
