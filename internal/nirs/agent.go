package nirs

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"grimm.is/nirs/internal/events"
	"grimm.is/nirs/internal/iptables"
	"grimm.is/nirs/internal/logging"
	"grimm.is/nirs/internal/metrics"
	"grimm.is/nirs/internal/ollama"
)

// AgentConfig parameterises the iterative strategy.
type AgentConfig struct {
	NumExamples int
	TargetCBR   float64
	TargetWBR   float64
	MaxAttempts int
	// Critical are the protected subnets; any candidate overlapping one is
	// rejected by the evaluator.
	Critical []netip.Prefix
}

// Agent is the iterative strategy: a bounded propose/evaluate/critique loop
// around the chat model. Each proposal is checked by the evaluation tool
// against the windows captured at the start of the update; the loop ends on
// the first rule meeting the CBR/WBR targets, or gives up after MaxAttempts.
type Agent struct {
	client ChatClient
	cfg    AgentConfig
	hub    *events.Hub
	logger *logging.Logger
}

// NewAgent creates the iterative strategy.
func NewAgent(client ChatClient, cfg AgentConfig, hub *events.Hub) *Agent {
	if cfg.NumExamples <= 0 {
		cfg.NumExamples = 10
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Agent{
		client: client,
		cfg:    cfg,
		hub:    hub,
		logger: logging.WithComponent("agent"),
	}
}

// Name implements Strategy.
func (a *Agent) Name() string { return "agent" }

// MinAlertFlows implements Strategy. The agent only engages once the step
// carries a meaningful burst of alerts.
func (a *Agent) MinAlertFlows() int { return 11 }

// Synthesize implements Strategy.
func (a *Agent) Synthesize(ctx context.Context, ev Evidence) (*iptables.Rule, error) {
	rs := rulesetOf(ev.Rules)
	alerts := rs.FilterUnmatched(ev.AlertWindow)
	benign := rs.FilterUnmatched(ev.BenignWindow)

	seed := ollama.AgentPrompt(
		flowsCSV(alerts, a.cfg.NumExamples),
		flowsCSV(benign, a.cfg.NumExamples),
		a.criticalList(),
	)

	// The conversation accumulates across attempts; the windows are the
	// snapshots taken at the start of the update and stay fixed.
	conversation := []ollama.Message{{Role: "user", Content: seed}}

	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		conversation = append(conversation, ollama.Message{
			Role:    "user",
			Content: "Generate an iptables rule following the same instructions as before.",
		})

		answer, err := a.client.Chat(ctx, conversation)
		if err != nil {
			// Transport failures burn an attempt; they are never fatal.
			a.logger.Warn("chat failed", "attempt", attempt, "error", err)
			a.emitAttempt(attempt, "INVALID: chat transport failure", 0, 1)
			continue
		}
		conversation = append(conversation, ollama.Message{Role: "assistant", Content: answer})

		text, err := ollama.ExtractRule(answer)
		if err != nil {
			text = "none"
		}

		result := EvaluateRule(text, ev.AlertWindow, ev.BenignWindow, a.cfg.Critical)
		a.logger.Debug("rule evaluated", "attempt", attempt, "rule", text,
			"status", result.Status, "cbr", result.CBR, "wbr", result.WBR)
		a.emitAttempt(attempt, result.Status, result.CBR, result.WBR)

		if result.Valid() && result.CBR >= a.cfg.TargetCBR && result.WBR <= a.cfg.TargetWBR {
			rule, err := iptables.Parse(text)
			if err != nil {
				return nil, err
			}
			metrics.Get().AgentAttempts.Observe(float64(attempt))
			a.logger.Info("targets met", "attempt", attempt, "rule", text,
				"cbr", result.CBR, "wbr", result.WBR)
			return rule, nil
		}

		conversation = append(conversation, ollama.Message{
			Role:    "system",
			Content: a.critique(result),
		})
	}

	metrics.Get().AgentGiveUps.Inc()
	a.logger.Info("attempts exhausted, no rule adopted", "max_attempts", a.cfg.MaxAttempts)
	if a.hub != nil {
		a.hub.Publish(events.Event{
			Type:   events.EventAgentGiveUp,
			Source: "agent",
			Data:   events.AgentAttemptData{Attempt: a.cfg.MaxAttempts, Status: "give_up"},
		})
	}
	return nil, nil
}

// critique renders the feedback message routed back to the model.
func (a *Agent) critique(result Evaluation) string {
	var reason string
	switch {
	case result.BlockedCritical():
		reason = fmt.Sprintf("The rule blocks a critical subnet. Generate another rule that does not block the protected subnets %s.", a.criticalList())
	case !result.Valid():
		reason = "Invalid rule, failed validation."
	case result.CBR < a.cfg.TargetCBR:
		reason = fmt.Sprintf("Correct Block Rate too low: CBR=%.3f (target >= %.2f).", result.CBR, a.cfg.TargetCBR)
	default:
		reason = fmt.Sprintf("Wrong Block Rate too high: WBR=%.3f (target <= %.2f).", result.WBR, a.cfg.TargetWBR)
	}

	return fmt.Sprintf(
		"EVALUATION\n- Status: %s\n- Decision: %s\nGuidance: Generate a different valid rule that does not block critical traffic.",
		result.Status, reason,
	)
}

// criticalList renders the protected subnets for prompt text.
func (a *Agent) criticalList() string {
	if len(a.cfg.Critical) == 0 {
		return "(none)"
	}
	parts := make([]string, len(a.cfg.Critical))
	for i, p := range a.cfg.Critical {
		parts[i] = p.String()
	}
	return strings.Join(parts, " and ")
}

func (a *Agent) emitAttempt(attempt int, status string, cbr, wbr float64) {
	if a.hub == nil {
		return
	}
	a.hub.Publish(events.Event{
		Type:   events.EventAgentAttempt,
		Source: "agent",
		Data:   events.AgentAttemptData{Attempt: attempt, Status: status, CBR: cbr, WBR: wbr},
	})
}
