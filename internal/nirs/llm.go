package nirs

import (
	"context"
	"errors"
	"fmt"

	"grimm.is/nirs/internal/iptables"
	"grimm.is/nirs/internal/logging"
	"grimm.is/nirs/internal/ollama"
)

// LLM is the single-shot model-backed strategy: one chat completion per
// update, one rule extracted from the answer, abstain on anything invalid.
type LLM struct {
	client       ChatClient
	numExamples  int
	systemPrompt string
	logger       *logging.Logger
}

// NewLLM creates the single-shot strategy. numExamples bounds how many
// tail rows of each window are rendered into the prompt.
func NewLLM(client ChatClient, numExamples int) *LLM {
	if numExamples <= 0 {
		numExamples = 10
	}
	return &LLM{
		client:       client,
		numExamples:  numExamples,
		systemPrompt: ollama.SystemPrompt(),
		logger:       logging.WithComponent("llm"),
	}
}

// Name implements Strategy.
func (s *LLM) Name() string { return "llm" }

// MinAlertFlows implements Strategy.
func (s *LLM) MinAlertFlows() int { return 1 }

// Synthesize implements Strategy.
func (s *LLM) Synthesize(ctx context.Context, ev Evidence) (*iptables.Rule, error) {
	rs := rulesetOf(ev.Rules)
	alerts := rs.FilterUnmatched(ev.AlertWindow)
	benign := rs.FilterUnmatched(ev.BenignWindow)

	userPrompt := ollama.UserPrompt(
		flowsCSV(alerts, s.numExamples),
		flowsCSV(benign, s.numExamples),
		ev.Status,
	)

	answer, err := s.client.Chat(ctx, []ollama.Message{
		{Role: "system", Content: s.systemPrompt},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	text, err := ollama.ExtractRule(answer)
	if err != nil {
		if errors.Is(err, ollama.ErrRuleNotFound) {
			s.logger.Warn("failed to extract rule from answer")
			return nil, nil
		}
		return nil, err
	}

	rule, err := iptables.Parse(text)
	if err != nil {
		s.logger.Warn("model produced an invalid rule", "rule", text, "error", err)
		return nil, nil
	}
	return rule, nil
}
