package nirs

import (
	"context"
	"encoding/csv"
	"strconv"
	"strings"

	"grimm.is/nirs/internal/flow"
	"grimm.is/nirs/internal/iptables"
	"grimm.is/nirs/internal/ollama"
)

// Evidence is the immutable snapshot a strategy synthesizes from. The core
// re-serialises all ruleset mutation; strategies only read.
type Evidence struct {
	Rules        []*iptables.Rule
	AlertWindow  flow.Table
	BenignWindow flow.Table
	Status       string // textual ruleset status for prompts
}

// ChatClient is the chat-completion surface the model-backed strategies
// depend on. *ollama.Client satisfies it.
type ChatClient interface {
	Chat(ctx context.Context, messages []ollama.Message) (string, error)
}

// Strategy produces at most one candidate rule per invocation.
type Strategy interface {
	// Name identifies the strategy in logs, metrics and result files.
	Name() string
	// MinAlertFlows is the smallest alert slice worth synthesizing from.
	MinAlertFlows() int
	// Synthesize returns a candidate rule, or nil to abstain. Errors are
	// recoverable: the core collapses them to "no rule added this step".
	Synthesize(ctx context.Context, ev Evidence) (*iptables.Rule, error)
}

// Noop is the do-nothing baseline strategy ("base"). It maintains windows
// through the core but never emits a rule; useful for debugging a replay.
type Noop struct{}

// Name implements Strategy.
func (Noop) Name() string { return "base" }

// MinAlertFlows implements Strategy.
func (Noop) MinAlertFlows() int { return 1 }

// Synthesize implements Strategy.
func (Noop) Synthesize(ctx context.Context, ev Evidence) (*iptables.Rule, error) {
	return nil, nil
}

// promptColumns is the projection rendered into LLM prompts.
var promptColumns = []string{"src_ip", "dst_ip", "protocol", "src_port", "dst_port", "src_data", "dst_data"}

// flowsCSV renders the tail of a flow table as CSV for prompt inclusion.
func flowsCSV(t flow.Table, tail int) string {
	if tail > 0 && len(t) > tail {
		t = t[len(t)-tail:]
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	w.Write(promptColumns)
	for i := range t {
		f := &t[i]
		w.Write([]string{
			f.SrcIP,
			f.DstIP,
			f.Protocol,
			strconv.Itoa(int(f.SrcPort)),
			strconv.Itoa(int(f.DstPort)),
			strconv.FormatInt(f.SrcData, 10),
			strconv.FormatInt(f.DstData, 10),
		})
	}
	w.Flush()
	return b.String()
}
