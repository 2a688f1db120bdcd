// Package events provides a unified pub/sub event bus for the NIRS.
// Replay progress, ruleset changes and strategy activity flow through this
// hub so metrics and logging stay decoupled from the scheduler.
package events

import "time"

// EventType identifies the category of event.
type EventType string

// Event types for the replay pipeline.
const (
	// Scheduler events
	EventReplayStep EventType = "replay.step"
	EventReplayDone EventType = "replay.done"

	// Blocking events
	EventFlowBlocked EventType = "flow.blocked"

	// Ruleset events
	EventRuleAdded   EventType = "rule.added"
	EventRuleEvicted EventType = "rule.evicted"

	// Window events
	EventWindowReset EventType = "window.reset"

	// Agent strategy events
	EventAgentAttempt EventType = "agent.attempt"
	EventAgentGiveUp  EventType = "agent.giveup"
)

// Event is the core message passed through the event bus.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"` // component that emitted: "replay", "nirs", "agent"
	Data      interface{} `json:"data"`   // type-specific payload
}

// StepData is the payload for EventReplayStep.
type StepData struct {
	Step       int   `json:"step"`
	StreamTime int64 `json:"stream_time_ms"`
	Blocked    int   `json:"blocked"`
	FreshFlows int   `json:"fresh_flows"`
}

// BlockData is the payload for EventFlowBlocked.
type BlockData struct {
	Idx       int    `json:"idx"`
	SrcIP     string `json:"src_ip"`
	DstIP     string `json:"dst_ip"`
	Label     int    `json:"label"`
	Timestamp int64  `json:"timestamp"`
}

// RuleData is the payload for EventRuleAdded/EventRuleEvicted.
type RuleData struct {
	Rule     string `json:"rule"`
	Strategy string `json:"strategy,omitempty"`
	Size     int    `json:"ruleset_size"`
}

// WindowResetData is the payload for EventWindowReset.
type WindowResetData struct {
	IdleMs int64 `json:"idle_ms"`
	Size   int   `json:"new_size"`
}

// AgentAttemptData is the payload for EventAgentAttempt/EventAgentGiveUp.
type AgentAttemptData struct {
	Attempt int     `json:"attempt"`
	Status  string  `json:"status"`
	CBR     float64 `json:"cbr"`
	WBR     float64 `json:"wbr"`
}
