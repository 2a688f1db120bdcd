// Package metrics exposes Prometheus instrumentation for a replay run.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds all NIRS metrics.
type Registry struct {
	// Replay metrics
	StepsTotal   prometheus.Counter
	FlowsBlocked *prometheus.CounterVec
	StreamTime   prometheus.Gauge

	// Ruleset metrics
	ActiveRules     prometheus.Gauge
	RulesAdded      *prometheus.CounterVec
	RulesEvicted    prometheus.Counter
	RulesRejected   *prometheus.CounterVec
	DuplicateRules  prometheus.Counter

	// Window metrics
	AlertWindowSize  prometheus.Gauge
	BenignWindowSize prometheus.Gauge
	WindowResets     prometheus.Counter

	// LLM metrics
	LLMRequests *prometheus.CounterVec
	LLMLatency  prometheus.Histogram

	// Agent metrics
	AgentAttempts prometheus.Histogram
	AgentGiveUps  prometheus.Counter
}

// Get returns the global metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = newRegistry()
	})
	return registry
}

func newRegistry() *Registry {
	r := &Registry{}

	r.StepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nirs_replay_steps_total",
		Help: "Total replay steps executed",
	})

	r.FlowsBlocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nirs_flows_blocked_total",
		Help: "Flows marked blocked, by ground-truth label",
	}, []string{"label"})

	r.StreamTime = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nirs_replay_stream_time_ms",
		Help: "Current replay position in stream milliseconds",
	})

	r.ActiveRules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nirs_ruleset_active_rules",
		Help: "Current number of rules in the ruleset",
	})

	r.RulesAdded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nirs_ruleset_rules_added_total",
		Help: "Rules appended to the ruleset, by strategy",
	}, []string{"strategy"})

	r.RulesEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nirs_ruleset_rules_evicted_total",
		Help: "Rules evicted from the ruleset (oldest-first)",
	})

	r.RulesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nirs_ruleset_rules_rejected_total",
		Help: "Candidate rules rejected, by reason",
	}, []string{"reason"})

	r.DuplicateRules = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nirs_ruleset_duplicate_rules_total",
		Help: "Candidate rules dropped as textual duplicates",
	})

	r.AlertWindowSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nirs_alert_window_size",
		Help: "Flows currently held in the alert window",
	})

	r.BenignWindowSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nirs_benign_window_size",
		Help: "Flows currently held in the benign window",
	})

	r.WindowResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nirs_alert_window_resets_total",
		Help: "Alert window resets triggered by the idle threshold",
	})

	r.LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nirs_llm_requests_total",
		Help: "Chat-completion requests, by outcome",
	}, []string{"outcome"})

	r.LLMLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nirs_llm_request_seconds",
		Help:    "Chat-completion request latency",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	r.AgentAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nirs_agent_attempts_per_update",
		Help:    "Proposal attempts the agent needed per update",
		Buckets: prometheus.LinearBuckets(1, 1, 10),
	})

	r.AgentGiveUps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nirs_agent_giveups_total",
		Help: "Agent updates that exhausted max attempts without a rule",
	})

	return r
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a metrics HTTP server on addr. It returns immediately; the
// server runs until the process exits.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	go http.ListenAndServe(addr, mux)
}
