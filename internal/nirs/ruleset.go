package nirs

import (
	"sort"
	"strings"

	"grimm.is/nirs/internal/flow"
	"grimm.is/nirs/internal/iptables"
)

// Ruleset is the bounded, ordered sequence of active DROP rules. Oldest
// rules are evicted first when the cap is exceeded; textual duplicates are
// rejected silently.
type Ruleset struct {
	rules    []*iptables.Rule
	maxRules int
}

// NewRuleset creates an empty ruleset bounded by maxRules.
func NewRuleset(maxRules int) *Ruleset {
	return &Ruleset{maxRules: maxRules}
}

// Len returns the number of active rules.
func (rs *Ruleset) Len() int { return len(rs.rules) }

// Rules returns a snapshot of the active rules in order.
func (rs *Ruleset) Rules() []*iptables.Rule {
	out := make([]*iptables.Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Contains reports whether an equal rule (textual equality) is present.
func (rs *Ruleset) Contains(r *iptables.Rule) bool {
	for _, have := range rs.rules {
		if have.Equal(r) {
			return true
		}
	}
	return false
}

// Append adds a rule, evicting the oldest rules beyond the cap. It returns
// whether the rule was added and any rules evicted to make room. Duplicates
// are dropped silently.
func (rs *Ruleset) Append(r *iptables.Rule) (added bool, evicted []*iptables.Rule) {
	if rs.Contains(r) {
		return false, nil
	}
	rs.rules = append(rs.rules, r)
	if rs.maxRules > 0 && len(rs.rules) > rs.maxRules {
		cut := len(rs.rules) - rs.maxRules
		evicted = rs.rules[:cut]
		rs.rules = rs.rules[cut:]
	}
	return true, evicted
}

// Match returns the sorted union of Idx values matched by any rule.
func (rs *Ruleset) Match(t flow.Table) []int {
	seen := make(map[int]struct{})
	for _, r := range rs.rules {
		for _, idx := range r.Match(t) {
			seen[idx] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Status renders the ruleset the way iptables-save would, one rule per
// line, for inclusion in LLM prompts. An empty ruleset renders as
// "[Empty]".
func (rs *Ruleset) Status() string {
	if len(rs.rules) == 0 {
		return "[Empty]"
	}
	var b strings.Builder
	for _, r := range rs.rules {
		b.WriteString(r.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// FilterUnmatched returns the flows of t not matched by any rule. The
// synthesis strategies prune already-covered evidence this way before
// synthesizing.
func (rs *Ruleset) FilterUnmatched(t flow.Table) flow.Table {
	if len(rs.rules) == 0 || len(t) == 0 {
		return t
	}
	blocked := make(map[int]struct{})
	for _, r := range rs.rules {
		for _, idx := range r.Match(t) {
			blocked[idx] = struct{}{}
		}
	}
	return t.Filter(func(f *flow.Flow) bool {
		_, hit := blocked[f.Idx]
		return !hit
	})
}
