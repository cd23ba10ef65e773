package kb

import "sort"

// RuleBase holds the rule set of a knowledge base, kept sorted by
// descending priority with insertion order as the tie-break, matching
// the firing order the driver uses on every pass.
type RuleBase struct {
	rules []Rule
}

// NewRuleBase returns an empty rule base.
func NewRuleBase() *RuleBase {
	return &RuleBase{}
}

// Add appends r and re-sorts by (priority desc, insertion order asc).
func (rb *RuleBase) Add(r Rule) {
	r.seq = len(rb.rules)
	rb.rules = append(rb.rules, r)
	sort.SliceStable(rb.rules, func(i, j int) bool {
		if rb.rules[i].Priority != rb.rules[j].Priority {
			return rb.rules[i].Priority > rb.rules[j].Priority
		}
		return rb.rules[i].seq < rb.rules[j].seq
	})
}

// Rules returns the rule set in firing order.
func (rb *RuleBase) Rules() []Rule {
	out := make([]Rule, len(rb.rules))
	copy(out, rb.rules)
	return out
}

// Clear empties the rule base.
func (rb *RuleBase) Clear() {
	rb.rules = nil
}

// RemoveWhere deletes every rule matching pred, preserving order.
// Reports how many rules were removed.
func (rb *RuleBase) RemoveWhere(pred func(Rule) bool) int {
	kept := rb.rules[:0]
	removed := 0
	for _, r := range rb.rules {
		if pred(r) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	rb.rules = kept
	return removed
}
