package kb

import (
	"fmt"
	"math"
	"strings"
)

// MergeStrategy selects how two knowledge bases are combined.
type MergeStrategy string

const (
	MergeUnion      MergeStrategy = "union"
	MergeOverride   MergeStrategy = "override"
	MergeComplement MergeStrategy = "complement"
	MergeWeighted   MergeStrategy = "weighted"
	MergeSmart      MergeStrategy = "smart"
)

// MergeOptions configures a Merge call.
type MergeOptions struct {
	Strategy MergeStrategy

	// Weights is (w1, w2), required and must sum to a positive value
	// under MergeWeighted.
	Weights [2]float64

	// Threshold is the fact-contradiction cutoff for conflict
	// detection; zero selects the spec default of 0.5.
	Threshold float64

	// ExclusionFamilies declares groups of predicates that may not
	// simultaneously hold, with differing values, for the same
	// subject (every argument position but the last).
	ExclusionFamilies [][]string

	// AutoResolve, under MergeSmart, applies each conflict's suggested
	// resolution to the merged result instead of merely reporting it.
	AutoResolve bool
}

// ConflictKind names a category of disagreement conflict detection can
// surface when merging two knowledge bases.
type ConflictKind string

const (
	FactContradiction ConflictKind = "fact_contradiction"
	MutualExclusion   ConflictKind = "mutual_exclusion"
	RuleConflict       ConflictKind = "rule_conflict"
	Subsumption       ConflictKind = "subsumption"
)

// Conflict describes one disagreement found between two knowledge
// bases, with a severity in [0,1] and a human-readable suggestion.
type Conflict struct {
	Kind        ConflictKind
	Severity    float64
	KB1Item     string
	KB2Item     string
	Description string
	Suggested   string

	// resolution plumbing, not part of the reported shape
	ruleToKeep   *Rule
	ruleToRemove *Rule
	factToRemove *Fact
}

// Merge combines base and incoming into a new knowledge base under the
// given strategy. It never mutates base or incoming. For MergeSmart it
// also returns the conflict report; other strategies return a nil
// conflict list.
func Merge(base, incoming *KnowledgeBase, opts MergeOptions) (*KnowledgeBase, []Conflict, error) {
	switch opts.Strategy {
	case MergeUnion:
		return mergeUnion(base, incoming), nil, nil
	case MergeOverride:
		return mergeOverride(base, incoming), nil, nil
	case MergeComplement:
		return mergeComplement(base, incoming), nil, nil
	case MergeWeighted:
		if opts.Weights[0] < 0 || opts.Weights[1] < 0 || opts.Weights[0]+opts.Weights[1] <= 0 {
			return nil, nil, newMergeError("WEIGHTED requires non-negative weights summing to more than zero")
		}
		return mergeWeighted(base, incoming, opts.Weights), nil, nil
	case MergeSmart:
		threshold := opts.Threshold
		if threshold <= 0 {
			threshold = 0.5
		}
		conflicts := DetectConflicts(base, incoming, threshold, opts.ExclusionFamilies)
		if opts.AutoResolve {
			return applyResolutions(base, incoming, conflicts), conflicts, nil
		}
		return mergeUnion(base, incoming), conflicts, nil
	default:
		return nil, nil, newMergeError("unknown merge strategy %q", opts.Strategy)
	}
}

func mergeUnion(base, incoming *KnowledgeBase) *KnowledgeBase {
	out := New()
	for _, f := range base.store.All() {
		out.store.InsertOrCombine(f)
	}
	for _, f := range incoming.store.All() {
		out.store.InsertOrCombine(f)
	}
	for _, r := range base.rules.Rules() {
		out.rules.Add(r)
	}
	for _, r := range incoming.rules.Rules() {
		out.rules.Add(r)
	}
	return out
}

func mergeOverride(base, incoming *KnowledgeBase) *KnowledgeBase {
	out := New()
	for _, f := range base.store.All() {
		out.store.InsertOrCombine(f)
	}
	for _, f := range incoming.store.All() {
		out.store.Set(f)
	}

	rules := append([]Rule(nil), base.rules.Rules()...)
	byName := map[string]int{}
	for i, r := range rules {
		if r.Name != "" {
			byName[r.Name] = i
		}
	}
	for _, r := range incoming.rules.Rules() {
		if r.Name != "" {
			if idx, ok := byName[r.Name]; ok {
				rules[idx] = r
				continue
			}
		}
		rules = append(rules, r)
	}
	for _, r := range rules {
		out.rules.Add(r)
	}
	return out
}

func mergeComplement(base, incoming *KnowledgeBase) *KnowledgeBase {
	out := New()
	existingKeys := map[FactKey]bool{}
	for _, f := range base.store.All() {
		out.store.InsertOrCombine(f)
		existingKeys[f.Key()] = true
	}
	for _, f := range incoming.store.All() {
		if !existingKeys[f.Key()] {
			out.store.InsertOrCombine(f)
		}
	}

	existingIdentities := map[string]bool{}
	for _, r := range base.rules.Rules() {
		existingIdentities[r.Identity()] = true
		out.rules.Add(r)
	}
	for _, r := range incoming.rules.Rules() {
		if !existingIdentities[r.Identity()] {
			out.rules.Add(r)
		}
	}
	return out
}

func mergeWeighted(base, incoming *KnowledgeBase, w [2]float64) *KnowledgeBase {
	out := New()
	incomingFacts := map[FactKey]Fact{}
	for _, f := range incoming.store.All() {
		incomingFacts[f.Key()] = f
	}
	seen := map[FactKey]bool{}
	for _, f := range base.store.All() {
		if inc, ok := incomingFacts[f.Key()]; ok {
			weighted := clampDegree((w[0]*f.Degree + w[1]*inc.Degree) / (w[0] + w[1]))
			out.store.InsertOrCombine(Fact{Predicate: f.Predicate, Args: f.Args, Degree: weighted})
		} else {
			out.store.InsertOrCombine(f)
		}
		seen[f.Key()] = true
	}
	for _, f := range incoming.store.All() {
		if !seen[f.Key()] {
			out.store.InsertOrCombine(f)
		}
	}
	for _, r := range base.rules.Rules() {
		out.rules.Add(r)
	}
	for _, r := range incoming.rules.Rules() {
		out.rules.Add(r)
	}
	return out
}

func clampDegree(d float64) float64 {
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}

// DetectConflicts compares two knowledge bases and reports every
// FactContradiction, MutualExclusion, RuleConflict, and Subsumption it
// finds. It does not mutate either input.
func DetectConflicts(kb1, kb2 *KnowledgeBase, threshold float64, exclusionFamilies [][]string) []Conflict {
	var conflicts []Conflict

	kb1Facts := kb1.store.All()
	kb2Facts := kb2.store.All()
	kb2ByKey := map[FactKey]Fact{}
	for _, f := range kb2Facts {
		kb2ByKey[f.Key()] = f
	}

	for _, f1 := range kb1Facts {
		f2, ok := kb2ByKey[f1.Key()]
		if !ok {
			continue
		}
		diff := math.Abs(f1.Degree - f2.Degree)
		if diff < threshold {
			continue
		}
		f1, f2 := f1, f2
		loser := &f1
		if f1.Degree > f2.Degree {
			loser = &f2
		}
		conflicts = append(conflicts, Conflict{
			Kind:         FactContradiction,
			Severity:     diff,
			KB1Item:      factLabel(f1),
			KB2Item:      factLabel(f2),
			Description:  fmt.Sprintf("%s disagrees with %s by %.3g", factLabel(f1), factLabel(f2), diff),
			Suggested:    "keep the higher degree",
			factToRemove: loser,
		})
	}

	for _, family := range exclusionFamilies {
		members := map[string]bool{}
		for _, p := range family {
			members[p] = true
		}
		for _, f1 := range kb1Facts {
			if !members[f1.Predicate] || len(f1.Args) == 0 {
				continue
			}
			subject1 := subjectOf(f1.Args)
			for _, f2 := range kb2Facts {
				if !members[f2.Predicate] || len(f2.Args) == 0 {
					continue
				}
				if f1.Key() == f2.Key() {
					continue
				}
				if subjectOf(f2.Args) != subject1 {
					continue
				}
				f1, f2 := f1, f2
				loser := &f2
				if f2.Degree > f1.Degree {
					loser = &f1
				}
				conflicts = append(conflicts, Conflict{
					Kind:         MutualExclusion,
					Severity:     math.Min(f1.Degree, f2.Degree),
					KB1Item:      factLabel(f1),
					KB2Item:      factLabel(f2),
					Description:  fmt.Sprintf("%s and %s are mutually exclusive for the same subject", factLabel(f1), factLabel(f2)),
					Suggested:    "keep the higher degree; annotate uncertainty",
					factToRemove: loser,
				})
			}
		}
	}

	kb2Named := map[string]Rule{}
	for _, r := range kb2.rules.Rules() {
		if r.Name != "" {
			kb2Named[r.Name] = r
		}
	}
	for _, r1 := range kb1.rules.Rules() {
		if r1.Name == "" {
			continue
		}
		r2, ok := kb2Named[r1.Name]
		if !ok || ruleBodyKey(r1) == ruleBodyKey(r2) {
			continue
		}
		r1, r2 := r1, r2
		keep, remove := &r1, &r2
		if r2.Priority > r1.Priority {
			keep, remove = &r2, &r1
		}
		conflicts = append(conflicts, Conflict{
			Kind:         RuleConflict,
			Severity:     1.0,
			KB1Item:      r1.Name,
			KB2Item:      r2.Name,
			Description:  fmt.Sprintf("rule %q differs structurally between the two knowledge bases", r1.Name),
			Suggested:    "keep the higher priority; ties break to KB1",
			ruleToKeep:   keep,
			ruleToRemove: remove,
		})
	}

	for _, r1 := range kb1.rules.Rules() {
		for _, r2 := range kb2.rules.Rules() {
			if ruleActionsKey(r1) != ruleActionsKey(r2) {
				continue
			}
			s1, s2 := conditionSet(r1.Conditions), conditionSet(r2.Conditions)
			r1, r2 := r1, r2
			if isStrictSuperset(s1, s2) {
				conflicts = append(conflicts, Conflict{
					Kind:         Subsumption,
					Severity:     0.3,
					KB1Item:      r1.Identity(),
					KB2Item:      r2.Identity(),
					Description:  fmt.Sprintf("rule %q subsumes rule %q", r1.Identity(), r2.Identity()),
					Suggested:    "keep the more specific rule (larger condition set)",
					ruleToKeep:   &r1,
					ruleToRemove: &r2,
				})
			} else if isStrictSuperset(s2, s1) {
				conflicts = append(conflicts, Conflict{
					Kind:         Subsumption,
					Severity:     0.3,
					KB1Item:      r2.Identity(),
					KB2Item:      r1.Identity(),
					Description:  fmt.Sprintf("rule %q subsumes rule %q", r2.Identity(), r1.Identity()),
					Suggested:    "keep the more specific rule (larger condition set)",
					ruleToKeep:   &r2,
					ruleToRemove: &r1,
				})
			}
		}
	}

	return conflicts
}

func applyResolutions(base, incoming *KnowledgeBase, conflicts []Conflict) *KnowledgeBase {
	merged := mergeUnion(base, incoming)
	for _, c := range conflicts {
		switch c.Kind {
		case FactContradiction:
			// insert_or_combine already kept the max degree.
		case MutualExclusion:
			if c.factToRemove != nil {
				merged.store.Remove(c.factToRemove.Predicate, c.factToRemove.Args)
			}
		case RuleConflict:
			if c.ruleToRemove != nil {
				loser := *c.ruleToRemove
				merged.rules.RemoveWhere(func(r Rule) bool {
					return r.Name == loser.Name && ruleBodyKey(r) == ruleBodyKey(loser)
				})
			}
		case Subsumption:
			if c.ruleToRemove != nil {
				loser := *c.ruleToRemove
				merged.rules.RemoveWhere(func(r Rule) bool {
					return r.Identity() == loser.Identity() && ruleBodyKey(r) == ruleBodyKey(loser)
				})
			}
		}
	}
	return merged
}

func subjectOf(args []string) string {
	return strings.Join(args[:len(args)-1], "\x1f")
}

func factLabel(f Fact) string {
	return fmt.Sprintf("%s(%s)=%.3g", f.Predicate, strings.Join(f.Args, ","), f.Degree)
}

func ruleBodyKey(r Rule) string {
	var sb strings.Builder
	writeConditions(&sb, r.Conditions)
	sb.WriteByte('#')
	writeActions(&sb, r.Actions)
	return sb.String()
}

func ruleActionsKey(r Rule) string {
	var sb strings.Builder
	writeActions(&sb, r.Actions)
	return sb.String()
}

func conditionSet(conds []Condition) map[string]bool {
	set := map[string]bool{}
	for _, c := range conds {
		var sb strings.Builder
		writeCondition(&sb, c)
		set[sb.String()] = true
	}
	return set
}

func isStrictSuperset(a, b map[string]bool) bool {
	if len(a) <= len(b) {
		return false
	}
	for k := range b {
		if !a[k] {
			return false
		}
	}
	return true
}
