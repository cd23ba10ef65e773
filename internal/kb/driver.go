package kb

import "fuzzyrules/internal/fuzzy"

// RunStats summarizes one call to Run.
type RunStats struct {
	Passes       int
	FactsChanged int
}

// Run saturates the knowledge base: repeatedly sweeps the rule base in
// priority order, firing every rule for every satisfying extension of
// its conditions, until a full pass produces no store change (a fixed
// point) or maxIterations passes have run. Actions within a pass read
// and write the live store, so a fact added early in a pass is visible
// to atoms matched later in the same pass.
func (kb *KnowledgeBase) Run(maxIterations int) (RunStats, error) {
	stats := RunStats{}
	for pass := 0; pass < maxIterations; pass++ {
		stats.Passes++
		changed := false
		for _, rule := range kb.rules.Rules() {
			top := AndCondition{Children: rule.Conditions}
			matches, err := MatchCondition(top, NewBindings(), kb.store)
			if err != nil {
				return stats, newInferenceError("rule %q: %v", rule.Identity(), err)
			}
			for _, m := range matches {
				for _, action := range rule.Actions {
					didChange, err := kb.applyAction(action, m)
					if err != nil {
						return stats, newInferenceError("rule %q: %v", rule.Identity(), err)
					}
					if didChange {
						changed = true
						stats.FactsChanged++
					}
				}
			}
		}
		if !changed {
			return stats, nil
		}
	}
	return stats, newInferenceError("did not reach a fixed point within %d iterations", maxIterations)
}

func (kb *KnowledgeBase) applyAction(a Action, m MatchResult) (bool, error) {
	switch act := a.(type) {
	case AddAction:
		f, err := instantiateFact(act.Template, m)
		if err != nil {
			return false, err
		}
		return kb.store.InsertOrCombine(f), nil
	case ModifyAction:
		f, err := instantiateFact(act.Template, m)
		if err != nil {
			return false, err
		}
		return kb.store.Set(f), nil
	case RetractAction:
		args, err := instantiateArgs(act.Template.Args, m.Bindings)
		if err != nil {
			return false, err
		}
		return kb.store.Remove(act.Template.Predicate, args), nil
	default:
		return false, newInferenceError("unknown action type %T", a)
	}
}

func instantiateArgs(terms []string, b Bindings) ([]string, error) {
	args := make([]string, len(terms))
	for i, term := range terms {
		if IsVariable(term) {
			val, ok := b.Term(term)
			if !ok {
				return nil, newInferenceError("unbound variable %q in action args", term)
			}
			args[i] = val
		} else {
			args[i] = term
		}
	}
	return args, nil
}

func instantiateFact(t FactTemplate, m MatchResult) (Fact, error) {
	args, err := instantiateArgs(t.Args, m.Bindings)
	if err != nil {
		return Fact{}, err
	}
	var degree float64
	if t.HasDegree {
		degree, err = fuzzy.Eval(t.Degree, m.Bindings.degreeResolver())
		if err != nil {
			return Fact{}, err
		}
	} else {
		degree = fuzzy.Clamp(m.Degree)
	}
	return Fact{Predicate: t.Predicate, Args: args, Degree: degree}, nil
}
