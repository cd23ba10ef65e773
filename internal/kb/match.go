package kb

import "math"

// MatchResult is one satisfying extension of a starting binding set,
// together with the degree that extension contributes (the fuzzy AND
// of every atom it touched).
type MatchResult struct {
	Bindings Bindings
	Degree   float64
}

// MatchCondition enumerates every satisfying extension of b against c,
// reading facts from store. It never returns a non-nil error in the
// current condition grammar: an unevaluable degree constraint simply
// rejects the candidate extension that produced it, matching the spec's
// "distinct from evaluating false" rule for unbound constraint operands.
func MatchCondition(c Condition, b Bindings, store *FactStore) ([]MatchResult, error) {
	switch cond := c.(type) {
	case AtomCondition:
		return matchAtom(cond, b, store), nil
	case AndCondition:
		return matchAnd(cond.Children, b, store)
	case OrCondition:
		return matchOr(cond.Children, b, store)
	case NotCondition:
		return matchNot(cond.Child, b, store)
	default:
		return nil, newValidationError("unknown condition type %T", c)
	}
}

func matchAtom(a AtomCondition, b Bindings, store *FactStore) []MatchResult {
	var out []MatchResult
	for _, f := range store.Scan(a.Predicate) {
		if len(f.Args) != len(a.Args) {
			continue
		}
		nb := b.Clone()
		ok := true
		for i, term := range a.Args {
			if IsVariable(term) {
				var bound bool
				nb, bound = nb.BindTerm(term, f.Args[i])
				if !bound {
					ok = false
					break
				}
			} else if term != f.Args[i] {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		if a.DegreeVar != "" {
			var bound bool
			nb, bound = nb.BindDegree(a.DegreeVar, f.Degree)
			if !bound {
				continue
			}
		}
		if a.DegreeConstraint != nil {
			holds, err := a.DegreeConstraint.Eval(nb.degreeResolver())
			if err != nil || !holds {
				continue
			}
		}
		out = append(out, MatchResult{Bindings: nb, Degree: f.Degree})
	}
	return out
}

func matchAnd(children []Condition, b Bindings, store *FactStore) ([]MatchResult, error) {
	frontier := []MatchResult{{Bindings: b, Degree: 1.0}}
	for _, child := range children {
		var next []MatchResult
		for _, r := range frontier {
			childResults, err := MatchCondition(child, r.Bindings, store)
			if err != nil {
				return nil, err
			}
			for _, cr := range childResults {
				next = append(next, MatchResult{
					Bindings: cr.Bindings,
					Degree:   math.Min(r.Degree, cr.Degree),
				})
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}
	return frontier, nil
}

func matchOr(children []Condition, b Bindings, store *FactStore) ([]MatchResult, error) {
	seen := map[string]int{}
	var out []MatchResult
	for _, child := range children {
		childResults, err := MatchCondition(child, b, store)
		if err != nil {
			return nil, err
		}
		for _, cr := range childResults {
			key := cr.Bindings.canonicalKey()
			if idx, ok := seen[key]; ok {
				if cr.Degree > out[idx].Degree {
					out[idx].Degree = cr.Degree
				}
				continue
			}
			seen[key] = len(out)
			out = append(out, cr)
		}
	}
	return out, nil
}

func matchNot(child Condition, b Bindings, store *FactStore) ([]MatchResult, error) {
	childResults, err := MatchCondition(child, b, store)
	if err != nil {
		return nil, err
	}
	if len(childResults) == 0 {
		return []MatchResult{{Bindings: b, Degree: 1.0}}, nil
	}
	return nil, nil
}
