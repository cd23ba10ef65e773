package kb

import (
	"fmt"
	"hash/fnv"
	"strings"

	"fuzzyrules/internal/fuzzy"
)

// ValidateFact checks the invariants a fact must satisfy on ingestion:
// a non-empty predicate and a degree within [0,1].
func ValidateFact(f Fact) error {
	if f.Predicate == "" {
		return newValidationError("fact predicate must not be empty")
	}
	if f.Degree < 0 || f.Degree > 1 {
		return newValidationError("fact %s has degree %v outside [0,1]", f.Predicate, f.Degree)
	}
	return nil
}

// ValidateRule checks the invariants a rule must satisfy on ingestion:
// every condition is well-formed, every degree expression and
// constraint uses a known operator, and every variable an action
// references is bound by the rule's own conditions. Degree-constraint
// operands are checked only for being a literal or a variable; a
// constraint variable that no condition binds is not rejected here,
// and such a constraint never holds during matching.
// A rule with both no conditions and no actions is rejected as vacuous;
// a rule with empty conditions but at least one action is accepted and
// fires once per pass (see driver.go).
func ValidateRule(r Rule) error {
	if len(r.Conditions) == 0 && len(r.Actions) == 0 {
		return newValidationError("rule %q has neither conditions nor actions", r.Name)
	}
	for _, c := range r.Conditions {
		if err := validateCondition(c); err != nil {
			return err
		}
	}
	boundTerms, boundDegrees := boundVariables(r.Conditions)
	for _, a := range r.Actions {
		if err := validateAction(a, boundTerms, boundDegrees); err != nil {
			return err
		}
	}
	return nil
}

func validateCondition(c Condition) error {
	switch cond := c.(type) {
	case AtomCondition:
		if cond.Predicate == "" {
			return newValidationError("condition atom has empty predicate")
		}
		if cond.DegreeVar != "" && !IsVariable(cond.DegreeVar) {
			return newValidationError("degree binding %q is not a variable", cond.DegreeVar)
		}
		if cond.DegreeConstraint != nil {
			if err := validateConstraintOperator(cond.DegreeConstraint.Op); err != nil {
				return err
			}
			if err := validateConstraintOperand(cond.DegreeConstraint.LHS); err != nil {
				return err
			}
			if err := validateConstraintOperand(cond.DegreeConstraint.RHS); err != nil {
				return err
			}
		}
		return nil
	case AndCondition:
		for _, child := range cond.Children {
			if err := validateCondition(child); err != nil {
				return err
			}
		}
		return nil
	case OrCondition:
		for _, child := range cond.Children {
			if err := validateCondition(child); err != nil {
				return err
			}
		}
		return nil
	case NotCondition:
		return validateCondition(cond.Child)
	default:
		return newValidationError("unknown condition type %T", c)
	}
}

func validateConstraintOperator(op string) error {
	switch op {
	case "<", "<=", "=", "!=", ">=", ">":
		return nil
	default:
		return newValidationError("unknown degree constraint operator %q", op)
	}
}

// validateConstraintOperand enforces the spec's restriction that a
// constraint operand is a numeric literal or a bound degree variable,
// not an arbitrary arithmetic expression.
func validateConstraintOperand(e fuzzy.Expr) error {
	if e.Literal != nil {
		return nil
	}
	if e.Variable != "" {
		return nil
	}
	return newValidationError("degree constraint operand must be a literal or a variable")
}

func validateDegreeExpr(e fuzzy.Expr) error {
	if e.Literal != nil || e.Variable != "" {
		return nil
	}
	switch e.Op {
	case "+", "-", "*", "/", "min", "max":
		for _, a := range e.Args {
			if err := validateDegreeExpr(a); err != nil {
				return err
			}
		}
		return nil
	default:
		return newValidationError("unknown degree expression operator %q", e.Op)
	}
}

func validateAction(a Action, boundTerms, boundDegrees map[string]bool) error {
	var tmpl FactTemplate
	switch act := a.(type) {
	case AddAction:
		tmpl = act.Template
	case RetractAction:
		tmpl = act.Template
	case ModifyAction:
		tmpl = act.Template
	default:
		return newValidationError("unknown action type %T", a)
	}
	if tmpl.Predicate == "" {
		return newValidationError("action fact has empty predicate")
	}
	for _, term := range tmpl.Args {
		if IsVariable(term) && !boundTerms[term] {
			return newValidationError("action references unbound variable %q", term)
		}
	}
	if tmpl.HasDegree {
		if err := validateDegreeExpr(tmpl.Degree); err != nil {
			return err
		}
		if err := degreeExprVariablesBound(tmpl.Degree, boundDegrees); err != nil {
			return err
		}
	}
	return nil
}

func degreeExprVariablesBound(e fuzzy.Expr, boundDegrees map[string]bool) error {
	if e.Variable != "" {
		if !boundDegrees[e.Variable] {
			return newValidationError("action degree expression references unbound variable %q", e.Variable)
		}
		return nil
	}
	for _, a := range e.Args {
		if err := degreeExprVariablesBound(a, boundDegrees); err != nil {
			return err
		}
	}
	return nil
}

// boundVariables collects the term and degree variables that a rule's
// conditions bind outside of any NOT: a NOT condition never extends the
// bindings that escape to its siblings or to the rule's actions.
func boundVariables(conds []Condition) (terms, degrees map[string]bool) {
	terms = map[string]bool{}
	degrees = map[string]bool{}
	var walk func(c Condition, negated bool)
	walk = func(c Condition, negated bool) {
		switch v := c.(type) {
		case AtomCondition:
			if negated {
				return
			}
			for _, t := range v.Args {
				if IsVariable(t) {
					terms[t] = true
				}
			}
			if v.DegreeVar != "" {
				degrees[v.DegreeVar] = true
			}
		case AndCondition:
			for _, ch := range v.Children {
				walk(ch, negated)
			}
		case OrCondition:
			for _, ch := range v.Children {
				walk(ch, negated)
			}
		case NotCondition:
			walk(v.Child, true)
		}
	}
	for _, c := range conds {
		walk(c, false)
	}
	return terms, degrees
}

// structuralHash gives an unnamed rule a stable identity derived from
// its conditions and actions, used by conflict detection to recognize
// the same rule body added under two different calls.
func structuralHash(r Rule) string {
	var sb strings.Builder
	writeConditions(&sb, r.Conditions)
	sb.WriteByte('#')
	writeActions(&sb, r.Actions)
	h := fnv.New64a()
	h.Write([]byte(sb.String()))
	return fmt.Sprintf("rule-%x", h.Sum64())
}

func writeConditions(sb *strings.Builder, conds []Condition) {
	for _, c := range conds {
		writeCondition(sb, c)
	}
}

func writeCondition(sb *strings.Builder, c Condition) {
	switch v := c.(type) {
	case AtomCondition:
		sb.WriteString("atom(")
		sb.WriteString(v.Predicate)
		for _, a := range v.Args {
			sb.WriteByte(',')
			sb.WriteString(a)
		}
		sb.WriteByte(')')
	case AndCondition:
		sb.WriteString("and(")
		writeConditions(sb, v.Children)
		sb.WriteByte(')')
	case OrCondition:
		sb.WriteString("or(")
		writeConditions(sb, v.Children)
		sb.WriteByte(')')
	case NotCondition:
		sb.WriteString("not(")
		writeCondition(sb, v.Child)
		sb.WriteByte(')')
	}
}

func writeActions(sb *strings.Builder, actions []Action) {
	for _, a := range actions {
		var kind string
		var tmpl FactTemplate
		switch act := a.(type) {
		case AddAction:
			kind, tmpl = "add", act.Template
		case RetractAction:
			kind, tmpl = "retract", act.Template
		case ModifyAction:
			kind, tmpl = "modify", act.Template
		}
		sb.WriteString(kind)
		sb.WriteByte('(')
		sb.WriteString(tmpl.Predicate)
		for _, a := range tmpl.Args {
			sb.WriteByte(',')
			sb.WriteString(a)
		}
		sb.WriteByte(')')
	}
}
