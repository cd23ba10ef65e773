// Package kb implements the fuzzy forward-chaining production rule
// engine core: facts annotated with a degree of belief, rules that
// derive new facts from existing ones, and the fixed-point driver that
// saturates a knowledge base by repeatedly firing applicable rules.
package kb

import (
	"strings"

	"fuzzyrules/internal/fuzzy"
)

// IsVariable reports whether a term is a variable (begins with "?")
// rather than a ground symbol.
func IsVariable(term string) bool {
	return strings.HasPrefix(term, "?")
}

// Fact is a (predicate, args, degree) record. Identity is the
// predicate/args pair; degree is the only mutable component.
type Fact struct {
	Predicate string
	Args      []string
	Degree    float64
}

// FactKey is the identity of a fact: (predicate, args).
type FactKey struct {
	Predicate string
	args      string
}

// Key returns the identity key for this fact.
func (f Fact) Key() FactKey {
	return FactKey{Predicate: f.Predicate, args: strings.Join(f.Args, "\x1f")}
}

func (f Fact) clone() Fact {
	args := make([]string, len(f.Args))
	copy(args, f.Args)
	return Fact{Predicate: f.Predicate, Args: args, Degree: f.Degree}
}

// Condition is a tagged variant: AtomCondition, AndCondition,
// OrCondition, or NotCondition.
type Condition interface {
	isCondition()
}

// AtomCondition matches a stored fact whose predicate and arity agree
// with Predicate/Args, optionally binding the matched fact's degree and
// constraining it.
type AtomCondition struct {
	Predicate        string
	Args             []string // terms: ground symbols or "?variable"
	DegreeVar        string   // "" if absent
	DegreeConstraint *fuzzy.Constraint
}

func (AtomCondition) isCondition() {}

// AndCondition requires every child to match; bindings compose left to right.
type AndCondition struct {
	Children []Condition
}

func (AndCondition) isCondition() {}

// OrCondition requires at least one child to match; each satisfying
// child independently contributes bindings.
type OrCondition struct {
	Children []Condition
}

func (OrCondition) isCondition() {}

// NotCondition succeeds (contributing no bindings) iff its child has no
// satisfying extension of the current bindings: negation as failure.
type NotCondition struct {
	Child Condition
}

func (NotCondition) isCondition() {}

// FactTemplate names a fact to be instantiated against bindings: its
// args may contain variables, and its degree may be an expression
// evaluated at instantiation time. If Degree is absent, the action
// falls back to the rule's match degree.
type FactTemplate struct {
	Predicate string
	Args      []string
	Degree    fuzzy.Expr
	HasDegree bool
}

// Action is a tagged variant: AddAction, RetractAction, or ModifyAction.
type Action interface {
	isAction()
}

// AddAction instantiates Template and combines it into the fact store
// by fuzzy-OR.
type AddAction struct {
	Template FactTemplate
}

func (AddAction) isAction() {}

// RetractAction removes the fact whose identity matches the
// instantiated template.
type RetractAction struct {
	Template FactTemplate
}

func (RetractAction) isAction() {}

// ModifyAction sets the degree of the matching fact to the evaluated
// degree; if the fact is absent, it behaves as AddAction.
type ModifyAction struct {
	Template FactTemplate
}

func (ModifyAction) isAction() {}

// Rule is a conditional transformation: when Conditions match, Actions
// modify the store. Identity for conflict detection is Name when
// present, else the structural hash of Conditions+Actions.
type Rule struct {
	Name        string
	Description string
	Priority    int
	Conditions  []Condition
	Actions     []Action

	seq int // insertion order, used only to break priority ties
}

// Identity returns the rule's conflict-detection identity.
func (r Rule) Identity() string {
	if r.Name != "" {
		return r.Name
	}
	return structuralHash(r)
}
