package kb

import (
	"math"
	"testing"

	"fuzzyrules/internal/fuzzy"
)

func almostEqual(a, b float64) bool {
	const eps = 1e-9
	return math.Abs(a-b) < eps
}

// Scenario 1: zebra stripes.
func TestRunZebraStripes(t *testing.T) {
	k := New()
	if err := k.AddFact(Fact{Predicate: "is-zebra", Args: []string{"sam"}, Degree: 0.8}); err != nil {
		t.Fatalf("AddFact: %v", err)
	}
	rule := Rule{
		Name: "stripes",
		Conditions: []Condition{
			AtomCondition{
				Predicate:        "is-zebra",
				Args:             []string{"?x"},
				DegreeVar:        "?d",
				DegreeConstraint: &fuzzy.Constraint{Op: ">", LHS: fuzzy.Var("?d"), RHS: fuzzy.Lit(0.5)},
			},
		},
		Actions: []Action{
			AddAction{Template: FactTemplate{
				Predicate: "has-stripes",
				Args:      []string{"?x"},
				Degree:    fuzzy.Call("*", fuzzy.Lit(0.9), fuzzy.Var("?d")),
				HasDegree: true,
			}},
		},
	}
	if err := k.AddRule(rule); err != nil {
		t.Fatalf("AddRule: %v", err)
	}
	if _, err := k.Run(100); err != nil {
		t.Fatalf("Run: %v", err)
	}
	results := k.Query("has-stripes", []QueryArg{Lit("sam")})
	if len(results) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(results))
	}
	if !almostEqual(results[0].Degree, 0.72) {
		t.Errorf("expected degree 0.72, got %v", results[0].Degree)
	}
}

// Scenario 2: fuzzy-OR combine.
func TestFuzzyOrCombine(t *testing.T) {
	k := New()
	if err := k.AddFact(Fact{Predicate: "rainy", Args: []string{"today"}, Degree: 0.4}); err != nil {
		t.Fatal(err)
	}
	if err := k.AddFact(Fact{Predicate: "rainy", Args: []string{"today"}, Degree: 0.7}); err != nil {
		t.Fatal(err)
	}
	facts := k.Query("rainy", nil)
	if len(facts) != 1 || !almostEqual(facts[0].Degree, 0.7) {
		t.Fatalf("expected one fact at 0.7, got %+v", facts)
	}
	if err := k.AddFact(Fact{Predicate: "rainy", Args: []string{"today"}, Degree: 0.3}); err != nil {
		t.Fatal(err)
	}
	facts = k.Query("rainy", nil)
	if len(facts) != 1 || !almostEqual(facts[0].Degree, 0.7) {
		t.Fatalf("expected degree unchanged at 0.7, got %+v", facts)
	}
}

// Scenario 3: all matches fire.
func TestAllMatchesFire(t *testing.T) {
	k := New()
	must(t, k.AddFact(Fact{Predicate: "is-mammal", Args: []string{"dog"}, Degree: 1.0}))
	must(t, k.AddFact(Fact{Predicate: "is-mammal", Args: []string{"cat"}, Degree: 1.0}))
	rule := Rule{
		Name:       "warm",
		Conditions: []Condition{AtomCondition{Predicate: "is-mammal", Args: []string{"?x"}}},
		Actions: []Action{AddAction{Template: FactTemplate{
			Predicate: "warm-blooded",
			Args:      []string{"?x"},
			Degree:    fuzzy.Lit(1.0),
			HasDegree: true,
		}}},
	}
	must(t, k.AddRule(rule))
	if _, err := k.Run(10); err != nil {
		t.Fatal(err)
	}
	facts := k.Query("warm-blooded", nil)
	if len(facts) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(facts))
	}
}

// Scenario 4: OR combinator.
func TestOrCombinator(t *testing.T) {
	k := New()
	must(t, k.AddFact(Fact{Predicate: "has-wings", Args: []string{"bird"}, Degree: 0.9}))
	must(t, k.AddFact(Fact{Predicate: "is-airplane", Args: []string{"jet"}, Degree: 1.0}))
	rule := Rule{
		Name: "flight",
		Conditions: []Condition{
			OrCondition{Children: []Condition{
				AtomCondition{Predicate: "has-wings", Args: []string{"?x"}},
				AtomCondition{Predicate: "is-airplane", Args: []string{"?x"}},
			}},
		},
		Actions: []Action{AddAction{Template: FactTemplate{Predicate: "can-fly", Args: []string{"?x"}}}},
	}
	must(t, k.AddRule(rule))
	if _, err := k.Run(10); err != nil {
		t.Fatal(err)
	}
	for _, who := range []string{"bird", "jet"} {
		facts := k.Query("can-fly", []QueryArg{Lit(who)})
		if len(facts) != 1 {
			t.Errorf("expected can-fly(%s), got %+v", who, facts)
		}
	}
}

// Scenario 5: priority ordering vs fuzzy-OR combine.
func TestPriorityOrderingVsFuzzyOr(t *testing.T) {
	k := New()
	must(t, k.AddFact(Fact{Predicate: "trigger", Args: []string{"x"}, Degree: 1.0}))
	high := Rule{
		Name:       "high",
		Priority:   10,
		Conditions: []Condition{AtomCondition{Predicate: "trigger", Args: []string{"?x"}}},
		Actions: []Action{AddAction{Template: FactTemplate{
			Predicate: "result", Args: []string{"?x"}, Degree: fuzzy.Lit(0.6), HasDegree: true,
		}}},
	}
	low := Rule{
		Name:       "low",
		Priority:   1,
		Conditions: []Condition{AtomCondition{Predicate: "trigger", Args: []string{"?x"}}},
		Actions: []Action{AddAction{Template: FactTemplate{
			Predicate: "result", Args: []string{"?x"}, Degree: fuzzy.Lit(0.9), HasDegree: true,
		}}},
	}
	must(t, k.AddRule(high))
	must(t, k.AddRule(low))
	if _, err := k.Run(10); err != nil {
		t.Fatal(err)
	}
	facts := k.Query("result", []QueryArg{Lit("x")})
	if len(facts) != 1 || !almostEqual(facts[0].Degree, 0.9) {
		t.Fatalf("expected degree 0.9 (fuzzy-OR overrides priority), got %+v", facts)
	}
}

func TestRunIdempotent(t *testing.T) {
	k := New()
	must(t, k.AddFact(Fact{Predicate: "is-zebra", Args: []string{"sam"}, Degree: 0.8}))
	rule := Rule{
		Conditions: []Condition{AtomCondition{Predicate: "is-zebra", Args: []string{"?x"}, DegreeVar: "?d"}},
		Actions: []Action{AddAction{Template: FactTemplate{
			Predicate: "has-stripes", Args: []string{"?x"}, Degree: fuzzy.Var("?d"), HasDegree: true,
		}}},
	}
	must(t, k.AddRule(rule))
	if _, err := k.Run(10); err != nil {
		t.Fatal(err)
	}
	first := k.Query("has-stripes", nil)
	if _, err := k.Run(10); err != nil {
		t.Fatal(err)
	}
	second := k.Query("has-stripes", nil)
	if len(first) != len(second) || !almostEqual(first[0].Degree, second[0].Degree) {
		t.Fatalf("run not idempotent: %+v vs %+v", first, second)
	}
}

func TestEmptyConditionsFiresOncePerPass(t *testing.T) {
	k := New()
	rule := Rule{
		Name:       "always",
		Conditions: nil,
		Actions: []Action{AddAction{Template: FactTemplate{
			Predicate: "ticked", Args: nil, Degree: fuzzy.Lit(1.0), HasDegree: true,
		}}},
	}
	must(t, k.AddRule(rule))
	if _, err := k.Run(10); err != nil {
		t.Fatal(err)
	}
	facts := k.Query("ticked", nil)
	if len(facts) != 1 {
		t.Fatalf("expected exactly one ticked fact, got %d", len(facts))
	}
}

func TestVacuousRuleRejected(t *testing.T) {
	k := New()
	err := k.AddRule(Rule{Name: "vacuous"})
	if err == nil {
		t.Fatal("expected validation error for rule with no conditions and no actions")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
}

func TestUnboundActionVariableRejected(t *testing.T) {
	k := New()
	rule := Rule{
		Name:       "bad",
		Conditions: []Condition{AtomCondition{Predicate: "p", Args: []string{"?x"}}},
		Actions:    []Action{AddAction{Template: FactTemplate{Predicate: "q", Args: []string{"?y"}}}},
	}
	if err := k.AddRule(rule); err == nil {
		t.Fatal("expected validation error for unbound variable in action")
	}
}

func TestNotConditionNegationAsFailure(t *testing.T) {
	k := New()
	must(t, k.AddFact(Fact{Predicate: "bird", Args: []string{"tweety"}, Degree: 1.0}))
	rule := Rule{
		Name: "flightless-unless-penguin",
		Conditions: []Condition{
			AtomCondition{Predicate: "bird", Args: []string{"?x"}},
			NotCondition{Child: AtomCondition{Predicate: "penguin", Args: []string{"?x"}}},
		},
		Actions: []Action{AddAction{Template: FactTemplate{Predicate: "can-fly", Args: []string{"?x"}}}},
	}
	must(t, k.AddRule(rule))
	if _, err := k.Run(10); err != nil {
		t.Fatal(err)
	}
	if len(k.Query("can-fly", []QueryArg{Lit("tweety")})) != 1 {
		t.Fatal("expected tweety to fly in the absence of a penguin fact")
	}
}

func TestMaxIterationsExceeded(t *testing.T) {
	k := New()
	must(t, k.AddFact(Fact{Predicate: "seed", Args: []string{"a"}, Degree: 1.0}))
	rule := Rule{
		Name:       "oscillate",
		Conditions: []Condition{AtomCondition{Predicate: "seed", Args: []string{"?x"}}},
		Actions: []Action{
			RetractAction{Template: FactTemplate{Predicate: "flag", Args: []string{"?x"}}},
			AddAction{Template: FactTemplate{Predicate: "flag", Args: []string{"?x"}, Degree: fuzzy.Lit(1.0), HasDegree: true}},
		},
	}
	must(t, k.AddRule(rule))
	_, err := k.Run(3)
	if err == nil {
		t.Fatal("expected InferenceError from oscillating retract/add")
	}
	if _, ok := err.(*InferenceError); !ok {
		t.Fatalf("expected *InferenceError, got %T", err)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
