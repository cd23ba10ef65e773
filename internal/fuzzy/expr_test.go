package fuzzy

import "testing"

func TestEvalLiteral(t *testing.T) {
	v, err := Eval(Lit(0.72), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(v, 0.72) {
		t.Errorf("got %v, want 0.72", v)
	}
}

func TestEvalVariable(t *testing.T) {
	resolve := func(name string) (float64, bool) {
		if name == "?d" {
			return 0.8, true
		}
		return 0, false
	}
	v, err := Eval(Var("?d"), resolve)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(v, 0.8) {
		t.Errorf("got %v, want 0.8", v)
	}

	if _, err := Eval(Var("?unbound"), resolve); err == nil {
		t.Fatal("expected error for unbound variable")
	}
}

func TestEvalZebraExample(t *testing.T) {
	resolve := func(name string) (float64, bool) {
		if name == "?d" {
			return 0.8, true
		}
		return 0, false
	}
	expr := Call("*", Lit(0.9), Var("?d"))
	v, err := Eval(expr, resolve)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(v, 0.72) {
		t.Errorf("got %v, want 0.72", v)
	}
}

func TestEvalMinMaxArity(t *testing.T) {
	v, err := Eval(Call("min", Lit(0.3), Lit(0.9), Lit(0.5)), nil)
	if err != nil || !almostEqual(v, 0.3) {
		t.Errorf("min: got %v, err %v", v, err)
	}
	v, err = Eval(Call("max", Lit(0.3), Lit(0.9), Lit(0.5)), nil)
	if err != nil || !almostEqual(v, 0.9) {
		t.Errorf("max: got %v, err %v", v, err)
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	_, err := Eval(Call("/", Lit(1), Lit(0)), nil)
	if err == nil {
		t.Fatal("expected division-by-zero error")
	}
}

func TestEvalClampsResult(t *testing.T) {
	v, err := Eval(Call("+", Lit(0.8), Lit(0.8)), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1.0 {
		t.Errorf("expected clamp to 1.0, got %v", v)
	}
}

func TestEvalUnknownOperator(t *testing.T) {
	_, err := Eval(Call("xor", Lit(1), Lit(0)), nil)
	if err == nil {
		t.Fatal("expected unknown-operator error")
	}
}

func TestConstraintEval(t *testing.T) {
	resolve := func(name string) (float64, bool) {
		if name == "?d" {
			return 0.6, true
		}
		return 0, false
	}
	c := Constraint{Op: ">", LHS: Var("?d"), RHS: Lit(0.5)}
	ok, err := c.Eval(resolve)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected constraint to hold")
	}

	c2 := Constraint{Op: "<", LHS: Var("?d"), RHS: Lit(0.5)}
	ok, err = c2.Eval(resolve)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected constraint to fail")
	}
}

func TestConstraintUnboundVariableFails(t *testing.T) {
	resolve := func(name string) (float64, bool) { return 0, false }
	c := Constraint{Op: ">", LHS: Var("?d"), RHS: Lit(0.5)}
	if _, err := c.Eval(resolve); err == nil {
		t.Fatal("expected error for unbound constraint operand")
	}
}
