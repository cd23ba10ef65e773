package fuzzy

import "fmt"

// Expr is a degree expression: a numeric literal, a variable reference
// (resolved by the caller-supplied bindings), or an n-ary operator node.
type Expr struct {
	Literal  *float64
	Variable string
	Op       string
	Args     []Expr
}

// Lit builds a numeric-literal degree expression.
func Lit(v float64) Expr { return Expr{Literal: &v} }

// Var builds a variable-reference degree expression.
func Var(name string) Expr { return Expr{Variable: name} }

// Call builds an n-ary operator degree expression.
func Call(op string, args ...Expr) Expr { return Expr{Op: op, Args: args} }

// Resolver looks up the current value of a bound degree variable.
type Resolver func(name string) (float64, bool)

// Eval evaluates a degree expression under the given resolver, clamping
// the final result to [0,1] per spec. Division by zero and unbound
// variables are reported as errors, never silently substituted.
func Eval(e Expr, resolve Resolver) (float64, error) {
	v, err := eval(e, resolve)
	if err != nil {
		return 0, err
	}
	return Clamp(v), nil
}

func eval(e Expr, resolve Resolver) (float64, error) {
	switch {
	case e.Literal != nil:
		return *e.Literal, nil
	case e.Variable != "":
		v, ok := resolve(e.Variable)
		if !ok {
			return 0, fmt.Errorf("degree expression: variable %s is unbound", e.Variable)
		}
		return v, nil
	case e.Op != "":
		return evalOp(e.Op, e.Args, resolve)
	default:
		return 0, fmt.Errorf("degree expression: empty node")
	}
}

func evalOp(op string, args []Expr, resolve Resolver) (float64, error) {
	vals := make([]float64, len(args))
	for i, a := range args {
		v, err := eval(a, resolve)
		if err != nil {
			return 0, err
		}
		vals[i] = v
	}

	switch op {
	case "+":
		return reduceArith(op, vals, func(acc, v float64) float64 { return acc + v })
	case "*":
		return reduceArith(op, vals, func(acc, v float64) float64 { return acc * v })
	case "-":
		if len(vals) == 0 {
			return 0, fmt.Errorf("degree expression: %q requires at least 1 argument", op)
		}
		if len(vals) == 1 {
			return -vals[0], nil
		}
		acc := vals[0]
		for _, v := range vals[1:] {
			acc -= v
		}
		return acc, nil
	case "/":
		if len(vals) < 2 {
			return 0, fmt.Errorf("degree expression: %q requires at least 2 arguments", op)
		}
		acc := vals[0]
		for _, v := range vals[1:] {
			if v == 0 {
				return 0, fmt.Errorf("degree expression: division by zero")
			}
			acc /= v
		}
		return acc, nil
	case "min":
		if len(vals) == 0 {
			return 0, fmt.Errorf("degree expression: %q requires at least 1 argument", op)
		}
		m := vals[0]
		for _, v := range vals[1:] {
			if v < m {
				m = v
			}
		}
		return m, nil
	case "max":
		if len(vals) == 0 {
			return 0, fmt.Errorf("degree expression: %q requires at least 1 argument", op)
		}
		m := vals[0]
		for _, v := range vals[1:] {
			if v > m {
				m = v
			}
		}
		return m, nil
	default:
		return 0, fmt.Errorf("degree expression: unknown operator %q", op)
	}
}

func reduceArith(op string, vals []float64, f func(acc, v float64) float64) (float64, error) {
	if len(vals) == 0 {
		return 0, fmt.Errorf("degree expression: %q requires at least 1 argument", op)
	}
	acc := vals[0]
	for _, v := range vals[1:] {
		acc = f(acc, v)
	}
	return acc, nil
}

// Constraint is a comparator expression [op, lhs, rhs] over degree operands.
type Constraint struct {
	Op  string
	LHS Expr
	RHS Expr
}

// Eval evaluates a degree constraint under the given resolver. Unbound
// operands are an error (the constraint fails to even be evaluable),
// distinct from the constraint evaluating to false.
func (c Constraint) Eval(resolve Resolver) (bool, error) {
	lhs, err := eval(c.LHS, resolve)
	if err != nil {
		return false, err
	}
	rhs, err := eval(c.RHS, resolve)
	if err != nil {
		return false, err
	}
	switch c.Op {
	case "<":
		return lhs < rhs, nil
	case "<=":
		return lhs <= rhs, nil
	case "=":
		return lhs == rhs, nil
	case "!=":
		return lhs != rhs, nil
	case ">=":
		return lhs >= rhs, nil
	case ">":
		return lhs > rhs, nil
	default:
		return false, fmt.Errorf("degree constraint: unknown operator %q", c.Op)
	}
}
