package kb

import (
	"fmt"

	"fuzzyrules/internal/fuzzy"
)

// FromDict builds a knowledge base from the generic document shape
// produced by unmarshaling either JSON or YAML into
// map[string]interface{}: {"facts": [...], "rules": [...]}.
func FromDict(doc map[string]interface{}) (*KnowledgeBase, error) {
	out := New()

	factsRaw, _ := doc["facts"].([]interface{})
	for _, fr := range factsRaw {
		fm, ok := fr.(map[string]interface{})
		if !ok {
			return nil, newValidationError("fact entry must be an object, got %T", fr)
		}
		f, err := parseFact(fm)
		if err != nil {
			return nil, err
		}
		if err := out.AddFact(f); err != nil {
			return nil, err
		}
	}

	rulesRaw, _ := doc["rules"].([]interface{})
	for _, rr := range rulesRaw {
		rm, ok := rr.(map[string]interface{})
		if !ok {
			return nil, newValidationError("rule entry must be an object, got %T", rr)
		}
		r, err := parseRule(rm)
		if err != nil {
			return nil, err
		}
		if err := out.AddRule(r); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func parseFact(m map[string]interface{}) (Fact, error) {
	pred, ok := getString(m, "pred")
	if !ok {
		return Fact{}, newValidationError("fact missing 'pred'")
	}
	args, err := toStringSlice(m["args"])
	if err != nil {
		return Fact{}, newValidationError("fact %s: %v", pred, err)
	}
	degree := 1.0
	if raw, ok := m["deg"]; ok {
		degree, err = toFloat(raw)
		if err != nil {
			return Fact{}, newValidationError("fact %s: degree: %v", pred, err)
		}
	}
	return Fact{Predicate: pred, Args: args, Degree: degree}, nil
}

func parseRule(m map[string]interface{}) (Rule, error) {
	r := Rule{}
	if name, ok := getString(m, "name"); ok {
		r.Name = name
	}
	if desc, ok := getString(m, "description"); ok {
		r.Description = desc
	}
	if raw, ok := m["priority"]; ok {
		p, err := toFloat(raw)
		if err != nil {
			return Rule{}, newValidationError("rule priority: %v", err)
		}
		r.Priority = int(p)
	}
	condsRaw, _ := m["cond"].([]interface{})
	conds := make([]Condition, 0, len(condsRaw))
	for _, cr := range condsRaw {
		c, err := parseCondition(cr)
		if err != nil {
			return Rule{}, err
		}
		conds = append(conds, c)
	}
	r.Conditions = conds

	actionsRaw, _ := m["actions"].([]interface{})
	actions := make([]Action, 0, len(actionsRaw))
	for _, ar := range actionsRaw {
		am, ok := ar.(map[string]interface{})
		if !ok {
			return Rule{}, newValidationError("action entry must be an object, got %T", ar)
		}
		a, err := parseAction(am)
		if err != nil {
			return Rule{}, err
		}
		actions = append(actions, a)
	}
	r.Actions = actions
	return r, nil
}

func parseCondition(node interface{}) (Condition, error) {
	m, ok := node.(map[string]interface{})
	if !ok {
		return nil, newValidationError("condition must be an object, got %T", node)
	}
	if childrenRaw, ok := m["and"]; ok {
		children, err := parseConditionList(childrenRaw)
		if err != nil {
			return nil, err
		}
		return AndCondition{Children: children}, nil
	}
	if childrenRaw, ok := m["or"]; ok {
		children, err := parseConditionList(childrenRaw)
		if err != nil {
			return nil, err
		}
		return OrCondition{Children: children}, nil
	}
	if childRaw, ok := m["not"]; ok {
		child, err := parseCondition(childRaw)
		if err != nil {
			return nil, err
		}
		return NotCondition{Child: child}, nil
	}

	pred, ok := getString(m, "pred")
	if !ok {
		return nil, newValidationError("condition missing 'pred', 'and', 'or', or 'not'")
	}
	args, err := toStringSlice(m["args"])
	if err != nil {
		return nil, newValidationError("condition %s: %v", pred, err)
	}
	atom := AtomCondition{Predicate: pred, Args: args}

	if raw, ok := m["deg"]; ok {
		degVar, ok := raw.(string)
		if !ok || !IsVariable(degVar) {
			return nil, newValidationError("condition %s: 'deg' must be a '?variable'", pred)
		}
		atom.DegreeVar = degVar
	}
	if raw, ok := m["deg-pred"]; ok {
		c, err := parseConstraint(raw)
		if err != nil {
			return nil, err
		}
		atom.DegreeConstraint = &c
	}
	return atom, nil
}

func parseConditionList(node interface{}) ([]Condition, error) {
	list, ok := node.([]interface{})
	if !ok {
		return nil, newValidationError("expected a list of conditions, got %T", node)
	}
	out := make([]Condition, 0, len(list))
	for _, n := range list {
		c, err := parseCondition(n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func parseConstraint(node interface{}) (fuzzy.Constraint, error) {
	list, ok := node.([]interface{})
	if !ok || len(list) != 3 {
		return fuzzy.Constraint{}, newValidationError("'deg-pred' must be [op, lhs, rhs]")
	}
	op, ok := list[0].(string)
	if !ok {
		return fuzzy.Constraint{}, newValidationError("degree constraint operator must be a string")
	}
	if err := validateConstraintOperator(op); err != nil {
		return fuzzy.Constraint{}, err
	}
	lhs, err := parseDegreeOperand(list[1])
	if err != nil {
		return fuzzy.Constraint{}, err
	}
	rhs, err := parseDegreeOperand(list[2])
	if err != nil {
		return fuzzy.Constraint{}, err
	}
	return fuzzy.Constraint{Op: op, LHS: lhs, RHS: rhs}, nil
}

func parseDegreeOperand(v interface{}) (fuzzy.Expr, error) {
	switch val := v.(type) {
	case float64:
		return fuzzy.Lit(val), nil
	case int:
		return fuzzy.Lit(float64(val)), nil
	case string:
		if IsVariable(val) {
			return fuzzy.Var(val), nil
		}
		return fuzzy.Expr{}, newValidationError("degree constraint operand must be numeric or a '?variable', got %q", val)
	default:
		return fuzzy.Expr{}, newValidationError("invalid degree constraint operand %v", v)
	}
}

func parseDegreeExpr(v interface{}) (fuzzy.Expr, error) {
	switch val := v.(type) {
	case float64:
		return fuzzy.Lit(val), nil
	case int:
		return fuzzy.Lit(float64(val)), nil
	case string:
		if IsVariable(val) {
			return fuzzy.Var(val), nil
		}
		return fuzzy.Expr{}, newValidationError("degree expression operand must be numeric or a '?variable', got %q", val)
	case []interface{}:
		if len(val) < 2 {
			return fuzzy.Expr{}, newValidationError("degree expression list must have an operator and at least one argument")
		}
		op, ok := val[0].(string)
		if !ok {
			return fuzzy.Expr{}, newValidationError("degree expression operator must be a string")
		}
		args := make([]fuzzy.Expr, 0, len(val)-1)
		for _, a := range val[1:] {
			e, err := parseDegreeExpr(a)
			if err != nil {
				return fuzzy.Expr{}, err
			}
			args = append(args, e)
		}
		return fuzzy.Call(op, args...), nil
	default:
		return fuzzy.Expr{}, newValidationError("invalid degree expression %v", v)
	}
}

func parseAction(m map[string]interface{}) (Action, error) {
	kind, ok := getString(m, "action")
	if !ok {
		return nil, newValidationError("action missing 'action' kind")
	}
	factNode, ok := m["fact"]
	if !ok {
		return nil, newValidationError("action %q missing 'fact'", kind)
	}
	fm, ok := factNode.(map[string]interface{})
	if !ok {
		return nil, newValidationError("action %q: 'fact' must be an object", kind)
	}
	pred, ok := getString(fm, "pred")
	if !ok {
		return nil, newValidationError("action %q: fact missing 'pred'", kind)
	}
	args, err := toStringSlice(fm["args"])
	if err != nil {
		return nil, newValidationError("action %q: %v", kind, err)
	}
	tmpl := FactTemplate{Predicate: pred, Args: args}
	if degNode, ok := fm["deg"]; ok {
		expr, err := parseDegreeExpr(degNode)
		if err != nil {
			return nil, err
		}
		tmpl.Degree = expr
		tmpl.HasDegree = true
	}
	switch kind {
	case "add":
		return AddAction{Template: tmpl}, nil
	case "modify":
		return ModifyAction{Template: tmpl}, nil
	case "remove":
		return RetractAction{Template: tmpl}, nil
	default:
		return nil, newValidationError("unknown action kind %q", kind)
	}
}

func getString(m map[string]interface{}, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func toStringSlice(v interface{}) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a list of args, got %T", v)
	}
	out := make([]string, len(list))
	for i, e := range list {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("arg %d must be a string, got %T", i, e)
		}
		out[i] = s
	}
	return out, nil
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
