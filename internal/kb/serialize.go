package kb

import (
	"encoding/json"
	"os"
	"strings"

	"fuzzyrules/internal/fuzzy"
	"gopkg.in/yaml.v3"
)

// isYAMLPath reports whether a path's extension selects the YAML
// encoding; any other extension (including none) selects JSON.
func isYAMLPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}

// LoadFromFile reads and parses a knowledge-base document, replacing
// kb's current facts and rules. The encoding is chosen by the file's
// suffix: .yaml/.yml selects YAML, anything else selects JSON.
func (kb *KnowledgeBase) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newSerializationError("reading %s", path).wrap(err)
	}
	loaded, err := FromBytes(data, isYAMLPath(path))
	if err != nil {
		return err
	}
	kb.store = loaded.store
	kb.rules = loaded.rules
	return nil
}

// SaveToFile renders kb's current facts and rules and writes them to
// path, choosing JSON or YAML by the file's suffix.
func (kb *KnowledgeBase) SaveToFile(path string) error {
	data, err := kb.ToBytes(isYAMLPath(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return newSerializationError("writing %s", path).wrap(err)
	}
	return nil
}

// FromBytes parses a knowledge-base document in the given encoding.
func FromBytes(data []byte, yamlFormat bool) (*KnowledgeBase, error) {
	var doc map[string]interface{}
	var err error
	if yamlFormat {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, newSerializationError("parsing document").wrap(err)
	}
	return FromDict(doc)
}

// ToBytes renders kb as a knowledge-base document in the given encoding.
func (kb *KnowledgeBase) ToBytes(yamlFormat bool) ([]byte, error) {
	doc := kb.ToDict()
	if yamlFormat {
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, newSerializationError("rendering YAML").wrap(err)
		}
		return data, nil
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, newSerializationError("rendering JSON").wrap(err)
	}
	return data, nil
}

// ToDict renders kb's facts and rules into the generic document shape
// shared by the JSON and YAML encodings.
func (kb *KnowledgeBase) ToDict() map[string]interface{} {
	facts := kb.store.All()
	factDocs := make([]interface{}, 0, len(facts))
	for _, f := range facts {
		factDocs = append(factDocs, map[string]interface{}{
			"pred": f.Predicate,
			"args": toAnySlice(f.Args),
			"deg":  f.Degree,
		})
	}
	rules := kb.rules.Rules()
	ruleDocs := make([]interface{}, 0, len(rules))
	for _, r := range rules {
		ruleDocs = append(ruleDocs, ruleToDict(r))
	}
	return map[string]interface{}{
		"facts": factDocs,
		"rules": ruleDocs,
	}
}

func ruleToDict(r Rule) map[string]interface{} {
	doc := map[string]interface{}{
		"cond":    conditionsToDict(r.Conditions),
		"actions": actionsToDict(r.Actions),
	}
	if r.Name != "" {
		doc["name"] = r.Name
	}
	if r.Description != "" {
		doc["description"] = r.Description
	}
	if r.Priority != 0 {
		doc["priority"] = r.Priority
	}
	return doc
}

func conditionsToDict(conds []Condition) []interface{} {
	out := make([]interface{}, 0, len(conds))
	for _, c := range conds {
		out = append(out, conditionToDict(c))
	}
	return out
}

func conditionToDict(c Condition) interface{} {
	switch v := c.(type) {
	case AtomCondition:
		doc := map[string]interface{}{
			"pred": v.Predicate,
			"args": toAnySlice(v.Args),
		}
		if v.DegreeVar != "" {
			doc["deg"] = v.DegreeVar
		}
		if v.DegreeConstraint != nil {
			doc["deg-pred"] = []interface{}{
				v.DegreeConstraint.Op,
				degreeOperandToDict(v.DegreeConstraint.LHS),
				degreeOperandToDict(v.DegreeConstraint.RHS),
			}
		}
		return doc
	case AndCondition:
		return map[string]interface{}{"and": conditionsToDict(v.Children)}
	case OrCondition:
		return map[string]interface{}{"or": conditionsToDict(v.Children)}
	case NotCondition:
		return map[string]interface{}{"not": conditionToDict(v.Child)}
	default:
		return map[string]interface{}{}
	}
}

func degreeOperandToDict(e fuzzy.Expr) interface{} {
	if e.Literal != nil {
		return *e.Literal
	}
	return e.Variable
}

func degreeExprToDict(e fuzzy.Expr) interface{} {
	if e.Literal != nil {
		return *e.Literal
	}
	if e.Variable != "" {
		return e.Variable
	}
	out := make([]interface{}, 0, len(e.Args)+1)
	out = append(out, e.Op)
	for _, a := range e.Args {
		out = append(out, degreeExprToDict(a))
	}
	return out
}

func actionsToDict(actions []Action) []interface{} {
	out := make([]interface{}, 0, len(actions))
	for _, a := range actions {
		var kind string
		var tmpl FactTemplate
		switch act := a.(type) {
		case AddAction:
			kind, tmpl = "add", act.Template
		case RetractAction:
			kind, tmpl = "remove", act.Template
		case ModifyAction:
			kind, tmpl = "modify", act.Template
		}
		factDoc := map[string]interface{}{
			"pred": tmpl.Predicate,
			"args": toAnySlice(tmpl.Args),
		}
		if tmpl.HasDegree {
			factDoc["deg"] = degreeExprToDict(tmpl.Degree)
		}
		out = append(out, map[string]interface{}{
			"action": kind,
			"fact":   factDoc,
		})
	}
	return out
}

func toAnySlice(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
