package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fuzzyrules/internal/config"
	"fuzzyrules/internal/kb"
	"fuzzyrules/internal/registry"
	"fuzzyrules/internal/trace"
)

// ListKBTool enumerates every knowledge base currently held open by the
// server process.
type ListKBTool struct {
	registry *registry.Registry
}

func (t *ListKBTool) Name() string { return "list-kb" }
func (t *ListKBTool) Description() string {
	return `List every knowledge base currently registered with the server.

USE THIS FIRST to discover existing knowledge bases before creating new ones.

EXAMPLE OUTPUT:
{
  "knowledge_bases": [
    {"id": "...", "name": "zoology", "created_at": "...", "last_active": "..."}
  ]
}`
}
func (t *ListKBTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *ListKBTool) Execute(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{"knowledge_bases": t.registry.List()}, nil
}

// CreateKBTool registers a new, empty knowledge base under a name.
type CreateKBTool struct {
	registry *registry.Registry
}

func (t *CreateKBTool) Name() string { return "create-kb" }
func (t *CreateKBTool) Description() string {
	return `Create a new, empty knowledge base under the given name.

WHEN TO USE:
- Starting a fresh fact/rule base for a new domain
- Before add-facts/add-rules, unless load-kb is used instead

Returns the registered entry: {id, name, created_at, last_active}.`
}
func (t *CreateKBTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Unique name for the new knowledge base",
			},
		},
		"required": []string{"name"},
	}
}
func (t *CreateKBTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	name := getStringArg(args, "name")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	entry, err := t.registry.Create(name)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"knowledge_base": entry}, nil
}

// CloseKBTool removes a knowledge base from the registry.
type CloseKBTool struct {
	registry *registry.Registry
}

func (t *CloseKBTool) Name() string { return "close-kb" }
func (t *CloseKBTool) Description() string {
	return `Remove a knowledge base from the registry, discarding its facts and rules.

Use save-kb first if the state should be persisted.`
}
func (t *CloseKBTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Knowledge base to close",
			},
		},
		"required": []string{"name"},
	}
}
func (t *CloseKBTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	name := getStringArg(args, "name")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	closed := t.registry.Close(name)
	return map[string]interface{}{"closed": closed}, nil
}

// AddFactsTool inserts facts into a registered knowledge base.
type AddFactsTool struct {
	registry *registry.Registry
}

func (t *AddFactsTool) Name() string { return "add-facts" }
func (t *AddFactsTool) Description() string {
	return `Add one or more facts to a knowledge base.

Each fact has the shape {"pred": string, "args": [string...], "deg": number}.
"deg" defaults to 1.0 when omitted. Facts sharing a (predicate, args)
identity with an existing fact combine by fuzzy-OR (max of the two degrees).

EXAMPLE INPUT:
{
  "name": "zoology",
  "facts": [
    {"pred": "has-stripes", "args": ["sam"], "deg": 0.9},
    {"pred": "has-mane", "args": ["sam"], "deg": 0.1}
  ]
}`
}
func (t *AddFactsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Target knowledge base",
			},
			"facts": map[string]interface{}{
				"type":        "array",
				"description": "Facts to add, each {pred, args, deg}",
			},
		},
		"required": []string{"name", "facts"},
	}
}
func (t *AddFactsTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	name := getStringArg(args, "name")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	factsArg, ok := args["facts"]
	if !ok {
		return nil, fmt.Errorf("facts is required")
	}

	parsed, err := kb.FromDict(map[string]interface{}{"facts": factsArg})
	if err != nil {
		return nil, err
	}
	toAdd := parsed.GetFacts()

	var added int
	err = t.registry.Use(name, func(target *kb.KnowledgeBase) error {
		if err := target.AddFacts(toAdd); err != nil {
			return err
		}
		added = len(toAdd)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"added": added}, nil
}

// AddRulesTool inserts rules into a registered knowledge base.
type AddRulesTool struct {
	registry *registry.Registry
}

func (t *AddRulesTool) Name() string { return "add-rules" }
func (t *AddRulesTool) Description() string {
	return `Add one or more rules to a knowledge base.

Each rule has the shape:
{
  "name": "optional-name",
  "priority": 0,
  "cond": [ ... condition tree ... ],
  "actions": [ {"action": "add"|"modify"|"remove", "fact": {...}} ]
}

Condition nodes: {"pred": ..., "args": [...], "deg": "?d"} for an atom,
{"and": [...]}, {"or": [...]}, {"not": {...}} for combinators.

A rule is rejected if it has neither conditions nor actions, or if an
action references a variable no condition binds. Variables inside a
"deg-pred" constraint are not checked; an unbound one makes the
constraint fail at match time.`
}
func (t *AddRulesTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Target knowledge base",
			},
			"rules": map[string]interface{}{
				"type":        "array",
				"description": "Rules to add",
			},
		},
		"required": []string{"name", "rules"},
	}
}
func (t *AddRulesTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	name := getStringArg(args, "name")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	rulesArg, ok := args["rules"]
	if !ok {
		return nil, fmt.Errorf("rules is required")
	}

	parsed, err := kb.FromDict(map[string]interface{}{"rules": rulesArg})
	if err != nil {
		return nil, err
	}
	toAdd := parsed.GetRules()

	var added int
	err = t.registry.Use(name, func(target *kb.KnowledgeBase) error {
		if err := target.AddRules(toAdd); err != nil {
			return err
		}
		added = len(toAdd)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"added": added}, nil
}

// GetRulesTool returns the rules currently held by a knowledge base.
type GetRulesTool struct {
	registry *registry.Registry
}

func (t *GetRulesTool) Name() string { return "get-rules" }
func (t *GetRulesTool) Description() string {
	return `Return every rule in a knowledge base, in firing order
(descending priority, insertion order breaking ties).`
}
func (t *GetRulesTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Knowledge base to inspect",
			},
		},
		"required": []string{"name"},
	}
}
func (t *GetRulesTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	name := getStringArg(args, "name")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	var rules []interface{}
	err := t.registry.Use(name, func(target *kb.KnowledgeBase) error {
		snapshot := kb.New()
		if err := snapshot.AddRules(target.GetRules()); err != nil {
			return err
		}
		rules = snapshot.ToDict()["rules"].([]interface{})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"rules": rules}, nil
}

// ClearKBTool empties a knowledge base's facts, or facts and rules.
type ClearKBTool struct {
	registry *registry.Registry
}

func (t *ClearKBTool) Name() string { return "clear-kb" }
func (t *ClearKBTool) Description() string {
	return `Empty a knowledge base. By default clears facts only, leaving
rules in place; set facts_only=false to also discard rules.`
}
func (t *ClearKBTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Knowledge base to clear",
			},
			"facts_only": map[string]interface{}{
				"type":        "boolean",
				"description": "If true (default), keep rules and clear facts only",
			},
		},
		"required": []string{"name"},
	}
}
func (t *ClearKBTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	name := getStringArg(args, "name")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	factsOnly := getBoolArg(args, "facts_only", true)

	err := t.registry.Use(name, func(target *kb.KnowledgeBase) error {
		if factsOnly {
			target.ClearFacts()
		} else {
			target.Clear()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"cleared": true, "facts_only": factsOnly}, nil
}

// RunTool saturates a knowledge base by fixed-point forward chaining.
type RunTool struct {
	registry *registry.Registry
	cfg      config.Config
	recorder *trace.Recorder
}

func (t *RunTool) Name() string { return "run" }
func (t *RunTool) Description() string {
	return `Run forward-chaining inference on a knowledge base to a fixed
point: repeatedly fire the highest-priority applicable rules (insertion
order breaking ties) until no rule produces a new observable change, or
max_iterations passes are exhausted.

Returns {"passes": N, "facts_changed": N}. Fails with an inference
error if the cap is exceeded without reaching a fixed point.`
}
func (t *RunTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Knowledge base to run",
			},
			"max_iterations": map[string]interface{}{
				"type":        "integer",
				"description": "Upper bound on passes before failing (defaults to server config)",
			},
		},
		"required": []string{"name"},
	}
}
func (t *RunTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	name := getStringArg(args, "name")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	maxIter := getIntArg(args, "max_iterations", t.cfg.KB.DefaultMaxIterations)

	if t.recorder != nil && t.cfg.KB.TraceEnabled {
		if err := t.recorder.Start(name); err == nil {
			t.recorder.Log(trace.EventPassStarted, name, map[string]interface{}{"max_iterations": maxIter})
		}
	}

	var stats kb.RunStats
	err := t.registry.Use(name, func(target *kb.KnowledgeBase) error {
		var runErr error
		stats, runErr = target.Run(maxIter)
		return runErr
	})

	if t.recorder != nil && t.cfg.KB.TraceEnabled {
		t.recorder.Log(trace.EventRunFinished, name, map[string]interface{}{
			"passes":        stats.Passes,
			"facts_changed": stats.FactsChanged,
			"timestamp_ms":  time.Now().UnixMilli(),
			"error":         errString(err),
		})
	}

	if err == nil && t.cfg.KB.AutosaveEnabled && t.cfg.KB.AutosavePath != "" {
		err = t.registry.Use(name, func(target *kb.KnowledgeBase) error {
			if mkErr := os.MkdirAll(t.cfg.KB.AutosavePath, 0o755); mkErr != nil {
				return mkErr
			}
			return target.SaveToFile(filepath.Join(t.cfg.KB.AutosavePath, name+".json"))
		})
	}

	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"passes": stats.Passes, "facts_changed": stats.FactsChanged}, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// QueryTool reads facts matching a predicate and positional pattern.
type QueryTool struct {
	registry *registry.Registry
}

func (t *QueryTool) Name() string { return "query" }
func (t *QueryTool) Description() string {
	return `Query a knowledge base for facts matching a predicate, and
optionally a positional pattern. Pattern entries of "*" or "" act as
wildcards; any other value must match exactly.

EXAMPLE: {"name": "zoology", "predicate": "species", "pattern": ["sam", "*"]}`
}
func (t *QueryTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Knowledge base to query",
			},
			"predicate": map[string]interface{}{
				"type":        "string",
				"description": "Predicate to look up",
			},
			"pattern": map[string]interface{}{
				"type":        "array",
				"description": "Optional positional pattern; \"*\" matches anything",
			},
		},
		"required": []string{"name", "predicate"},
	}
}
func (t *QueryTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	name := getStringArg(args, "name")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	predicate := getStringArg(args, "predicate")
	if predicate == "" {
		return nil, fmt.Errorf("predicate is required")
	}

	var pattern []kb.QueryArg
	if raw, ok := args["pattern"].([]interface{}); ok {
		pattern = make([]kb.QueryArg, 0, len(raw))
		for _, v := range raw {
			s := fmt.Sprintf("%v", v)
			if s == "" || s == "*" {
				pattern = append(pattern, kb.Any())
			} else {
				pattern = append(pattern, kb.Lit(s))
			}
		}
	}

	var facts []kb.Fact
	err := t.registry.Use(name, func(target *kb.KnowledgeBase) error {
		facts = target.Query(predicate, pattern)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"facts": facts, "count": len(facts)}, nil
}

// LoadKBTool replaces a knowledge base's contents from a JSON/YAML file.
type LoadKBTool struct {
	registry *registry.Registry
}

func (t *LoadKBTool) Name() string { return "load-kb" }
func (t *LoadKBTool) Description() string {
	return `Replace a knowledge base's facts and rules from a document on
disk. The encoding is chosen by the file suffix: .yaml/.yml selects
YAML, anything else selects JSON.`
}
func (t *LoadKBTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Knowledge base to replace",
			},
			"path": map[string]interface{}{
				"type":        "string",
				"description": "File to load from",
			},
		},
		"required": []string{"name", "path"},
	}
}
func (t *LoadKBTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	name := getStringArg(args, "name")
	path := getStringArg(args, "path")
	if name == "" || path == "" {
		return nil, fmt.Errorf("name and path are required")
	}

	err := t.registry.Use(name, func(target *kb.KnowledgeBase) error {
		return target.LoadFromFile(path)
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"loaded": true, "path": path}, nil
}

// SaveKBTool renders a knowledge base's contents to a JSON/YAML file.
type SaveKBTool struct {
	registry *registry.Registry
}

func (t *SaveKBTool) Name() string { return "save-kb" }
func (t *SaveKBTool) Description() string {
	return `Render a knowledge base's current facts and rules to a file.
The encoding is chosen by the file suffix: .yaml/.yml selects YAML,
anything else selects JSON.`
}
func (t *SaveKBTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Knowledge base to save",
			},
			"path": map[string]interface{}{
				"type":        "string",
				"description": "File to write to",
			},
		},
		"required": []string{"name", "path"},
	}
}
func (t *SaveKBTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	name := getStringArg(args, "name")
	path := getStringArg(args, "path")
	if name == "" || path == "" {
		return nil, fmt.Errorf("name and path are required")
	}

	err := t.registry.Use(name, func(target *kb.KnowledgeBase) error {
		return target.SaveToFile(path)
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"saved": true, "path": path}, nil
}

// MergeKBTool combines two knowledge bases under a merge strategy,
// writing the result into a third (possibly new) registry entry.
type MergeKBTool struct {
	registry *registry.Registry
	cfg      config.Config
}

func (t *MergeKBTool) Name() string { return "merge-kb" }
func (t *MergeKBTool) Description() string {
	return `Merge two knowledge bases into a new registry entry under a
chosen strategy: union, override, complement, weighted, or smart.

- union: combine facts by fuzzy-OR, concatenate rules
- override: incoming facts/rules replace base's on identity collision
- complement: keep every base item, adding only incoming items whose
  fact key or rule identity is absent from base
- weighted: degree-weighted average of facts by weights [w1, w2]
- smart: union plus conflict detection; set auto_resolve to apply
  each conflict's suggested resolution instead of only reporting it

Returns the new knowledge base's name and, for smart merges, the list
of detected conflicts.`
}
func (t *MergeKBTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"base":             map[string]interface{}{"type": "string", "description": "First knowledge base"},
			"incoming":         map[string]interface{}{"type": "string", "description": "Second knowledge base"},
			"into":             map[string]interface{}{"type": "string", "description": "Name for the merged result"},
			"strategy":         map[string]interface{}{"type": "string", "enum": []string{"union", "override", "complement", "weighted", "smart"}},
			"weights":          map[string]interface{}{"type": "array", "description": "[w1, w2] for weighted merges"},
			"threshold":        map[string]interface{}{"type": "number", "description": "Contradiction severity threshold for smart merges"},
			"auto_resolve":     map[string]interface{}{"type": "boolean", "description": "Apply suggested resolutions for smart merges"},
			"exclusion_families": map[string]interface{}{
				"type":        "array",
				"description": "Predicate families that are mutually exclusive per subject",
			},
		},
		"required": []string{"base", "incoming", "into"},
	}
}
func (t *MergeKBTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	baseName := getStringArg(args, "base")
	incomingName := getStringArg(args, "incoming")
	intoName := getStringArg(args, "into")
	strategy := getStringArg(args, "strategy")
	if strategy == "" {
		strategy = t.cfg.Merge.Strategy
	}
	if baseName == "" || incomingName == "" || intoName == "" || strategy == "" {
		return nil, fmt.Errorf("base, incoming, into, and strategy are required")
	}

	opts := kb.MergeOptions{
		Strategy:          kb.MergeStrategy(strategy),
		Threshold:         getFloatArg(args, "threshold", t.cfg.Merge.Threshold),
		AutoResolve:       getBoolArg(args, "auto_resolve", t.cfg.Merge.AutoResolve),
		ExclusionFamilies: toStringMatrix(args["exclusion_families"], t.cfg.Merge.ExclusionFamilies),
	}
	if w, ok := args["weights"].([]interface{}); ok && len(w) == 2 {
		opts.Weights = [2]float64{toFloat64(w[0]), toFloat64(w[1])}
	}

	var baseSnapshot, incomingSnapshot *kb.KnowledgeBase
	if err := t.registry.Use(baseName, func(target *kb.KnowledgeBase) error {
		baseSnapshot = kb.New()
		if err := baseSnapshot.AddFacts(target.GetFacts()); err != nil {
			return err
		}
		return baseSnapshot.AddRules(target.GetRules())
	}); err != nil {
		return nil, err
	}
	if err := t.registry.Use(incomingName, func(target *kb.KnowledgeBase) error {
		incomingSnapshot = kb.New()
		if err := incomingSnapshot.AddFacts(target.GetFacts()); err != nil {
			return err
		}
		return incomingSnapshot.AddRules(target.GetRules())
	}); err != nil {
		return nil, err
	}

	merged, conflicts, err := kb.Merge(baseSnapshot, incomingSnapshot, opts)
	if err != nil {
		return nil, err
	}

	if !t.registry.Exists(intoName) {
		if _, err := t.registry.Create(intoName); err != nil {
			return nil, err
		}
	}
	err = t.registry.Use(intoName, func(target *kb.KnowledgeBase) error {
		target.Clear()
		if err := target.AddFacts(merged.GetFacts()); err != nil {
			return err
		}
		return target.AddRules(merged.GetRules())
	})
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"into":      intoName,
		"strategy":  strategy,
		"conflicts": conflicts,
	}, nil
}

func toStringMatrix(v interface{}, fallback [][]string) [][]string {
	raw, ok := v.([]interface{})
	if !ok {
		return fallback
	}
	out := make([][]string, 0, len(raw))
	for _, row := range raw {
		rawRow, ok := row.([]interface{})
		if !ok {
			continue
		}
		family := make([]string, 0, len(rawRow))
		for _, item := range rawRow {
			family = append(family, fmt.Sprintf("%v", item))
		}
		out = append(out, family)
	}
	return out
}

func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
