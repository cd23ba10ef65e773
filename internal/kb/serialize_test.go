package kb

import "testing"

func buildSampleKB(t *testing.T) *KnowledgeBase {
	t.Helper()
	k := New()
	must(t, k.AddFact(Fact{Predicate: "is-zebra", Args: []string{"sam"}, Degree: 0.8}))
	rule := Rule{
		Name:     "stripes",
		Priority: 2,
		Conditions: []Condition{
			AtomCondition{Predicate: "is-zebra", Args: []string{"?x"}, DegreeVar: "?d"},
		},
		Actions: []Action{
			AddAction{Template: FactTemplate{Predicate: "has-stripes", Args: []string{"?x"}}},
		},
	}
	must(t, k.AddRule(rule))
	return k
}

func TestRoundTripJSON(t *testing.T) {
	k := buildSampleKB(t)
	data, err := k.ToBytes(false)
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	reloaded, err := FromBytes(data, false)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	assertEquivalentKB(t, k, reloaded)
}

func TestRoundTripYAML(t *testing.T) {
	k := buildSampleKB(t)
	data, err := k.ToBytes(true)
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	reloaded, err := FromBytes(data, true)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	assertEquivalentKB(t, k, reloaded)
}

func assertEquivalentKB(t *testing.T, want, got *KnowledgeBase) {
	t.Helper()
	wf, gf := want.GetFacts(), got.GetFacts()
	if len(wf) != len(gf) {
		t.Fatalf("fact count mismatch: %d vs %d", len(wf), len(gf))
	}
	for i := range wf {
		if wf[i].Predicate != gf[i].Predicate || !almostEqual(wf[i].Degree, gf[i].Degree) {
			t.Errorf("fact %d mismatch: %+v vs %+v", i, wf[i], gf[i])
		}
	}
	wr, gr := want.GetRules(), got.GetRules()
	if len(wr) != len(gr) {
		t.Fatalf("rule count mismatch: %d vs %d", len(wr), len(gr))
	}
	for i := range wr {
		if wr[i].Name != gr[i].Name || wr[i].Priority != gr[i].Priority {
			t.Errorf("rule %d mismatch: %+v vs %+v", i, wr[i], gr[i])
		}
	}
}

func TestFromDictRejectsMalformedFact(t *testing.T) {
	doc := map[string]interface{}{
		"facts": []interface{}{
			map[string]interface{}{"pred": "p", "args": []interface{}{"x"}, "deg": 1.5},
		},
	}
	if _, err := FromDict(doc); err == nil {
		t.Fatal("expected validation error for out-of-range degree")
	}
}

func TestFromDictRejectsUnknownConstraintOperator(t *testing.T) {
	doc := map[string]interface{}{
		"rules": []interface{}{
			map[string]interface{}{
				"cond": []interface{}{
					map[string]interface{}{
						"pred": "p", "args": []interface{}{"?x"}, "deg": "?d",
						"deg-pred": []interface{}{"~=", "?d", 0.5},
					},
				},
				"actions": []interface{}{
					map[string]interface{}{
						"action": "add",
						"fact":   map[string]interface{}{"pred": "q", "args": []interface{}{"?x"}},
					},
				},
			},
		},
	}
	if _, err := FromDict(doc); err == nil {
		t.Fatal("expected validation error for unknown constraint operator")
	}
}
