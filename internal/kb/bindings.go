package kb

import (
	"sort"
	"strings"
)

// Bindings carries the two binding namespaces a match accumulates:
// term bindings (variable -> ground symbol) and degree bindings
// (variable -> matched fact degree). Keeping them separate avoids
// collisions between a term variable and a degree variable that
// happen to share a name.
type Bindings struct {
	terms   map[string]string
	degrees map[string]float64
}

// NewBindings returns an empty binding set.
func NewBindings() Bindings {
	return Bindings{terms: map[string]string{}, degrees: map[string]float64{}}
}

// Clone returns an independent copy.
func (b Bindings) Clone() Bindings {
	nb := Bindings{
		terms:   make(map[string]string, len(b.terms)),
		degrees: make(map[string]float64, len(b.degrees)),
	}
	for k, v := range b.terms {
		nb.terms[k] = v
	}
	for k, v := range b.degrees {
		nb.degrees[k] = v
	}
	return nb
}

// Term looks up a bound term variable.
func (b Bindings) Term(v string) (string, bool) {
	s, ok := b.terms[v]
	return s, ok
}

// Degree looks up a bound degree variable.
func (b Bindings) Degree(v string) (float64, bool) {
	d, ok := b.degrees[v]
	return d, ok
}

// BindTerm extends a clone of b with v=val. If v is already bound, the
// extension succeeds only if the existing binding agrees with val.
func (b Bindings) BindTerm(v, val string) (Bindings, bool) {
	if existing, ok := b.terms[v]; ok {
		return b, existing == val
	}
	nb := b.Clone()
	nb.terms[v] = val
	return nb, true
}

// BindDegree extends a clone of b with v=val. If v is already bound, the
// extension succeeds only if the existing binding agrees with val.
func (b Bindings) BindDegree(v string, val float64) (Bindings, bool) {
	if existing, ok := b.degrees[v]; ok {
		return b, existing == val
	}
	nb := b.Clone()
	nb.degrees[v] = val
	return nb, true
}

// degreeResolver adapts the degree-binding namespace to fuzzy.Resolver.
func (b Bindings) degreeResolver() func(string) (float64, bool) {
	return func(name string) (float64, bool) {
		v, ok := b.degrees[name]
		return v, ok
	}
}

// canonicalKey returns a deterministic string identifying this binding
// set's content, used to dedupe OR-branch results that bind identically.
func (b Bindings) canonicalKey() string {
	var sb strings.Builder
	termKeys := make([]string, 0, len(b.terms))
	for k := range b.terms {
		termKeys = append(termKeys, k)
	}
	sort.Strings(termKeys)
	for _, k := range termKeys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(b.terms[k])
		sb.WriteByte(';')
	}
	sb.WriteByte('|')
	degKeys := make([]string, 0, len(b.degrees))
	for k := range b.degrees {
		degKeys = append(degKeys, k)
	}
	sort.Strings(degKeys)
	for _, k := range degKeys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(formatDegree(b.degrees[k]))
		sb.WriteByte(';')
	}
	return sb.String()
}
