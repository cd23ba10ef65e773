package kb

import "math"

type factEntry struct {
	fact Fact
	live bool
}

// FactStore holds the working memory of a knowledge base: an
// append-only log of fact entries plus indices for predicate scans and
// identity lookups. Removal tombstones rather than compacts, which
// keeps Scan's insertion-order guarantee cheap to maintain.
type FactStore struct {
	entries  []factEntry
	byPred   map[string][]int
	byKey    map[FactKey]int // identity -> live entry index
}

// NewFactStore returns an empty fact store.
func NewFactStore() *FactStore {
	return &FactStore{
		byPred: map[string][]int{},
		byKey:  map[FactKey]int{},
	}
}

func (s *FactStore) append(f Fact) int {
	idx := len(s.entries)
	s.entries = append(s.entries, factEntry{fact: f, live: true})
	s.byPred[f.Predicate] = append(s.byPred[f.Predicate], idx)
	s.byKey[f.Key()] = idx
	return idx
}

// InsertOrCombine inserts f if absent, or fuzzy-ORs (max) its degree
// into the existing fact of the same identity. Reports whether the
// store actually changed.
func (s *FactStore) InsertOrCombine(f Fact) bool {
	key := f.Key()
	if idx, ok := s.byKey[key]; ok {
		existing := s.entries[idx].fact
		combined := math.Max(existing.Degree, f.Degree)
		if combined == existing.Degree {
			return false
		}
		s.entries[idx].fact.Degree = combined
		return true
	}
	s.append(f.clone())
	return true
}

// Set unconditionally assigns f's degree, inserting f if absent.
// Reports whether the store actually changed.
func (s *FactStore) Set(f Fact) bool {
	key := f.Key()
	if idx, ok := s.byKey[key]; ok {
		if s.entries[idx].fact.Degree == f.Degree {
			return false
		}
		s.entries[idx].fact.Degree = f.Degree
		return true
	}
	s.append(f.clone())
	return true
}

// Remove deletes the fact with the given identity, if present.
// Reports whether a fact was actually removed.
func (s *FactStore) Remove(predicate string, args []string) bool {
	key := Fact{Predicate: predicate, Args: args}.Key()
	idx, ok := s.byKey[key]
	if !ok {
		return false
	}
	s.entries[idx].live = false
	delete(s.byKey, key)
	return true
}

// Lookup returns the live fact with the given identity.
func (s *FactStore) Lookup(predicate string, args []string) (Fact, bool) {
	key := Fact{Predicate: predicate, Args: args}.Key()
	idx, ok := s.byKey[key]
	if !ok {
		return Fact{}, false
	}
	return s.entries[idx].fact.clone(), true
}

// Scan returns every live fact for a predicate, in insertion order.
func (s *FactStore) Scan(predicate string) []Fact {
	indices := s.byPred[predicate]
	out := make([]Fact, 0, len(indices))
	for _, idx := range indices {
		if s.entries[idx].live {
			out = append(out, s.entries[idx].fact.clone())
		}
	}
	return out
}

// All returns every live fact, in insertion order.
func (s *FactStore) All() []Fact {
	out := make([]Fact, 0, len(s.entries))
	for _, e := range s.entries {
		if e.live {
			out = append(out, e.fact.clone())
		}
	}
	return out
}

// Clear empties the store.
func (s *FactStore) Clear() {
	s.entries = nil
	s.byPred = map[string][]int{}
	s.byKey = map[FactKey]int{}
}
