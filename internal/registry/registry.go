// Package registry tracks the set of named knowledge bases a server
// instance is holding open at once: creation, lookup, and teardown of
// independently owned *kb.KnowledgeBase values.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"fuzzyrules/internal/kb"

	"github.com/google/uuid"
)

// Entry describes the public metadata of one registered knowledge base.
type Entry struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

type record struct {
	meta Entry
	kb   *kb.KnowledgeBase
	mu   sync.Mutex // serializes operations against this KB instance
}

// Registry is a mutex-protected collection of named, independently
// owned knowledge bases. A zero Registry is not usable; construct one
// with New.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]*record
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byName: map[string]*record{}}
}

// Create registers a new empty knowledge base under name. Returns an
// error if name is already in use.
func (r *Registry) Create(name string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return Entry{}, fmt.Errorf("registry: knowledge base %q already exists", name)
	}
	now := time.Now()
	rec := &record{
		meta: Entry{ID: uuid.NewString(), Name: name, CreatedAt: now, LastActive: now},
		kb:   kb.New(),
	}
	r.byName[name] = rec
	return rec.meta, nil
}

// Close removes name from the registry. Reports whether it was present.
func (r *Registry) Close(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; !exists {
		return false
	}
	delete(r.byName, name)
	return true
}

// List returns the metadata of every registered knowledge base, sorted
// by name.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.byName))
	for _, rec := range r.byName {
		out = append(out, rec.meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Use locates name and invokes fn with exclusive access to its
// knowledge base, updating LastActive on success. Returns an error if
// name is not registered.
func (r *Registry) Use(name string, fn func(*kb.KnowledgeBase) error) error {
	r.mu.RLock()
	rec, exists := r.byName[name]
	r.mu.RUnlock()
	if !exists {
		return fmt.Errorf("registry: no knowledge base named %q", name)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if err := fn(rec.kb); err != nil {
		return err
	}
	r.mu.Lock()
	rec.meta.LastActive = time.Now()
	r.mu.Unlock()
	return nil
}

// Exists reports whether name is registered.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[name]
	return ok
}
