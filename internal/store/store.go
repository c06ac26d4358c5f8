// Package store holds the in-memory variable table the resolver queries:
// raw values for fast substitution, bindings for provenance, and the
// environment map.
package store

import (
	"os"
	"strings"

	"github.com/standardbeagle/cmi/internal/types"
)

// VariableStore maps variable names to their current values and provenance.
// Redefinition always overwrites: CMake variable semantics are "current
// scope's last assignment wins", so Set replacing an existing entry is the
// documented contract, not an accident.
//
// Invariant: every name in the binding map has a raw-value entry; the
// converse does not hold (built-ins and custom variables are raw-value only).
//
// NOTE: Not safe for concurrent use. The owning service serializes access.
type VariableStore struct {
	values   map[string]string         // raw-value map queried by substitution passes
	bindings map[string]*types.Binding // provenance, parsed entries only
	order    []string                  // insertion order of raw-value names

	env          map[string]string // process environment plus overrides
	envOverrides map[string]string // reapplied on every Clear, never dropped

	folders []string // workspace folder set captured at construction
}

// New creates a store seeded with the built-in directory variables for the
// first workspace folder and the process environment.
func New(folders []string) *VariableStore {
	s := &VariableStore{
		envOverrides: make(map[string]string),
		folders:      folders,
	}
	s.reset()
	return s
}

// Set stores a raw value without provenance (built-ins, custom variables).
// An existing Binding for the name is left in place; only SetBinding
// replaces provenance.
func (s *VariableStore) Set(name, value string) {
	if _, exists := s.values[name]; !exists {
		s.order = append(s.order, name)
	}
	s.values[name] = value
}

// SetBinding stores a parsed binding: value and provenance together.
func (s *VariableStore) SetBinding(b *types.Binding) {
	s.Set(b.Name, b.Value)
	s.bindings[b.Name] = b
}

// Get returns the raw value for name.
func (s *VariableStore) Get(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// GetBinding returns the provenance record for name. Built-ins and custom
// variables have none.
func (s *VariableStore) GetBinding(name string) (*types.Binding, bool) {
	b, ok := s.bindings[name]
	return b, ok
}

// Has reports whether name has a raw value.
func (s *VariableStore) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Names returns all known names in insertion order.
func (s *VariableStore) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Size returns the number of known names.
func (s *VariableStore) Size() int {
	return len(s.values)
}

// RemoveBindingsFromFile deletes every entry whose binding was defined in
// filePath and returns the removed names in insertion order. Raw-value-only
// entries (built-ins, custom variables) are never touched.
func (s *VariableStore) RemoveBindingsFromFile(filePath string) []string {
	var removed []string
	for _, name := range s.order {
		if b, ok := s.bindings[name]; ok && b.DefinedIn == filePath {
			removed = append(removed, name)
		}
	}
	if len(removed) == 0 {
		return nil
	}

	drop := make(map[string]bool, len(removed))
	for _, name := range removed {
		drop[name] = true
		delete(s.bindings, name)
		delete(s.values, name)
	}
	kept := s.order[:0]
	for _, name := range s.order {
		if !drop[name] {
			kept = append(kept, name)
		}
	}
	s.order = kept
	return removed
}

// Clear drops every entry, then re-seeds the built-ins and the environment.
// Environment overrides survive.
func (s *VariableStore) Clear() {
	s.reset()
}

// Env returns the environment value for name, override entries first.
func (s *VariableStore) Env(name string) (string, bool) {
	v, ok := s.env[name]
	return v, ok
}

// SetEnvOverride records an environment override. Overrides win over the
// ambient process environment and are reapplied on Clear.
func (s *VariableStore) SetEnvOverride(name, value string) {
	s.envOverrides[name] = value
	s.env[name] = value
}

// Folders returns the workspace folder set captured at construction.
func (s *VariableStore) Folders() []string {
	return s.folders
}

func (s *VariableStore) reset() {
	s.values = make(map[string]string)
	s.bindings = make(map[string]*types.Binding)
	s.order = s.order[:0]
	s.seedBuiltins()
	s.seedEnv()
}

// seedBuiltins seeds the directory variables from the first workspace
// folder. Seeded entries carry no Binding; their provenance is "built-in".
func (s *VariableStore) seedBuiltins() {
	if len(s.folders) == 0 {
		return
	}
	first := s.folders[0]
	build := strings.TrimRight(first, "/\\") + "/build"

	s.Set(types.VarSourceDir, first)
	s.Set(types.VarCurrentSourceDir, first)
	s.Set(types.VarProjectSourceDir, first)
	s.Set(types.VarBinaryDir, build)
	s.Set(types.VarCurrentBinaryDir, build)
	s.Set(types.VarProjectBinaryDir, build)
}

func (s *VariableStore) seedEnv() {
	s.env = make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			s.env[kv[:i]] = kv[i+1:]
		}
	}
	for k, v := range s.envOverrides {
		s.env[k] = v
	}
}
