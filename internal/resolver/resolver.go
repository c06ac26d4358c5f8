// Package resolver performs iterative variable substitution over path and
// string expressions against the current variable store snapshot.
package resolver

import (
	"os"
	"strings"

	"github.com/standardbeagle/cmi/internal/cmake"
	"github.com/standardbeagle/cmi/internal/store"
	"github.com/standardbeagle/cmi/internal/types"
	"github.com/standardbeagle/cmi/pkg/pathutil"
)

// Resolver substitutes $ENV{NAME} and ${NAME} references using the store.
// Resolution is a pure read of the store; results are built fresh per call
// and never cached.
type Resolver struct {
	store *store.VariableStore
}

func New(s *store.VariableStore) *Resolver {
	return &Resolver{store: s}
}

// ResolvePath resolves expression against the current store snapshot.
// maxDepth bounds the number of ${NAME} substitution passes; values <= 0
// select the default. The depth budget is shared across the whole
// expression, not per variable.
//
// Environment references are substituted once, first. Then up to maxDepth
// passes replace every ${NAME} with a known raw value; a pass that makes
// zero replacements is a fixed point and stops early. Unknown names stay as
// literal tokens and are recorded once each, in the order the output scans
// first encounter them. Cyclic definitions terminate by depth exhaustion,
// never by error.
func (r *Resolver) ResolvePath(expr string, maxDepth int) types.ResolvedPath {
	if maxDepth <= 0 {
		maxDepth = types.DefaultMaxResolveDepth
	}
	rp := types.ResolvedPath{
		Original:            expr,
		UnresolvedVariables: []string{},
	}
	seen := make(map[string]bool)

	out := r.substituteEnv(expr, &rp, seen)
	for pass := 0; pass < maxDepth; pass++ {
		next, replaced := r.substituteVars(out, &rp, seen)
		out = next
		if replaced == 0 {
			break
		}
	}

	rp.Resolved = pathutil.NormalizeSeparators(out)
	rp.Exists = probeExists(rp.Resolved)
	return rp
}

// substituteEnv replaces every $ENV{NAME} token using the environment map.
// Unresolved references are recorded under the distinct "ENV{NAME}"
// namespace and the literal token is left in the output.
func (r *Resolver) substituteEnv(text string, rp *types.ResolvedPath, seen map[string]bool) string {
	refs := cmake.ScanEnvVariables(text)
	if len(refs) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, ref := range refs {
		b.WriteString(text[last:ref.Start])
		if v, ok := r.store.Env(ref.Name); ok {
			b.WriteString(v)
		} else {
			token := "ENV{" + ref.Name + "}"
			if !seen[token] {
				seen[token] = true
				rp.UnresolvedVariables = append(rp.UnresolvedVariables, token)
			}
			b.WriteString(text[ref.Start:ref.End])
		}
		last = ref.End
	}
	b.WriteString(text[last:])
	return b.String()
}

// substituteVars performs one left-to-right replacement pass over every
// ${NAME} reference and returns the rewritten text with the replacement
// count. Unknown names are recorded once per resolution request.
func (r *Resolver) substituteVars(text string, rp *types.ResolvedPath, seen map[string]bool) (string, int) {
	refs := cmake.ScanVariables(text)
	if len(refs) == 0 {
		return text, 0
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	replaced := 0
	for _, ref := range refs {
		b.WriteString(text[last:ref.Start])
		if v, ok := r.store.Get(ref.Name); ok {
			b.WriteString(v)
			replaced++
		} else {
			if !seen[ref.Name] {
				seen[ref.Name] = true
				rp.UnresolvedVariables = append(rp.UnresolvedVariables, ref.Name)
			}
			b.WriteString(text[ref.Start:ref.End])
		}
		last = ref.End
	}
	b.WriteString(text[last:])
	return b.String(), replaced
}

// probeExists is a best-effort filesystem check. Every probe error, from
// invalid path syntax to permission failures, counts as non-existence.
func probeExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
