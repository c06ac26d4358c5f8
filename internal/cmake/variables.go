package cmake

import (
	"strings"

	"github.com/standardbeagle/cmi/internal/types"
)

// ScanVariables finds every ${IDENTIFIER} occurrence in text, in order.
// IDENTIFIER is [A-Za-z_][A-Za-z0-9_]*. Matching is non-greedy with no
// nested-brace handling: a '}' always closes the nearest preceding unmatched
// '${'. Comments are not excluded; every occurrence counts.
func ScanVariables(text string) []types.VariableRef {
	var refs []types.VariableRef
	i := 0
	for i+1 < len(text) {
		if text[i] != '$' || text[i+1] != '{' {
			i++
			continue
		}
		j := i + 2
		if j < len(text) && isIdentStart(text[j]) {
			j++
			for j < len(text) && isIdentChar(text[j]) {
				j++
			}
			if j < len(text) && text[j] == '}' {
				refs = append(refs, types.VariableRef{
					Name:  text[i+2 : j],
					Start: i,
					End:   j + 1,
				})
				i = j + 1
				continue
			}
		}
		// invalid body; resume right after the "${" so an inner reference
		// such as the BAR in ${FOO${BAR}} is still found
		i += 2
	}
	return refs
}

// ScanEnvVariables finds every $ENV{IDENTIFIER} occurrence in text, in
// order. The ENV keyword is case-sensitive, matching CMake.
func ScanEnvVariables(text string) []types.VariableRef {
	var refs []types.VariableRef
	i := 0
	for i < len(text) {
		if text[i] != '$' || !strings.HasPrefix(text[i:], "$ENV{") {
			i++
			continue
		}
		j := i + 5
		if j < len(text) && isIdentStart(text[j]) {
			j++
			for j < len(text) && isIdentChar(text[j]) {
				j++
			}
			if j < len(text) && text[j] == '}' {
				refs = append(refs, types.VariableRef{
					Name:  text[i+5 : j],
					Start: i,
					End:   j + 1,
				})
				i = j + 1
				continue
			}
		}
		i += 5
	}
	return refs
}

// ScanPaths finds path-shaped tokens: maximal runs bounded by whitespace,
// double quotes, or parens that either contain a '/' or contain at least one
// variable reference. Each token is annotated with the variable references
// inside its span, offset-tagged against the full text.
func ScanPaths(text string) []types.PathRef {
	vars := ScanVariables(text)
	var paths []types.PathRef

	varIdx := 0
	flush := func(start, end int) {
		token := text[start:end]

		// advance past references that ended before this token
		for varIdx < len(vars) && vars[varIdx].End <= start {
			varIdx++
		}
		var inSpan []types.VariableRef
		for k := varIdx; k < len(vars) && vars[k].Start < end; k++ {
			if vars[k].Start >= start && vars[k].End <= end {
				inSpan = append(inSpan, vars[k])
			}
		}

		if len(inSpan) == 0 && !strings.Contains(token, "/") {
			return
		}
		paths = append(paths, types.PathRef{
			Text:      token,
			Start:     start,
			End:       end,
			Variables: inSpan,
		})
	}

	start := -1
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case ' ', '\t', '\n', '\r', '"', '(', ')':
			if start >= 0 {
				flush(start, i)
				start = -1
			}
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		flush(start, len(text))
	}
	return paths
}
