// Package cmake provides lexical scanners for CMake script text. Every
// scanner is a pure function of its input: explicit character state machines
// with no shared state, returning offset-tagged matches. Nothing here errors
// on malformed input; constructs the machines do not recognize are simply
// not matched.
package cmake

import "sort"

// scanState tracks where the argument scanner is inside a command line.
type scanState uint8

const (
	stateNormal scanState = iota
	stateInString
	stateInComment
)

// commandCall is one complete command invocation found on a single physical
// line: identifier at the start of the trimmed line, opening paren, raw
// argument text, closing paren.
type commandCall struct {
	name string // command identifier as written
	args string // raw text between the parens
	line int    // 0-based physical line of the identifier
}

// scanCommands finds every single-line command invocation in text. A command
// must begin a trimmed line. An invocation whose closing paren is not on the
// same physical line is discarded; multi-line set()/option() forms are a
// documented limitation carried over from the line-anchored matchers this
// replaces. Commands inside comments or string literals never match.
func scanCommands(text string) []commandCall {
	var calls []commandCall

	lineNum := 0
	for pos := 0; pos <= len(text); lineNum++ {
		end := pos
		for end < len(text) && text[end] != '\n' {
			end++
		}
		line := text[pos:end]
		// strip trailing CR so CRLF input behaves like LF
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}

		if call, ok := scanCommandLine(line, lineNum); ok {
			calls = append(calls, call)
		}

		pos = end + 1
		if end == len(text) {
			break
		}
	}
	return calls
}

// scanCommandLine matches a single physical line against the shape
// `ident ( args )`. The argument span is walked with an explicit state
// machine so quotes, escapes, and '#' comments are transition rules rather
// than regex lookaround.
func scanCommandLine(line string, lineNum int) (commandCall, bool) {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	if i >= len(line) || !isIdentStart(line[i]) {
		return commandCall{}, false
	}

	nameStart := i
	for i < len(line) && isIdentChar(line[i]) {
		i++
	}
	name := line[nameStart:i]

	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	if i >= len(line) || line[i] != '(' {
		return commandCall{}, false
	}

	argsStart := i + 1
	depth := 1
	state := stateNormal
	for p := argsStart; p < len(line); p++ {
		c := line[p]
		switch state {
		case stateNormal:
			switch c {
			case '"':
				state = stateInString
			case '#':
				state = stateInComment
			case '\\':
				p++ // escape applies to the next character
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					return commandCall{name: name, args: line[argsStart:p], line: lineNum}, true
				}
			}
		case stateInString:
			switch c {
			case '\\':
				p++
			case '"':
				state = stateNormal
			}
		case stateInComment:
			// '#' runs to end of line; the paren can no longer close
			return commandCall{}, false
		}
	}
	// line ended before depth returned to zero
	return commandCall{}, false
}

// argToken is one argument of a command invocation.
type argToken struct {
	text   string
	quoted bool
	start  int // byte offset within the args text; for quoted tokens, the opening quote
}

// tokenizeArgs splits a command's argument text into tokens. Quoted tokens
// keep their content verbatim minus the surrounding quotes; escape sequences
// are not interpreted.
func tokenizeArgs(args string) []argToken {
	var toks []argToken
	i := 0
	for i < len(args) {
		c := args[i]
		if c == ' ' || c == '\t' {
			i++
			continue
		}
		if c == '"' {
			start := i
			i++
			content := i
			for i < len(args) {
				if args[i] == '\\' && i+1 < len(args) {
					i += 2
					continue
				}
				if args[i] == '"' {
					break
				}
				i++
			}
			toks = append(toks, argToken{text: args[content:i], quoted: true, start: start})
			if i < len(args) {
				i++ // closing quote
			}
			continue
		}
		start := i
		for i < len(args) && args[i] != ' ' && args[i] != '\t' && args[i] != '"' {
			i++
		}
		toks = append(toks, argToken{text: args[start:i], start: start})
	}
	return toks
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// isIdentifier reports whether s is a valid variable identifier:
// [A-Za-z_][A-Za-z0-9_]*.
func isIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return true
}

// LineOffsets computes the byte offset of the start of every line in text.
// Offset i belongs to 0-based line LineAt(offsets, i).
func LineOffsets(text string) []int {
	offsets := make([]int, 1, 16)
	offsets[0] = 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// LineAt returns the 0-based line containing the given byte offset.
func LineAt(offsets []int, offset int) int {
	idx := sort.Search(len(offsets), func(i int) bool { return offsets[i] > offset })
	if idx == 0 {
		return 0
	}
	return idx - 1
}
