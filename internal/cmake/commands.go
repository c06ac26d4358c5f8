package cmake

import (
	"strings"

	"github.com/standardbeagle/cmi/internal/types"
)

// cacheKeyword marks a cache entry in set(). CMake keywords are
// case-sensitive uppercase, unlike command names.
const cacheKeyword = "CACHE"

// ScanSetCommands finds every single-line set(NAME value...) invocation.
// The command keyword is case-insensitive and must begin a trimmed line.
// NAME and the raw trailing value are captured; provenance is filePath plus
// the 0-based line index. A CACHE keyword among the trailing arguments marks
// the binding as a cache entry, and the captured value is the argument text
// before it. One pair of surrounding double quotes is stripped from the
// value.
func ScanSetCommands(text, filePath string) []types.SetCommand {
	var cmds []types.SetCommand
	for _, call := range scanCommands(text) {
		if !strings.EqualFold(call.name, "set") {
			continue
		}
		toks := tokenizeArgs(call.args)
		if len(toks) < 2 {
			// set(NAME) with no value unsets in real CMake; nothing to bind
			continue
		}
		name := toks[0]
		if name.quoted || !isIdentifier(name.text) {
			continue
		}

		value := strings.TrimSpace(call.args[toks[1].start:])
		isCache := false
		for _, t := range toks[1:] {
			if !t.quoted && t.text == cacheKeyword {
				isCache = true
				value = strings.TrimSpace(call.args[toks[1].start:t.start])
				break
			}
		}

		cmds = append(cmds, types.SetCommand{
			Name:         name.text,
			Value:        stripQuotes(value),
			IsCacheEntry: isCache,
			File:         filePath,
			Line:         call.line,
		})
	}
	return cmds
}

// ScanOptions finds every single-line option(NAME "description" ON|OFF)
// invocation. The value defaults to "OFF" when omitted.
func ScanOptions(text, filePath string) []types.OptionCommand {
	var cmds []types.OptionCommand
	for _, call := range scanCommands(text) {
		if !strings.EqualFold(call.name, "option") {
			continue
		}
		toks := tokenizeArgs(call.args)
		if len(toks) == 0 {
			continue
		}
		name := toks[0]
		if name.quoted || !isIdentifier(name.text) {
			continue
		}

		desc := ""
		if len(toks) >= 2 && toks[1].quoted {
			desc = toks[1].text
		}

		value := "OFF"
		if len(toks) >= 2 {
			last := toks[len(toks)-1]
			if !last.quoted {
				switch strings.ToUpper(last.text) {
				case "ON":
					value = "ON"
				case "OFF":
					value = "OFF"
				}
			}
		}

		cmds = append(cmds, types.OptionCommand{
			Name:        name.text,
			Description: desc,
			Value:       value,
			File:        filePath,
			Line:        call.line,
		})
	}
	return cmds
}

// ScanProjectName returns the name from the first project(NAME ...) command,
// or false when no project command is present. Project names may contain
// hyphens in addition to identifier characters.
func ScanProjectName(text string) (string, bool) {
	for _, call := range scanCommands(text) {
		if !strings.EqualFold(call.name, "project") {
			continue
		}
		toks := tokenizeArgs(call.args)
		if len(toks) == 0 || toks[0].quoted {
			continue
		}
		if isProjectName(toks[0].text) {
			return toks[0].text, true
		}
	}
	return "", false
}

func isProjectName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentChar(s[i]) && s[i] != '-' {
			return false
		}
	}
	return true
}

// stripQuotes removes one pair of surrounding double quotes so that
// set(X "/a/b") stores /a/b. Values that merely start and end with quotes
// without forming a single quoted string (`"a" "b"`) are left alone.
func stripQuotes(s string) string {
	if len(s) < 2 || s[0] != '"' {
		return s
	}
	for i := 1; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == '"' {
			if i == len(s)-1 {
				return s[1:i]
			}
			return s
		}
	}
	return s
}
