package service

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/standardbeagle/cmi/internal/cmake"
	cmierrors "github.com/standardbeagle/cmi/internal/errors"
)

// Diagnostic describes one problematic path-like token in a checked file.
type Diagnostic struct {
	Line       int      `json:"line"`
	Column     int      `json:"column"`
	Text       string   `json:"text"`
	Resolved   string   `json:"resolved"`
	Exists     bool     `json:"exists"`
	Unresolved []string `json:"unresolved,omitempty"`
}

// CheckFile scans one file for path-like tokens, resolves each against the
// current snapshot, and reports the ones that are broken: unresolved
// variables remain, or the resolved target does not exist. Clean tokens
// produce no diagnostic. URLs are ignored.
func (s *Service) CheckFile(path string) ([]Diagnostic, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, cmierrors.NewFileError("stat", path, err)
	}
	if info.Size() > s.cfg.Index.MaxFileSize {
		return nil, cmierrors.NewFileTooLargeError(path, info.Size(), s.cfg.Index.MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cmierrors.NewFileError("read", path, err)
	}

	content := string(data)
	lineStarts := lineStartOffsets(content)
	dir := filepath.Dir(path)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var diags []Diagnostic
	for _, ref := range cmake.ScanPaths(content) {
		if strings.Contains(ref.Text, "://") {
			continue // URL, not a filesystem path
		}

		resolved := s.resolver.ResolvePath(ref.Text, s.cfg.Resolve.MaxDepth)

		exists := resolved.Exists
		if len(resolved.UnresolvedVariables) == 0 && !exists && !filepath.IsAbs(resolved.Resolved) {
			// The resolver probes relative paths against the process working
			// directory; for a checked file the anchor is the file itself.
			if _, err := os.Stat(filepath.Join(dir, resolved.Resolved)); err == nil {
				exists = true
			}
		}

		if len(resolved.UnresolvedVariables) == 0 && exists {
			continue
		}

		line, col := offsetToPosition(lineStarts, ref.Start)
		diags = append(diags, Diagnostic{
			Line:       line,
			Column:     col,
			Text:       ref.Text,
			Resolved:   resolved.Resolved,
			Exists:     exists,
			Unresolved: resolved.UnresolvedVariables,
		})
	}
	return diags, nil
}

// CheckResult pairs a file with its diagnostics for reporting.
type CheckResult struct {
	File        string       `json:"file"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// lineStartOffsets returns the byte offset of the first character of each
// line, always including line one at offset zero.
func lineStartOffsets(content string) []int {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// offsetToPosition converts a byte offset into a 1-based line and column.
func offsetToPosition(lineStarts []int, offset int) (line, col int) {
	idx := sort.Search(len(lineStarts), func(i int) bool {
		return lineStarts[i] > offset
	}) - 1
	if idx < 0 {
		idx = 0
	}
	return idx + 1, offset - lineStarts[idx] + 1
}
