// Package indexing discovers CMake script files in a workspace, ingests their
// variable definitions into the store, and keeps the index current as files
// change on disk.
package indexing

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/cmi/internal/cmake"
	"github.com/standardbeagle/cmi/internal/config"
	"github.com/standardbeagle/cmi/internal/debug"
	cmierrors "github.com/standardbeagle/cmi/internal/errors"
	"github.com/standardbeagle/cmi/internal/resolver"
	"github.com/standardbeagle/cmi/internal/store"
	"github.com/standardbeagle/cmi/internal/types"
)

// Indexer walks the workspace, parses every CMake script it finds, and feeds
// the definitions into the variable store. File reads run concurrently;
// ingestion is strictly sequential so that definition order (and therefore
// last-write-wins) stays deterministic.
type Indexer struct {
	cfg      *config.Config
	store    *store.VariableStore
	resolver *resolver.Resolver

	mu      sync.RWMutex
	records map[string]types.FileRecord
}

// New creates an indexer over the given store. The resolver is used to
// resolve variable values at definition time.
func New(cfg *config.Config, s *store.VariableStore, r *resolver.Resolver) *Indexer {
	return &Indexer{
		cfg:      cfg,
		store:    s,
		resolver: r,
		records:  make(map[string]types.FileRecord),
	}
}

// ScanAll performs a full workspace scan: discover files, read them with
// bounded concurrency, then ingest sequentially in discovery order.
// Per-file read failures skip the file and never fail the scan; only context
// cancellation aborts it.
func (i *Indexer) ScanAll(ctx context.Context) (types.ScanStats, error) {
	start := time.Now()
	stats := types.ScanStats{}

	root := i.cfg.Project.Root
	if _, err := os.Stat(root); err != nil {
		return stats, cmierrors.NewFileError("scan", root, err)
	}

	files := i.discoverFiles()
	debug.LogScan("discovered %d script files under %s\n", len(files), root)

	contents := make([][]byte, len(files))
	readErrs := make([]error, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(types.DefaultReadConcurrency)
	for idx, file := range files {
		idx, file := idx, file // Capture
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			contents[idx], readErrs[idx] = i.readFile(file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	for idx, file := range files {
		if readErrs[idx] != nil {
			debug.LogScan("skipping %s: %v\n", file, readErrs[idx])
			stats.FilesSkipped++
			continue
		}
		stats.Bindings += i.ingestFile(file, contents[idx])
		stats.FilesScanned++
	}

	stats.Duration = time.Since(start)
	debug.LogScan("scan complete: %d files, %d bindings, %d skipped in %v\n",
		stats.FilesScanned, stats.Bindings, stats.FilesSkipped, stats.Duration)
	return stats, nil
}

// readFile stats first so oversized files are rejected without reading them.
func (i *Indexer) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, cmierrors.NewFileError("stat", path, err)
	}
	if info.Size() > i.cfg.Index.MaxFileSize {
		return nil, cmierrors.NewFileTooLargeError(path, info.Size(), i.cfg.Index.MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cmierrors.NewFileError("read", path, err)
	}
	return data, nil
}

// discoverFiles walks the workspace and returns script paths in ingest order:
// CMakeLists.txt files by directory depth (shallow first), then *.cmake
// modules in walk order. Depth-first ordering makes the top-level project()
// land before any subdirectory redefines things.
func (i *Indexer) discoverFiles() []string {
	root := i.cfg.Project.Root
	var lists, modules []string

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Unreadable entries are skipped, not fatal.
		}
		rel := i.relSlash(path)
		if d.IsDir() {
			if path != root && i.isExcludedDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !i.fileIncluded(rel) || i.fileExcluded(rel) {
			return nil
		}
		if d.Name() == "CMakeLists.txt" {
			lists = append(lists, path)
		} else {
			modules = append(modules, path)
		}
		return nil
	})

	sort.SliceStable(lists, func(a, b int) bool {
		return strings.Count(i.relSlash(lists[a]), "/") < strings.Count(i.relSlash(lists[b]), "/")
	})
	return append(lists, modules...)
}

func (i *Indexer) relSlash(path string) string {
	rel, err := filepath.Rel(i.cfg.Project.Root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// isExcludedDir reports whether a directory should be pruned from the walk.
// A pattern like "**/build/**" excludes content; trimming the trailing "/**"
// lets it also match the directory itself so the walk skips the subtree.
func (i *Indexer) isExcludedDir(rel string) bool {
	for _, pattern := range i.cfg.Exclude {
		if trimmed := strings.TrimSuffix(pattern, "/**"); trimmed != pattern {
			if ok, _ := doublestar.Match(trimmed, rel); ok {
				return true
			}
		}
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (i *Indexer) fileIncluded(rel string) bool {
	for _, pattern := range i.cfg.Include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (i *Indexer) fileExcluded(rel string) bool {
	for _, pattern := range i.cfg.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// ingestFile parses one script and stores its definitions, resolving set()
// values at definition time. Returns the number of bindings stored.
func (i *Indexer) ingestFile(path string, data []byte) int {
	text := string(data)

	if name, ok := cmake.ScanProjectName(text); ok {
		// PROJECT_NAME tracks the most recent project() command;
		// CMAKE_PROJECT_NAME keeps the first one seen, which is the
		// top-level project because CMakeLists.txt files ingest shallow
		// first.
		i.store.Set(types.VarProjectName, name)
		if _, ok := i.store.Get(types.VarCMakeProjectName); !ok {
			i.store.Set(types.VarCMakeProjectName, name)
		}
	}

	dir := filepath.ToSlash(filepath.Dir(path))
	i.store.Set(types.VarCurrentSourceDir, dir)
	i.store.Set(types.VarCurrentListDir, dir)
	i.store.Set(types.VarCurrentListFile, filepath.ToSlash(path))

	sets := cmake.ScanSetCommands(text, path)
	opts := cmake.ScanOptions(text, path)

	// Merge both command streams by line number so definitions apply in
	// source order, which matters when a set() references an option defined
	// above it.
	count := 0
	si, oi := 0, 0
	for si < len(sets) || oi < len(opts) {
		if oi >= len(opts) || (si < len(sets) && sets[si].Line <= opts[oi].Line) {
			cmd := sets[si]
			si++
			resolved := i.resolver.ResolvePath(cmd.Value, i.cfg.Resolve.MaxDepth).Resolved
			i.store.SetBinding(&types.Binding{
				Name:          cmd.Name,
				Value:         resolved,
				DefinedIn:     cmd.File,
				DefinedAtLine: cmd.Line,
				IsCacheEntry:  cmd.IsCacheEntry,
			})
			count++
		} else {
			opt := opts[oi]
			oi++
			i.store.SetBinding(&types.Binding{
				Name:          opt.Name,
				Value:         opt.Value,
				DefinedIn:     opt.File,
				DefinedAtLine: opt.Line,
			})
			count++
		}
	}

	rec := types.FileRecord{
		Path:        path,
		Fingerprint: xxhash.Sum64(data),
		Bindings:    count,
		ScannedAt:   time.Now(),
	}
	i.mu.Lock()
	i.records[path] = rec
	i.mu.Unlock()

	debug.LogScan("ingested %s: %d bindings\n", path, count)
	return count
}

// ReparseFile drops a file's bindings and re-ingests it unconditionally.
// A file that no longer exists is treated as removed.
func (i *Indexer) ReparseFile(path string) error {
	data, err := i.readFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			i.RemoveFile(path)
			return nil
		}
		return err
	}
	i.store.RemoveBindingsFromFile(path)
	i.ingestFile(path, data)
	return nil
}

// ReparseFileIfChanged is the watcher entry point: it skips the reparse when
// the content fingerprint matches the last ingest, which absorbs editors that
// rewrite files without changing bytes. Reports whether the index changed.
func (i *Indexer) ReparseFileIfChanged(path string) (bool, error) {
	data, err := i.readFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			removed := i.RemoveFile(path)
			return removed > 0, nil
		}
		return false, err
	}

	sum := xxhash.Sum64(data)
	i.mu.RLock()
	rec, known := i.records[path]
	i.mu.RUnlock()
	if known && rec.Fingerprint == sum {
		debug.LogScan("unchanged %s, skipping reparse\n", path)
		return false, nil
	}

	i.store.RemoveBindingsFromFile(path)
	i.ingestFile(path, data)
	return true, nil
}

// RemoveFile drops all bindings defined by a file and forgets its record.
// Returns the number of bindings removed.
func (i *Indexer) RemoveFile(path string) int {
	removed := i.store.RemoveBindingsFromFile(path)
	i.mu.Lock()
	delete(i.records, path)
	i.mu.Unlock()
	if len(removed) > 0 {
		debug.LogScan("removed %s: %d bindings dropped\n", path, len(removed))
	}
	return len(removed)
}

// Clear resets the index and the store. Environment overrides and built-in
// seeds survive; file records do not.
func (i *Indexer) Clear() {
	i.store.Clear()
	i.mu.Lock()
	i.records = make(map[string]types.FileRecord)
	i.mu.Unlock()
}

// Records returns a snapshot of per-file bookkeeping sorted by path.
func (i *Indexer) Records() []types.FileRecord {
	i.mu.RLock()
	out := make([]types.FileRecord, 0, len(i.records))
	for _, rec := range i.records {
		out = append(out, rec)
	}
	i.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool { return out[a].Path < out[b].Path })
	return out
}

// FileCount returns how many files are currently indexed.
func (i *Indexer) FileCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.records)
}
