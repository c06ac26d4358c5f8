// Package service ties the store, resolver, indexer, and watcher into one
// explicitly constructed object. Every consumer (CLI command, MCP tool
// handler, watcher callback) holds a handle to a Service; there is no
// package-level singleton.
package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/standardbeagle/cmi/internal/config"
	"github.com/standardbeagle/cmi/internal/debug"
	"github.com/standardbeagle/cmi/internal/indexing"
	"github.com/standardbeagle/cmi/internal/resolver"
	"github.com/standardbeagle/cmi/internal/store"
	"github.com/standardbeagle/cmi/internal/types"
)

// Service is the engine facade. Mutations take the write lock so ingestion
// stays serialized; queries take the read lock and see a consistent snapshot.
type Service struct {
	mu       sync.RWMutex
	cfg      *config.Config
	store    *store.VariableStore
	resolver *resolver.Resolver
	indexer  *indexing.Indexer
	watcher  *indexing.FileWatcher

	lastScan     types.ScanStats
	lastScanTime time.Time
}

// New constructs a Service over the given workspace folders. The first folder
// seeds the built-in directory variables; an empty list falls back to the
// configured project root.
func New(cfg *config.Config, workspaceFolders []string) *Service {
	if len(workspaceFolders) == 0 {
		workspaceFolders = []string{cfg.Project.Root}
	}
	s := store.New(workspaceFolders)
	r := resolver.New(s)
	return &Service{
		cfg:      cfg,
		store:    s,
		resolver: r,
		indexer:  indexing.New(cfg, s, r),
	}
}

// Bootstrap runs the standard startup sequence: environment overrides from
// the settings file first (they affect definition-time resolution during the
// scan), then the full scan, then custom variables on top so they win over
// parsed values.
func (s *Service) Bootstrap(ctx context.Context) (types.ScanStats, error) {
	settings, err := LoadSettingsFile(s.settingsPath())
	if err != nil {
		debug.Log("CONFIG", "settings file ignored: %v\n", err)
		settings = &Settings{}
	}

	s.LoadEnvironmentOverrides(settings.Environment)

	stats, err := s.ScanAll(ctx)
	if err != nil {
		return stats, err
	}

	s.LoadCustomVariables(settings.Variables)
	return stats, nil
}

// LoadCustomVariables applies externally configured variables. Applied after
// a scan they take precedence over parsed values, but a later set() binding
// for the same name overwrites them unless they are re-applied. Keys are
// applied in sorted order so repeated loads are deterministic.
func (s *Service) LoadCustomVariables(vars map[string]string) {
	if len(vars) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.store.Set(name, vars[name])
	}
	debug.Log("CONFIG", "loaded %d custom variables\n", len(names))
}

// LoadEnvironmentOverrides seeds the environment map; overrides win over the
// ambient process environment and survive Clear.
func (s *Service) LoadEnvironmentOverrides(env map[string]string) {
	if len(env) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.store.SetEnvOverride(name, env[name])
	}
	debug.Log("CONFIG", "loaded %d environment overrides\n", len(names))
}

// ScanAll runs a full workspace scan.
func (s *Service) ScanAll(ctx context.Context) (types.ScanStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, err := s.indexer.ScanAll(ctx)
	if err != nil {
		return stats, err
	}
	s.lastScan = stats
	s.lastScanTime = time.Now()
	return stats, nil
}

// ReparseFile drops a file's bindings and re-ingests it.
func (s *Service) ReparseFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexer.ReparseFile(path)
}

// RemoveFile drops all bindings defined by a file. Returns the number of
// bindings removed.
func (s *Service) RemoveFile(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexer.RemoveFile(path)
}

// Clear resets the symbol table. Built-in seeds and environment overrides
// survive; everything parsed or custom-loaded does not.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexer.Clear()
}

// ResolvePath resolves a path expression against the current snapshot. An
// optional maxDepth overrides the configured substitution budget.
func (s *Service) ResolvePath(expression string, maxDepth ...int) types.ResolvedPath {
	s.mu.RLock()
	defer s.mu.RUnlock()

	depth := s.cfg.Resolve.MaxDepth
	if len(maxDepth) > 0 && maxDepth[0] > 0 {
		depth = maxDepth[0]
	}
	resolved := s.resolver.ResolvePath(expression, depth)
	if len(resolved.UnresolvedVariables) > 0 {
		debug.LogResolve("%q left %v unresolved\n", expression, resolved.UnresolvedVariables)
	}
	return resolved
}

// Get returns the current raw value of a variable.
func (s *Service) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Get(name)
}

// Has reports whether a variable is known.
func (s *Service) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Has(name)
}

// GetBinding returns the provenance-carrying binding for a name, when one
// exists. Built-ins and custom variables have a value but no binding.
func (s *Service) GetBinding(name string) (*types.Binding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.GetBinding(name)
}

// Names returns every known variable name in insertion order.
func (s *Service) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Names()
}

// Records returns the indexer's per-file bookkeeping.
func (s *Service) Records() []types.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexer.Records()
}

// Status summarizes the current engine state.
type Status struct {
	Root         string               `json:"root"`
	ProjectName  string               `json:"project_name,omitempty"`
	FilesIndexed int                  `json:"files_indexed"`
	Variables    int                  `json:"variables"`
	LastScan     types.ScanStats      `json:"last_scan"`
	LastScanTime time.Time            `json:"last_scan_time"`
	Watching     bool                 `json:"watching"`
	Watch        *indexing.WatchStats `json:"watch,omitempty"`
}

// Status returns a snapshot of the engine state.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Root:         s.cfg.Project.Root,
		FilesIndexed: s.indexer.FileCount(),
		Variables:    s.store.Size(),
		LastScan:     s.lastScan,
		LastScanTime: s.lastScanTime,
		Watching:     s.watcher != nil,
	}
	if name, ok := s.store.Get(types.VarCMakeProjectName); ok {
		st.ProjectName = name
	}
	if s.watcher != nil {
		stats := s.watcher.GetStats()
		st.Watch = &stats
	}
	return st
}

// StartWatching creates the file watcher and routes its events into the
// indexer. Progress callbacks may be nil; they must be supplied here because
// the watcher reads them from its own goroutine once started.
func (s *Service) StartWatching(onBatchStart func(int), onBatchEnd func(int, time.Duration)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		return nil // Already watching
	}
	if !s.cfg.Index.WatchMode {
		debug.LogWatch("watch mode disabled in configuration\n")
		return nil
	}

	fw, err := indexing.NewFileWatcher(s.cfg)
	if err != nil {
		return err
	}
	fw.SetCallbacks(s.onFileChanged, s.onFileChanged, s.onFileRemoved)
	fw.SetProgressCallbacks(onBatchStart, onBatchEnd)

	if err := fw.Start(s.cfg.Project.Root); err != nil {
		fw.Stop()
		return err
	}
	s.watcher = fw
	return nil
}

// StopWatching tears down the watcher if one is running.
func (s *Service) StopWatching() {
	s.mu.Lock()
	fw := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	// Stop outside the lock: a pending debounce flush may be invoking the
	// event callbacks, which take the same lock.
	if fw != nil {
		fw.Stop()
	}
}

// onFileChanged handles watcher change and create events. The fingerprint
// check inside the indexer absorbs no-op rewrites.
func (s *Service) onFileChanged(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.indexer.ReparseFileIfChanged(path)
	if err != nil {
		debug.LogWatch("reparse of %s failed: %v\n", path, err)
		return
	}
	if changed {
		debug.LogWatch("reparsed %s\n", path)
	}
}

// onFileRemoved handles watcher remove events.
func (s *Service) onFileRemoved(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexer.RemoveFile(path)
}
