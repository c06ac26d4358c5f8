package indexing

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/cmi/internal/config"
	"github.com/standardbeagle/cmi/internal/debug"
)

// FileWatcher monitors the workspace for script changes and feeds debounced
// events to the index callbacks.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	config    *config.Config
	debouncer *eventDebouncer
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	// Callbacks for handling file events
	onFileChanged func(path string)
	onFileCreated func(path string)
	onFileRemoved func(path string)

	// Watch mode statistics
	eventsProcessed int64
	errorCount      int64
	lastEventTime   time.Time
	statsMu         sync.RWMutex

	// Progress tracking callback
	onBatchStart func(count int)
	onBatchEnd   func(count int, duration time.Duration)
}

// FileEventType represents the type of file system event
type FileEventType int

const (
	FileEventCreate FileEventType = iota
	FileEventWrite
	FileEventRemove
	FileEventRename
)

// NewFileWatcher creates a new file watcher
func NewFileWatcher(cfg *config.Config) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	fw := &FileWatcher{
		watcher:   watcher,
		config:    cfg,
		debouncer: newEventDebouncer(time.Duration(cfg.Index.WatchDebounceMs) * time.Millisecond),
		ctx:       ctx,
		cancel:    cancel,
	}

	fw.debouncer.setCallbacks(fw)

	return fw, nil
}

// SetCallbacks sets the callbacks for handling file events
func (fw *FileWatcher) SetCallbacks(
	onFileChanged func(path string),
	onFileCreated func(path string),
	onFileRemoved func(path string),
) {
	fw.onFileChanged = onFileChanged
	fw.onFileCreated = onFileCreated
	fw.onFileRemoved = onFileRemoved
}

// SetProgressCallbacks sets callbacks for batch processing progress
func (fw *FileWatcher) SetProgressCallbacks(
	onBatchStart func(count int),
	onBatchEnd func(count int, duration time.Duration),
) {
	fw.onBatchStart = onBatchStart
	fw.onBatchEnd = onBatchEnd
}

// Start begins watching the configured directory
func (fw *FileWatcher) Start(root string) error {
	if !fw.config.Index.WatchMode {
		log.Printf("File watching disabled in configuration")
		return nil
	}

	debug.LogWatch("starting file watcher for directory: %s\n", root)

	if err := fw.addWatches(root); err != nil {
		return fmt.Errorf("failed to add watches starting from %s: %w", root, err)
	}

	fw.wg.Add(1)
	go fw.processEvents()

	fw.wg.Add(1)
	go fw.debouncer.run(fw.ctx, &fw.wg)

	debug.LogWatch("file watcher started\n")
	return nil
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() error {
	log.Printf("Stopping file watcher...")

	fw.cancel()

	if err := fw.watcher.Close(); err != nil {
		log.Printf("Error closing fsnotify watcher: %v", err)
	}

	fw.wg.Wait()

	log.Printf("File watcher stopped")
	return nil
}

// addWatches recursively adds watches to all relevant directories
func (fw *FileWatcher) addWatches(root string) error {
	// Track visited directories to prevent infinite loops from symlink cycles
	visitedDirs := make(map[string]bool)

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}

		if !info.IsDir() {
			return nil
		}

		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil // Skip symlinks that can't be resolved
		}
		if visitedDirs[realPath] {
			return filepath.SkipDir
		}
		visitedDirs[realPath] = true

		if path != root && fw.shouldIgnoreDirectory(path) {
			return filepath.SkipDir
		}

		if err := fw.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to add watch for %s: %v", path, err)
			return nil // Continue despite errors
		}

		return nil
	})
}

// shouldIgnoreDirectory checks a directory against the exclude patterns.
// A trailing "/**" is trimmed so content patterns also match the directory
// itself, which lets the walk prune the whole subtree.
func (fw *FileWatcher) shouldIgnoreDirectory(path string) bool {
	rel := fw.relSlash(path)
	for _, pattern := range fw.config.Exclude {
		if trimmed := strings.TrimSuffix(pattern, "/**"); trimmed != pattern {
			if matched, _ := doublestar.Match(trimmed, rel); matched {
				return true
			}
		}
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

func (fw *FileWatcher) relSlash(path string) string {
	rel, err := filepath.Rel(fw.config.Project.Root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// processEvents processes file system events from fsnotify
func (fw *FileWatcher) processEvents() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.incrementStats(0, 1)
			log.Printf("File watcher error: %v", err)
		}
	}
}

// handleEvent handles a single file system event
func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	debug.LogWatch("received event %v for path %s\n", event.Op, path)

	info, err := os.Stat(path)
	if err != nil {
		// Remove and rename both leave nothing to stat; either way the
		// old path is gone from the index.
		if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			if fw.shouldProcessPath(path) {
				fw.debouncer.addEvent(path, FileEventRemove)
			}
		}
		return
	}

	if info.IsDir() {
		fw.handleDirectoryEvent(event, path)
		return
	}

	// For files, enforce the size limit early and filter by patterns
	if info.Size() > fw.config.Index.MaxFileSize {
		debug.LogWatch("skipping oversized file %s (%d bytes > %d limit)\n", path, info.Size(), fw.config.Index.MaxFileSize)
		return
	}
	if !fw.shouldProcessPath(path) {
		debug.LogWatch("ignoring file %s (doesn't match patterns)\n", path)
		return
	}

	var eventType FileEventType
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = FileEventCreate
	case event.Op&fsnotify.Write != 0:
		eventType = FileEventWrite
	case event.Op&fsnotify.Remove != 0:
		eventType = FileEventRemove
	case event.Op&fsnotify.Rename != 0:
		eventType = FileEventRename
	default:
		return // Ignore other events
	}

	debug.LogWatch("adding event %v for path %s to debouncer\n", eventType, path)
	fw.debouncer.addEvent(path, eventType)
}

// handleDirectoryEvent handles events for directories
func (fw *FileWatcher) handleDirectoryEvent(event fsnotify.Event, path string) {
	// If a new directory was created, add a watch for it
	if event.Op&fsnotify.Create != 0 {
		if !fw.shouldIgnoreDirectory(path) {
			if err := fw.watcher.Add(path); err != nil {
				log.Printf("Warning: failed to add watch for new directory %s: %v", path, err)
			} else {
				debug.LogWatch("added watch for new directory: %s\n", path)
			}
		}
	}
}

// shouldProcessPath checks if a file path should be processed based on the
// include and exclude patterns.
func (fw *FileWatcher) shouldProcessPath(path string) bool {
	rel := fw.relSlash(path)
	for _, pattern := range fw.config.Exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return false
		}
	}
	for _, pattern := range fw.config.Include {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
		// Also try the absolute path for patterns anchored outside the root
		if matched, _ := doublestar.Match(pattern, filepath.ToSlash(path)); matched {
			return true
		}
	}
	return false
}

// eventDebouncer batches file events to avoid excessive processing
type eventDebouncer struct {
	events    map[string]FileEventType
	mutex     sync.Mutex
	debounce  time.Duration
	timer     *time.Timer
	callbacks *FileWatcher
}

// newEventDebouncer creates a new event debouncer
func newEventDebouncer(debounce time.Duration) *eventDebouncer {
	return &eventDebouncer{
		events:   make(map[string]FileEventType),
		debounce: debounce,
	}
}

// setCallbacks sets the callbacks reference for the debouncer
func (d *eventDebouncer) setCallbacks(fw *FileWatcher) {
	d.callbacks = fw
}

// addEvent adds a file event to be debounced
func (d *eventDebouncer) addEvent(path string, eventType FileEventType) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	// Store the latest event for this path
	d.events[path] = eventType

	// Reset the timer
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, d.flush)
}

// run starts the debouncer goroutine
func (d *eventDebouncer) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	<-ctx.Done()

	// DON'T flush on shutdown - it can deadlock. The flush() calls
	// onFileChanged() which reparses into the store while the shutdown
	// sequence may hold the same locks. Events pending at shutdown are
	// acceptable to lose since the index is being torn down anyway.
}

// flush processes all accumulated events
func (d *eventDebouncer) flush() {
	d.mutex.Lock()
	events := d.events
	d.events = make(map[string]FileEventType)
	d.mutex.Unlock()

	if len(events) == 0 {
		return
	}

	debug.LogWatch("processing %d debounced file events\n", len(events))

	if d.callbacks != nil && d.callbacks.onBatchStart != nil {
		d.callbacks.onBatchStart(len(events))
	}

	batchStart := time.Now()

	// Group events by type for more efficient processing
	var creates, removes, changes []string
	for path, eventType := range events {
		switch eventType {
		case FileEventCreate:
			creates = append(creates, path)
		case FileEventRemove:
			removes = append(removes, path)
		case FileEventWrite, FileEventRename:
			changes = append(changes, path)
		}
	}

	// Process removals first so stale bindings never shadow fresh ones
	for _, path := range removes {
		if d.callbacks != nil && d.callbacks.onFileRemoved != nil {
			d.callbacks.onFileRemoved(path)
			d.callbacks.incrementStats(1, 0)
		}
	}

	for _, path := range changes {
		if d.callbacks != nil && d.callbacks.onFileChanged != nil {
			d.callbacks.onFileChanged(path)
			d.callbacks.incrementStats(1, 0)
		}
	}

	for _, path := range creates {
		if d.callbacks != nil && d.callbacks.onFileCreated != nil {
			d.callbacks.onFileCreated(path)
			d.callbacks.incrementStats(1, 0)
		}
	}

	if d.callbacks != nil && d.callbacks.onBatchEnd != nil {
		d.callbacks.onBatchEnd(len(events), time.Since(batchStart))
	}
}

// incrementStats updates watch mode statistics
func (fw *FileWatcher) incrementStats(events int64, errors int64) {
	fw.statsMu.Lock()
	defer fw.statsMu.Unlock()

	fw.eventsProcessed += events
	fw.errorCount += errors
	fw.lastEventTime = time.Now()
}

// GetStats returns current watch mode statistics
func (fw *FileWatcher) GetStats() WatchStats {
	fw.statsMu.RLock()
	defer fw.statsMu.RUnlock()

	return WatchStats{
		EventsProcessed: fw.eventsProcessed,
		ErrorCount:      fw.errorCount,
		LastEventTime:   fw.lastEventTime,
		IsActive:        fw.ctx.Err() == nil,
	}
}

// WatchStats contains statistics about file watching operations
type WatchStats struct {
	EventsProcessed int64
	ErrorCount      int64
	LastEventTime   time.Time
	IsActive        bool
}
