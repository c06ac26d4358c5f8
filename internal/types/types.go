package types

import "time"

// Common system-wide constants
const (
	// DefaultMaxResolveDepth bounds substitution passes per resolution request.
	// Rationale: transitive definitions deeper than ~4 levels are unheard of
	// in real CMake trees; 10 leaves headroom while keeping cyclic
	// definitions (A -> B -> A) cheap to abandon.
	DefaultMaxResolveDepth = 10

	// DefaultMaxFileSize caps the size of a script file the indexer will read.
	// Rationale: hand-written CMake scripts are a few KB; anything in the MB
	// range is generated output that cannot contribute meaningful bindings.
	DefaultMaxFileSize = 2 * 1024 * 1024 // 2MB

	// DefaultWatchDebounceMs is the quiet window for coalescing file-change
	// notifications. Editors fire several events per save; one re-index per
	// burst is enough.
	DefaultWatchDebounceMs = 500

	// DefaultReadConcurrency bounds parallel file reads during a full scan.
	// Ingestion stays strictly sequential regardless of this value.
	DefaultReadConcurrency = 8
)

// Built-in variable names seeded by the engine itself. Seeded entries carry
// no Binding; provenance is "built-in".
const (
	VarSourceDir        = "CMAKE_SOURCE_DIR"
	VarCurrentSourceDir = "CMAKE_CURRENT_SOURCE_DIR"
	VarProjectSourceDir = "PROJECT_SOURCE_DIR"
	VarBinaryDir        = "CMAKE_BINARY_DIR"
	VarCurrentBinaryDir = "CMAKE_CURRENT_BINARY_DIR"
	VarProjectBinaryDir = "PROJECT_BINARY_DIR"
	VarCurrentListDir   = "CMAKE_CURRENT_LIST_DIR"
	VarCurrentListFile  = "CMAKE_CURRENT_LIST_FILE"
	VarProjectName      = "PROJECT_NAME"
	VarCMakeProjectName = "CMAKE_PROJECT_NAME"
)

// Binding is a single variable assignment. The value is already resolved at
// definition time. Bindings are owned exclusively by the store and replaced
// wholesale when the same name is redefined; no history is kept.
type Binding struct {
	Name          string `json:"name"`
	Value         string `json:"value"`
	DefinedIn     string `json:"defined_in"`
	DefinedAtLine int    `json:"defined_at_line"` // 0-based
	IsCacheEntry  bool   `json:"is_cache_entry"`
}

// ResolvedPath is the result of one resolution request. Constructed fresh per
// call, never cached.
type ResolvedPath struct {
	Original string `json:"original"`
	// Resolved is the best-effort substituted string with separators
	// normalized to forward slashes.
	Resolved string `json:"resolved"`
	// Exists is the filesystem probe result. Probe errors count as false.
	Exists bool `json:"exists"`
	// UnresolvedVariables lists distinct names (or "ENV{NAME}" tokens) that
	// could not be substituted, each recorded once in first-encountered
	// order.
	UnresolvedVariables []string `json:"unresolved_variables"`
}

// VariableRef is one ${NAME} occurrence in source text. Offsets are byte
// positions into the scanned text; Start points at the '$', End is one past
// the closing brace.
type VariableRef struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// PathRef is a path-shaped token found in source text, annotated with the
// variable references inside its span (absolute offsets).
type PathRef struct {
	Text      string        `json:"text"`
	Start     int           `json:"start"`
	End       int           `json:"end"`
	Variables []VariableRef `json:"variables,omitempty"`
}

// SetCommand is one single-line set(NAME value...) invocation.
type SetCommand struct {
	Name         string
	Value        string
	IsCacheEntry bool
	File         string
	Line         int // 0-based
}

// OptionCommand is one single-line option(NAME "description" ON|OFF)
// invocation. Value defaults to "OFF" when omitted.
type OptionCommand struct {
	Name        string
	Description string
	Value       string
	File        string
	Line        int // 0-based
}

// FileRecord is the indexer's bookkeeping for one ingested script file.
type FileRecord struct {
	Path string `json:"path"`
	// Fingerprint is the xxhash of the file content at ingest time, used to
	// skip watcher-driven reparses when bytes did not change.
	Fingerprint uint64    `json:"fingerprint"`
	Bindings    int       `json:"bindings"`
	ScannedAt   time.Time `json:"scanned_at"`
}

// ScanStats summarizes one full workspace scan.
type ScanStats struct {
	FilesScanned int           `json:"files_scanned"`
	FilesSkipped int           `json:"files_skipped"`
	Bindings     int           `json:"bindings"`
	Duration     time.Duration `json:"duration"`
}
