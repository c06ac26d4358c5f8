package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/standardbeagle/cmi/internal/config"
	"github.com/standardbeagle/cmi/internal/debug"
	"github.com/standardbeagle/cmi/internal/service"
	"github.com/standardbeagle/cmi/internal/version"
	"github.com/standardbeagle/cmi/pkg/pathutil"

	"github.com/urfave/cli/v2"
)

var Version = version.Version // Use centralized version management

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadWithRoot(c.String("root"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if includeFlags := c.StringSlice("include"); len(includeFlags) > 0 {
		cfg.Include = includeFlags
	}
	if excludeFlags := c.StringSlice("exclude"); len(excludeFlags) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludeFlags...)
	}

	return cfg, nil
}

// bootstrapService loads config, builds the service, and runs the startup
// scan with settings applied.
func bootstrapService(c *cli.Context) (*service.Service, *config.Config, error) {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return nil, nil, err
	}

	svc := service.New(cfg, nil)
	if _, err := svc.Bootstrap(c.Context); err != nil {
		return nil, nil, fmt.Errorf("workspace scan failed: %w", err)
	}
	return svc, cfg, nil
}

func outputJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func main() {
	app := &cli.App{
		Name:                   "cmi",
		Usage:                  "CMake variable and path resolution for build trees and AI assistants",
		Version:                Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Workspace root directory to scan (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Include files matching glob patterns (e.g., --include '**/*.cmake')",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude files matching glob patterns (e.g., --exclude '**/vendor/**')",
			},
		},
		Before: func(c *cli.Context) error {
			// Debug logging is gated by the DEBUG environment variable.
			debug.SetDebugOutput(os.Stderr)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "resolve",
				Aliases:   []string{"res"},
				Usage:     "Resolve a path expression like '${CMAKE_SOURCE_DIR}/src'",
				ArgsUsage: "<expression>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "max-depth",
						Aliases: []string{"d"},
						Usage:   "Maximum substitution passes for nested variables",
					},
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: resolveCommand,
			},
			{
				Name:    "vars",
				Aliases: []string{"v"},
				Usage:   "List indexed variables and their raw values",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "prefix",
						Aliases: []string{"p"},
						Usage:   "Only show variables whose name starts with this prefix",
					},
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: varsCommand,
			},
			{
				Name:      "binding",
				Aliases:   []string{"b"},
				Usage:     "Show where a variable is defined and what it holds",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: bindingCommand,
			},
			{
				Name:  "scan",
				Usage: "Scan the workspace and report what was indexed",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: scanCommand,
			},
			{
				Name:      "check",
				Usage:     "Check a CMake file for unresolved variables and missing paths",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: checkCommand,
			},
			{
				Name:      "suggest",
				Usage:     "Suggest variable names similar to a possibly misspelled one",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum suggestions to show",
						Value:   5,
					},
				},
				Action: suggestCommand,
			},
			{
				Name:   "watch",
				Usage:  "Watch the workspace and keep the index fresh until interrupted",
				Action: watchCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Start MCP (Model Context Protocol) server with stdio transport",
				Action: mcpCommand,
			},
			{
				Name:    "status",
				Aliases: []string{"st"},
				Usage:   "Show workspace index status",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: statusCommand,
			},
			{
				Name:  "config",
				Usage: "Manage the .cmi.kdl configuration file",
				Subcommands: []*cli.Command{
					{
						Name:   "init",
						Usage:  "Write a starter .cmi.kdl to the workspace root",
						Action: configInitCommand,
					},
					{
						Name:   "show",
						Usage:  "Show the effective configuration after merging and defaults",
						Action: configShowCommand,
					},
					{
						Name:   "validate",
						Usage:  "Validate the configuration file",
						Action: configValidateCommand,
					},
				},
			},
			{
				Name:  "version",
				Usage: "Show detailed version information",
				Action: func(c *cli.Context) error {
					fmt.Println(version.FullInfo())
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func resolveCommand(c *cli.Context) error {
	expression := c.Args().First()
	if expression == "" {
		return fmt.Errorf("expression argument is required (e.g., cmi resolve '${CMAKE_SOURCE_DIR}/src')")
	}

	svc, _, err := bootstrapService(c)
	if err != nil {
		return err
	}

	resolved := svc.ResolvePath(expression, c.Int("max-depth"))
	if c.Bool("json") {
		return outputJSON(resolved)
	}

	fmt.Printf("Original:   %s\n", resolved.Original)
	fmt.Printf("Resolved:   %s\n", resolved.Resolved)
	fmt.Printf("Exists:     %v\n", resolved.Exists)
	if len(resolved.UnresolvedVariables) > 0 {
		fmt.Printf("Unresolved: %s\n", strings.Join(resolved.UnresolvedVariables, ", "))
	}
	return nil
}

// VariableReport is one vars entry for JSON output
type VariableReport struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	DefinedIn string `json:"defined_in,omitempty"`
	Line      int    `json:"line,omitempty"`
}

func varsCommand(c *cli.Context) error {
	svc, cfg, err := bootstrapService(c)
	if err != nil {
		return err
	}

	prefix := c.String("prefix")
	var report []VariableReport
	for _, name := range svc.Names() {
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		value, ok := svc.Get(name)
		if !ok {
			continue
		}
		entry := VariableReport{Name: name, Value: value}
		if b, ok := svc.GetBinding(name); ok {
			entry.DefinedIn = pathutil.ToRelative(b.DefinedIn, cfg.Project.Root)
			entry.Line = b.DefinedAtLine + 1
		}
		report = append(report, entry)
	}

	if c.Bool("json") {
		if report == nil {
			report = []VariableReport{}
		}
		return outputJSON(report)
	}

	for _, entry := range report {
		fmt.Printf("%s = %s\n", entry.Name, entry.Value)
	}
	if len(report) == 0 {
		fmt.Println("No variables matched.")
	}
	return nil
}

func bindingCommand(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("name argument is required (e.g., cmi binding CMAKE_SOURCE_DIR)")
	}

	svc, cfg, err := bootstrapService(c)
	if err != nil {
		return err
	}

	value, ok := svc.Get(name)
	if !ok {
		msg := fmt.Sprintf("variable %q is not defined in the workspace", name)
		if suggestions := svc.Suggest(name, 3); len(suggestions) > 0 {
			names := make([]string, len(suggestions))
			for i, s := range suggestions {
				names[i] = s.Name
			}
			msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(names, ", "))
		}
		return fmt.Errorf("%s", msg)
	}

	binding, hasBinding := svc.GetBinding(name)

	if c.Bool("json") {
		entry := VariableReport{Name: name, Value: value}
		if hasBinding {
			entry.DefinedIn = pathutil.ToRelative(binding.DefinedIn, cfg.Project.Root)
			entry.Line = binding.DefinedAtLine + 1
		}
		return outputJSON(entry)
	}

	fmt.Printf("Name:        %s\n", name)
	fmt.Printf("Value:       %s\n", value)
	if hasBinding {
		// Display lines 1-based, editor style.
		fmt.Printf("Defined in:  %s:%d\n",
			pathutil.ToRelative(binding.DefinedIn, cfg.Project.Root), binding.DefinedAtLine+1)
		fmt.Printf("Cache entry: %v\n", binding.IsCacheEntry)
	} else {
		fmt.Printf("Defined in:  (built-in or custom variable, no file binding)\n")
	}
	return nil
}

// ScanReport summarizes a scan for JSON output
type ScanReport struct {
	FilesScanned int   `json:"files_scanned"`
	FilesSkipped int   `json:"files_skipped"`
	Bindings     int   `json:"bindings"`
	DurationMs   int64 `json:"duration_ms"`
}

func scanCommand(c *cli.Context) error {
	svc, cfg, err := bootstrapService(c)
	if err != nil {
		return err
	}

	stats := svc.Status().LastScan
	if c.Bool("json") {
		return outputJSON(ScanReport{
			FilesScanned: stats.FilesScanned,
			FilesSkipped: stats.FilesSkipped,
			Bindings:     stats.Bindings,
			DurationMs:   stats.Duration.Milliseconds(),
		})
	}

	fmt.Printf("Scanned %s\n", cfg.Project.Root)
	fmt.Printf("  Files scanned: %d\n", stats.FilesScanned)
	fmt.Printf("  Files skipped: %d\n", stats.FilesSkipped)
	fmt.Printf("  Bindings:      %d\n", stats.Bindings)
	fmt.Printf("  Duration:      %v\n", stats.Duration)
	return nil
}

func checkCommand(c *cli.Context) error {
	file := c.Args().First()
	if file == "" {
		return fmt.Errorf("file argument is required (e.g., cmi check CMakeLists.txt)")
	}

	svc, cfg, err := bootstrapService(c)
	if err != nil {
		return err
	}

	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.Project.Root, path)
	}

	diags, err := svc.CheckFile(path)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		if diags == nil {
			diags = []service.Diagnostic{}
		}
		return outputJSON(service.CheckResult{File: path, Diagnostics: diags})
	}

	if len(diags) == 0 {
		fmt.Printf("%s: all paths resolve\n", file)
		return nil
	}
	for _, d := range diags {
		if len(d.Unresolved) > 0 {
			fmt.Printf("%s:%d:%d  %s  unresolved: %s\n",
				file, d.Line, d.Column, d.Text, strings.Join(d.Unresolved, ", "))
		} else {
			fmt.Printf("%s:%d:%d  %s  missing: %s\n",
				file, d.Line, d.Column, d.Text, d.Resolved)
		}
	}
	return cli.Exit(fmt.Sprintf("%d problem(s) found", len(diags)), 1)
}

func suggestCommand(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("name argument is required (e.g., cmi suggest CMAKE_SOURE_DIR)")
	}

	svc, _, err := bootstrapService(c)
	if err != nil {
		return err
	}

	suggestions := svc.Suggest(name, c.Int("limit"))
	if len(suggestions) == 0 {
		fmt.Println("No similar variable names found.")
		return nil
	}
	for _, s := range suggestions {
		fmt.Printf("%s (score %.2f)\n", s.Name, s.Score)
	}
	return nil
}

func configInitCommand(c *cli.Context) error {
	root := c.String("root")
	if root == "" {
		root = "."
	}

	path := filepath.Join(root, config.ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	if err := os.WriteFile(path, []byte(config.StarterKDL()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("Created %s\n", path)
	return nil
}

func configShowCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	fmt.Printf("Effective configuration\n")
	fmt.Printf("=======================\n\n")
	fmt.Printf("Project:\n")
	fmt.Printf("  Root:              %s\n", cfg.Project.Root)
	if cfg.Project.Name != "" {
		fmt.Printf("  Name:              %s\n", cfg.Project.Name)
	}
	fmt.Printf("\nIndex:\n")
	fmt.Printf("  Max file size:     %d bytes\n", cfg.Index.MaxFileSize)
	fmt.Printf("  Watch mode:        %v\n", cfg.Index.WatchMode)
	fmt.Printf("  Watch debounce:    %d ms\n", cfg.Index.WatchDebounceMs)
	fmt.Printf("\nResolve:\n")
	fmt.Printf("  Max depth:         %d\n", cfg.Resolve.MaxDepth)
	fmt.Printf("  Vars file:         %s\n", cfg.Resolve.VarsFile)
	fmt.Printf("\nInclude patterns:\n")
	for _, p := range cfg.Include {
		fmt.Printf("  %s\n", p)
	}
	fmt.Printf("\nExclude patterns:\n")
	for _, p := range cfg.Exclude {
		fmt.Printf("  %s\n", p)
	}
	return nil
}

func configValidateCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	fmt.Println("Configuration OK")
	return nil
}
