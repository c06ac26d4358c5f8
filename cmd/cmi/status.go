package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// statusCommand shows the workspace index state after a fresh scan.
func statusCommand(c *cli.Context) error {
	svc, _, err := bootstrapService(c)
	if err != nil {
		return err
	}

	status := svc.Status()
	if c.Bool("json") {
		return outputJSON(status)
	}

	fmt.Printf("CMake Workspace Index Status\n")
	fmt.Printf("============================\n\n")

	fmt.Printf("Workspace:\n")
	fmt.Printf("  Root:            %s\n", status.Root)
	if status.ProjectName != "" {
		fmt.Printf("  Project:         %s\n", status.ProjectName)
	}

	fmt.Printf("\nIndex:\n")
	fmt.Printf("  Files indexed:   %d\n", status.FilesIndexed)
	fmt.Printf("  Variables:       %d\n", status.Variables)

	fmt.Printf("\nLast scan:\n")
	fmt.Printf("  Files scanned:   %d\n", status.LastScan.FilesScanned)
	fmt.Printf("  Files skipped:   %d\n", status.LastScan.FilesSkipped)
	fmt.Printf("  Bindings:        %d\n", status.LastScan.Bindings)
	fmt.Printf("  Duration:        %v\n", status.LastScan.Duration)

	if status.Watching && status.Watch != nil {
		fmt.Printf("\nWatcher:\n")
		fmt.Printf("  Events:          %d\n", status.Watch.EventsProcessed)
		fmt.Printf("  Errors:          %d\n", status.Watch.ErrorCount)
	}
	return nil
}
