package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/standardbeagle/cmi/internal/debug"
	"github.com/standardbeagle/cmi/internal/mcp"
	"github.com/standardbeagle/cmi/internal/service"

	"github.com/urfave/cli/v2"
)

// watchCommand scans the workspace, then keeps the index fresh until the
// process is interrupted.
func watchCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	// The user asked to watch; the config cannot override that.
	cfg.Index.WatchMode = true

	svc := service.New(cfg, nil)
	stats, err := svc.Bootstrap(c.Context)
	if err != nil {
		return fmt.Errorf("workspace scan failed: %w", err)
	}
	fmt.Printf("Indexed %d files (%d bindings) in %v\n",
		stats.FilesScanned, stats.Bindings, stats.Duration)

	onBatchStart := func(count int) {
		fmt.Printf("Processing %d changed file(s)...\n", count)
	}
	onBatchEnd := func(count int, duration time.Duration) {
		fmt.Printf("Updated %d file(s) in %v\n", count, duration)
	}
	if err := svc.StartWatching(onBatchStart, onBatchEnd); err != nil {
		return fmt.Errorf("failed to start watching: %w", err)
	}
	defer svc.StopWatching()

	fmt.Printf("Watching %s (Ctrl+C to stop)\n", cfg.Project.Root)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	fmt.Printf("\nReceived %v, stopping\n", sig)

	status := svc.Status()
	if status.Watch != nil {
		fmt.Printf("Processed %d event(s), %d error(s)\n",
			status.Watch.EventsProcessed, status.Watch.ErrorCount)
	}
	return nil
}

// mcpCommand serves the index over MCP stdio until the client disconnects or
// the process is signaled.
func mcpCommand(c *cli.Context) error {
	// Enable MCP mode first so nothing pollutes the stdio protocol.
	debug.SetMCPMode(true)

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return debug.Fatal("failed to load config: %v\n", err)
	}

	svc := service.New(cfg, nil)
	if _, err := svc.Bootstrap(c.Context); err != nil {
		return debug.Fatal("workspace scan failed: %v\n", err)
	}

	server := mcp.NewServer(svc, cfg)

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		debug.LogMCP("starting MCP server with stdio transport\n")
		errChan <- server.Run(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return debug.Fatal("MCP server error: %v\n", err)
		}
		return nil
	case sig := <-sigChan:
		debug.LogMCP("received signal %v, shutting down\n", sig)
		cancel()

		// Give the server a moment to shutdown gracefully
		shutdownTimer := time.NewTimer(2 * time.Second)
		defer shutdownTimer.Stop()

		select {
		case err := <-errChan:
			return err
		case <-shutdownTimer.C:
			debug.LogMCP("graceful shutdown timeout, forcing exit\n")
			os.Stdin.Close()
			return nil
		}
	}
}
