// prefabgen: prefab piping package generator, exposed as an MCP server.
//
// It selects a prefab region by its boundary lines, numbers the
// contained pipework, and generates the full deliverable bundle (plan
// view, 3D view, sheet, filtered schedules) in one transaction against
// a document file.
//
// Usage:
//
//	prefabgen serve [--document path] [--config path]   # MCP server on stdio
//	prefabgen version
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bvdk-tools/prefabgen/internal/config"
	"github.com/bvdk-tools/prefabgen/internal/logger"
	prefabserver "github.com/bvdk-tools/prefabgen/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("prefabgen v%s\n", prefabserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	documentPath := fs.String("document", "prefab.db", "path to the document file")
	configPath := fs.String("config", "", "path to an optional YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	s, cleanup, err := prefabserver.New(*documentPath, cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Flush logs on interrupt; the stdio server exits when its
	// transport closes.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Sync()
		cleanup()
		os.Exit(0)
	}()

	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `prefabgen v%s - prefab piping package generator (MCP server)

Usage:
  prefabgen serve [--document path] [--config path]   Start the MCP server (stdio)
  prefabgen version                                   Print the version
  prefabgen help                                      Show this help

Flags for serve:
  --document   Path to the document file (default "prefab.db")
  --config     Path to an optional YAML configuration file
`, prefabserver.Version)
}
