package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"fuzzyrules/internal/config"
	"fuzzyrules/internal/kb"
	mcpserver "fuzzyrules/internal/mcp"
	"fuzzyrules/internal/registry"
	"fuzzyrules/internal/trace"
)

func main() {
	configPath := flag.String("config", "", "Path to the fuzzyrules MCP config file (overrides workspace config)")
	ssePort := flag.Int("sse-port", 0, "Optional SSE port override (falls back to config)")
	noWorkspace := flag.Bool("no-workspace", false, "Disable .fuzzyrules/ workspace discovery")
	workspaceDir := flag.String("workspace-dir", "", "Explicit workspace root (skip walk-up discovery)")
	initWorkspace := flag.Bool("init-workspace", false, "Create .fuzzyrules/ template in current directory (or -workspace-dir) and exit")
	flag.Parse()

	// Handle --init-workspace early exit
	if *initWorkspace {
		root := "."
		if *workspaceDir != "" {
			root = *workspaceDir
		}
		if err := config.InitWorkspace(root); err != nil {
			log.Fatalf("failed to initialize workspace: %v", err)
		}
		log.Printf("created .fuzzyrules/ workspace in %s", root)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := config.WorkspaceOptions{
		Disable:     *noWorkspace,
		ExplicitDir: *workspaceDir,
	}

	cfg, wsDir, err := config.LoadWithWorkspace(*configPath, opts)
	if err != nil {
		// Before we can redirect logs, write to stderr as last resort
		log.Fatalf("failed to load config: %v", err)
	}
	if wsDir != "" {
		log.Printf("using workspace config from %s", wsDir)
	}

	// Redirect logging to file for stdio mode (stderr interferes with MCP protocol)
	if cfg.MCP.SSEPort == 0 && cfg.Server.LogFile != "" {
		logFile, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			log.SetOutput(logFile)
			defer logFile.Close()
		} else {
			// If we can't open log file, disable logging to avoid stderr pollution
			log.SetOutput(io.Discard)
		}
	}
	if *ssePort != 0 {
		cfg.MCP.SSEPort = *ssePort
	}

	reg := registry.New()
	if cfg.KB.AutosaveEnabled {
		if err := loadAutosavedKBs(reg, cfg.KB.AutosavePath); err != nil {
			log.Printf("autosave directory unavailable, starting with an empty registry: %v", err)
		}
	}

	var recorder *trace.Recorder
	if cfg.KB.TraceEnabled {
		recorder, err = trace.NewRecorder(cfg.KB.TraceDir)
		if err != nil {
			log.Fatalf("failed to initialize trace recorder: %v", err)
		}
	}

	server, err := mcpserver.NewServer(cfg, reg, recorder)
	if err != nil {
		log.Fatalf("failed to initialize MCP server: %v", err)
	}

	var startErr error
	if cfg.MCP.SSEPort > 0 {
		log.Printf("starting fuzzyrules MCP SSE server on port %d", cfg.MCP.SSEPort)
		startErr = server.StartSSE(ctx, cfg.MCP.SSEPort)
	} else {
		log.Printf("starting fuzzyrules MCP stdio server")
		startErr = server.Start(ctx)
	}

	if startErr != nil && !errors.Is(startErr, context.Canceled) {
		log.Fatalf("server exited with error: %v", startErr)
	}
}

// loadAutosavedKBs restores every knowledge base file found directly under
// dir, registering one entry per file named after its base filename.
func loadAutosavedKBs(reg *registry.Registry, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if _, err := reg.Create(name); err != nil {
			log.Printf("skipping autosaved kb %q: %v", name, err)
			continue
		}

		path := filepath.Join(dir, entry.Name())
		err := reg.Use(name, func(target *kb.KnowledgeBase) error {
			return target.LoadFromFile(path)
		})
		if err != nil {
			log.Printf("failed to load autosaved kb %q: %v", name, err)
			continue
		}
		log.Printf("restored knowledge base %q from %s", name, path)
	}
	return nil
}
