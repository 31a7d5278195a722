// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/texelar/main.go
// Summary: texelar command: plays AR experiences in the terminal or headless.
// Usage: Run `texelar` for the bundled demo, or `texelar -catalog experiences.yaml`.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/framegrace/texelar/cmd/texelar/lifecycle"
	"github.com/framegrace/texelar/config"
	"github.com/framegrace/texelar/internal/renderloop"
	"github.com/framegrace/texelar/internal/selector"
	"github.com/framegrace/texelar/internal/session"
	"github.com/framegrace/texelar/internal/telemetry"
	"github.com/framegrace/texelar/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("texelar", flag.ContinueOnError)

	catalogLoc := fs.String("catalog", "", "Catalog document path or URL, JSON or YAML (default: bundled demo)")
	experience := fs.String("experience", "", "Experience folder to start with")
	auto := fs.Bool("auto", false, "Select experiences with the image classifier")
	classifierCmd := fs.String("classifier-cmd", "", "Inference worker command for -auto")
	model := fs.String("model", "", "Classifier model path for -auto")
	cameraDir := fs.String("camera", "", "Directory of camera frames to replay (default: synthetic pattern)")
	headless := fs.Bool("headless", false, "Run without the terminal UI")
	duration := fs.Duration("duration", 0, "With -headless, exit after this long")
	snapshot := fs.String("snapshot", "", "Write the last composed frame to this PNG on exit")
	historyPath := fs.String("history", "", "Session history database (default: state dir)")
	verboseLogs := fs.Bool("verbose-logs", false, "Enable verbose logging")
	noLock := fs.Bool("no-lock", false, "Allow several players at once")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("resolve state paths: %w", err)
	}
	if err := paths.EnsureStateDir(); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	if !*headless && !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "stdout is not a terminal, running headless")
		*headless = true
	}

	if !*headless {
		logFile, err := os.OpenFile(paths.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.SetOutput(io.Discard)
		} else {
			defer logFile.Close()
			log.SetOutput(logFile)
		}
	}
	setVerboseLogging(*verboseLogs)

	if !*noLock {
		pidFile := lifecycle.NewPIDFile(paths.PIDPath)
		if err := pidFile.Acquire(); err != nil {
			return err
		}
		defer pidFile.Release()
	}

	if err := config.Err(); err != nil {
		log.Printf("Config: continuing with defaults: %v", err)
	}
	cfg := config.Get()

	opts := Options{
		Catalog:       *catalogLoc,
		Experience:    *experience,
		Auto:          *auto,
		ClassifierCmd: *classifierCmd,
		Model:         *model,
		CameraDir:     *cameraDir,
		Headless:      *headless,
		HistoryPath:   *historyPath,
	}
	if opts.HistoryPath == "" {
		opts.HistoryPath = paths.HistoryPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, "texelar", telemetry.TracingConfig{
		Enabled:  cfg.GetBool("otel", "enabled", false),
		Endpoint: cfg.GetString("otel", "endpoint", ""),
	})
	if err != nil {
		log.Printf("Telemetry: tracing disabled: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("Telemetry: tracing shutdown: %v", err)
		}
	}()

	a, err := newApp(ctx, opts, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("Player: shutdown: %v", err)
		}
		if *snapshot != "" {
			if err := a.snapshot.WritePNG(*snapshot); err != nil {
				fmt.Fprintf(os.Stderr, "snapshot: %v\n", err)
			}
		}
	}()

	if err := a.Start(ctx); err != nil {
		return err
	}

	if *headless {
		return runHeadless(ctx, a, *duration)
	}
	return ui.Run(ctx, a.player)
}

func runHeadless(ctx context.Context, a *app, d time.Duration) error {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	<-ctx.Done()
	log.Printf("Player: %d frames presented", a.snapshot.Frames())
	return nil
}

func setVerboseLogging(enabled bool) {
	session.SetVerboseLogging(enabled)
	renderloop.SetVerboseLogging(enabled)
	selector.SetVerboseLogging(enabled)
	telemetry.SetVerboseLogging(enabled)
	ui.SetVerboseLogging(enabled)
}
