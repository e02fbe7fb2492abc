// Package main provides a silence-gated audio recorder that captures from a
// live input and automatically removes silent gaps from the recording.
//
// Usage:
//
//	quietcut [-config path/to/config.json]
//
// If -config is not specified, the recorder looks for config.json in the same
// directory as the binary.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/quietcut/quietcut/internal/config"
	"github.com/quietcut/quietcut/internal/eventlog"
	"github.com/quietcut/quietcut/internal/notify"
	"github.com/quietcut/quietcut/internal/server"
	"github.com/quietcut/quietcut/internal/session"
	"github.com/quietcut/quietcut/internal/types"
	"github.com/quietcut/quietcut/internal/util"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: config.json next to binary)")
	eventLogPath := flag.String("eventlog", "", "Path to event log file (default: events.jsonl next to binary)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		slog.Info("version info", "version", Version, "commit", Commit, "build_time", BuildTime)
		return
	}

	execDir := "."
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}
	if *configPath == "" {
		*configPath = filepath.Join(execDir, "config.json")
	}
	if *eventLogPath == "" {
		*eventLogPath = filepath.Join(execDir, "events.jsonl")
	}

	slog.Info("using config file", "path", *configPath)

	cfg := config.New(*configPath)
	if err := cfg.Load(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Check FFmpeg availability
	ffmpegPath := util.ResolveFFmpegPath(cfg.FFmpegPath())
	ffmpegAvailable := ffmpegPath != ""
	if !ffmpegAvailable {
		slog.Warn("FFmpeg not found - sessions cannot be started",
			"configured_path", cfg.FFmpegPath())
	} else {
		slog.Info("FFmpeg found", "path", ffmpegPath)
	}

	events, err := eventlog.NewLogger(*eventLogPath)
	if err != nil {
		slog.Error("failed to open event log", "error", err, "path", *eventLogPath)
		os.Exit(1)
	}

	notifier := notify.NewSessionNotifier(cfg)
	ctrl := session.New(cfg, ffmpegPath, events, notifier, slog.Default())

	commands := server.NewCommandHandler(cfg, ctrl, notifier, *eventLogPath, ffmpegAvailable)
	srv := NewServer(cfg, ctrl, commands, ffmpegAvailable)
	httpServer := srv.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, util.ShutdownSignals()...)
	<-sigChan

	slog.Info("shutting down")

	// Stop version checker goroutine
	srv.version.Stop()

	// Shut down HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Finalize any in-flight session so no audio is lost.
	switch ctrl.State() {
	case types.StateRecording, types.StatePaused, types.StateCalibrating:
		if err := ctrl.Stop(); err != nil {
			slog.Error("error stopping session", "error", err)
		}
	}

	if err := events.Close(); err != nil {
		slog.Error("error closing event log", "error", err)
	}

	slog.Info("shutdown complete")
}
