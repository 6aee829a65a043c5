//go:build !wails

// Headless entry point. Runs the transfer engine behind the HTTP API
// without a desktop shell; the wails build tag selects the GUI binary
// instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"twinpane/internal/adapters/api"
	"twinpane/internal/config"
	"twinpane/internal/core"
	"twinpane/internal/logging"
	"twinpane/pkg/engine"
	"twinpane/pkg/fsys"
)

var (
	configPath string
	listenAddr string
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to YAML config file (optional)")
	flag.StringVar(&listenAddr, "listen", "", "Listen address, overrides config")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Pretty)

	fs := fsys.Local{Timeout: cfg.StatTimeout()}
	bus := core.NewBus()
	scanner := engine.NewScanner(fs, bus,
		engine.WithScanLogger(log),
		engine.WithIgnoreGlobs(cfg.Scan.IgnoreGlobs),
		engine.WithScanInterval(cfg.ScanProgressInterval()),
		engine.WithScanRetention(cfg.Retention()),
	)
	transfers := engine.NewTransfers(fs, scanner, bus,
		engine.WithTransferLogger(log),
		engine.WithChunkSize(cfg.Transfer.ChunkSizeBytes),
		engine.WithProgressInterval(cfg.TransferProgressInterval()),
		engine.WithRetention(cfg.Retention()),
		engine.WithDecisionTimeout(cfg.DecisionTimeout()),
	)
	detector := engine.NewDetector(fs)

	server := api.NewServer(cfg.Server.ListenAddr, log, bus, scanner, transfers, detector,
		api.WithMaxConflicts(cfg.Transfer.MaxConflictResults),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server.StartBackground(ctx)
	log.Info().Str("addr", cfg.Server.ListenAddr).Msg("twinpane API listening")

	<-ctx.Done()
	server.Wait()
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	return cfg, nil
}
