package app

import (
	"context"
	"embed"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"twinpane/app/services"
	"twinpane/internal/config"
	"twinpane/internal/core"
	"twinpane/internal/logging"
	"twinpane/pkg/engine"
	"twinpane/pkg/fsys"
)

//go:embed all:frontend_dist
var assets embed.FS

// App struct holds the application state and services
type App struct {
	ctx             context.Context
	cfg             *config.Config
	log             zerolog.Logger
	bus             *core.Bus
	transferService *services.TransferService
	systemService   *services.SystemService
}

// NewApp creates a new App instance
func NewApp(cfg *config.Config) *App {
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

	return &App{
		cfg:             cfg,
		log:             log,
		bus:             bus,
		transferService: services.NewTransferService(log, scanner, transfers, detector),
		systemService:   services.NewSystemService(log),
	}
}

// OnStartup is called when the app starts
func (a *App) OnStartup(ctx context.Context) {
	a.ctx = ctx

	// Bridge engine events onto the frontend. The frontend subscribes to
	// the runtime events before issuing any start command.
	a.bus.AddEmitter(services.NewWailsEmitter(ctx))

	a.log.Info().Msg("services initialized")
}

// OnShutdown is called when the app is shutting down
func (a *App) OnShutdown(ctx context.Context) {
	a.log.Info().Msg("shutting down")
}

// Run starts the Wails application
func Run(cfg *config.Config) error {
	appInstance := NewApp(cfg)

	return wails.Run(&options.App{
		Title:  "twinpane",
		Width:  1200,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets:  assets,
			Handler: nil, // Use default handler for embedded assets
		},
		BackgroundColour: &options.RGBA{R: 24, G: 28, B: 36, A: 1},
		OnStartup:        appInstance.OnStartup,
		OnShutdown:       appInstance.OnShutdown,
		Bind: []interface{}{
			appInstance.transferService,
			appInstance.systemService,
		},
	})
}
