// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/timerboard/internal/board"
	"github.com/JakeFAU/timerboard/internal/clock/system"
	"github.com/JakeFAU/timerboard/internal/config"
	"github.com/JakeFAU/timerboard/internal/display"
	"github.com/JakeFAU/timerboard/internal/display/sinks"
	"github.com/JakeFAU/timerboard/internal/id/uuid"
	"github.com/JakeFAU/timerboard/internal/metrics"
	"github.com/JakeFAU/timerboard/internal/tickmux"
	"github.com/JakeFAU/timerboard/internal/timer"
)

// App holds all the shared, long-lived services for the application: the
// tick multiplexer, the display hub and its sinks, and the timer board.
// It is initialized once at startup and passed to the components that need it.
type App struct {
	logger *zap.Logger
	cfg    config.Config
	mux    *tickmux.Multiplexer
	hub    *display.Hub
	store  *sinks.StoreSink
	prom   *sinks.PrometheusSink
	board  *board.Board
}

// New creates and wires an App from the loaded configuration. Standard
// timers declared in config are created before it returns; it fails fast if
// any of them is invalid.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, reg prometheus.Registerer) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()

	clk := system.New()
	mux := tickmux.New(clk, logger)

	store := sinks.NewStoreSink()
	prom, err := sinks.NewPrometheusSink(reg)
	if err != nil {
		return nil, fmt.Errorf("init prometheus sink: %w", err)
	}
	hub := display.NewHub(display.Config{
		BufferSize:     cfg.Display.BufferSize,
		MaxBatchStates: cfg.Display.MaxBatchStates,
		MaxBatchWait:   cfg.Display.MaxBatchWait(),
		SinkTimeout:    cfg.Display.SinkTimeout(),
		BaseContext:    ctx,
		Logger:         logger,
	}, store, prom, sinks.NewLogSink(logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel))))

	b := board.New(board.Config{
		Mux:     mux,
		Clock:   clk,
		Emitter: hub,
		IDGen:   uuid.NewGenerator(),
		Options: timer.Options{
			StartApproachWindow: cfg.Engine.StartApproachWindow(),
			HideStartPercentage: cfg.Engine.HideStartPercentage,
		},
		Policy: timer.DualRateCadence(
			cfg.Engine.FineCadence(),
			cfg.Engine.CoarseCadence(),
			cfg.Engine.AdaptiveThreshold(),
		),
		OnRemove: func(id string) {
			store.Forget(id)
			prom.Forget(id)
		},
		Logger: logger,
	})

	a := &App{
		logger: logger,
		cfg:    cfg,
		mux:    mux,
		hub:    hub,
		store:  store,
		prom:   prom,
		board:  b,
	}
	if err := a.createStandardTimers(); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) createStandardTimers() error {
	for name, tc := range a.cfg.StandardTimers {
		window, err := timer.NewWindow(tc.Start, tc.End, tc.OverdueAllowed)
		if err != nil {
			return fmt.Errorf("standard timer %q: %w", name, err)
		}
		req := board.CreateRequest{Window: window, Name: name}
		if tc.CadenceSeconds > 0 {
			cadence := time.Duration(tc.CadenceSeconds) * time.Second
			req.FixedCadence = &cadence
		}
		if _, err := a.board.Create(req); err != nil {
			return fmt.Errorf("standard timer %q: %w", name, err)
		}
	}
	return nil
}

// Logger returns the shared zap logger instance.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Board returns the timer registry.
func (a *App) Board() *board.Board {
	return a.board
}

// Store returns the latest-state store sink.
func (a *App) Store() *sinks.StoreSink {
	return a.store
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Close shuts services down in dependency order: engines first so no more
// states are emitted, then the hub so sinks flush, then the multiplexer.
func (a *App) Close(ctx context.Context) {
	if err := a.board.Close(ctx); err != nil {
		a.logger.Warn("board close failed", zap.Error(err))
	}
	if err := a.hub.Close(ctx); err != nil {
		a.logger.Warn("display hub close failed", zap.Error(err))
	}
	a.mux.Close()
}
