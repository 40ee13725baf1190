package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/wheel-spinner/internal/config"
	"github.com/DoyleJ11/wheel-spinner/internal/engine"
	"github.com/DoyleJ11/wheel-spinner/internal/httpapi"
	"github.com/DoyleJ11/wheel-spinner/internal/hub"
	"github.com/DoyleJ11/wheel-spinner/internal/logging"
	"github.com/DoyleJ11/wheel-spinner/internal/orchestrator"
	"github.com/DoyleJ11/wheel-spinner/internal/roomclient"
)

func main() {
	os.Exit(serve())
}

// serve runs until a signal or a fatal error and returns the exit code. It
// returns rather than exiting so deferred cleanup always runs.
func serve() int {
	cfg, err := config.LoadServer()
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Printf("logger: %v", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg config.Server, logger *zap.Logger) error {
	rooms := roomclient.NewClient(&http.Client{Timeout: cfg.RoomTimeout}, cfg.RoomServiceURL, logger)

	announce := orchestrator.CelebratorFunc(func(_ context.Context, roomID string, w engine.WheelItem) {
		logger.Info("winner announced", zap.String("room", roomID), zap.String("winner", w.ID), zap.String("label", w.Label))
	})

	// Build the hub with the orchestrator factory injected
	h := hub.NewHub(context.Background(), func(ctx context.Context, roomID string) *orchestrator.Orchestrator {
		return orchestrator.New(ctx, roomID, rooms, orchestrator.Options{
			SpinCount:    cfg.SpinCount,
			SpinDuration: cfg.SpinDuration,
			Logger:       logger,
			Celebrators:  []orchestrator.Celebrator{announce},
		})
	})
	defer h.Shutdown()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.SetupRoutes(h, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("room_service", cfg.RoomServiceURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
