package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/DoyleJ11/wheel-spinner/internal/config"
	"github.com/DoyleJ11/wheel-spinner/internal/logging"
	"github.com/DoyleJ11/wheel-spinner/internal/roomsvc"
)

func main() {
	os.Exit(serve())
}

// serve runs until a signal or a fatal error and returns the exit code. It
// returns rather than exiting so deferred cleanup always runs.
func serve() int {
	cfg, err := config.LoadRoomService()
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
		logger.Error("room service exited", zap.Error(err))
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg config.RoomService, logger *zap.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	svc := roomsvc.NewService(store, roomsvc.CryptoRNG{}, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           roomsvc.NewHandler(svc, logger).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.RoomService) (roomsvc.Store, error) {
	if cfg.Store != config.StorePostgres {
		return roomsvc.NewMemoryStore(), nil
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := roomsvc.NewGormStore(db)
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}
