package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Server configures the wheel server.
type Server struct {
	HTTPAddr        string        `env:"WHEEL_HTTP_ADDR"        envDefault:":8080"`
	RoomServiceURL  string        `env:"ROOM_SERVICE_URL"       envDefault:"http://localhost:8090"`
	RoomTimeout     time.Duration `env:"ROOM_SERVICE_TIMEOUT"   envDefault:"5s"`
	SpinCount       int           `env:"WHEEL_SPIN_COUNT"       envDefault:"6"`
	SpinDuration    time.Duration `env:"WHEEL_SPIN_DURATION"    envDefault:"4800ms"`
	ShutdownTimeout time.Duration `env:"WHEEL_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"LOG_LEVEL"              envDefault:"info"`
	LogDev          bool          `env:"LOG_DEV"                envDefault:"false"`
}

// RoomService configures the reference Room Service.
type RoomService struct {
	HTTPAddr        string        `env:"ROOMD_HTTP_ADDR"        envDefault:":8090"`
	Store           string        `env:"ROOMD_STORE"            envDefault:"memory"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	ShutdownTimeout time.Duration `env:"ROOMD_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"LOG_LEVEL"              envDefault:"info"`
	LogDev          bool          `env:"LOG_DEV"                envDefault:"false"`
}

// LoadServer reads an optional .env file, then the environment.
func LoadServer() (Server, error) {
	var cfg Server
	if err := load(&cfg); err != nil {
		return Server{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func LoadRoomService() (RoomService, error) {
	var cfg RoomService
	if err := load(&cfg); err != nil {
		return RoomService{}, err
	}
	if err := cfg.Validate(); err != nil {
		return RoomService{}, err
	}
	return cfg, nil
}

func (c Server) Validate() error {
	u, err := url.Parse(c.RoomServiceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("ROOM_SERVICE_URL %q is not an absolute URL", c.RoomServiceURL)
	}
	if c.SpinCount < 0 {
		return fmt.Errorf("WHEEL_SPIN_COUNT must be >= 0, got %d", c.SpinCount)
	}
	if c.SpinDuration <= 0 {
		return fmt.Errorf("WHEEL_SPIN_DURATION must be positive, got %s", c.SpinDuration)
	}
	if c.RoomTimeout <= 0 {
		return fmt.Errorf("ROOM_SERVICE_TIMEOUT must be positive, got %s", c.RoomTimeout)
	}
	return nil
}

func (c RoomService) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when ROOMD_STORE=postgres")
		}
	default:
		return fmt.Errorf("ROOMD_STORE must be %q or %q, got %q", StoreMemory, StorePostgres, c.Store)
	}
	return nil
}

func load(target any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
