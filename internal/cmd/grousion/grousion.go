// Package grousion parses deliberation engine flags and composes the server
// entrypoint.
package grousion

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/grousion/grousion/internal/app"
	entrypoint "github.com/grousion/grousion/internal/platform/cmd"
)

// Config holds deliberation engine command configuration.
type Config struct {
	HTTPAddr              string        `env:"GROUSION_HTTP_ADDR"         envDefault:":8080"`
	StoragePath           string        `env:"GROUSION_STORAGE_PATH"      envDefault:"grousion.db"`
	ShutdownTimeout       time.Duration `env:"GROUSION_SHUTDOWN_TIMEOUT"  envDefault:"10s"`
	JoinRequestsPerMinute int           `env:"GROUSION_JOIN_RATE_LIMIT"   envDefault:"30"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.StoragePath, "storage-path", cfg.StoragePath, "sqlite database path")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown timeout")
	fs.IntVar(&cfg.JoinRequestsPerMinute, "join-rate-limit", cfg.JoinRequestsPerMinute, "session joins allowed per client per minute")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the deliberation server and serves until the context ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGrousion, func(context.Context) error {
		server, err := app.NewServer(app.Config{
			HTTPAddr:              cfg.HTTPAddr,
			StoragePath:           cfg.StoragePath,
			ShutdownTimeout:       cfg.ShutdownTimeout,
			JoinRequestsPerMinute: cfg.JoinRequestsPerMinute,
		})
		if err != nil {
			return fmt.Errorf("build server: %w", err)
		}
		defer server.Close()

		if err := server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve deliberation engine: %w", err)
		}
		return nil
	})
}
