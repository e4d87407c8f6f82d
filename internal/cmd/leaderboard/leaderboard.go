// Package leaderboard parses leaderboard service flags and launches the service.
package leaderboard

import (
	"context"
	"flag"

	entrypoint "github.com/Monash-Mosaic/disinformer-leaderboard/internal/platform/cmd"
	server "github.com/Monash-Mosaic/disinformer-leaderboard/internal/services/leaderboard/app"
)

// Config holds leaderboard command configuration.
type Config struct {
	Port int `env:"DISINFORMER_LEADERBOARD_PORT" envDefault:"8090"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The leaderboard HTTP server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the leaderboard HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceLeaderboard, func(context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}
