// Package seed parses seeding flags and runs the database seeder.
package seed

import (
	"context"
	"flag"

	entrypoint "github.com/Monash-Mosaic/disinformer-leaderboard/internal/platform/cmd"
	"github.com/Monash-Mosaic/disinformer-leaderboard/internal/seed"
)

// Config holds seed command configuration.
type Config struct {
	DBPath  string `env:"DISINFORMER_LEADERBOARD_DB_PATH"`
	Players int    `env:"DISINFORMER_LEADERBOARD_SEED_PLAYERS" envDefault:"100"`
	Seed    int64
	Verbose bool
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	defaults := seed.DefaultConfig()
	if cfg.DBPath == "" {
		cfg.DBPath = defaults.DBPath
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the leaderboard SQLite database")
	fs.IntVar(&cfg.Players, "players", cfg.Players, "number of players to generate")
	fs.Int64Var(&cfg.Seed, "seed", 0, "random seed for reproducibility (0 = random)")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose output")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the seeder.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSeed, func(context.Context) error {
		return seed.Run(ctx, seed.Config{
			DBPath:  cfg.DBPath,
			Players: cfg.Players,
			Seed:    cfg.Seed,
			Verbose: cfg.Verbose,
		})
	})
}
