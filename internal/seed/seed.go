// Package seed populates the leaderboard database with sample players for
// local development.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/Monash-Mosaic/disinformer-leaderboard/internal/services/leaderboard/storage"
	leaderboardsqlite "github.com/Monash-Mosaic/disinformer-leaderboard/internal/services/leaderboard/storage/sqlite"
)

// Config holds seeding inputs.
type Config struct {
	DBPath  string
	Players int
	Seed    int64
	Verbose bool
}

// DefaultConfig returns seeding defaults for local development.
func DefaultConfig() Config {
	return Config{
		DBPath:  filepath.Join("data", "leaderboard.db"),
		Players: 100,
		Seed:    0,
	}
}

// Run generates and upserts sample players into the SQLite store.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Players <= 0 {
		return fmt.Errorf("player count must be greater than zero")
	}
	dir := filepath.Dir(cfg.DBPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := leaderboardsqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open leaderboard store: %w", err)
	}
	defer store.Close()

	seedValue := cfg.Seed
	if seedValue == 0 {
		seedValue = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seedValue))

	for _, entry := range Generate(rng, cfg.Players) {
		if err := store.UpsertPlayer(ctx, entry); err != nil {
			return fmt.Errorf("seed player %s: %w", entry.DisplayName, err)
		}
		if cfg.Verbose {
			log.Printf("seeded %s total=%d best=%d games=%d",
				entry.DisplayName, entry.TotalScore, entry.BestScore, entry.GamesPlayed)
		}
	}
	log.Printf("seeded %d players into %s (seed %d)", cfg.Players, cfg.DBPath, seedValue)
	return nil
}

var adjectives = []string{
	"swift", "cunning", "bold", "quiet", "vivid", "sly", "brisk", "keen",
	"wry", "stark", "lucid", "deft", "wary", "blunt", "arch", "dry",
}

var nouns = []string{
	"heron", "lynx", "osprey", "ferret", "magpie", "badger", "viper", "stoat",
	"falcon", "otter", "raven", "shrike", "marten", "kestrel", "jackal", "crane",
}

// Generate produces n players with unique display names and plausible score
// spreads. Deterministic for a fixed rng state.
func Generate(rng *rand.Rand, n int) []storage.Entry {
	entries := make([]storage.Entry, 0, n)
	for i := 0; i < n; i++ {
		games := 1 + rng.Intn(60)
		best := 50 + rng.Intn(950)
		total := best + rng.Intn(best*games/2+1)
		entries = append(entries, storage.Entry{
			ID:          fmt.Sprintf("player-%04d", i+1),
			DisplayName: fmt.Sprintf("%s-%s-%d", adjectives[rng.Intn(len(adjectives))], nouns[rng.Intn(len(nouns))], i+1),
			TotalScore:  total,
			BestScore:   best,
			GamesPlayed: games,
			UpdatedAt:   time.Now().UTC(),
		})
	}
	return entries
}
