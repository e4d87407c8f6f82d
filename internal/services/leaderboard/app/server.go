// Package server wires the leaderboard runtime and HTTP lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Monash-Mosaic/disinformer-leaderboard/internal/platform/config"
	web "github.com/Monash-Mosaic/disinformer-leaderboard/internal/services/leaderboard/api/web"
	"github.com/Monash-Mosaic/disinformer-leaderboard/internal/services/leaderboard/pagination"
	leaderboardsqlite "github.com/Monash-Mosaic/disinformer-leaderboard/internal/services/leaderboard/storage/sqlite"
	"golang.org/x/time/rate"
)

// defaultShutdownTimeout caps the graceful HTTP shutdown wait.
const defaultShutdownTimeout = 5 * time.Second

type serverEnv struct {
	DBPath      string        `env:"DISINFORMER_LEADERBOARD_DB_PATH"`
	PageSize    int           `env:"DISINFORMER_LEADERBOARD_PAGE_SIZE"`
	Window      int           `env:"DISINFORMER_LEADERBOARD_PREFETCH_WINDOW"`
	CacheTTL    time.Duration `env:"DISINFORMER_LEADERBOARD_CACHE_TTL"`
	PrefetchRPS float64       `env:"DISINFORMER_LEADERBOARD_PREFETCH_RPS"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "leaderboard.db")
	}
	return cfg
}

// Server hosts the leaderboard HTTP API and storage lifecycle.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *leaderboardsqlite.Store
}

// New creates a configured leaderboard server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured leaderboard server for the provided address.
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	env := loadServerEnv()
	store, err := openLeaderboardStore(env.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	var limiter *rate.Limiter
	if env.PrefetchRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(env.PrefetchRPS), 1)
	}
	anchors := pagination.NewAnchorStore(env.CacheTTL, nil)
	resolver := pagination.NewResolver(store, anchors, pagination.Options{
		PageSize:      env.PageSize,
		Window:        env.Window,
		PrefetchLimit: limiter,
	})

	httpServer := &http.Server{
		Handler:           web.NewHandler(resolver),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{
		listener:   listener,
		httpServer: httpServer,
		store:      store,
	}, nil
}

func openLeaderboardStore(path string) (*leaderboardsqlite.Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := leaderboardsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open leaderboard store: %w", err)
	}
	return store, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a leaderboard server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the HTTP server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("leaderboard server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Close releases the server's resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close leaderboard store: %v", err)
		}
	}
}
