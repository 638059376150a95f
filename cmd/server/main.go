package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/stereoclub/blindtest/internal/audio"
	"github.com/stereoclub/blindtest/internal/config"
	"github.com/stereoclub/blindtest/internal/database"
	"github.com/stereoclub/blindtest/internal/game"
	"github.com/stereoclub/blindtest/internal/migrations"
	"github.com/stereoclub/blindtest/internal/server"
	"github.com/stereoclub/blindtest/internal/spotify"
	"github.com/stereoclub/blindtest/internal/storage"
	"github.com/stereoclub/blindtest/internal/team"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	if err := server.SeedHost(ctx, logger, db, cfg.HostPassword); err != nil {
		return fmt.Errorf("seeding host account: %w", err)
	}

	// --- Redis (optional search cache) ---
	var rdb *redis.Client
	cache := spotify.Cache(spotify.NopCache{})
	if cfg.RedisURL != "" {
		rdb, err = openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		cache = spotify.NewRedisCache(rdb, logger)
		logger.Info("connected to redis")
	}

	// --- Game wiring ---
	broker := server.NewBroker()
	sink := audio.NewController(
		audio.WithProbe(audio.HTTPProbe(&http.Client{Timeout: 5 * time.Second})),
		audio.WithOnVolume(server.VolumeEvents(broker)),
	)
	teams := team.NewStore()
	kv := storage.NewSQLiteKV(db)
	ctrl := game.New(teams, sink, kv, logger, server.GameEvents(broker))
	ctrl.Load(ctx)

	search := spotify.New(cfg.SpotifyClientID, cfg.SpotifyClientSecret, logger,
		spotify.WithCache(cache))

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, server.Deps{
		Logger: logger,
		DB:     db,
		Redis:  rdb,
		Teams:  teams,
		Game:   ctrl,
		Search: search,
		Broker: broker,
		SPADir: cfg.SPADir,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
