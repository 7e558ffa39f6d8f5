package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/miosrv/mio/internal/api"
	"github.com/miosrv/mio/internal/auth"
	"github.com/miosrv/mio/internal/bancho"
	"github.com/miosrv/mio/internal/beatmap"
	"github.com/miosrv/mio/internal/cleanup"
	"github.com/miosrv/mio/internal/config"
	"github.com/miosrv/mio/internal/db"
	"github.com/miosrv/mio/internal/ranking"
	"github.com/miosrv/mio/internal/recalc"
	"github.com/miosrv/mio/internal/score"
	"github.com/miosrv/mio/internal/web"
	"github.com/miosrv/mio/internal/webhook"
)

const ConfigPath = "config/mio.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfgPath := ConfigPath
	if p := os.Getenv("MIO_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("mio starting", "component", cfg.Component, "port", cfg.Port, "server_url", cfg.ServerURL)

	if err := db.RunMigrations(ctx, cfg.DatabaseDSN); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	database, err := db.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	rank, err := ranking.New(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}

	users := db.NewUserRepository(database)
	maps := beatmap.New(db.NewBeatmapRepository(database), cfg.MirrorURL, cfg.BeatmapsDir())
	authn := auth.New(users, rank)
	alerts := webhook.New(cfg.AlertDiscordWebhook)
	gateway := score.NewGatewayClient(cfg.BanchoURL(), cfg.TokenHMACSecret)
	engine := score.NewEngine(database, maps, rank, authn, gateway, alerts, &cfg)

	switch cfg.Component {
	case config.ComponentBancho:
		g := bancho.NewGateway(&cfg, database, maps, rank, authn, engine, bancho.NewIPAPILocator(), alerts)
		if err := g.Init(ctx, db.NewChannelRepository(database)); err != nil {
			return fmt.Errorf("initializing gateway: %w", err)
		}
		return serve(ctx, cfg.Port, g.Router())

	case config.ComponentWeb:
		return serve(ctx, cfg.Port, web.NewServer(&cfg, database, maps, authn, engine).Router())

	case config.ComponentAPI:
		return serve(ctx, cfg.Port, api.NewServer(&cfg, database, rank, authn).Router())

	case config.ComponentCleanup:
		removed, err := cleanup.New(database, rank).Run(ctx)
		if err != nil {
			return fmt.Errorf("running cleanup: %w", err)
		}
		slog.Info("cleanup finished", "removed", removed)
		return nil

	case config.ComponentRecalc:
		return recalc.New(database, maps, engine, os.Stdin, os.Stdout).Run(ctx)

	default:
		return fmt.Errorf("unknown component %q", cfg.Component)
	}
}

// serve runs an HTTP server until ctx is cancelled, then drains it.
func serve(ctx context.Context, port int, handler http.Handler) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
