package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"neweyes-online/internal/cache"
	"neweyes-online/internal/config"
	"neweyes-online/internal/db"
	"neweyes-online/internal/live"
	"neweyes-online/internal/metrics"
	"neweyes-online/internal/notify"
	"neweyes-online/internal/server"
	"neweyes-online/internal/storage"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	config.SetupLogging(cfg)
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []server.Option
	images, err := storage.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("storage setup failed")
	}
	opts = append(opts, server.WithImages(images))
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable; dashboard counts are not cached")
		} else {
			defer client.Close()
			opts = append(opts, server.WithCountCache(cache.NewCountCache(client, time.Duration(cfg.DashboardCacheSeconds)*time.Second)))
		}
	}

	var conn *gorm.DB
	if cfg.DatabaseURL != "" {
		conn, err = db.Open(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		if err := db.Migrate(conn); err != nil {
			log.Fatal().Err(err).Msg("database migration failed")
		}
		if err := db.InstallNotifyTrigger(conn, cfg.NotifyChannel); err != nil {
			log.Fatal().Err(err).Msg("notify trigger install failed")
		}
	} else {
		log.Warn().Msg("DATABASE_URL not set; using in-memory stores")
	}

	srv := server.New(conn, cfg, opts...)
	if conn != nil {
		closeNotify, err := startNotifications(ctx, cfg, srv)
		if err != nil {
			log.Fatal().Err(err).Msg("notification setup failed")
		}
		defer closeNotify()
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("neweyes-online listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
	log.Info().Msg("server stopped")
}

// startNotifications runs the Postgres change listener. With NATS configured
// snapshots travel through NATS so every instance's hub sees every change;
// otherwise the listener feeds the local hub directly.
func startNotifications(ctx context.Context, cfg config.Config, srv *server.Server) (func(), error) {
	var publisher live.Publisher = srv.Hub()
	cleanup := func() {}
	if cfg.NATSURL != "" {
		nc, err := notify.ConnectNATS(cfg.NATSURL)
		if err != nil {
			return nil, err
		}
		sub, err := notify.NewNATSSubscriber(nc, srv.Hub())
		if err != nil {
			nc.Close()
			return nil, err
		}
		publisher = notify.NewNATSPublisher(nc)
		cleanup = func() {
			_ = sub.Close()
			nc.Close()
		}
	}

	listenerCfg := notify.DefaultListenerConfig()
	listenerCfg.DatabaseURL = cfg.DatabaseURL
	listenerCfg.NotifyChannel = cfg.NotifyChannel
	listenerCfg.FallbackInterval = time.Duration(cfg.NotifyFallbackSeconds) * time.Second
	listener, err := notify.NewListener(srv.States(), publisher, srv.Hub().Sessions, listenerCfg)
	if err != nil {
		cleanup()
		return nil, err
	}
	go func() {
		if err := listener.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("notification listener stopped")
		}
	}()
	return func() {
		_ = listener.Stop()
		cleanup()
	}, nil
}
