package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/mapofsmiles/companion/internal/api"
	"github.com/mapofsmiles/companion/internal/config"
	"github.com/mapofsmiles/companion/internal/domain"
	"github.com/mapofsmiles/companion/internal/middleware"
	"github.com/mapofsmiles/companion/internal/notify"
	"github.com/mapofsmiles/companion/internal/session"
	"github.com/mapofsmiles/companion/internal/store"
	"github.com/mapofsmiles/companion/internal/stories"
	"github.com/mapofsmiles/companion/internal/webhook"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Map of Smiles companion",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
		zap.Strings("allowed_origins", cfg.Server.AllowedOrigins),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storyStore, pool := initStore(ctx, cfg, logger)
	if pool != nil {
		defer pool.Close()
	}

	submitClient := webhook.NewClient(cfg.Submit)
	if !submitClient.IsConfigured() {
		logger.Warn("Submission webhook is NOT configured - set SUBMIT_WEBHOOK_URL to enable sharing")
	}

	origins := middleware.NewOriginPolicy(cfg.Server.AllowedOrigins, logger.Named("origin"))
	hub := api.NewWebSocketManager(origins.CheckRequest, logger.Named("ws"))

	notifiers := notify.Multi{hub, notify.NewLog(logger.Named("notify"))}
	if cfg.Notify.FCMDeviceToken != "" {
		fcmClient, err := notify.NewFCM(ctx, logger.Named("fcm"), cfg.Notify.FCMCredentialsFile, cfg.Notify.FCMDeviceToken)
		if err != nil {
			logger.Warn("Failed to initialize Firebase client - push notifications will be disabled", zap.Error(err))
		} else {
			notifiers = append(notifiers, fcmClient)
			logger.Info("Firebase client initialized")
		}
	}

	sess := session.New(storyStore, submitClient, hub, notifiers, session.Options{
		DefaultCenter:     cfg.Map.DefaultCenter,
		LoadRadius:        cfg.Stories.LoadRadius,
		InitialFixTimeout: cfg.Geo.InitialFixTimeout,
		Rules: stories.Rules{
			MinLength: cfg.Stories.MinLength,
			MaxLength: cfg.Stories.MaxLength,
			Emotions:  cfg.Stories.Emotions,
		},
	}, logger.Named("session"))
	hub.SetSource(sess)

	readiness := api.ServiceReadiness{Store: storyStore, Submit: submitClient}
	router := api.NewRouter(
		api.NewMapHandler(sess, cfg, readiness, logger),
		api.NewStoryHandler(sess, logger),
		api.NewHealthHandler(readiness, hub),
		hub,
		origins,
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sess.Start(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Companion stopped with error", zap.Error(err))
	}

	sess.Close()
	logger.Info("Server stopped")
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	if cfg.Log.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	return zcfg.Build()
}

// initStore picks the read path. A store that cannot be reached at startup
// is left unconfigured so the map still opens.
func initStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (domain.StoryStore, *pgxpool.Pool) {
	if cfg.Store.Driver == "postgres" {
		if !config.IsSet(cfg.Database.URL) {
			logger.Warn("Story store is NOT configured - set DATABASE_URL to load stories")
			return store.NewPostgres(nil, cfg.Store.Table), nil
		}

		pool, err := store.OpenPool(ctx, cfg.Database.URL)
		if err != nil {
			logger.Warn("Failed to connect to database - stories will not load", zap.Error(err))
			return store.NewPostgres(nil, cfg.Store.Table), nil
		}
		logger.Info("Connected to database")
		return store.NewPostgres(pool, cfg.Store.Table), pool
	}

	s := store.NewPostgREST(cfg.Store, logger.Named("store"))
	if !s.IsConfigured() {
		logger.Warn("Story store is NOT configured - set SUPABASE_URL and SUPABASE_ANON_KEY to load stories")
		return s, nil
	}

	info, err := store.InspectKey(cfg.Store.AnonKey)
	if err != nil {
		logger.Warn("Could not read SUPABASE_ANON_KEY", zap.Error(err))
		return s, nil
	}
	for _, problem := range info.Problems(time.Now()) {
		logger.Warn("SUPABASE_ANON_KEY looks wrong", zap.String("problem", problem), zap.String("ref", info.Ref))
	}
	return s, nil
}
