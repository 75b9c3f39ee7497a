package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tennis-standings/cache"
	"github.com/Dosada05/tennis-standings/config"
	"github.com/Dosada05/tennis-standings/db"
	"github.com/Dosada05/tennis-standings/handlers"
	"github.com/Dosada05/tennis-standings/live"
	"github.com/Dosada05/tennis-standings/models"
	"github.com/Dosada05/tennis-standings/repositories"
	api "github.com/Dosada05/tennis-standings/routes"
	"github.com/Dosada05/tennis-standings/services"
	"github.com/Dosada05/tennis-standings/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("application terminated with error", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("application exited")
}

func run() error {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("scoring_default", cfg.Scoring.Default),
		slog.Duration("cache_ttl", cfg.CacheTTL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	if err := db.Migrate(dbConn); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Info("database connection established")

	// Хранилище снимков таблиц (Cloudflare R2) опционально.
	var store storage.ObjectStore
	if cfg.R2Configured() {
		store, err = storage.NewCloudflareR2Store(ctx, storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 store: %w", err)
		}
		logger.Info("Cloudflare R2 store initialized", slog.String("bucket", cfg.R2BucketName))
	} else {
		logger.Warn("R2 is not configured, snapshot publishing disabled")
	}

	// Инициализация репозиториев
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	seasonRepo := repositories.NewPostgresSeasonRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	lineupRepo := repositories.NewPostgresLineupRepository(dbConn)

	cacheOpts := cache.Options{
		TTL:            cfg.CacheTTL,
		MaxEntries:     cfg.CacheMaxEntries,
		ComputeTimeout: cfg.CacheComputeTimeout,
	}
	scoreCache := cache.New[string, *models.MatchScore]("match_scores", cacheOpts)
	statsCache := cache.New[services.StatsKey, *models.TeamStats]("team_stats", cacheOpts)
	playerCache := cache.New[services.PlayerStatsKey, *models.PlayerStats]("player_stats", cacheOpts)

	hub := live.NewHub(logger)

	// Инициализация сервисов
	seasonService := services.NewSeasonService(seasonRepo, time.Now)
	teamService := services.NewTeamService(teamRepo)
	matchService := services.NewMatchService(matchRepo, lineupRepo, cfg.Scoring, scoreCache, logger)
	statsService := services.NewStatsService(
		teamRepo,
		matchRepo,
		lineupRepo,
		matchService,
		cfg.Scoring,
		seasonService,
		statsCache,
		playerCache,
		time.Now,
		logger,
	)
	snapshotService := services.NewSnapshotService(teamRepo, statsService, seasonService, store, logger)
	ingestService := services.NewIngestService(
		services.NewSQLTxRunner(dbConn),
		teamRepo,
		matchRepo,
		lineupRepo,
		cfg.Scoring,
		seasonService,
		scoreCache,
		statsCache,
		playerCache,
		hub,
		logger,
	)

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Match:     handlers.NewMatchHandler(matchService),
		Team:      handlers.NewTeamHandler(teamService, statsService),
		Player:    handlers.NewPlayerHandler(statsService),
		Season:    handlers.NewSeasonHandler(seasonService, snapshotService),
		Ingest:    handlers.NewIngestHandler(ingestService),
		Health:    handlers.NewHealthHandler(dbConn, scoreCache, statsCache, playerCache),
		WebSocket: handlers.NewWebSocketHandler(ctx, hub, cfg.CORSAllowedOrigins, logger),
	}, cfg.CORSAllowedOrigins, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(ctx)
		logger.Info("WebSocket hub stopped")
		return nil
	})

	g.Go(func() error {
		logger.Info("starting server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Ожидание сигнала завершения
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server shutdown complete")
		return nil
	})

	return g.Wait()
}
