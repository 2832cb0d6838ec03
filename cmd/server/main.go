// Package main is the entry point of the classroom roster service.
//
// The service keeps class rosters, partitions them into groups, records
// finished recognition games and serves the statistics derived from them.
// It runs on PostgreSQL (optionally with Redis counters and a leaderboard
// cache) or entirely in memory for development.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/text/language"

	"github.com/roster-hub/classroom-roster/config"

	// Application layer
	"github.com/roster-hub/classroom-roster/internal/application/command"
	"github.com/roster-hub/classroom-roster/internal/application/query"

	// Domain layer
	"github.com/roster-hub/classroom-roster/internal/domain/grouping"
	"github.com/roster-hub/classroom-roster/internal/domain/stats"
	"github.com/roster-hub/classroom-roster/internal/domain/student"

	// Infrastructure layer
	"github.com/roster-hub/classroom-roster/internal/infrastructure/persistence/memory"
	"github.com/roster-hub/classroom-roster/internal/infrastructure/persistence/postgres"
	"github.com/roster-hub/classroom-roster/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/roster-hub/classroom-roster/internal/interface/http"
	"github.com/roster-hub/classroom-roster/internal/interface/http/handlers"

	// Packages
	"github.com/roster-hub/classroom-roster/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

// stores bundles the persistence ports the application layer needs.
type stores struct {
	students student.Repository
	counters student.CounterStore
	sessions stats.SessionRepository
	cache    stats.LeaderboardCache
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.Observability.LogCaller,
	}).With(
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
	)
	log.Info("starting classroom roster service", logger.String("version", cfg.App.Version))

	storageName := "memory"
	if !cfg.Database.Disabled {
		storageName = "postgres"
	}
	health := handlers.NewCompositeHealthChecker(cfg.App.Version, storageName)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. PERSISTENCE (PostgreSQL or in-memory)
	// ─────────────────────────────────────────────────────────────────────────
	var st stores

	if cfg.Database.Disabled {
		log.Warn("database disabled, using in-memory store; data is lost on restart")
		mem := memory.NewStudentStore()
		st = stores{
			students: mem,
			counters: mem,
			sessions: memory.NewSessionStore(),
			cache:    memory.NewLeaderboardCache(),
		}
	} else {
		log.Info("connecting to database...")
		dbConn, err := postgres.NewConnection(ctx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxConns:        int32(cfg.Database.MaxConns),
			MinConns:        int32(cfg.Database.MinConns),
			MaxConnLifetime: cfg.Database.ConnMaxLifetime,
			MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection...")
			dbConn.Close()
		}()
		health.AddCheck("postgres", handlers.NewPingCheck(dbConn))

		if cfg.Database.AutoMigrate {
			applied, err := postgres.NewMigrator(dbConn).Migrate(ctx)
			if err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info("migrations completed", logger.Int("applied", applied))
		}

		repo := postgres.NewStudentRepository(dbConn)
		st = stores{
			students: repo,
			counters: repo,
			sessions: postgres.NewSessionRepository(dbConn),
			cache:    memory.NewLeaderboardCache(),
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (optional counters + leaderboard cache)
	// ─────────────────────────────────────────────────────────────────────────
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCache, err := redis.NewCache(ctx, redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   redis.DefaultConfig().MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer func() { _ = redisCache.Close() }()
		health.AddCheck("redis", handlers.NewPingCheck(redisCache))

		st.cache = redis.NewLeaderboardCache(redisCache)
		if cfg.Redis.CountersEnabled {
			st.counters = redis.NewCounterStore(redisCache)
			log.Info("recognition counters kept in Redis")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	locale, err := language.Parse(cfg.Grouping.Locale)
	if err != nil {
		return fmt.Errorf("invalid grouping locale %q: %w", cfg.Grouping.Locale, err)
	}
	engine := grouping.NewEngine(grouping.WithLocale(locale))

	// Counters held outside the roster table are overlaid on reads.
	var overlay student.CounterStore
	if cfg.Redis.CountersEnabled {
		overlay = st.counters
	}

	deps := httpserver.Dependencies{
		ImportRoster: command.NewImportRosterHandler(st.students, log),
		RecordSession: command.NewRecordSessionHandler(st.sessions, st.students, st.counters, st.cache, log,
			command.RecordSessionHandlerConfig{Concurrency: cfg.Stats.IncrementConcurrency}),
		SearchRoster: query.NewSearchRosterHandler(st.students, overlay),
		BuildGroups:  query.NewBuildGroupsHandler(st.students, engine, cfg.Grouping.DefaultGroupSize, log),
		ClassStats:   query.NewClassStatsHandler(st.sessions),
		Leaderboard: query.NewLeaderboardHandler(st.sessions, st.cache, query.LeaderboardHandlerConfig{
			Size:     cfg.Stats.LeaderboardSize,
			CacheTTL: cfg.Stats.LeaderboardCacheTTL,
		}, log),
		NeedsAttention: query.NewNeedsAttentionHandler(st.students, overlay,
			cfg.Stats.AttentionThreshold, cfg.Stats.AttentionLimit),
		ClassReport: query.NewClassReportHandler(st.students, overlay, st.sessions,
			cfg.Stats.AttentionThreshold, cfg.Stats.AttentionLimit),
		Logger:        log,
		HealthChecker: health,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.MaxUploadBytes = cfg.HTTP.MaxUploadBytes
	httpConfig.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	httpConfig.TrustedProxies = cfg.HTTP.TrustedProxies
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.APIKeyHashes = cfg.HTTP.APIKeyHashes
	httpConfig.Version = cfg.App.Version

	if len(cfg.HTTP.APIKeyHashes) == 0 {
		log.Warn("no API keys configured, write endpoints are open")
	}

	httpServer := httpserver.NewServer(httpConfig, deps)
	errCh := httpServer.StartAsync()

	log.Info("classroom roster service is running",
		logger.String("http_address", httpConfig.Address()),
		logger.String("storage", storageName),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok && err != nil {
			log.Error("http server error", logger.Err(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}
