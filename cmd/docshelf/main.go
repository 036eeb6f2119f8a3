package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docshelf/docshelf/pkg/api"
	"github.com/docshelf/docshelf/pkg/audit"
	"github.com/docshelf/docshelf/pkg/catalog"
	"github.com/docshelf/docshelf/pkg/config"
	"github.com/docshelf/docshelf/pkg/documents"
	"github.com/docshelf/docshelf/pkg/identity"
	"github.com/docshelf/docshelf/pkg/observability"
	"github.com/docshelf/docshelf/pkg/permissions"
	"github.com/docshelf/docshelf/pkg/storage"
	"github.com/docshelf/docshelf/pkg/topics"
)

// adminCacheTTL bounds how stale a cached admin flag can get.
const adminCacheTTL = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("port", cfg.Server.Port).Info("starting docshelf")

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("docshelf exited with error")
		os.Exit(1)
	}
	logger.Info("docshelf stopped")
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.RunMigrations(ctx, db); err != nil {
		return err
	}
	logger.Info("migrations applied")

	var cache *storage.Cache
	if cfg.Cache.Enabled {
		cache, err = storage.NewCache(storage.CacheConfig{
			URL:          cfg.Cache.URL,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			MaxRetries:   cfg.Cache.MaxRetries,
			PoolSize:     cfg.Cache.PoolSize,
			HierarchyTTL: cfg.Cache.HierarchyTTL,
			RightsTTL:    cfg.Cache.RightsTTL,
		})
		if err != nil {
			return err
		}
		defer cache.Close()
		logger.Info("redis cache connected")
	}

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	directory := identity.NewDirectory(db, adminCacheTTL)
	permStore := permissions.NewPostgresStore(db)
	eval := permissions.NewEvaluator(directory, permStore, cache, metrics)

	// The upload policy reloads on config file changes; without a file
	// it stays fixed at the loaded values.
	var policy documents.PolicySource = documents.StaticPolicy(cfg.Upload)
	group, ctx := errgroup.WithContext(ctx)
	if path := os.Getenv("DOCSHELF_CONFIG_FILE"); path != "" {
		watcher := config.NewPolicyWatcher(cfg.Upload, path, logger)
		policy = watcher
		group.Go(func() error { return watcher.Watch(ctx) })
	}

	auditor, err := audit.NewDBLogger(db)
	if err != nil {
		return err
	}

	server := api.NewServer(api.Deps{
		Directory:   directory,
		Departments: catalog.NewDepartmentCatalog(db, directory),
		Libraries:   catalog.NewLibraryCatalog(db, eval, cache),
		Tree:        topics.NewTopicTree(db, eval, cache, metrics),
		Gate:        documents.NewDocumentGate(db, eval, policy, metrics),
		PermStore:   permStore,
		Evaluator:   eval,
		Auditor:     auditor,
		AuditReader: auditor,
		Logger:      logger,
		Metrics:     metrics,
	})

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux(db, cache, metrics),
	}

	group.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("api server shutdown failed")
		}
		return healthServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func healthMux(db *sql.DB, cache *storage.Cache, metrics *observability.Metrics) http.Handler {
	checker := observability.NewHealthChecker(db, pinger(cache))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", checker.LivenessHandler())
	mux.HandleFunc("/readyz", checker.ReadinessHandler())
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}
	return mux
}

// pinger avoids handing the health checker a typed nil when the cache
// is disabled.
func pinger(cache *storage.Cache) observability.Pinger {
	if cache == nil {
		return nil
	}
	return cache
}
