// Command picworker consumes map jobs from Kafka, maps each feature against
// a reference loaded at startup and publishes the results.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/grid"
	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/mapper"
	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/spectra"
	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/worker"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/featurepic/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/featurepic/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	referencePath := flag.String("reference", "", "reference run (overrides worker.referencePath)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
	if *referencePath != "" {
		cfg.Worker.ReferencePath = *referencePath
	}
	if err := cfg.ValidateWorker(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting pic worker", "reference", cfg.Worker.ReferencePath)

	reference, err := spectra.Load(cfg.Worker.ReferencePath)
	if err != nil {
		slog.Error("failed to load reference", "error", err)
		os.Exit(apperrors.ExitCode(err))
	}
	g := grid.FromRun(reference)
	slog.Info("reference loaded", "scans", g.Scans(), "fingerprint", g.Fingerprint())

	m := metrics.New(prometheus.DefaultRegisterer)
	engine := mapper.NewEngine(g, mapper.OptionsFrom(cfg.Mapper), m)
	checker := health.NewChecker()
	checker.Register("reference", health.Static(health.StatusUp, fmt.Sprintf("%d scans, fingerprint %s", g.Scans(), g.Fingerprint())))

	deps := worker.Deps{Metrics: m, JobTimeout: cfg.Worker.JobTimeout}

	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, result caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			deps.Cache = mapper.NewResultCache(redisClient, cfg.Redis.CacheTTL, m)
			checker.Register("redis", health.PingCheck(redisClient.Ping, false))
			slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(apperrors.ExitFailure)
		}
		defer db.Close()
		store := mapper.NewStore(db)
		if err := store.Migrate(context.Background()); err != nil {
			slog.Error("failed to migrate result store", "error", err)
			os.Exit(apperrors.ExitFailure)
		}
		deps.Store = store
		checker.Register("postgres", health.PingCheck(db.Ping, true))
		slog.Info("result store enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.MapResults)
	defer producer.Close()
	handler := worker.NewHandler(engine, producer, deps)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.MapJobs, handler.Handle)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Logging(logger.WithComponent("http"))(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		slog.Info("health server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server error", "error", err)
			stop()
		}
	}()

	slog.Info("pic worker ready, consuming from kafka",
		"jobs", cfg.Kafka.Topics.MapJobs,
		"results", cfg.Kafka.Topics.MapResults,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("health server shutdown error", "error", err)
	}
	slog.Info("pic worker stopped")
}
