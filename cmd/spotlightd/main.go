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
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/spotlight/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/spotlight/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	palette := flag.Bool("palette", false, "run an interactive palette on stdin instead of serving HTTP")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting spotlight", "port", cfg.Server.Port, "sources", len(cfg.Sources))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	var pg *postgres.Client
	if cfg.UsesTransport(config.TransportPostgres) {
		pg, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
	}

	built, err := buildAdapters(cfg, pg, m)
	if err != nil {
		slog.Error("failed to build source adapters", "error", err)
		os.Exit(1)
	}
	defer built.close()

	svc := indexer.NewService(indexer.WithMetrics(m))
	defer svc.Close()
	if err := svc.Attach(ctx, built.adapters...); err != nil {
		slog.Error("failed to attach sources", "error", err)
		os.Exit(1)
	}

	var redisClient *pkgredis.Client
	engineOpts := []searcher.Option{searcher.WithMetrics(m)}
	switch cfg.Search.CacheBackend {
	case config.CacheRedis:
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
			break
		}
		defer redisClient.Close()
		engineOpts = append(engineOpts, searcher.WithCache(cache.New(cache.NewRedisBackend(redisClient, cfg.Redis.CacheTTL), m)))
		slog.Info("search cache enabled", "backend", "redis", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	case config.CacheMemory:
		engineOpts = append(engineOpts, searcher.WithCache(cache.New(cache.NewLRUBackend(cfg.Search.CacheSize, cfg.Redis.CacheTTL), m)))
		slog.Info("search cache enabled", "backend", "memory", "size", cfg.Search.CacheSize)
	}
	engine := searcher.NewEngine(svc, cfg.Search, engineOpts...)

	if *palette {
		runPalette(ctx, cfg.Session, engine, m, os.Stdin, os.Stdout)
		return
	}

	aggregator := analytics.NewAggregator()
	var publisher analytics.Publisher
	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		publisher = producer
		slog.Info("analytics publishing enabled", "topic", cfg.Kafka.Topics.AnalyticsEvents)
	}
	collector := analytics.NewCollector(publisher, aggregator, m, cfg.Analytics.BufferSize)
	collector.Start(ctx)
	defer collector.Close()

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		switch svc.State() {
		case indexer.StateReady:
			return health.Up(fmt.Sprintf("%d documents", svc.Stats().Documents))
		case indexer.StateIndexing:
			return health.Degraded("indexing")
		default:
			return health.Down("idle")
		}
	})
	if redisClient != nil {
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if err := redisClient.Ping(ctx); err != nil {
				return health.Degraded(err.Error())
			}
			return health.Up("")
		})
	}
	if pg != nil {
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := pg.Ping(ctx); err != nil {
				return health.Degraded(err.Error())
			}
			return health.Up("")
		})
	}

	h := handler.New(engine, svc, collector, aggregator, cfg.Search.Timeout)
	ingest := handler.NewIngest(h)
	for name, mem := range built.memory {
		ingest.Register(name, mem)
	}

	mux := http.NewServeMux()
	h.Routes(mux)
	ingest.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var limiter *middleware.Limiter
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewLimiter(cfg.Server.RateLimit, time.Minute)
		defer limiter.Close()
	}

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequireKey(cfg.Server.AdminKeyHashes)(chain)
	chain = middleware.RateLimit(limiter)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins))(chain)
	chain = middleware.RequestID(chain)
	chain = middleware.Metrics(m)(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("spotlight listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("spotlight stopped")
}
