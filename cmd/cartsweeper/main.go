// Command cartsweeper expires cart items whose checkout lock has lapsed and
// exposes metrics and health probes while doing so.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/audit"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartstore"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/config"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/events"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/httpserver"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/inventory"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/lifecycle"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/logger"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/pg"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/redis"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/rules"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/sweeper"
)

func main() {
	// A .env file is optional; real deployments set the environment directly.
	if _, err := os.Stat(".env"); err == nil {
		config.MustLoadEnv()
	}

	var cfg appConfig
	config.MustLoad(&cfg)

	log := newLogger(cfg)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("cartsweeper stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func newLogger(cfg appConfig) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, cfg.Service),
		logger.WithContextExtractors(logger.RequestIDExtractor()),
	}
	if cfg.LogLevel != "" {
		lvl, err := logger.ParseLevel(cfg.LogLevel)
		if err != nil {
			panic(err)
		}
		opts = append(opts, logger.WithLevel(lvl))
	}
	if cfg.LogFormat != "" {
		opts = append(opts, logger.WithFormat(logger.Format(cfg.LogFormat)))
	}
	return logger.New(opts...)
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.Pg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.Pg, log); err != nil {
		return err
	}

	client, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer client.Close()

	store, err := cartstore.NewPostgresStore(pool)
	if err != nil {
		return err
	}
	locker, err := cartstore.NewRedisLocker(client, cfg.Redis.LockKeyPrefix,
		cartstore.WithStaleAfter(cfg.LockStaleAfter),
	)
	if err != nil {
		return err
	}

	auditWriter, closeAudit := audit.NewAsyncWriter(audit.NewPostgresStorage(pool), audit.AsyncOptions{
		BatchSize:    cfg.AuditBatchSize,
		BatchTimeout: cfg.AuditBatchTimeout,
	})
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := closeAudit(closeCtx); err != nil {
			log.Error("draining audit writer failed", logger.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine := lifecycle.NewEngine(
		lifecycle.WithValidator(rules.NewCartValidator(rules.WithMaxQuantity(cfg.MaxQuantity))),
		lifecycle.WithInventory(inventory.NewRedisChecker(client, cfg.Redis.StockKeyPrefix)),
	)
	controller, err := lifecycle.NewController(engine, store, locker,
		lifecycle.WithAuditSink(audit.NewRecorder(auditWriter,
			audit.WithRequestIDExtractor(logger.RequestIDFromContext),
		)),
		lifecycle.WithPublisher(events.NewRedisPublisher(client, events.WithChannelPrefix(cfg.Redis.ChannelPrefix))),
		lifecycle.WithLogger(log),
		lifecycle.WithMetrics(lifecycle.NewMetrics(registry)),
		lifecycle.WithLockTimeout(cfg.LockTimeout),
		lifecycle.WithMaxRetries(cfg.MaxRetries),
		lifecycle.WithBaseDelay(cfg.BaseDelay),
		lifecycle.WithAsyncEmission(cfg.EmitQueueSize),
	)
	if err != nil {
		return err
	}
	// Runs before the audit writer drains, so queued records still reach it.
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := controller.Close(closeCtx); err != nil {
			log.Error("draining emission queue failed", logger.Error(err))
		}
	}()

	sw, err := sweeper.New(store, controller,
		sweeper.WithInterval(cfg.SweepInterval),
		sweeper.WithBatchSize(cfg.SweepBatchSize),
		sweeper.WithConcurrency(cfg.SweepConcurrency),
		sweeper.WithLogger(log),
	)
	if err != nil {
		return err
	}

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	ops := httpserver.OpsHandler(registry, log,
		httpserver.Check(pg.Healthcheck(pool)),
		httpserver.Check(redis.Healthcheck(client)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sw.Start(gctx) })
	g.Go(func() error { return srv.Run(gctx, ops) })

	log.InfoContext(ctx, "cartsweeper started",
		slog.Duration("interval", cfg.SweepInterval),
		slog.Int("batch_size", cfg.SweepBatchSize),
	)
	return g.Wait()
}
