package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/league-wager-engine/internal/bet-service/producer"
	"github.com/radieske/league-wager-engine/internal/betting"
	"github.com/radieske/league-wager-engine/internal/ledger"
	"github.com/radieske/league-wager-engine/internal/resolution"
	sharedcache "github.com/radieske/league-wager-engine/internal/shared/cache"
	"github.com/radieske/league-wager-engine/internal/shared/config"
	"github.com/radieske/league-wager-engine/internal/shared/kafka"
	"github.com/radieske/league-wager-engine/internal/shared/logger"
	"github.com/radieske/league-wager-engine/internal/shared/metrics"
)

// resolution-worker roda a varredura de prazos e o pipeline de auto-resolução.
// Várias réplicas podem rodar juntas: o lock por bet e o controle otimista do ledger
// garantem que cada transição aconteça uma vez.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := ledger.Open(ctx, ledger.Dialect(cfg.LedgerDriver), cfg.LedgerDSN())
	if err != nil {
		log.Fatal("ledger", zap.Error(err))
	}
	defer store.Close()

	rdb, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetEvents)
	defer writer.Close()

	engineMetrics := metrics.NewEngine(prometheus.DefaultRegisterer)
	resMetrics := metrics.NewResolution(prometheus.DefaultRegisterer)
	sweepMetrics := metrics.NewSweep(prometheus.DefaultRegisterer)

	engine := betting.NewEngine(store, log,
		betting.WithPublisher(producer.Fanout{
			producer.NewKafkaPublisher(writer),
			producer.NewRedisBroadcaster(rdb, cfg.RedisEventsChannel),
		}),
		betting.WithHooks(engineMetrics.Hooks()),
		betting.WithSettleChunkSize(cfg.SettleChunkSize),
	)

	var providers []resolution.Provider
	if cfg.SportsAPIURL != "" {
		providers = append(providers, resolution.NewSportsAPI(resolution.HTTPConfig{
			BaseURL:       cfg.SportsAPIURL,
			APIKey:        cfg.SportsAPIKey,
			Timeout:       cfg.ProviderTimeout,
			RatePerSecond: cfg.ProviderRate,
		}))
	}
	if cfg.GroundedURL != "" {
		providers = append(providers, resolution.NewGrounded(resolution.HTTPConfig{
			BaseURL:       cfg.GroundedURL,
			APIKey:        cfg.GroundedAPIKey,
			Timeout:       cfg.ProviderTimeout,
			RatePerSecond: cfg.ProviderRate,
		}))
	}
	if len(providers) == 0 {
		log.Warn("no verification provider configured; auto-confirm bets stay LOCKED")
	}

	pipeline := resolution.NewPipeline(engine, resolution.NewRedisLocker(rdb), log, providers,
		resolution.WithMinConfidence(cfg.MinConfidence),
		resolution.WithBatchSize(cfg.ResolveBatchSize),
		resolution.WithHooks(resMetrics.Hooks()),
	)

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, func(ctx context.Context) error {
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("ledger: %w", err)
		}
		return rdb.Ping(ctx).Err()
	})
	defer func() {
		if metricsSrv != nil {
			_ = metricsSrv.Close()
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return every(gctx, cfg.SweepInterval, func(ctx context.Context) {
			rep, err := engine.SweepDeadlines(ctx)
			if err != nil {
				log.Error("deadline sweep", zap.Error(err))
				return
			}
			sweepMetrics.Observe(rep)
			if rep != (betting.SweepReport{}) {
				log.Info("deadline sweep",
					zap.Int("locked", rep.Locked),
					zap.Int("finalized", rep.Finalized),
					zap.Int("resumed", rep.Resumed),
					zap.Int("failed", rep.Failed))
			}
		})
	})
	g.Go(func() error {
		return every(gctx, cfg.ResolveInterval, func(ctx context.Context) {
			rep, err := pipeline.RunOnce(ctx)
			if err != nil {
				log.Error("auto-resolution", zap.Error(err))
				return
			}
			resMetrics.Observe(rep)
			if rep.Due > 0 {
				log.Info("auto-resolution",
					zap.Int("due", rep.Due),
					zap.Int("proposed", rep.Proposed),
					zap.Int("unavailable", rep.Unavailable),
					zap.Int("skipped", rep.Skipped),
					zap.Int("failed", rep.Failed))
			}
		})
	})

	log.Info("resolution-worker started",
		zap.Duration("sweep_interval", cfg.SweepInterval),
		zap.Duration("resolve_interval", cfg.ResolveInterval),
		zap.Int("providers", len(providers)))
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Fatal("worker stopped with error", zap.Error(err))
	}
	log.Info("resolution-worker stopped")
}

// every roda fn já na largada e depois a cada intervalo, até o contexto acabar
func every(ctx context.Context, d time.Duration, fn func(context.Context)) error {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		fn(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
