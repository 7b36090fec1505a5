package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/league-wager-engine/internal/ledger"
	"github.com/radieske/league-wager-engine/internal/livescore-processor/cache"
	"github.com/radieske/league-wager-engine/internal/livescore-processor/consumer"
	sharedcache "github.com/radieske/league-wager-engine/internal/shared/cache"
	"github.com/radieske/league-wager-engine/internal/shared/config"
	"github.com/radieske/league-wager-engine/internal/shared/kafka"
	"github.com/radieske/league-wager-engine/internal/shared/logger"
	"github.com/radieske/league-wager-engine/internal/shared/metrics"
)

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

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Inicializa dependências: ledger e Redis
	store, err := ledger.Open(ctx, ledger.Dialect(cfg.LedgerDriver), cfg.LedgerDSN())
	if err != nil {
		log.Fatal("ledger connect", zap.Error(err))
	}
	defer store.Close()

	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Placar corrente expira se o feed parar; a projeção cai no snapshot gravado na bet
	rcache := cache.NewRedisCache(redisClient, 10*time.Minute)

	// Configura o consumer Kafka (consumer group livescore-processor)
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicLiveScores, "livescore-processor")
	defer reader.Close()
	dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicLiveScoresDLQ)
	defer dlq.Close()

	m := metrics.NewLiveScore(prometheus.DefaultRegisterer)

	proc := &consumer.Processor{
		Log:        log,
		Reader:     reader,
		Store:      store,
		Cache:      rcache,
		DLQ:        dlq,
		OnConsumed: m.OnConsumed,
		OnCached:   m.OnCached,
		OnPersist:  m.OnPersist,
		OnError:    m.OnError,
	}

	// Servidor HTTP para métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, func(ctx context.Context) error {
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("ledger: %w", err)
		}
		return redisClient.Ping(ctx).Err()
	})
	defer func() {
		if metricsSrv != nil {
			_ = metricsSrv.Close()
		}
	}()

	log.Info("livescore-processor started", zap.String("topic", cfg.TopicLiveScores))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("livescore-processor stopped")
}
