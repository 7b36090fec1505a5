package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/league-wager-engine/internal/livescore-ingest/feed"
	"github.com/radieske/league-wager-engine/internal/livescore-ingest/publisher"
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

	log.Info("Kafka brokers", zap.String("brokers", cfg.KafkaBrokers))

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Criação de tópico apenas em ambiente local ou dev
	if cfg.Env == "local" || cfg.Env == "dev" {
		broker := strings.TrimSpace(strings.Split(cfg.KafkaBrokers, ",")[0])
		if err := publisher.EnsureTopic(ctx, broker, cfg.TopicLiveScores, 1, log); err != nil {
			log.Warn("failed to ensure kafka topic", zap.String("topic", cfg.TopicLiveScores), zap.Error(err))
		}
	}

	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicLiveScores)
	defer writer.Close()

	m := metrics.NewIngest(prometheus.DefaultRegisterer)
	client := &feed.WSClient{
		URL:         cfg.LiveScoreFeedURL,
		Source:      cfg.LiveScoreFeedSource,
		Log:         log,
		Publisher:   &publisher.KafkaPublisher{Writer: writer, Log: log},
		OnReceived:  m.OnReceived,
		OnPublished: m.OnPublished,
		OnError:     m.OnError,
		OnConnected: m.OnConnected,
	}

	// Metrics e health
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, func(context.Context) error { return nil })
	defer func() {
		if metricsSrv != nil {
			_ = metricsSrv.Close()
		}
	}()

	log.Info("livescore-ingest started", zap.String("feed", cfg.LiveScoreFeedURL), zap.String("topic", cfg.TopicLiveScores))
	client.Start(ctx)
	log.Info("livescore-ingest stopped")
}
