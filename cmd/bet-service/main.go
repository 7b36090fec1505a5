package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	bhttp "github.com/radieske/league-wager-engine/internal/bet-service/http"
	"github.com/radieske/league-wager-engine/internal/bet-service/producer"
	"github.com/radieske/league-wager-engine/internal/bet-service/ws"
	"github.com/radieske/league-wager-engine/internal/betting"
	"github.com/radieske/league-wager-engine/internal/ledger"
	lscache "github.com/radieske/league-wager-engine/internal/livescore-processor/cache"
	"github.com/radieske/league-wager-engine/internal/projection"
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

	// Ledger
	store, err := ledger.Open(ctx, ledger.Dialect(cfg.LedgerDriver), cfg.LedgerDSN())
	if err != nil {
		log.Fatal("ledger", zap.Error(err))
	}
	defer store.Close()

	// Redis
	rdb, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writer (topic bet_events)
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetEvents)
	defer writer.Close()

	// deps
	publ := producer.Fanout{
		producer.NewKafkaPublisher(writer),
		producer.NewRedisBroadcaster(rdb, cfg.RedisEventsChannel),
	}
	engineMetrics := metrics.NewEngine(prometheus.DefaultRegisterer)
	httpMetrics := metrics.NewHTTP(prometheus.DefaultRegisterer)
	engine := betting.NewEngine(store, log,
		betting.WithPublisher(publ),
		betting.WithHooks(engineMetrics.Hooks()),
		betting.WithSettleChunkSize(cfg.SettleChunkSize),
	)
	projector := projection.NewProjector(store, lscache.NewRedisCache(rdb, 0), log)

	// WebSocket: eventos chegam pelo Redis Pub/Sub, então qualquer instância atende qualquer cliente
	hub := ws.NewHub(func(r *http.Request) bool {
		return slices.Contains(cfg.AllowedOrigins, "*") || slices.Contains(cfg.AllowedOrigins, r.Header.Get("Origin"))
	})
	ws.StartRedisSubscriber(ctx, rdb, cfg.RedisEventsChannel, hub, log)

	settings, err := cfg.LeagueDefaults.Settings()
	if err != nil {
		log.Fatal("league defaults", zap.Error(err))
	}

	// HTTP público
	api := &bhttp.API{
		Log:             log,
		Engine:          engine,
		Projector:       projector,
		WS:              hub.HandleWS,
		LeagueDefaults:  settings,
		StartingCapital: cfg.LeagueDefaults.StartingCapital,
		AllowedOrigins:  cfg.AllowedOrigins,
		Ping:            store.Ping,
		OnRequest:       httpMetrics.Observe,
	}
	apiSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// metrics/health
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log, func(ctx context.Context) error {
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("ledger: %w", err)
		}
		return rdb.Ping(ctx).Err()
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("bet-service listening", zap.String("addr", apiSrv.Addr), zap.String("ledger", cfg.LedgerDriver))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return apiSrv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatal("api", zap.Error(err))
	}
	log.Info("bet-service stopped")
}
