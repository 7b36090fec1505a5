package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/league-wager-engine/internal/ledger"
	lscache "github.com/radieske/league-wager-engine/internal/livescore-processor/cache"
	"github.com/radieske/league-wager-engine/internal/projection"
	sharedcache "github.com/radieske/league-wager-engine/internal/shared/cache"
	"github.com/radieske/league-wager-engine/internal/shared/config"
	"github.com/radieske/league-wager-engine/internal/shared/logger"
)

// standings imprime a classificação liquidada e a projetada de uma liga
func main() {
	leagueID := flag.String("league", "", "league id")
	live := flag.Bool("live", true, "read live scores from Redis (falls back to the stored snapshot)")
	watch := flag.Duration("watch", 0, "refresh interval, 0 prints once")
	flag.Parse()

	if *leagueID == "" {
		fmt.Fprintln(os.Stderr, "usage: standings -league <id> [-live=false] [-watch 30s]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "standings"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	store, err := ledger.Open(ctx, ledger.Dialect(cfg.LedgerDriver), cfg.LedgerDSN())
	if err != nil {
		log.Fatal("ledger", zap.Error(err))
	}
	defer store.Close()

	var scores projection.LiveScores
	if *live {
		rdb, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warn("redis unavailable, using stored snapshots", zap.Error(err))
		} else {
			defer rdb.Close()
			scores = lscache.NewRedisCache(rdb, 0)
		}
	}
	projector := projection.NewProjector(store, scores, log)

	for {
		p, err := projector.Project(ctx, *leagueID)
		if err != nil {
			log.Fatal("projection", zap.String("league_id", *leagueID), zap.Error(err))
		}
		if err := projection.Render(os.Stdout, p); err != nil {
			log.Fatal("render", zap.Error(err))
		}
		if *watch <= 0 {
			return
		}
		time.Sleep(*watch)
	}
}
