package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/pkg/contracts/events"
)

// RedisCache guarda o placar ao vivo mais recente de cada evento
// Client: cliente Redis
// TTL: tempo de expiração dos registros
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisCache cria uma instância de cache Redis com TTL configurável
func NewRedisCache(c *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: c, TTL: ttl}
}

// key gera a chave Redis do placar atual de um evento
func key(eventID string) string { return "livescore:current:" + eventID }

// SetCurrent armazena o placar atual do evento com TTL
func (r *RedisCache) SetCurrent(ctx context.Context, e events.LiveScoreUpdate) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key(e.EventID), b, r.TTL).Err()
}

// GetCurrent lê o placar atual; ok=false quando não há registro (expirado ou nunca visto)
func (r *RedisCache) GetCurrent(ctx context.Context, eventID string) (events.LiveScoreUpdate, bool, error) {
	var e events.LiveScoreUpdate
	b, err := r.Client.Get(ctx, key(eventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return e, false, nil
	}
	if err != nil {
		return e, false, err
	}
	if err := json.Unmarshal(b, &e); err != nil {
		return e, false, err
	}
	return e, true, nil
}

// Score adapta o cache para a projeção ao vivo
func (r *RedisCache) Score(ctx context.Context, eventRef string) (domain.MatchScore, bool, error) {
	e, ok, err := r.GetCurrent(ctx, eventRef)
	if err != nil || !ok {
		return domain.MatchScore{}, false, err
	}
	return domain.MatchScore{Home: e.HomeScore, Away: e.AwayScore}, true, nil
}
