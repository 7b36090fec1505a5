package producer

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/league-wager-engine/internal/domain"
)

// RedisBroadcaster repassa os eventos para o canal Pub/Sub lido pelos hubs WebSocket
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, ev domain.Event) error {
	payload, err := json.Marshal(ToContract(ev))
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}
