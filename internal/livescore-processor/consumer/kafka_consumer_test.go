package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/internal/ledger/ledgertest"
	"github.com/radieske/league-wager-engine/pkg/contracts/events"
)

type sliceReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

func (r *sliceReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string]events.LiveScoreUpdate
	err  error
}

func (c *memCache) SetCurrent(_ context.Context, e events.LiveScoreUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.data[e.EventID] = e
	return nil
}

type memDLQ struct{ msgs []kafka.Message }

func (d *memDLQ) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	d.msgs = append(d.msgs, msgs...)
	return nil
}

func message(t *testing.T, ev events.LiveScoreUpdate) kafka.Message {
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(ev.EventID), Value: b}
}

func TestProcessor_RunAppliesScores(t *testing.T) {
	clock := ledgertest.NewClock(ledgertest.Epoch)
	store := ledgertest.NewStore(t, clock)
	ledgertest.SeedLeague(t, store, "L1", domain.DefaultSettings(), ledgertest.MemberSeed{ID: "owner", Balance: 10})

	live := ledgertest.MatchBet("m1", "L1", "owner", clock.Now())
	live.Status = domain.StatusLocked
	ledgertest.SeedBet(t, store, live)
	done := ledgertest.MatchBet("m2", "L1", "owner", clock.Now())
	done.EventRef = live.EventRef
	done.Status = domain.StatusResolved
	ledgertest.SeedBet(t, store, done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := &memCache{data: map[string]events.LiveScoreUpdate{}}
	dlq := &memDLQ{}
	var persisted int64
	p := &Processor{
		Log:   zaptest.NewLogger(t),
		Store: store,
		Cache: cache,
		DLQ:   dlq,
		Reader: &sliceReader{cancel: cancel, msgs: []kafka.Message{
			message(t, events.LiveScoreUpdate{EventID: live.EventRef, HomeScore: 1, AwayScore: 0, Status: "LIVE"}),
			{Value: []byte("not json")},
			message(t, events.LiveScoreUpdate{EventID: live.EventRef, HomeScore: 2, AwayScore: 1, Status: "LIVE"}),
		}},
		OnPersist: func(n int64) { persisted += n },
	}

	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	b, err := store.GetBet(context.Background(), live.ID)
	require.NoError(t, err)
	require.NotNil(t, b.LiveScore)
	assert.Equal(t, domain.MatchScore{Home: 2, Away: 1}, *b.LiveScore)
	assert.Equal(t, int64(1), b.Version, "live score does not bump the bet version")

	b, err = store.GetBet(context.Background(), done.ID)
	require.NoError(t, err)
	assert.Nil(t, b.LiveScore)

	assert.Equal(t, 2, cache.data[live.EventRef].HomeScore)
	assert.Len(t, dlq.msgs, 1)
	assert.Equal(t, int64(2), persisted)
}

func TestProcessor_CacheFailureStillPersists(t *testing.T) {
	clock := ledgertest.NewClock(ledgertest.Epoch)
	store := ledgertest.NewStore(t, clock)
	ledgertest.SeedLeague(t, store, "L1", domain.DefaultSettings(), ledgertest.MemberSeed{ID: "owner", Balance: 10})
	bet := ledgertest.SeedBet(t, store, ledgertest.MatchBet("m1", "L1", "owner", clock.Now()))

	var stages []string
	p := &Processor{
		Log:     zaptest.NewLogger(t),
		Store:   store,
		Cache:   &memCache{data: map[string]events.LiveScoreUpdate{}, err: errors.New("redis down")},
		OnError: func(s string) { stages = append(stages, s) },
	}
	p.Handle(context.Background(), message(t, events.LiveScoreUpdate{EventID: bet.EventRef, HomeScore: 0, AwayScore: 2}))
	p.Handle(context.Background(), message(t, events.LiveScoreUpdate{EventID: bet.EventRef, HomeScore: -1, AwayScore: 2}))

	got, err := store.GetBet(context.Background(), bet.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LiveScore)
	assert.Equal(t, domain.MatchScore{Home: 0, Away: 2}, *got.LiveScore)
	assert.Equal(t, []string{"cache", "decode"}, stages)
}
