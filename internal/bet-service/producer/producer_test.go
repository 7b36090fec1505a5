package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/league-wager-engine/internal/betting"
	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/pkg/contracts/events"
)

type memWriter struct{ msgs []kafka.Message }

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

var resolved = domain.Event{
	Type:     domain.EventBetResolved,
	BetID:    "b1",
	LeagueID: "L1",
	From:     domain.StatusProofing,
	To:       domain.StatusResolved,
	Detail:   map[string]string{"wagers": "2"},
	At:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &memWriter{}
	require.NoError(t, NewKafkaPublisher(w).Publish(context.Background(), resolved))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "b1", string(w.msgs[0].Key))

	var got events.BetEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "bet_resolved", got.Type)
	assert.Equal(t, "PROOFING", got.From)
	assert.Equal(t, "RESOLVED", got.To)
	assert.Equal(t, "2", got.Detail["wagers"])
	assert.True(t, resolved.At.Equal(got.Ts))
}

func TestFanout_ContinuesAfterFailure(t *testing.T) {
	var delivered int
	boom := errors.New("broker down")
	f := Fanout{
		betting.PublisherFunc(func(context.Context, domain.Event) error { return boom }),
		nil,
		betting.PublisherFunc(func(context.Context, domain.Event) error { delivered++; return nil }),
	}
	err := f.Publish(context.Background(), resolved)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, delivered)
}
