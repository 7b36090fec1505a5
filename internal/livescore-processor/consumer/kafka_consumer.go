package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/pkg/contracts/events"
)

// MessageReader é o lado de leitura do Kafka (*kafka.Reader)
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// MessageWriter é usado para a DLQ (*kafka.Writer)
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// ScoreCache guarda o placar corrente por evento
type ScoreCache interface {
	SetCurrent(ctx context.Context, e events.LiveScoreUpdate) error
}

// ScoreStore grava o snapshot nas bets do evento (ledger.Store)
type ScoreStore interface {
	UpdateLiveScore(ctx context.Context, eventRef string, score domain.MatchScore) (int64, error)
}

// Processor consome placares ao vivo do Kafka, faz cache e grava o snapshot nas bets.
// Nunca toca saldos nem apostas.
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa
type Processor struct {
	Log    *zap.Logger
	Reader MessageReader
	Store  ScoreStore
	Cache  ScoreCache
	DLQ    MessageWriter // opcional

	OnConsumed func()           // métricas (counter++)
	OnCached   func()           // métricas
	OnPersist  func(bets int64) // métricas
	OnError    func(string)     // métricas por fase
}

// Run inicia o loop principal de consumo e processamento das mensagens Kafka
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			select {
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		p.Handle(ctx, m)
	}
}

// Handle processa uma mensagem; falhas são logadas e não param o consumo
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	var ev events.LiveScoreUpdate
	if err := json.Unmarshal(m.Value, &ev); err != nil || ev.EventID == "" {
		if err == nil {
			err = errors.New("missing event_id")
		}
		p.Log.Warn("invalid message", zap.Error(err))
		p.fail("decode")
		p.deadLetter(ctx, m)
		return
	}
	if ev.HomeScore < 0 || ev.AwayScore < 0 {
		p.Log.Warn("negative score", zap.String("event_id", ev.EventID))
		p.fail("decode")
		p.deadLetter(ctx, m)
		return
	}

	// cache primeiro; falha no cache não bloqueia a persistência
	if err := p.Cache.SetCurrent(ctx, ev); err != nil {
		p.Log.Warn("redis set failed", zap.Error(err))
		p.fail("cache")
	} else if p.OnCached != nil {
		p.OnCached()
	}

	n, err := p.Store.UpdateLiveScore(ctx, ev.EventID, domain.MatchScore{Home: ev.HomeScore, Away: ev.AwayScore})
	if err != nil {
		p.Log.Warn("db live score update failed", zap.String("event_id", ev.EventID), zap.Error(err))
		p.fail("db_update")
		return
	}
	p.Log.Debug("live score applied", zap.String("event_id", ev.EventID), zap.Int64("bets", n))
	if p.OnPersist != nil {
		p.OnPersist(n)
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message) {
	if p.DLQ == nil {
		return
	}
	if err := p.DLQ.WriteMessages(ctx, kafka.Message{Key: m.Key, Value: m.Value, Time: time.Now()}); err != nil {
		p.Log.Warn("dlq write failed", zap.Error(err))
	}
}
