package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/league-wager-engine/internal/domain"
	"github.com/radieske/league-wager-engine/pkg/contracts/events"
)

// MessageWriter é o lado de escrita do Kafka (*kafka.Writer)
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher publica as transições no tópico bet_events, com a bet como chave
// para manter a ordem por bet dentro da partição
type KafkaPublisher struct {
	Writer MessageWriter
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev domain.Event) error {
	b, err := json.Marshal(ToContract(ev))
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.BetID), Value: b, Time: time.Now()})
}

// ToContract converte o evento de domínio para o formato publicado
func ToContract(ev domain.Event) events.BetEvent {
	return events.BetEvent{
		Type:     string(ev.Type),
		BetID:    ev.BetID,
		LeagueID: ev.LeagueID,
		MemberID: ev.MemberID,
		From:     string(ev.From),
		To:       string(ev.To),
		Detail:   ev.Detail,
		Ts:       ev.At,
	}
}
