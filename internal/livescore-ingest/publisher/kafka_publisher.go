package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/league-wager-engine/pkg/contracts/events"
)

// MessageWriter é o lado de escrita do Kafka (*kafka.Writer)
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher publica os placares no tópico live_scores
type KafkaPublisher struct {
	Writer MessageWriter
	Log    *zap.Logger
}

// Publish serializa o placar e usa o EventID como chave: atualizações do mesmo jogo
// ficam na mesma partição e chegam em ordem ao processor.
func (p *KafkaPublisher) Publish(ctx context.Context, e events.LiveScoreUpdate) error {
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(e.EventID),
		Value: value,
		Time:  time.Now(),
	}
	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish live score %s: %w", e.EventID, err)
	}

	p.Log.Debug("published live score", zap.String("event_id", e.EventID), zap.Int("home", e.HomeScore), zap.Int("away", e.AwayScore))
	return nil
}

// EnsureTopic cria o tópico pelo controller do cluster (uso em local/dev, single-broker).
// Tópico já existente não é erro.
func EnsureTopic(ctx context.Context, broker, topic string, partitions int, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("dial kafka: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("kafka controller: %w", err)
	}
	cconn, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer cconn.Close()

	err = cconn.CreateTopics(kafka.TopicConfig{Topic: topic, NumPartitions: partitions, ReplicationFactor: 1})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if err == nil {
		log.Info("kafka topic created", zap.String("topic", topic))
	}
	return nil
}
