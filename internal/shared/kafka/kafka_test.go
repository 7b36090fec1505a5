package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, brokers(" a:9092, b:9092 ,"))
	assert.Empty(t, brokers(""))
}

func TestNewWriter(t *testing.T) {
	w := NewWriter("a:9092,b:9092", "bet_events")
	assert.Equal(t, "bet_events", w.Topic)
	assert.NotNil(t, w.Addr)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}
