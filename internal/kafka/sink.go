package kafka

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Syed00000/order-Management/internal/orders"
)

// Sink adapts the order service's event interface onto one async producer
// per topic, the same fan-out the order topics use on the wire.
type Sink struct {
	producers map[string]*Producer
}

func NewSink(brokers []string, topics []string, buf int, log *zap.Logger) *Sink {
	s := &Sink{producers: make(map[string]*Producer, len(topics))}
	for _, t := range topics {
		s.producers[t] = NewProducer(brokers, t, buf, log)
	}
	return s
}

func (s *Sink) Start(ctx context.Context) {
	for _, p := range s.producers {
		p.Start(ctx)
	}
}

func (s *Sink) Emit(topic string, env orders.Envelope) {
	p, ok := s.producers[topic]
	if !ok {
		return
	}
	p.Publish(orders.PartitionKey(env.CorrelationID), MustMarshal(env),
		kafka.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	)
}

func (s *Sink) Close() {
	for _, p := range s.producers {
		p.Close()
	}
}

func (s *Sink) WaitClosed() {
	for _, p := range s.producers {
		p.WaitClosed()
	}
}
