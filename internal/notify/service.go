// Package notify keeps the Redis read cache honest when several API
// instances write orders: it tails the order topics, dedups by event id and
// refreshes or drops the affected cache entries.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Syed00000/order-Management/internal/kafka"
	"github.com/Syed00000/order-Management/internal/orders"
	"github.com/Syed00000/order-Management/internal/redisx"
)

type Service struct {
	Redis       *redis.Client
	Log         *zap.Logger
	ServiceName string
}

// HandleEvent is wired as the consumer handler for all three order topics.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message; log and commit rather than block the partition
		s.Log.Warn("undecodable event", zap.Error(err))
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	orderKey := fmt.Sprintf(redisx.KeyOrder, env.CorrelationID)

	switch env.EventType {
	case orders.EventOrderCreated, orders.EventOrderStatusChanged, orders.EventOrderDeleted:
		// the cached document is stale either way; drop it and let the
		// next read repopulate
		if err := s.Redis.Del(ctx, orderKey, redisx.KeyDashboard).Err(); err != nil {
			return err
		}
	default:
		s.Log.Debug("ignoring event", zap.String("type", env.EventType))
		return nil
	}

	fields := []zap.Field{
		zap.String("event", env.EventType),
		zap.String("order_id", env.CorrelationID),
	}
	if env.EventType == orders.EventOrderDeleted {
		if p, err := kafka.UnwrapPayload[orders.OrderDeletedPayload](env.Payload); err == nil {
			fields = append(fields, zap.String("order_number", p.OrderNumber))
		}
	}
	s.Log.Info("cache invalidated", fields...)
	return nil
}
