package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/worldlineout/accessories-api/internal/kafka"
	"github.com/worldlineout/accessories-api/internal/orders"
	"github.com/worldlineout/accessories-api/internal/redisx"
)

// OrderMarker is the single write this consumer performs.
type OrderMarker interface {
	MarkWhatsAppSent(ctx context.Context, id string) error
}

// Service consumes order.paid events and hands each paid order off to the
// shop's WhatsApp number.
type Service struct {
	Orders         OrderMarker
	Redis          *redis.Client
	WhatsAppNumber string
	ServiceName    string
	Log            *zap.Logger
}

// HandleOrderPaid is wired as the Kafka consumer handler.
func (s *Service) HandleOrderPaid(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderPaid {
		return nil
	}

	// dedup by event id; gateway retries and consumer rebalances both
	// redeliver
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderPaidPayload](env.Payload)
	if err != nil {
		return err
	}

	msg := Message(p.Items, p.TotalAmount, p.Customer)
	link := DeepLink(s.WhatsAppNumber, msg)
	s.Log.Info("order notification ready",
		zap.String("order_id", p.OrderID),
		zap.String("order_number", p.OrderNumber),
		zap.String("whatsapp_link", link))

	if err := s.Orders.MarkWhatsAppSent(ctx, p.OrderID); err != nil {
		return err
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	return nil
}
