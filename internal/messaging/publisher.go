package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tmblog/mpro/internal/kitchen"
	"github.com/tmblog/mpro/internal/logger"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publishTimeout = 10 * time.Second

// Publisher sends kitchen tickets to the ticket exchange.
type Publisher struct {
	broker   Broker
	exchange string
}

func NewPublisher(b Broker, exchange string) *Publisher {
	return &Publisher{broker: b, exchange: exchange}
}

// RoutingKey is "kitchen.<order type>", e.g. "kitchen.dine".
func RoutingKey(t kitchen.Ticket) string {
	return "kitchen." + string(t.OrderType)
}

// PublishTicket publishes t as persistent JSON.
func (p *Publisher) PublishTicket(ctx context.Context, t kitchen.Ticket) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "messaging"),
		zap.String("exchange", p.exchange),
		zap.Int64("cart_id", t.CartID),
		zap.String("ticket_id", t.ID.String()),
	)

	if p.broker.IsClosed() {
		if err := p.broker.Reconnect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket: %w", err)
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		MessageId:    t.ID.String(),
		Timestamp:    time.Now(),
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	key := RoutingKey(t)
	if err := p.broker.Channel().PublishWithContext(ctx, p.exchange, key, false, false, msg); err != nil {
		log.Error("failed to publish ticket", zap.String("routing_key", key), zap.Error(err))
		return fmt.Errorf("failed to publish ticket: %w", err)
	}

	log.Debug("ticket published", zap.String("routing_key", key), zap.Int("size", len(body)))
	return nil
}

func (p *Publisher) Close() error {
	return p.broker.Close()
}
