package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/tmblog/mpro/internal/logger"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	maxDialRetries = 5
	exchangeKind   = "topic"
)

// Channel is the part of an AMQP channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Broker hands out a live channel, reconnecting when needed.
type Broker interface {
	Channel() Channel
	IsClosed() bool
	Reconnect() error
	Close() error
}

// Connection wraps a RabbitMQ connection with reconnection logic.
type Connection struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	url      string
	exchange string
}

// Dial connects to url and declares the ticket exchange.
func Dial(url, exchange string) (*Connection, error) {
	c := &Connection{url: url, exchange: exchange}
	if err := c.connect(); err != nil {
		return nil, fmt.Errorf("failed to establish initial connection: %w", err)
	}
	return c, nil
}

func (c *Connection) connect() error {
	log := logger.L().With(zap.String("component", "amqp"), zap.String("exchange", c.exchange))

	var err error
	for i := 0; i < maxDialRetries; i++ {
		if err = c.open(); err == nil {
			log.Info("connected to broker")
			return nil
		}

		if i < maxDialRetries-1 {
			wait := time.Duration(i+1) * 2 * time.Second
			log.Warn("broker connection failed, retrying",
				zap.Duration("wait", wait),
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			time.Sleep(wait)
		}
	}
	return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxDialRetries, err)
}

func (c *Connection) open() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	if err := ch.ExchangeDeclare(c.exchange, exchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare %s exchange: %w", c.exchange, err)
	}
	c.conn, c.channel = conn, ch
	return nil
}

func (c *Connection) Channel() Channel {
	return c.channel
}

func (c *Connection) IsClosed() bool {
	return c.conn == nil || c.conn.IsClosed()
}

func (c *Connection) Reconnect() error {
	c.Close()
	return c.connect()
}

func (c *Connection) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
