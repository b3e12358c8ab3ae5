package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ikkim/udonggeum-storefront/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher emits checkout events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishCartCheckedOut(ctx context.Context, ev CartCheckedOut) error
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitPublisher struct {
	ch       channel
	exchange string
}

// NewRabbitPublisher opens a channel on conn and declares the events exchange
func NewRabbitPublisher(conn *amqp.Connection, exchange string) (*RabbitPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareExchange(ch, exchange); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare %s: %w", exchange, err)
	}
	return &RabbitPublisher{ch: ch, exchange: exchange}, nil
}

func (p *RabbitPublisher) Close() error {
	return p.ch.Close()
}

func (p *RabbitPublisher) PublishCartCheckedOut(ctx context.Context, ev CartCheckedOut) error {
	ev.EventType = "CartCheckedOut"
	ev.Source = serviceName
	if ev.Currency == "" {
		ev.Currency = "KRW"
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal CartCheckedOut: %w", err)
	}
	return p.publishJSON(ctx, CartCheckedOutRoutingKey, body)
}

func (p *RabbitPublisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

// LogPublisher only logs events. Used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) PublishCartCheckedOut(ctx context.Context, ev CartCheckedOut) error {
	logger.FromContext(ctx).Info("Cart checked out (no broker configured)", map[string]interface{}{
		"order_id":        ev.OrderID,
		"cart_session_id": ev.CartSessionID,
		"total_amount":    ev.TotalAmount,
	})
	return nil
}
