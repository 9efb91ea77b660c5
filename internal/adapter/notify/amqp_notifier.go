package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rl1809/dinepilot/internal/port"
)

const ExchangeName = "order_notifications"

type notificationMsg struct {
	OrderID      string    `json:"order_id"`
	Status       string    `json:"status"`
	CustomerName string    `json:"customer_name"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
}

// AMQPNotifier publishes notifications to a fanout exchange without
// publisher confirms.
type AMQPNotifier struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string

	mu sync.Mutex // serializes publishes on the shared channel
}

func DialAMQP(url string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare %s: %w", ExchangeName, err)
	}

	return &AMQPNotifier{conn: conn, ch: ch, exchange: ExchangeName}, nil
}

func (a *AMQPNotifier) Publish(ctx context.Context, n port.Notification) error {
	if a.conn == nil || a.conn.IsClosed() {
		return errors.New("amqp connection is closed")
	}

	body, err := encodeNotification(n, time.Now().UTC())
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.ch.PublishWithContext(ctx, a.exchange, "", false, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		CorrelationId: n.OrderID,
		Timestamp:     time.Now().UTC(),
		Headers:       amqp.Table{"x-source": "order-store"},
		Body:          body,
	})
}

func (a *AMQPNotifier) Close() {
	if a.ch != nil {
		_ = a.ch.Close()
	}
	if a.conn != nil {
		_ = a.conn.Close()
	}
}

func encodeNotification(n port.Notification, at time.Time) ([]byte, error) {
	return json.Marshal(notificationMsg{
		OrderID:      n.OrderID,
		Status:       string(n.Status),
		CustomerName: n.CustomerName,
		Message:      Message(n),
		Timestamp:    at,
	})
}
