package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/louisbranch/tabhouse/internal/tab/event"
)

// Exchange is the topic exchange tab events are published to. Routing keys
// are the event types (tab.opened, tab.items_ordered, ...), so consumers can
// bind with patterns like "tab.*".
const Exchange = "tab_events"

// AMQPConfig configures the broker connection.
type AMQPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
}

// envelope is the published message body.
type envelope struct {
	TabID     string          `json:"tab_id"`
	Seq       uint64          `json:"seq"`
	Timestamp int64           `json:"timestamp_ms"`
	Type      string          `json:"type"`
	ActorID   string          `json:"actor_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

var _ Publisher = (*AMQPPublisher)(nil)

// AMQPPublisher publishes tab events to a RabbitMQ topic exchange with
// publisher confirms, so a returned nil means the broker accepted the
// message.
type AMQPPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	acks <-chan amqp.Confirmation
	// Publish waits on the confirm channel; serialize to pair each publish
	// with its confirmation.
	mu sync.Mutex
}

// DialAMQP connects to the broker and declares the tab events exchange.
func DialAMQP(cfg AMQPConfig) (*AMQPPublisher, error) {
	if cfg.VHost == "" {
		cfg.VHost = "/"
	}
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/%s", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.VHost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	return &AMQPPublisher{conn: conn, ch: ch, acks: acks}, nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Ping reports whether the broker connection is still usable.
func (p *AMQPPublisher) Ping() error {
	if p == nil || p.conn == nil || p.conn.IsClosed() {
		return errors.New("amqp connection is closed")
	}
	return nil
}

// Publish sends evt as a persistent JSON message routed by event type and
// waits for the broker's confirmation.
func (p *AMQPPublisher) Publish(ctx context.Context, evt event.Event) error {
	body, err := json.Marshal(envelope{
		TabID:     evt.TabID,
		Seq:       evt.Seq,
		Timestamp: evt.Timestamp.UTC().UnixMilli(),
		Type:      string(evt.Type),
		ActorID:   evt.ActorID,
		Payload:   json.RawMessage(evt.PayloadJSON),
	})
	if err != nil {
		return fmt.Errorf("encode event envelope: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, Exchange, string(evt.Type), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    evt.Timestamp,
		MessageId:    fmt.Sprintf("%s:%d", evt.TabID, evt.Seq),
		Body:         body,
	}); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	select {
	case conf := <-p.acks:
		if conf.Ack {
			return nil
		}
		return errors.New("publish nack from broker")
	case <-ctx.Done():
		return ctx.Err()
	}
}
