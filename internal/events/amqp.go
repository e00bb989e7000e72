// Package events publishes agent activities to RabbitMQ so clients can follow
// a parse in real time.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jonathan/resume-enhancer/internal/types"
)

// DefaultExchange is the topic exchange activity updates are published to
const DefaultExchange = "resume_activity"

// channel is the subset of *amqp.Channel used for publishing
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Update is the message body published for each activity
type Update struct {
	SessionID string              `json:"sessionId"`
	Activity  types.AgentActivity `json:"activity"`
}

// Publisher sends activity updates to a topic exchange, one routing key per session
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
}

// Dial connects to RabbitMQ and declares the topic exchange
func Dial(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func newPublisher(ch channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

// RoutingKey returns the routing key for a session
func RoutingKey(sessionID string) string {
	return fmt.Sprintf("session.%s", sessionID)
}

// Publish sends one update
func (p *Publisher) Publish(ctx context.Context, sessionID string, activity types.AgentActivity) error {
	body, err := json.Marshal(Update{SessionID: sessionID, Activity: activity})
	if err != nil {
		return fmt.Errorf("failed to marshal activity: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(sessionID), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		MessageId:    activity.ID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish activity %s: %w", activity.ID, err)
	}
	return nil
}

// Session returns an agent.ActivitySink bound to one session
func (p *Publisher) Session(sessionID string) *SessionSink {
	return &SessionSink{publisher: p, sessionID: sessionID}
}

// Close closes the channel and connection
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.ch != nil {
		firstErr = p.ch.Close()
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SessionSink publishes the activities of one parse session
type SessionSink struct {
	publisher *Publisher
	sessionID string
}

// Publish implements agent.ActivitySink
func (s *SessionSink) Publish(ctx context.Context, activity types.AgentActivity) error {
	return s.publisher.Publish(ctx, s.sessionID, activity)
}
