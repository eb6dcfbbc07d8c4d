/**
 * @description
 * This package publishes ledger events to RabbitMQ. The engine emits one
 * `ledger.transaction.posted` event per committed ledger entry so downstream
 * consumers (notifications, reporting) can react without polling the ledger.
 *
 * @dependencies
 * - github.com/rabbitmq/amqp091-go: the RabbitMQ client library.
 * - github.com/google/uuid: event envelope ids.
 */
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const postedRoutingKey = "ledger.transaction.posted"

// TransactionPostedEvent is the payload published after a ledger entry commits.
// Amounts travel as decimal strings, never floats.
type TransactionPostedEvent struct {
	EventID         uuid.UUID `json:"event_id"`
	TransactionID   int64     `json:"transaction_id"`
	Type            string    `json:"type"`
	Value           string    `json:"value"`
	Date            time.Time `json:"date"`
	OriginAccount   int64     `json:"origin_account"`
	TransferAccount *int64    `json:"transfer_account,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Publisher is the interface implemented by types that can publish events.
type Publisher interface {
	PublishTransactionPosted(ctx context.Context, event TransactionPostedEvent) error
	Close()
}

// Producer holds the RabbitMQ connection and channel for publishing.
type Producer struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

// ProducerFallback is a no-op publisher used when RabbitMQ is unavailable at
// startup; the ledger keeps working, events are skipped.
type ProducerFallback struct{}

func (p *ProducerFallback) PublishTransactionPosted(ctx context.Context, event TransactionPostedEvent) error {
	log.Printf("level=warn component=events mode=fallback msg=\"event publish skipped\" transaction_id=%d", event.TransactionID)
	return nil
}

func (p *ProducerFallback) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewProducer connects to RabbitMQ and returns a Producer bound to a durable
// topic exchange.
func NewProducer(amqpURL, exchange string) (*Producer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	// Bounded dial timeout so startup does not hang on a dead broker.
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Producer{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *Producer) PublishTransactionPosted(ctx context.Context, event TransactionPostedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, postedRoutingKey, false, false, amqp091.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	})
	if err == nil {
		return nil
	}

	log.Printf("level=warn component=events msg=\"publish failed; reopening channel\" routing_key=%s err=%v", postedRoutingKey, err)
	// One-shot retry over a fresh channel.
	ch, chErr := p.conn.Channel()
	if chErr != nil {
		return err
	}
	p.channel = ch
	if exErr := p.channel.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); exErr != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, p.exchange, postedRoutingKey, false, false, amqp091.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	})
}

// Close gracefully closes the channel and connection.
func (p *Producer) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
