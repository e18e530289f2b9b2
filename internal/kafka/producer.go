package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingCancelled = "booking_cancelled"
)

// BookingEvent is published after a booking batch commits or a booking is
// cancelled.
type BookingEvent struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	UserID     int64       `json:"user_id"`
	Date       string      `json:"date"`
	Items      []EventItem `json:"items"`
	OccurredAt time.Time   `json:"occurred_at"`
}

type EventItem struct {
	BookingID int64  `json:"booking_id"`
	Kind      string `json:"type"`
	ItemID    int64  `json:"item_id"`
	Slot      string `json:"time_slot,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
	Status    string `json:"status"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	brokers []string
	writer  messageWriter
	retries int
	backoff time.Duration
	logger  *slog.Logger
}

type ProducerOption func(*Producer)

func WithRetries(n int) ProducerOption {
	return func(p *Producer) {
		if n > 0 {
			p.retries = n
		}
	}
}

func WithProducerLogger(l *slog.Logger) ProducerOption {
	return func(p *Producer) {
		p.logger = l
	}
}

func NewProducer(brokers []string, opts ...ProducerOption) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	p := &Producer{
		brokers: brokers,
		writer:  writer,
		retries: 1,
		backoff: 500 * time.Millisecond,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish writes payload as JSON to topic, retrying with a linear backoff.
func (p *Producer) Publish(ctx context.Context, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	var lastErr error
	for i := 0; i < p.retries; i++ {
		if lastErr = p.writer.WriteMessages(ctx, message); lastErr == nil {
			p.logger.DebugContext(ctx, "published event", "topic", topic, "key", key)
			return nil
		}
		p.logger.WarnContext(ctx, "publish attempt failed", "topic", topic, "attempt", i+1, "error", lastErr)

		if i < p.retries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i+1) * p.backoff):
			}
		}
	}
	return fmt.Errorf("failed to write message to Kafka after %d attempts: %w", p.retries, lastErr)
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker and reads its partitions.
func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}
	p.logger.InfoContext(ctx, "connected to kafka", "partitions", len(partitions))
	return nil
}
