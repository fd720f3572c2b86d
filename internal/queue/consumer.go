package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer reads booking.events and writes one line per event to the
// booking log.
type Consumer struct {
	url     string
	log     *zap.Logger // process log
	journal *zap.Logger // booking log
}

// NewConsumer returns a consumer. journal is usually a file logger on
// logs/booking.log.
func NewConsumer(url string, log, journal *zap.Logger) *Consumer {
	if url == "" {
		url = DefaultURL
	}
	return &Consumer{url: url, log: log.Named("consumer"), journal: journal}
}

// Run connects to the broker and consumes until ctx is done, reconnecting
// with backoff when the connection drops. Malformed messages are rejected
// without requeue.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set qos failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(d.Body); err != nil {
				c.log.Warn("handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one message body and writes it to the booking log.
func (c *Consumer) Handle(body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	fields := []zap.Field{
		zap.String("type", ev.Type),
		zap.Uint64("company_id", ev.CompanyID),
		zap.Time("occurred_at", ev.OccurredAt),
	}
	if ev.BookingID != 0 {
		fields = append(fields, zap.Uint64("booking_id", ev.BookingID), zap.Uint64("user_id", ev.UserID))
	}
	if ev.BookDate != nil {
		fields = append(fields, zap.Time("book_date", *ev.BookDate))
	}
	if ev.Type == CompanyDeleted {
		fields = append(fields, zap.Int64("removed", ev.Removed))
	}
	c.journal.Info(describe(ev.Type), fields...)
	return nil
}

func describe(t string) string {
	switch t {
	case BookingCreated:
		return "Booking created"
	case BookingUpdated:
		return "Booking updated"
	case BookingDeleted:
		return "Booking deleted"
	case CompanyDeleted:
		return "Company deleted"
	}
	return t
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
