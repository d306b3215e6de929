package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/onemedi/onemedi-api/internal/domain"
	"github.com/onemedi/onemedi-api/internal/repository"
)

type orderConfirmedEvent struct {
	OrderID     string `json:"order_id"`
	CheckoutID  string `json:"checkout_id"`
	UserID      string `json:"user_id"`
	TotalAmount int64  `json:"total_amount"`
}

type checkoutExpiredEvent struct {
	CheckoutID string `json:"checkout_id"`
	UserID     string `json:"user_id"`
}

// messageReader is the slice of kafka.Reader the consumer needs.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer turns checkout events into user notifications. The notification
// table's (kind, ref_id) uniqueness makes redelivered messages a no-op.
type Consumer struct {
	repo   repository.NotificationRepository
	reader messageReader
}

func NewConsumer(repo repository.NotificationRepository, topic, groupID string, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{repo, reader}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		log.Printf("error closing kafka reader: %v", err)
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("error reading message: %v", err)
		return
	}

	eventType := headerValue(m, "event_type")

	var notification *domain.Notification
	switch eventType {
	case "order.confirmed":
		notification, err = c.orderConfirmed(m.Value)
	case "checkout.expired":
		notification, err = c.checkoutExpired(m.Value)
	default:
		log.Printf("skipping unknown event type %q", eventType)
		return
	}
	if err != nil {
		log.Printf("error parsing %s event: %v", eventType, err)
		return
	}

	if err := c.repo.CreateNotification(ctx, notification); err != nil {
		if errors.Is(err, repository.ErrDuplicateNotification) {
			return
		}
		log.Printf("failed to record %s notification for %s: %v", eventType, notification.RefID, err)
		return
	}

	log.Printf("notification %s recorded for user %s", notification.Kind, notification.UserID)
}

func (c *Consumer) orderConfirmed(payload []byte) (*domain.Notification, error) {
	var event orderConfirmedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	if event.OrderID == "" || event.UserID == "" {
		return nil, fmt.Errorf("incomplete order.confirmed payload: %q", payload)
	}

	return &domain.Notification{
		ID:      uuid.NewString(),
		UserID:  event.UserID,
		Kind:    domain.NotificationOrderConfirmed,
		RefID:   event.OrderID,
		Message: fmt.Sprintf("Your order has been confirmed. Total: Rs %.2f", float64(event.TotalAmount)/100),
	}, nil
}

func (c *Consumer) checkoutExpired(payload []byte) (*domain.Notification, error) {
	var event checkoutExpiredEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	if event.CheckoutID == "" || event.UserID == "" {
		return nil, fmt.Errorf("incomplete checkout.expired payload: %q", payload)
	}

	return &domain.Notification{
		ID:      uuid.NewString(),
		UserID:  event.UserID,
		Kind:    domain.NotificationCheckoutExpired,
		RefID:   event.CheckoutID,
		Message: "Your checkout session expired. Your cart is still waiting for you.",
	}, nil
}

func headerValue(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
