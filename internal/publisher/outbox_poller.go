package publisher

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/onemedi/onemedi-api/internal/repository"
)

// EventWriter is the slice of kafka.Writer the poller needs.
type EventWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// OutboxPoller drains the checkout outbox into Kafka and sweeps expired
// sessions. Events are keyed by checkout id so everything about one checkout
// lands on the same partition in order.
type OutboxPoller struct {
	eventTick  time.Duration
	expiryTick time.Duration
	batchSize  int
	repo       repository.CheckoutRepository
	writer     EventWriter
	now        func() time.Time
}

func NewOutboxPoller(repo repository.CheckoutRepository, topic string, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		eventTick:  time.Second,
		expiryTick: 15 * time.Second,
		batchSize:  100,
		repo:       repo,
		writer:     w,
		now:        time.Now,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	expiryTicker := time.NewTicker(p.expiryTick)
	defer eventTicker.Stop()
	defer expiryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.publishPendingEvents(ctx)
		case <-expiryTicker.C:
			p.expireStaleSessions(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) publishPendingEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		log.Printf("failed to fetch outbox events: %v", err)
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			log.Printf("failed to publish event id=%d: %v", event.ID, err)
			continue
		}
		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			log.Printf("failed to mark event id=%d as processed: %v", event.ID, err)
		}
	}
}

// expireStaleSessions flips sessions past their deadline to EXPIRED. The
// repository emits one checkout.expired outbox row per flipped session, which
// the event tick then publishes like any other event.
func (p *OutboxPoller) expireStaleSessions(ctx context.Context) {
	expired, err := p.repo.ExpireStaleSessions(ctx, p.now())
	if err != nil {
		log.Printf("failed to expire stale sessions: %v", err)
		return
	}
	for _, session := range expired {
		log.Printf("checkout session %s expired", session.ID)
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // checkout_id for ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
