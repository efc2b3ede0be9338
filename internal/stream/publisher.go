// Package stream forwards work order and payment lifecycle events to Kafka
// for downstream consumers (reporting, the mobile technician app backend).
// The publisher is optional: when no brokers are configured the module is
// simply not wired.
package stream

import (
	"context"
	"encoding/json"
	"time"

	"fieldops_backend/internal/events"
	"fieldops_backend/platform/logger"

	"github.com/segmentio/kafka-go"
)

// Publisher writes lifecycle events to a single Kafka topic, keyed by work
// order ID so per-order ordering is preserved.
type Publisher struct {
	writer *kafka.Writer
	log    *logger.Logger
}

// envelope is the wire shape of a forwarded event.
type envelope struct {
	Event      string          `json:"event"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// NewPublisher creates a Kafka publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string, log *logger.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		log: log,
	}
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Handle implements events.Handler: it serializes the event and writes it to
// the topic. Failures are returned to the bus, which logs them; the state
// transition that produced the event has already committed.
func (p *Publisher) Handle(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	env, err := json.Marshal(envelope{
		Event:      event.EventName(),
		OccurredAt: event.OccurredAt(),
		Payload:    payload,
	})
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(messageKey(event)),
		Value: env,
		Time:  time.Now(),
	})
}

// messageKey picks the partitioning key for an event. Everything in the
// dispatch domain hangs off a work order where one exists.
func messageKey(event events.Event) string {
	switch e := event.(type) {
	case events.WorkOrderAssigned:
		return e.WorkOrderID.String()
	case events.WorkOrderReassigned:
		return e.WorkOrderID.String()
	case events.WorkOrderRescheduled:
		return e.WorkOrderID.String()
	case events.WorkOrderStarted:
		return e.WorkOrderID.String()
	case events.WorkOrderCompleted:
		return e.WorkOrderID.String()
	case events.WorkOrderCancelled:
		return e.WorkOrderID.String()
	case events.PaymentProofUploaded:
		return e.WorkOrderID.String()
	case events.PaymentVerified:
		return e.WorkOrderID.String()
	case events.PaymentRejected:
		return e.WorkOrderID.String()
	case events.CommissionPaidOut:
		return e.WorkOrderID.String()
	case events.TechnicianBlocked:
		return e.TechnicianID.String()
	case events.TechnicianUnblocked:
		return e.TechnicianID.String()
	default:
		return event.EventName()
	}
}

// forwardedEvents lists every event name the publisher subscribes to.
var forwardedEvents = []string{
	events.WorkOrderAssigned{}.EventName(),
	events.WorkOrderReassigned{}.EventName(),
	events.WorkOrderRescheduled{}.EventName(),
	events.WorkOrderStarted{}.EventName(),
	events.WorkOrderCompleted{}.EventName(),
	events.WorkOrderCancelled{}.EventName(),
	events.PaymentProofUploaded{}.EventName(),
	events.PaymentVerified{}.EventName(),
	events.PaymentRejected{}.EventName(),
	events.CommissionPaidOut{}.EventName(),
	events.TechnicianBlocked{}.EventName(),
	events.TechnicianUnblocked{}.EventName(),
}

// Register subscribes the publisher to all lifecycle events on the bus.
func (p *Publisher) Register(bus *events.InMemoryBus) {
	for _, name := range forwardedEvents {
		bus.Subscribe(name, p)
	}
	p.log.Info("kafka lifecycle stream enabled", "topic", p.writer.Topic)
}
