package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/event"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Metadata keys attached to every relayed message.
const (
	MetaSessionID  = "session_id"
	MetaRoutingKey = "routing_key"
	MetaKind       = "kind"
)

// EventDispatcher forwards exportable domain events to the bus.
// Handlers stay agnostic of the transport behind it.
type EventDispatcher interface {
	Publish(ctx context.Context, ev event.Eventer) error
	Close() error
}

type eventDispatcher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewEventDispatcher(pub message.Publisher, logger *slog.Logger) EventDispatcher {
	return &eventDispatcher{
		publisher: pub,
		logger:    logger.With(slog.String("component", "relay")),
	}
}

func (d *eventDispatcher) Publish(ctx context.Context, ev event.Eventer) error {
	if ev == nil {
		return fmt.Errorf("event dispatcher: cannot publish nil event")
	}

	// [EXPORT_FILTER] Only events that know their bus topic leave the process
	exp, ok := ev.(event.Exportable)
	if !ok {
		return nil
	}
	topic := exp.GetRoutingKey()
	if topic == "" {
		return fmt.Errorf("event dispatcher: empty routing key for %s", ev.GetKind())
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("event dispatcher: marshal failure: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(MetaSessionID, ev.GetSessionID().String())
	msg.Metadata.Set(MetaRoutingKey, topic)
	msg.Metadata.Set(MetaKind, ev.GetKind().String())

	d.logger.Debug("RELAY_PUBLISH", "topic", topic, "event_id", ev.GetID())
	if err := d.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("event dispatcher: failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

func (d *eventDispatcher) Close() error {
	return d.publisher.Close()
}

// nopDispatcher is used when the relay is disabled.
type nopDispatcher struct{}

func NewNopDispatcher() EventDispatcher { return nopDispatcher{} }

func (nopDispatcher) Publish(context.Context, event.Eventer) error { return nil }
func (nopDispatcher) Close() error                                 { return nil }
