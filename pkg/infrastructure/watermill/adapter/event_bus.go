package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mateusmacedo/go-busbooking/pkg/application"
	"github.com/mateusmacedo/go-busbooking/pkg/domain"
)

const eventNameMetadataKey = "event_name"

// EventFactory rebuilds a typed event from the topic name and decoded payload on the consumer side.
type EventFactory[E domain.Event[D], D any] func(eventName string, payload D) E

// EventBus publishes events through any watermill Publisher and delivers them to local
// handlers through the matching Subscriber. One topic per event name.
type EventBus[E domain.Event[D], D any] struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	factory    EventFactory[E, D]
	logger     application.AppLogger

	mu         sync.RWMutex
	handlers   map[string][]application.EventHandler[E, D]
	subscribed map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEventBus[E domain.Event[D], D any](
	publisher message.Publisher,
	subscriber message.Subscriber,
	factory EventFactory[E, D],
	logger application.AppLogger,
) *EventBus[E, D] {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBus[E, D]{
		publisher:  publisher,
		subscriber: subscriber,
		factory:    factory,
		logger:     logger,
		handlers:   make(map[string][]application.EventHandler[E, D]),
		subscribed: make(map[string]bool),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// RegisterHandler adds a handler and subscribes to the topic on first registration.
func (bus *EventBus[E, D]) RegisterHandler(eventName string, handler application.EventHandler[E, D]) {
	bus.mu.Lock()
	bus.handlers[eventName] = append(bus.handlers[eventName], handler)
	first := !bus.subscribed[eventName]
	bus.subscribed[eventName] = true
	bus.mu.Unlock()

	if !first {
		return
	}

	messages, err := bus.subscriber.Subscribe(bus.ctx, eventName)
	if err != nil {
		application.LogError(bus.ctx, bus.logger, "error subscribing to event", err, map[string]interface{}{
			"event_name": eventName,
		})
		bus.mu.Lock()
		bus.subscribed[eventName] = false
		bus.mu.Unlock()
		return
	}

	bus.wg.Add(1)
	go func() {
		defer bus.wg.Done()
		for msg := range messages {
			bus.consume(eventName, msg)
		}
	}()
}

func (bus *EventBus[E, D]) consume(eventName string, msg *message.Message) {
	ctx := bus.ctx
	if requestID := msg.Metadata.Get(string(application.RequestIDKey)); requestID != "" {
		ctx = application.WithRequestID(ctx, requestID)
	}

	var payload D
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		application.LogError(ctx, bus.logger, "error unmarshalling event payload", err, map[string]interface{}{
			"event_name": eventName,
			"message_id": msg.UUID,
		})
		// a payload that cannot be decoded will never succeed; drop it
		msg.Ack()
		return
	}

	event := bus.factory(eventName, payload)

	bus.mu.RLock()
	handlers := append([]application.EventHandler[E, D](nil), bus.handlers[eventName]...)
	bus.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			application.LogError(ctx, bus.logger, "error handling event", err, map[string]interface{}{
				"event_name": eventName,
				"message_id": msg.UUID,
			})
			msg.Nack()
			return
		}
	}

	application.LogDebug(ctx, bus.logger, "event handled", map[string]interface{}{
		"event_name": eventName,
		"message_id": msg.UUID,
	})
	msg.Ack()
}

// Publish returns once the broker accepted the message. Handlers run asynchronously.
func (bus *EventBus[E, D]) Publish(ctx context.Context, event E) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	eventName := event.EventName()
	payload, err := application.MarshalPayload(event.Payload())
	if err != nil {
		application.LogError(ctx, bus.logger, "error marshalling event payload", err, map[string]interface{}{
			"event_name": eventName,
		})
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(eventNameMetadataKey, eventName)
	if requestID, ok := application.RequestID(ctx); ok {
		msg.Metadata.Set(string(application.RequestIDKey), requestID)
	}

	if err := bus.publisher.Publish(eventName, msg); err != nil {
		application.LogError(ctx, bus.logger, "error publishing event", err, map[string]interface{}{
			"event_name": eventName,
		})
		return err
	}

	application.LogDebug(ctx, bus.logger, "event published", map[string]interface{}{
		"event_name": eventName,
		"message_id": msg.UUID,
	})
	return nil
}

// Close stops consuming and closes both ends of the transport.
func (bus *EventBus[E, D]) Close() error {
	bus.cancel()
	errs := []error{bus.publisher.Close(), bus.subscriber.Close()}
	bus.wg.Wait()
	return errors.Join(errs...)
}
