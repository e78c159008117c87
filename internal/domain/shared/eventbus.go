package shared

import "context"

// EventHandler consumes ledger events. The milestone evaluator and the
// balance cache invalidator are the main implementations.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the event types this handler wants. An empty
	// slice subscribes the handler to everything.
	EventTypes() []string
}

// EventPublisher hands events to the bus for fan-out.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber manages the handler registry.
type EventSubscriber interface {
	// Subscribe registers a handler for the given event types, or for
	// all events when none are named.
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is the in-process fan-out layer between the outbox
// processor and the handlers.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OutboxEventSaver stages domain events in the outbox table inside the
// caller's open transaction, so a ledger write and its events commit
// or roll back as one.
type OutboxEventSaver interface {
	// SaveEvents persists events through txProvider, which must be the
	// *gorm.DB transaction the ledger rows are being written on.
	SaveEvents(ctx context.Context, txProvider interface{}, events ...DomainEvent) error
}
