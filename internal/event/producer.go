// Package event publishes integration events to Kafka after domain commands
// commit. Publishing is best-effort: a broker outage is logged and never
// fails the command that already succeeded.
package event

import (
	"context"
	"log/slog"

	"github.com/utafrali/ShoppingGo/pkg/kafka"
	"github.com/utafrali/ShoppingGo/pkg/logger"

	"github.com/utafrali/ShoppingGo/internal/domain"
)

// Kafka topics for the shopping integration events.
const (
	TopicCartUpdated         = "cart.updated"
	TopicCartReset           = "cart.reset"
	TopicInventoryChanged    = "inventory.changed"
	TopicInventoryReserved   = "inventory.reserved"
	TopicReservationReleased = "inventory.released"
	TopicProductBought       = "inventory.bought"
)

const source = "shopping"

// Publisher is the transport the producer writes to, satisfied by
// kafka.Producer and by in-memory fakes in tests.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// CartUpdatedPayload carries the full cart state after a mutation.
type CartUpdatedPayload struct {
	OwnerID string            `json:"owner_id"`
	Items   []domain.LineItem `json:"items"`
	Status  domain.CartStatus `json:"status"`
}

// CartResetPayload signals a cart emptied after checkout.
type CartResetPayload struct {
	OwnerID string `json:"owner_id"`
}

// InventoryChangedPayload carries a stock level change.
type InventoryChangedPayload struct {
	ProductID string `json:"product_id"`
	Delta     int    `json:"delta"`
	Available int    `json:"available"`
}

// ReservationPayload carries reservation lifecycle changes.
type ReservationPayload struct {
	ProductID   string `json:"product_id"`
	RequesterID string `json:"requester_id"`
	Quantity    int    `json:"quantity,omitempty"`
}

// Producer publishes the service's integration events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates an integration event producer.
func NewProducer(publisher Publisher, log *slog.Logger) *Producer {
	return &Producer{publisher: publisher, logger: log}
}

func (p *Producer) publish(ctx context.Context, topic, eventType, aggregateID, aggregateType string, payload any) {
	ev, err := kafka.NewEvent(eventType, aggregateID, aggregateType, source, payload)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build integration event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		ev.WithCorrelationID(correlationID)
	}

	if err := p.publisher.Publish(ctx, topic, ev); err != nil {
		// Already logged with topic context by the publisher. The domain
		// command committed, so the failure must not propagate.
		return
	}
}

// CartUpdated publishes the cart's state after items or status changed.
func (p *Producer) CartUpdated(ctx context.Context, ownerID string, items []domain.LineItem, status domain.CartStatus) {
	p.publish(ctx, TopicCartUpdated, "cart.updated", ownerID, domain.AggregateTypeCart,
		CartUpdatedPayload{OwnerID: ownerID, Items: items, Status: status})
}

// CartReset publishes that a cart was emptied.
func (p *Producer) CartReset(ctx context.Context, ownerID string) {
	p.publish(ctx, TopicCartReset, "cart.reset", ownerID, domain.AggregateTypeCart,
		CartResetPayload{OwnerID: ownerID})
}

// InventoryChanged publishes a stock level change.
func (p *Producer) InventoryChanged(ctx context.Context, productID string, delta, available int) {
	p.publish(ctx, TopicInventoryChanged, "inventory.changed", productID, domain.AggregateTypeInventory,
		InventoryChangedPayload{ProductID: productID, Delta: delta, Available: available})
}

// InventoryReserved publishes a new reservation.
func (p *Producer) InventoryReserved(ctx context.Context, productID, requesterID string, quantity int) {
	p.publish(ctx, TopicInventoryReserved, "inventory.reserved", productID, domain.AggregateTypeInventory,
		ReservationPayload{ProductID: productID, RequesterID: requesterID, Quantity: quantity})
}

// ReservationReleased publishes a cancelled reservation.
func (p *Producer) ReservationReleased(ctx context.Context, productID, requesterID string) {
	p.publish(ctx, TopicReservationReleased, "inventory.released", productID, domain.AggregateTypeInventory,
		ReservationPayload{ProductID: productID, RequesterID: requesterID})
}

// ProductBought publishes a reservation consumed by purchase.
func (p *Producer) ProductBought(ctx context.Context, productID, requesterID string, quantity int) {
	p.publish(ctx, TopicProductBought, "inventory.bought", productID, domain.AggregateTypeInventory,
		ReservationPayload{ProductID: productID, RequesterID: requesterID, Quantity: quantity})
}
