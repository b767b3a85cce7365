package domain

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/utafrali/ShoppingGo/pkg/errors"

	"github.com/utafrali/ShoppingGo/internal/eventstore"
)

// AggregateTypeInventory identifies inventory event streams in the event store.
const AggregateTypeInventory = "inventory"

// Inventory event type identifiers as stored in the event log.
const (
	EventTypeQuantityChanged      = "quantity_changed"
	EventTypeProductReserved      = "product_reserved"
	EventTypeReservationCancelled = "reservation_cancelled"
	EventTypeProductBought        = "product_bought"
)

// InventoryEvent is the closed set of inventory domain events.
type InventoryEvent interface {
	isInventoryEvent()
}

// QuantityChanged records a change to the available quantity. Delta is
// positive for restocking and negative for manual removal.
type QuantityChanged struct {
	Delta int `json:"delta"`
}

// ProductReserved records quantity moved from available to a requester's
// reservation.
type ProductReserved struct {
	RequesterID string `json:"requester_id"`
	Quantity    int    `json:"quantity"`
}

// ReservationCancelled records a reservation released back to available.
type ReservationCancelled struct {
	RequesterID string `json:"requester_id"`
}

// ProductBought records a reservation consumed by purchase. The reserved
// quantity leaves the system and is not returned to available.
type ProductBought struct {
	RequesterID string `json:"requester_id"`
}

func (QuantityChanged) isInventoryEvent()      {}
func (ProductReserved) isInventoryEvent()      {}
func (ReservationCancelled) isInventoryEvent() {}
func (ProductBought) isInventoryEvent()        {}

// Inventory is the per-product stock aggregate. Available is stock free to
// reserve; Reserved maps requester id to the quantity held for them. At most
// one reservation per requester exists at a time.
type Inventory struct {
	ProductID string         `json:"product_id"`
	Available int            `json:"available"`
	Reserved  map[string]int `json:"reserved"`
}

// NewInventory returns the initial inventory state for a product: zero stock,
// no reservations. Inventory streams are created implicitly on first command.
func NewInventory(productID string) *Inventory {
	return &Inventory{ProductID: productID, Reserved: make(map[string]int)}
}

// AddQuantity validates restocking and returns a positive QuantityChanged.
func (inv *Inventory) AddQuantity(quantity int) (InventoryEvent, error) {
	if quantity < 1 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot add %d quantity of %s", quantity, inv.ProductID))
	}
	return QuantityChanged{Delta: quantity}, nil
}

// RemoveQuantity validates manual stock removal and returns a negative
// QuantityChanged. Reserved stock cannot be removed this way.
func (inv *Inventory) RemoveQuantity(quantity int) (InventoryEvent, error) {
	if quantity < 1 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot remove %d quantity of %s", quantity, inv.ProductID))
	}
	if quantity > inv.Available {
		return nil, apperrors.InvalidInput(fmt.Sprintf(
			"cannot remove %d of %s: only %d available", quantity, inv.ProductID, inv.Available))
	}
	return QuantityChanged{Delta: -quantity}, nil
}

// Reserve holds quantity for the requester. It fails when the quantity is
// not positive, exceeds available stock, or the requester already holds a
// reservation for this product.
func (inv *Inventory) Reserve(requesterID string, quantity int) (InventoryEvent, error) {
	if requesterID == "" {
		return nil, apperrors.InvalidInput("requester id must not be empty")
	}
	if quantity < 1 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot reserve %d quantity of %s", quantity, inv.ProductID))
	}
	if quantity > inv.Available {
		return nil, apperrors.InvalidInput(fmt.Sprintf(
			"cannot reserve %d of %s: only %d available", quantity, inv.ProductID, inv.Available))
	}
	if _, exists := inv.Reserved[requesterID]; exists {
		return nil, apperrors.Conflict(fmt.Sprintf(
			"%s already has a reservation for %s", requesterID, inv.ProductID))
	}
	return ProductReserved{RequesterID: requesterID, Quantity: quantity}, nil
}

// CancelReservation releases the requester's reservation back to available
// stock. It fails when no reservation exists.
func (inv *Inventory) CancelReservation(requesterID string) (InventoryEvent, error) {
	if _, exists := inv.Reserved[requesterID]; !exists {
		return nil, apperrors.NotFound("reservation", requesterID)
	}
	return ReservationCancelled{RequesterID: requesterID}, nil
}

// Buy consumes the requester's reservation. The quantity is gone for good,
// not returned to available. It fails when no reservation exists.
func (inv *Inventory) Buy(requesterID string) (InventoryEvent, error) {
	if _, exists := inv.Reserved[requesterID]; !exists {
		return nil, apperrors.NotFound("reservation", requesterID)
	}
	return ProductBought{RequesterID: requesterID}, nil
}

// Apply folds an inventory event into state.
func (inv *Inventory) Apply(event InventoryEvent) {
	if inv.Reserved == nil {
		inv.Reserved = make(map[string]int)
	}
	switch ev := event.(type) {
	case QuantityChanged:
		inv.Available += ev.Delta
	case ProductReserved:
		inv.Available -= ev.Quantity
		inv.Reserved[ev.RequesterID] = ev.Quantity
	case ReservationCancelled:
		if quantity, exists := inv.Reserved[ev.RequesterID]; exists {
			inv.Available += quantity
			delete(inv.Reserved, ev.RequesterID)
		}
	case ProductBought:
		delete(inv.Reserved, ev.RequesterID)
	}
}

// EncodeInventoryEvent serializes an inventory event to its stored type name
// and JSON payload.
func EncodeInventoryEvent(event InventoryEvent) (string, []byte, error) {
	var eventType string
	switch event.(type) {
	case QuantityChanged:
		eventType = EventTypeQuantityChanged
	case ProductReserved:
		eventType = EventTypeProductReserved
	case ReservationCancelled:
		eventType = EventTypeReservationCancelled
	case ProductBought:
		eventType = EventTypeProductBought
	default:
		return "", nil, fmt.Errorf("encode inventory event: unknown type %T", event)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return "", nil, fmt.Errorf("encode inventory event %s: %w", eventType, err)
	}
	return eventType, payload, nil
}

// DecodeInventoryEvent deserializes a stored inventory event.
func DecodeInventoryEvent(eventType string, payload []byte) (InventoryEvent, error) {
	var (
		event InventoryEvent
		err   error
	)
	switch eventType {
	case EventTypeQuantityChanged:
		var ev QuantityChanged
		err = json.Unmarshal(payload, &ev)
		event = ev
	case EventTypeProductReserved:
		var ev ProductReserved
		err = json.Unmarshal(payload, &ev)
		event = ev
	case EventTypeReservationCancelled:
		var ev ReservationCancelled
		err = json.Unmarshal(payload, &ev)
		event = ev
	case EventTypeProductBought:
		var ev ProductBought
		err = json.Unmarshal(payload, &ev)
		event = ev
	default:
		return nil, fmt.Errorf("decode inventory event: unknown type %q", eventType)
	}
	if err != nil {
		return nil, fmt.Errorf("decode inventory event %s: %w", eventType, err)
	}
	return event, nil
}

// ApplyStored decodes and applies an event from the event store.
func (inv *Inventory) ApplyStored(stored eventstore.Event) error {
	event, err := DecodeInventoryEvent(stored.EventType, stored.Payload)
	if err != nil {
		return err
	}
	inv.Apply(event)
	return nil
}

// MarshalState serializes the inventory for snapshotting.
func (inv *Inventory) MarshalState() ([]byte, error) {
	return json.Marshal(inv)
}

// UnmarshalState restores the inventory from a snapshot.
func (inv *Inventory) UnmarshalState(data []byte) error {
	if err := json.Unmarshal(data, inv); err != nil {
		return err
	}
	if inv.Reserved == nil {
		inv.Reserved = make(map[string]int)
	}
	return nil
}
