// Package domain holds the event-sourced aggregates: the shopping cart and
// the per-product inventory. Command handlers validate against current state
// and return at most one event without mutating anything; Apply folds events
// into state and must stay total, since it also runs during replay.
package domain

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/utafrali/ShoppingGo/pkg/errors"

	"github.com/utafrali/ShoppingGo/internal/eventstore"
)

// AggregateTypeCart identifies cart event streams in the event store.
const AggregateTypeCart = "cart"

// CartStatus is the checkout lifecycle state of a cart.
type CartStatus string

const (
	StatusShopping          CartStatus = "SHOPPING"
	StatusReserving         CartStatus = "RESERVING"
	StatusWaitingForPayment CartStatus = "WAITING_FOR_PAYMENT"
)

// ValidCartStatus reports whether s is a known lifecycle status.
func ValidCartStatus(s CartStatus) bool {
	switch s {
	case StatusShopping, StatusReserving, StatusWaitingForPayment:
		return true
	}
	return false
}

// LineItem is a product entry in the cart.
type LineItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// Cart event type identifiers as stored in the event log.
const (
	EventTypeItemAdded   = "item_added"
	EventTypeItemRemoved = "item_removed"
	EventTypeStatusSet   = "status_set"
	EventTypeCartReset   = "cart_reset"
)

// CartEvent is the closed set of cart domain events.
type CartEvent interface {
	isCartEvent()
}

// ItemAdded records a quantity of a product added to the cart. Applying it to
// a cart that already holds the product accumulates the quantity.
type ItemAdded struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// ItemRemoved records the removal of a product's entire line item.
type ItemRemoved struct {
	ProductID string `json:"product_id"`
}

// StatusSet records a checkout status change.
type StatusSet struct {
	Status CartStatus `json:"status"`
}

// CartReset records the cart being emptied and returned to SHOPPING.
type CartReset struct{}

func (ItemAdded) isCartEvent()   {}
func (ItemRemoved) isCartEvent() {}
func (StatusSet) isCartEvent()   {}
func (CartReset) isCartEvent()   {}

// Cart is the per-user shopping cart aggregate. Items keep insertion order,
// which is also the order the checkout saga walks them in.
type Cart struct {
	OwnerID string     `json:"owner_id"`
	Items   []LineItem `json:"items"`
	Status  CartStatus `json:"status"`
}

// NewCart returns the initial cart state for a user: empty and SHOPPING.
// Carts are created implicitly on first command.
func NewCart(ownerID string) *Cart {
	return &Cart{OwnerID: ownerID, Status: StatusShopping}
}

func (c *Cart) itemIndex(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddItem validates the command and returns an ItemAdded event. Adding is
// allowed in any status.
func (c *Cart) AddItem(productID, name string, quantity int) (CartEvent, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product id must not be empty")
	}
	if quantity < 1 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot add %d quantity of %s", quantity, productID))
	}
	return ItemAdded{ProductID: productID, Name: name, Quantity: quantity}, nil
}

// RemoveItem returns an ItemRemoved event, or a not-found error when the
// product is not in the cart.
func (c *Cart) RemoveItem(productID string) (CartEvent, error) {
	if c.itemIndex(productID) < 0 {
		return nil, apperrors.NotFound("cart item", productID)
	}
	return ItemRemoved{ProductID: productID}, nil
}

// SetStatus returns a StatusSet event. Any known status may be set from any
// current status; the saga orchestrator owns transition ordering.
func (c *Cart) SetStatus(status CartStatus) (CartEvent, error) {
	if !ValidCartStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown cart status %q", status))
	}
	return StatusSet{Status: status}, nil
}

// Reset returns a CartReset event. Resetting an already-empty cart is valid.
func (c *Cart) Reset() (CartEvent, error) {
	return CartReset{}, nil
}

// Apply folds a cart event into state.
func (c *Cart) Apply(event CartEvent) {
	switch ev := event.(type) {
	case ItemAdded:
		if i := c.itemIndex(ev.ProductID); i >= 0 {
			c.Items[i].Quantity += ev.Quantity
			return
		}
		c.Items = append(c.Items, LineItem{ProductID: ev.ProductID, Name: ev.Name, Quantity: ev.Quantity})
	case ItemRemoved:
		if i := c.itemIndex(ev.ProductID); i >= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		}
	case StatusSet:
		c.Status = ev.Status
	case CartReset:
		c.Items = nil
		c.Status = StatusShopping
	}
}

// EncodeCartEvent serializes a cart event to its stored type name and JSON
// payload.
func EncodeCartEvent(event CartEvent) (string, []byte, error) {
	var eventType string
	switch event.(type) {
	case ItemAdded:
		eventType = EventTypeItemAdded
	case ItemRemoved:
		eventType = EventTypeItemRemoved
	case StatusSet:
		eventType = EventTypeStatusSet
	case CartReset:
		eventType = EventTypeCartReset
	default:
		return "", nil, fmt.Errorf("encode cart event: unknown type %T", event)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return "", nil, fmt.Errorf("encode cart event %s: %w", eventType, err)
	}
	return eventType, payload, nil
}

// DecodeCartEvent deserializes a stored cart event.
func DecodeCartEvent(eventType string, payload []byte) (CartEvent, error) {
	var (
		event CartEvent
		err   error
	)
	switch eventType {
	case EventTypeItemAdded:
		var ev ItemAdded
		err = json.Unmarshal(payload, &ev)
		event = ev
	case EventTypeItemRemoved:
		var ev ItemRemoved
		err = json.Unmarshal(payload, &ev)
		event = ev
	case EventTypeStatusSet:
		var ev StatusSet
		err = json.Unmarshal(payload, &ev)
		event = ev
	case EventTypeCartReset:
		var ev CartReset
		err = json.Unmarshal(payload, &ev)
		event = ev
	default:
		return nil, fmt.Errorf("decode cart event: unknown type %q", eventType)
	}
	if err != nil {
		return nil, fmt.Errorf("decode cart event %s: %w", eventType, err)
	}
	return event, nil
}

// ApplyStored decodes and applies an event from the event store.
func (c *Cart) ApplyStored(stored eventstore.Event) error {
	event, err := DecodeCartEvent(stored.EventType, stored.Payload)
	if err != nil {
		return err
	}
	c.Apply(event)
	return nil
}

// MarshalState serializes the cart for snapshotting.
func (c *Cart) MarshalState() ([]byte, error) {
	return json.Marshal(c)
}

// UnmarshalState restores the cart from a snapshot.
func (c *Cart) UnmarshalState(data []byte) error {
	return json.Unmarshal(data, c)
}
