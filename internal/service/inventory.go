package service

import (
	"context"
	"log/slog"

	"github.com/utafrali/ShoppingGo/internal/domain"
	"github.com/utafrali/ShoppingGo/internal/event"
	"github.com/utafrali/ShoppingGo/internal/runtime"
)

// InventoryService executes per-product stock commands through the aggregate
// runtime and publishes integration events after they commit.
type InventoryService struct {
	inventory *runtime.Manager[*domain.Inventory]
	events    *event.Producer
	logger    *slog.Logger
}

// NewInventoryService creates a new inventory service.
func NewInventoryService(inventory *runtime.Manager[*domain.Inventory], events *event.Producer, logger *slog.Logger) *InventoryService {
	return &InventoryService{inventory: inventory, events: events, logger: logger}
}

func inventoryChange(ev domain.InventoryEvent, err error) (*runtime.Change, error) {
	if err != nil {
		return nil, err
	}
	eventType, payload, err := domain.EncodeInventoryEvent(ev)
	if err != nil {
		return nil, err
	}
	return &runtime.Change{EventType: eventType, Payload: payload}, nil
}

// AddQuantity restocks the product.
func (s *InventoryService) AddQuantity(ctx context.Context, productID string, quantity int) error {
	var available int
	err := s.inventory.Execute(ctx, productID, func(inv *domain.Inventory) (*runtime.Change, error) {
		available = inv.Available + quantity
		return inventoryChange(inv.AddQuantity(quantity))
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "inventory restocked",
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)
	s.events.InventoryChanged(ctx, productID, quantity, available)
	return nil
}

// RemoveQuantity removes available stock from the product. Reserved stock is
// not touched.
func (s *InventoryService) RemoveQuantity(ctx context.Context, productID string, quantity int) error {
	var available int
	err := s.inventory.Execute(ctx, productID, func(inv *domain.Inventory) (*runtime.Change, error) {
		available = inv.Available - quantity
		return inventoryChange(inv.RemoveQuantity(quantity))
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "inventory reduced",
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)
	s.events.InventoryChanged(ctx, productID, -quantity, available)
	return nil
}

// Reserve holds a quantity of the product for the requester.
func (s *InventoryService) Reserve(ctx context.Context, productID, requesterID string, quantity int) error {
	err := s.inventory.Execute(ctx, productID, func(inv *domain.Inventory) (*runtime.Change, error) {
		return inventoryChange(inv.Reserve(requesterID, quantity))
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "inventory reserved",
		slog.String("product_id", productID),
		slog.String("requester_id", requesterID),
		slog.Int("quantity", quantity),
	)
	s.events.InventoryReserved(ctx, productID, requesterID, quantity)
	return nil
}

// CancelReservation releases the requester's reservation back to available
// stock.
func (s *InventoryService) CancelReservation(ctx context.Context, productID, requesterID string) error {
	err := s.inventory.Execute(ctx, productID, func(inv *domain.Inventory) (*runtime.Change, error) {
		return inventoryChange(inv.CancelReservation(requesterID))
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "reservation cancelled",
		slog.String("product_id", productID),
		slog.String("requester_id", requesterID),
	)
	s.events.ReservationReleased(ctx, productID, requesterID)
	return nil
}

// Buy consumes the requester's reservation; the stock leaves the system.
func (s *InventoryService) Buy(ctx context.Context, productID, requesterID string) error {
	var quantity int
	err := s.inventory.Execute(ctx, productID, func(inv *domain.Inventory) (*runtime.Change, error) {
		quantity = inv.Reserved[requesterID]
		return inventoryChange(inv.Buy(requesterID))
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "reservation bought",
		slog.String("product_id", productID),
		slog.String("requester_id", requesterID),
		slog.Int("quantity", quantity),
	)
	s.events.ProductBought(ctx, productID, requesterID, quantity)
	return nil
}

// GetAvailable returns the product's freely reservable quantity. Unknown
// products report zero.
func (s *InventoryService) GetAvailable(ctx context.Context, productID string) (int, error) {
	var available int
	err := s.inventory.View(ctx, productID, func(inv *domain.Inventory) error {
		available = inv.Available
		return nil
	})
	if err != nil {
		return 0, err
	}
	return available, nil
}
