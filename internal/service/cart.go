// Package service implements the application services over the aggregate
// runtime: cart and inventory command facades plus the stateless checkout
// saga orchestrator.
package service

import (
	"context"
	"log/slog"

	"github.com/utafrali/ShoppingGo/internal/domain"
	"github.com/utafrali/ShoppingGo/internal/event"
	"github.com/utafrali/ShoppingGo/internal/runtime"
)

// CartView is a read model of one cart, safe to hand out across goroutines.
type CartView struct {
	OwnerID string            `json:"owner_id"`
	Items   []domain.LineItem `json:"items"`
	Status  domain.CartStatus `json:"status"`
}

// CartService executes cart commands through the aggregate runtime and
// publishes integration events after they commit.
type CartService struct {
	carts  *runtime.Manager[*domain.Cart]
	events *event.Producer
	logger *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(carts *runtime.Manager[*domain.Cart], events *event.Producer, logger *slog.Logger) *CartService {
	return &CartService{carts: carts, events: events, logger: logger}
}

func cartChange(ev domain.CartEvent, err error) (*runtime.Change, error) {
	if err != nil {
		return nil, err
	}
	eventType, payload, err := domain.EncodeCartEvent(ev)
	if err != nil {
		return nil, err
	}
	return &runtime.Change{EventType: eventType, Payload: payload}, nil
}

// AddItem adds a quantity of a product to the user's cart, accumulating onto
// an existing line item for the same product.
func (s *CartService) AddItem(ctx context.Context, ownerID, productID, name string, quantity int) error {
	err := s.carts.Execute(ctx, ownerID, func(cart *domain.Cart) (*runtime.Change, error) {
		return cartChange(cart.AddItem(productID, name, quantity))
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("owner_id", ownerID),
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)
	s.publishUpdated(ctx, ownerID)
	return nil
}

// RemoveItem removes a product's entire line item from the user's cart.
func (s *CartService) RemoveItem(ctx context.Context, ownerID, productID string) error {
	err := s.carts.Execute(ctx, ownerID, func(cart *domain.Cart) (*runtime.Change, error) {
		return cartChange(cart.RemoveItem(productID))
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("owner_id", ownerID),
		slog.String("product_id", productID),
	)
	s.publishUpdated(ctx, ownerID)
	return nil
}

// SetStatus overwrites the cart's checkout status.
func (s *CartService) SetStatus(ctx context.Context, ownerID string, status domain.CartStatus) error {
	err := s.carts.Execute(ctx, ownerID, func(cart *domain.Cart) (*runtime.Change, error) {
		return cartChange(cart.SetStatus(status))
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "cart status set",
		slog.String("owner_id", ownerID),
		slog.String("status", string(status)),
	)
	s.publishUpdated(ctx, ownerID)
	return nil
}

// Reset empties the user's cart and returns it to SHOPPING.
func (s *CartService) Reset(ctx context.Context, ownerID string) error {
	err := s.carts.Execute(ctx, ownerID, func(cart *domain.Cart) (*runtime.Change, error) {
		return cartChange(cart.Reset())
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "cart reset", slog.String("owner_id", ownerID))
	s.events.CartReset(ctx, ownerID)
	return nil
}

// Get returns the cart's current items and status. Unknown users see an
// empty SHOPPING cart, since carts are created implicitly.
func (s *CartService) Get(ctx context.Context, ownerID string) (*CartView, error) {
	view := &CartView{OwnerID: ownerID}
	err := s.carts.View(ctx, ownerID, func(cart *domain.Cart) error {
		view.Items = append([]domain.LineItem(nil), cart.Items...)
		view.Status = cart.Status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *CartService) publishUpdated(ctx context.Context, ownerID string) {
	view, err := s.Get(ctx, ownerID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read cart for integration event",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.events.CartUpdated(ctx, ownerID, view.Items, view.Status)
}
