package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/utafrali/ShoppingGo/pkg/errors"

	"github.com/utafrali/ShoppingGo/internal/domain"
)

// CartStore is the cart surface the orchestrator drives.
type CartStore interface {
	Get(ctx context.Context, ownerID string) (*CartView, error)
	SetStatus(ctx context.Context, ownerID string, status domain.CartStatus) error
	Reset(ctx context.Context, ownerID string) error
}

// InventoryStore is the inventory surface the orchestrator drives.
type InventoryStore interface {
	GetAvailable(ctx context.Context, productID string) (int, error)
	Reserve(ctx context.Context, productID, requesterID string, quantity int) error
	CancelReservation(ctx context.Context, productID, requesterID string) error
	Buy(ctx context.Context, productID, requesterID string) error
}

// ConsolidatedItem is one cart line joined with the product's live
// availability.
type ConsolidatedItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Available int    `json:"available"`
}

// ConsolidatedCart is the cart plus availability view returned to shoppers
// before checkout.
type ConsolidatedCart struct {
	UserID string             `json:"user_id"`
	Status domain.CartStatus  `json:"status"`
	Items  []ConsolidatedItem `json:"items"`
}

// ShoppingService orchestrates the checkout saga across the cart and
// inventory aggregates. It holds no state of its own: every run starts from
// the cart's current contents, so a crashed checkout can simply be retried.
type ShoppingService struct {
	carts     CartStore
	inventory InventoryStore
	logger    *slog.Logger
}

// NewShoppingService creates a new checkout orchestrator.
func NewShoppingService(carts CartStore, inventory InventoryStore, logger *slog.Logger) *ShoppingService {
	return &ShoppingService{carts: carts, inventory: inventory, logger: logger}
}

// GetConsolidatedCart returns the user's cart with each line item joined
// with its product's current availability. Availability lookups fan out
// concurrently; one per product.
func (s *ShoppingService) GetConsolidatedCart(ctx context.Context, userID string) (*ConsolidatedCart, error) {
	view, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart for %s: %w", userID, err)
	}

	items := make([]ConsolidatedItem, len(view.Items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range view.Items {
		i, item := i, item
		g.Go(func() error {
			available, err := s.inventory.GetAvailable(gctx, item.ProductID)
			if err != nil {
				return fmt.Errorf("get availability of %s: %w", item.ProductID, err)
			}
			items[i] = ConsolidatedItem{
				ProductID: item.ProductID,
				Name:      item.Name,
				Quantity:  item.Quantity,
				Available: available,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ConsolidatedCart{UserID: userID, Status: view.Status, Items: items}, nil
}

// ReserveCartItems runs the reservation saga: move the cart to RESERVING,
// reserve every line item in cart order, then move to WAITING_FOR_PAYMENT.
// When any reservation fails, already-made reservations are released, the
// cart returns to SHOPPING, and the root cause is surfaced as a saga abort.
func (s *ShoppingService) ReserveCartItems(ctx context.Context, userID string) error {
	view, err := s.carts.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("get cart for %s: %w", userID, err)
	}
	if view.Status != domain.StatusShopping {
		return apperrors.InvalidState(fmt.Sprintf(
			"cannot reserve cart of %s in status %s", userID, view.Status))
	}

	if err := s.carts.SetStatus(ctx, userID, domain.StatusReserving); err != nil {
		return fmt.Errorf("set cart %s status to %s: %w", userID, domain.StatusReserving, err)
	}

	reserved := make([]string, 0, len(view.Items))
	for _, item := range view.Items {
		if err := s.inventory.Reserve(ctx, item.ProductID, userID, item.Quantity); err != nil {
			s.logger.WarnContext(ctx, "reservation failed, compensating",
				slog.String("user_id", userID),
				slog.String("product_id", item.ProductID),
				slog.Int("reserved_so_far", len(reserved)),
				slog.String("error", err.Error()),
			)
			s.compensateReservations(ctx, userID, reserved)
			return apperrors.SagaAborted(fmt.Errorf("reserve %d of %s: %w", item.Quantity, item.ProductID, err))
		}
		reserved = append(reserved, item.ProductID)
	}

	if err := s.carts.SetStatus(ctx, userID, domain.StatusWaitingForPayment); err != nil {
		s.compensateReservations(ctx, userID, reserved)
		return apperrors.SagaAborted(fmt.Errorf("set cart %s status to %s: %w", userID, domain.StatusWaitingForPayment, err))
	}

	s.logger.InfoContext(ctx, "cart items reserved",
		slog.String("user_id", userID),
		slog.Int("items", len(reserved)),
	)
	return nil
}

// compensateReservations releases the reservations made so far, newest first,
// and returns the cart to SHOPPING. Each step is best-effort: a failed
// release is logged and the rest still run, since an orphaned reservation is
// recoverable by hand while a stuck saga is not.
func (s *ShoppingService) compensateReservations(ctx context.Context, userID string, productIDs []string) {
	for i := len(productIDs) - 1; i >= 0; i-- {
		productID := productIDs[i]
		if err := s.inventory.CancelReservation(ctx, productID, userID); err != nil {
			s.logger.ErrorContext(ctx, "compensation failed to release reservation",
				slog.String("user_id", userID),
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.carts.SetStatus(ctx, userID, domain.StatusShopping); err != nil {
		s.logger.ErrorContext(ctx, "compensation failed to restore cart status",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// ConfirmOrder finalizes a reserved checkout: every reservation is bought
// and the cart is emptied. A buy failure aborts mid-way without
// compensation; already-bought reservations stay bought and the cart keeps
// its status, so the operation can be retried once the cause clears.
func (s *ShoppingService) ConfirmOrder(ctx context.Context, userID string) error {
	view, err := s.carts.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("get cart for %s: %w", userID, err)
	}
	if view.Status != domain.StatusWaitingForPayment {
		return apperrors.InvalidState(fmt.Sprintf(
			"cannot confirm order of %s in status %s", userID, view.Status))
	}

	for _, item := range view.Items {
		if err := s.inventory.Buy(ctx, item.ProductID, userID); err != nil {
			// Tolerate a missing reservation: a retried confirmation
			// re-walks items whose reservations were already bought.
			if !apperrors.IsNotFound(err) {
				return fmt.Errorf("buy %s for %s: %w", item.ProductID, userID, err)
			}
			s.logger.WarnContext(ctx, "no reservation to buy, skipping",
				slog.String("user_id", userID),
				slog.String("product_id", item.ProductID),
			)
		}
	}

	if err := s.carts.Reset(ctx, userID); err != nil {
		return fmt.Errorf("reset cart for %s: %w", userID, err)
	}

	s.logger.InfoContext(ctx, "order confirmed",
		slog.String("user_id", userID),
		slog.Int("items", len(view.Items)),
	)
	return nil
}

// CancelOrder abandons a reserved checkout: every reservation is released
// and the cart returns to SHOPPING with its items intact.
func (s *ShoppingService) CancelOrder(ctx context.Context, userID string) error {
	view, err := s.carts.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("get cart for %s: %w", userID, err)
	}
	if view.Status != domain.StatusWaitingForPayment {
		return apperrors.InvalidState(fmt.Sprintf(
			"cannot cancel order of %s in status %s", userID, view.Status))
	}

	for _, item := range view.Items {
		if err := s.inventory.CancelReservation(ctx, item.ProductID, userID); err != nil {
			// A missing reservation means a previous cancel got this far.
			if !apperrors.IsNotFound(err) {
				return fmt.Errorf("release %s for %s: %w", item.ProductID, userID, err)
			}
		}
	}

	if err := s.carts.SetStatus(ctx, userID, domain.StatusShopping); err != nil {
		return fmt.Errorf("set cart %s status to %s: %w", userID, domain.StatusShopping, err)
	}

	s.logger.InfoContext(ctx, "order cancelled",
		slog.String("user_id", userID),
		slog.Int("items", len(view.Items)),
	)
	return nil
}
