package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/utafrali/ShoppingGo/pkg/kafka"

	"github.com/utafrali/ShoppingGo/internal/domain"
	"github.com/utafrali/ShoppingGo/internal/event"
	"github.com/utafrali/ShoppingGo/internal/eventstore/memory"
	"github.com/utafrali/ShoppingGo/internal/runtime"
)

// fakePublisher records published integration events in memory.
type fakePublisher struct {
	mu     sync.Mutex
	events map[string][]*kafka.Event
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{events: make(map[string][]*kafka.Event)}
}

func (f *fakePublisher) Publish(_ context.Context, topic string, ev *kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[topic] = append(f.events[topic], ev)
	return nil
}

func (f *fakePublisher) count(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events[topic])
}

type fixture struct {
	carts     *CartService
	inventory *InventoryService
	shopping  *ShoppingService
	published *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	published := newFakePublisher()
	producer := event.NewProducer(published, log)

	cartManager := runtime.NewManager(domain.AggregateTypeCart, func(id string) *domain.Cart {
		return domain.NewCart(id)
	}, memory.NewEventLog(), memory.NewSnapshotStore(), 0, log)

	inventoryManager := runtime.NewManager(domain.AggregateTypeInventory, func(id string) *domain.Inventory {
		return domain.NewInventory(id)
	}, memory.NewEventLog(), memory.NewSnapshotStore(), 0, log)

	carts := NewCartService(cartManager, producer, log)
	inventory := NewInventoryService(inventoryManager, producer, log)

	return &fixture{
		carts:     carts,
		inventory: inventory,
		shopping:  NewShoppingService(carts, inventory, log),
		published: published,
	}
}

func (f *fixture) stock(t *testing.T, productID string, quantity int) {
	t.Helper()
	require.NoError(t, f.inventory.AddQuantity(context.Background(), productID, quantity))
}

func (f *fixture) addToCart(t *testing.T, userID, productID, name string, quantity int) {
	t.Helper()
	require.NoError(t, f.carts.AddItem(context.Background(), userID, productID, name, quantity))
}

func (f *fixture) available(t *testing.T, productID string) int {
	t.Helper()
	available, err := f.inventory.GetAvailable(context.Background(), productID)
	require.NoError(t, err)
	return available
}

func (f *fixture) cartStatus(t *testing.T, userID string) domain.CartStatus {
	t.Helper()
	view, err := f.carts.Get(context.Background(), userID)
	require.NoError(t, err)
	return view.Status
}
