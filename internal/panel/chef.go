package panel

import (
	"context"
	"errors"
	"sync"

	"github.com/rl1809/dinepilot/internal/core/domain"
	"github.com/rl1809/dinepilot/internal/core/service"
)

type Chef struct {
	store Store

	mu    sync.RWMutex
	queue []domain.Order
}

func NewChef(store Store) *Chef {
	return &Chef{store: store}
}

// Refresh keeps Placed and Cooking orders in storage order.
func (c *Chef) Refresh(ctx context.Context) error {
	orders, err := c.store.ListAll(ctx)
	if err != nil {
		return err
	}
	queue := filterByStatus(orders, func(s domain.OrderStatus) bool {
		return s == domain.OrderStatusPlaced || s == domain.OrderStatusCooking
	})
	c.mu.Lock()
	c.queue = queue
	c.mu.Unlock()
	return nil
}

func (c *Chef) Queue() []domain.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.queue)
}

func (c *Chef) StartCooking(ctx context.Context, orderID string) error {
	return c.advance(ctx, orderID, domain.OrderStatusCooking)
}

func (c *Chef) MarkReady(ctx context.Context, orderID string) error {
	return c.advance(ctx, orderID, domain.OrderStatusReady)
}

// advance ignores orders that vanished since the last poll.
func (c *Chef) advance(ctx context.Context, orderID string, to domain.OrderStatus) error {
	_, err := c.store.UpdateStatus(ctx, orderID, to, "")
	if err != nil && !errors.Is(err, service.ErrOrderNotFound) {
		return err
	}
	return c.Refresh(ctx)
}
