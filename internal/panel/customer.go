package panel

import (
	"context"
	"strings"
	"sync"

	"github.com/rl1809/dinepilot/internal/core/domain"
)

type Customer struct {
	store Store
	name  string

	mu      sync.RWMutex
	cart    domain.Cart
	placing bool
	history []domain.Order
}

func NewCustomer(store Store, name string) *Customer {
	return &Customer{store: store, name: strings.TrimSpace(name)}
}

func (c *Customer) Name() string { return c.name }

// Refresh reloads the customer's own orders, most recent first.
func (c *Customer) Refresh(ctx context.Context) error {
	orders, err := c.store.ListByCustomer(ctx, c.name)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.history = orders
	c.mu.Unlock()
	return nil
}

func (c *Customer) History() []domain.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.history)
}

// Active is the history minus served orders.
func (c *Customer) Active() []domain.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return filterByStatus(c.history, func(s domain.OrderStatus) bool { return s != domain.OrderStatusServed })
}

// TotalSpent sums every order in the history, served or not.
func (c *Customer) TotalSpent() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total int64
	for _, o := range c.history {
		total += o.TotalAmount
	}
	return total
}

func (c *Customer) AddToCart(item domain.MenuItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cart.Add(item)
}

// RemoveFromCart is refused while an order is being placed, since the
// submitted lines are the head of the cart.
func (c *Customer) RemoveFromCart(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.placing {
		return false
	}
	return c.cart.RemoveAt(index)
}

func (c *Customer) CartItems() []domain.MenuItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cart.Items()
}

func (c *Customer) CartTotal() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cart.Total()
}

// PlaceOrder submits the cart and removes the submitted lines from it.
// Items added while the order is in flight stay in the cart. The returned
// order is valid even when the follow-up refresh fails.
func (c *Customer) PlaceOrder(ctx context.Context) (domain.Order, error) {
	if c.name == "" {
		return domain.Order{}, ErrCustomerNameRequired
	}

	c.mu.Lock()
	if c.placing {
		c.mu.Unlock()
		return domain.Order{}, ErrOrderInProgress
	}
	if c.cart.Len() == 0 {
		c.mu.Unlock()
		return domain.Order{}, ErrEmptyCart
	}
	items, total := c.cart.Items(), c.cart.Total()
	c.placing = true
	c.mu.Unlock()

	order, err := c.store.Create(ctx, items, total, c.name)

	c.mu.Lock()
	c.placing = false
	if err == nil {
		c.cart.DropFirst(len(items))
	}
	c.mu.Unlock()

	if err != nil {
		return domain.Order{}, err
	}

	return order, c.Refresh(ctx)
}
