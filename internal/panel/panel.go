// Package panel holds the three role views over the shared order store.
// Each panel keeps a snapshot that is rebuilt on Refresh, so panels only
// agree with each other once they have all polled.
package panel

import (
	"context"
	"errors"

	"github.com/rl1809/dinepilot/internal/core/domain"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrCustomerNameRequired = errors.New("customer name is required")
	ErrStaffRequired        = errors.New("staff member must be selected")
	ErrUnknownStaff         = errors.New("unknown staff member")
	ErrOrderInProgress      = errors.New("an order is already being placed")
)

// Store is the order store as seen by a panel. Satisfied by
// *service.OrderService and by the gRPC client.
type Store interface {
	ListAll(ctx context.Context) ([]domain.Order, error)
	ListByCustomer(ctx context.Context, customerName string) ([]domain.Order, error)
	Create(ctx context.Context, items []domain.MenuItem, total int64, customerName string) (domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, staffID string) (domain.Order, error)
	Clear(ctx context.Context) error
}

func filterByStatus(orders []domain.Order, keep func(domain.OrderStatus) bool) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if keep(o.Status) {
			out = append(out, o)
		}
	}
	return out
}

func clone(orders []domain.Order) []domain.Order {
	out := make([]domain.Order, len(orders))
	copy(out, orders)
	return out
}
