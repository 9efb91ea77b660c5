package port

import (
	"context"

	"github.com/rl1809/dinepilot/internal/core/domain"
)

// OrderRecordRepository persists the whole order collection as one named record.
type OrderRecordRepository interface {
	// LoadOrders returns the stored collection, or an empty slice if the record is absent
	LoadOrders(ctx context.Context) ([]domain.Order, error)

	// SaveOrders overwrites the record with the full collection
	SaveOrders(ctx context.Context, orders []domain.Order) error

	// DeleteOrders removes the record entirely
	DeleteOrders(ctx context.Context) error
}
