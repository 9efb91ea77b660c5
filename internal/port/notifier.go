package port

import (
	"context"

	"github.com/rl1809/dinepilot/internal/core/domain"
)

type Notification struct {
	OrderID      string
	Status       domain.OrderStatus
	CustomerName string
}

type Notifier interface {
	// Publish announces a status change; delivery is not guaranteed
	Publish(ctx context.Context, n Notification) error
}
