package notify

import (
	"context"
	"log/slog"

	"github.com/rl1809/dinepilot/internal/port"
)

// LogNotifier stands in for an SMS/SNS gateway: it only records the message.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Publish(ctx context.Context, n port.Notification) error {
	l.log.InfoContext(ctx, "publishing order notification",
		slog.String("order_id", n.OrderID),
		slog.String("status", string(n.Status)),
		slog.String("customer", n.CustomerName),
		slog.String("message", Message(n)),
	)
	return nil
}

// Message is the customer-facing text for a notification.
func Message(n port.Notification) string {
	return "Order " + n.OrderID + " is " + string(n.Status) + " for " + n.CustomerName
}
