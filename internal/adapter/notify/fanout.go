package notify

import (
	"context"
	"errors"

	"github.com/rl1809/dinepilot/internal/port"
)

// Fanout publishes to every notifier and joins their errors.
type Fanout []port.Notifier

func (f Fanout) Publish(ctx context.Context, n port.Notification) error {
	var errs []error
	for _, notifier := range f {
		if err := notifier.Publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
