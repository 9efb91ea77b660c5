package panel

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// DefaultInterval is how often panels re-read the store.
const DefaultInterval = 3 * time.Second

type Refresher interface {
	Refresh(ctx context.Context) error
}

type Poller struct {
	interval time.Duration
	log      *slog.Logger
}

func NewPoller(interval time.Duration, log *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Poller{interval: interval, log: log}
}

// Run refreshes r immediately and then on every tick until ctx is done.
// Refresh errors are logged and the next tick tries again.
func (p *Poller) Run(ctx context.Context, name string, r Refresher) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
			p.log.Warn("panel refresh failed", slog.String("panel", name), slog.Any("err", err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
