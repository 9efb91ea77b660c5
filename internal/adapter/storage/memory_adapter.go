package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/dinepilot/internal/core/domain"
)

// MemoryAdapter keeps the encoded record in process memory, scoped to the
// lifetime of the process.
type MemoryAdapter struct {
	mu     sync.RWMutex
	record []byte

	// request key -> expiry
	requests map[string]time.Time
	now      func() time.Time
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{requests: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryAdapter) LoadOrders(ctx context.Context) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.record == nil {
		return nil, nil
	}
	return DecodeOrders(m.record)
}

func (m *MemoryAdapter) SaveOrders(ctx context.Context, orders []domain.Order) error {
	data, err := EncodeOrders(orders)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.record = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryAdapter) DeleteOrders(ctx context.Context) error {
	m.mu.Lock()
	m.record = nil
	m.mu.Unlock()
	return nil
}

func (m *MemoryAdapter) ClaimRequest(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, exp := range m.requests {
		if !now.Before(exp) {
			delete(m.requests, k)
		}
	}
	if _, ok := m.requests[key]; ok {
		return false, nil
	}
	m.requests[key] = now.Add(requestKeyTTL)
	return true, nil
}

func (m *MemoryAdapter) ReleaseRequest(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.requests, key)
	m.mu.Unlock()
	return nil
}
