package panel

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/dinepilot/internal/core/domain"
	"github.com/rl1809/dinepilot/internal/core/service"
)

const unknownStaff = "Unknown"

type Manager struct {
	store Store

	mu     sync.RWMutex
	ready  []domain.Order
	served []domain.Order
}

type ServedRow struct {
	OrderID      string
	CustomerName string
	Total        int64
	StaffName    string
	ServedAt     time.Time
}

type Summary struct {
	ReadyCount  int
	ServedCount int
	Revenue     int64
	RevenueText string
	History     []ServedRow
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Refresh splits the store into ready orders and served history, the latter
// most recent first.
func (m *Manager) Refresh(ctx context.Context) error {
	orders, err := m.store.ListAll(ctx)
	if err != nil {
		return err
	}
	ready := filterByStatus(orders, func(s domain.OrderStatus) bool { return s == domain.OrderStatusReady })
	served := filterByStatus(orders, func(s domain.OrderStatus) bool { return s == domain.OrderStatusServed })
	slices.Reverse(served)

	m.mu.Lock()
	m.ready, m.served = ready, served
	m.mu.Unlock()
	return nil
}

func (m *Manager) Ready() []domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.ready)
}

func (m *Manager) Served() []domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.served)
}

// Revenue sums totalAmount over served orders.
func (m *Manager) Revenue() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return revenue(m.served)
}

// Serve assigns staffID and marks the order served. A missing order is
// ignored like on the chef panel.
func (m *Manager) Serve(ctx context.Context, orderID, staffID string) error {
	staffID = strings.TrimSpace(staffID)
	if staffID == "" {
		return ErrStaffRequired
	}
	if _, ok := domain.StaffByID(staffID); !ok {
		return ErrUnknownStaff
	}

	_, err := m.store.UpdateStatus(ctx, orderID, domain.OrderStatusServed, staffID)
	if err != nil && !errors.Is(err, service.ErrOrderNotFound) {
		return err
	}
	return m.Refresh(ctx)
}

// Reset wipes every order in the store.
func (m *Manager) Reset(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

func (m *Manager) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]ServedRow, 0, len(m.served))
	for _, o := range m.served {
		rows = append(rows, ServedRow{
			OrderID:      o.ID,
			CustomerName: o.CustomerName,
			Total:        o.TotalAmount,
			StaffName:    StaffName(o.StaffAssigned),
			ServedAt:     o.UpdatedAt,
		})
	}

	total := revenue(m.served)
	return Summary{
		ReadyCount:  len(m.ready),
		ServedCount: len(m.served),
		Revenue:     total,
		RevenueText: FormatRupees(total),
		History:     rows,
	}
}

// StaffName resolves a staff id, falling back to "Unknown".
func StaffName(id string) string {
	if s, ok := domain.StaffByID(id); ok {
		return s.Name
	}
	return unknownStaff
}

// FormatRupees renders whole rupees with two decimals, e.g. ₹240.00.
func FormatRupees(amount int64) string {
	return "₹" + decimal.NewFromInt(amount).StringFixed(2)
}

func revenue(orders []domain.Order) int64 {
	var total int64
	for _, o := range orders {
		total += o.TotalAmount
	}
	return total
}
