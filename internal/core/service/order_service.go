package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/dinepilot/internal/core/domain"
	"github.com/rl1809/dinepilot/internal/port"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrStaffRequired      = errors.New("staff assignment required")
	ErrStaffNotAllowed    = errors.New("staff can only be assigned when serving")
	ErrRoleNotAllowed     = errors.New("role not allowed to perform transition")
	ErrTotalMismatch      = errors.New("total does not match items")
	ErrIDExhausted        = errors.New("could not generate a unique order id")
	ErrDuplicateRequest   = errors.New("duplicate request")
)

const (
	maxIDAttempts = 16
	notifyTimeout = 5 * time.Second
)

// OrderService is the single shared order store. Every operation reads or
// writes the whole collection through the record repository.
type OrderService struct {
	repo     port.OrderRecordRepository
	notifier port.Notifier
	requests port.IdempotencyRepository
	log      *slog.Logger
	now      func() time.Time
	newID    func() string

	mu sync.Mutex
}

type Option func(*OrderService)

func WithClock(now func() time.Time) Option {
	return func(s *OrderService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *OrderService) { s.newID = newID }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *OrderService) { s.log = l }
}

// WithIdempotency enables request-key deduplication in CreateOnce.
func WithIdempotency(requests port.IdempotencyRepository) Option {
	return func(s *OrderService) { s.requests = requests }
}

func NewOrderService(repo port.OrderRecordRepository, notifier port.Notifier, opts ...Option) *OrderService {
	s := &OrderService{
		repo:     repo,
		notifier: notifier,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		newID:    NewOrderID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewOrderID returns an identifier of the form ORD-1A2B3C4D.
func NewOrderID() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}

func (s *OrderService) ListAll(ctx context.Context) ([]domain.Order, error) {
	return s.load(ctx)
}

// ListByCustomer matches the customer name case-insensitively and returns
// the most recent order first.
func (s *OrderService) ListByCustomer(ctx context.Context, customerName string) ([]domain.Order, error) {
	orders, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]domain.Order, 0)
	for i := len(orders) - 1; i >= 0; i-- {
		if strings.EqualFold(orders[i].CustomerName, customerName) {
			matches = append(matches, orders[i])
		}
	}
	return matches, nil
}

func (s *OrderService) Get(ctx context.Context, orderID string) (domain.Order, error) {
	orders, err := s.load(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	idx := indexOf(orders, orderID)
	if idx < 0 {
		return domain.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return orders[idx], nil
}

// Create places a new order. Each item becomes its own line with quantity 1.
func (s *OrderService) Create(ctx context.Context, items []domain.MenuItem, total int64, customerName string) (domain.Order, error) {
	lines := make([]domain.CartItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, domain.CartItem{MenuItem: it, Quantity: 1})
	}
	if sum := domain.LineTotal(lines); sum != total {
		return domain.Order{}, fmt.Errorf("%w: got %d, items sum to %d", ErrTotalMismatch, total, sum)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.load(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	id, err := s.uniqueID(orders)
	if err != nil {
		return domain.Order{}, err
	}

	now := s.timestamp()
	order := domain.Order{
		ID:           id,
		Items:        lines,
		TotalAmount:  total,
		Status:       domain.OrderStatusPlaced,
		CustomerName: customerName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.save(ctx, append(orders, order)); err != nil {
		return domain.Order{}, err
	}

	s.log.Info("order placed",
		slog.String("order_id", order.ID),
		slog.String("customer", customerName),
		slog.Int64("total", total),
		slog.Int("items", len(lines)),
	)
	return order, nil
}

// CreateOnce is Create guarded by a client request key, so a resubmitted
// cart does not place a second order. An empty key, or no idempotency
// repository, falls through to Create. The key is released if Create fails.
func (s *OrderService) CreateOnce(ctx context.Context, requestID string, items []domain.MenuItem, total int64, customerName string) (domain.Order, error) {
	if requestID == "" || s.requests == nil {
		return s.Create(ctx, items, total, customerName)
	}

	ok, err := s.requests.ClaimRequest(ctx, requestID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: claim request: %w", ErrStorageUnavailable, err)
	}
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", ErrDuplicateRequest, requestID)
	}

	order, err := s.Create(ctx, items, total, customerName)
	if err != nil {
		if relErr := s.requests.ReleaseRequest(ctx, requestID); relErr != nil {
			s.log.Warn("failed to release request key",
				slog.String("request_id", requestID),
				slog.Any("err", relErr),
			)
		}
		return domain.Order{}, err
	}
	return order, nil
}

// UpdateStatus moves an order one step along the lifecycle. The staff id is
// required for, and only accepted on, the Served transition.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, staffID string) (domain.Order, error) {
	return s.updateStatus(ctx, orderID, status, staffID, nil)
}

// Transition is UpdateStatus gated on the role that owns the from -> to step.
func (s *OrderService) Transition(ctx context.Context, role domain.Role, orderID string, status domain.OrderStatus, staffID string) (domain.Order, error) {
	return s.updateStatus(ctx, orderID, status, staffID, func(current domain.Order) error {
		allowed, _ := domain.AuthorizedRole(current.Status, status)
		if role != allowed {
			return fmt.Errorf("%w: %s cannot move %s from %s to %s", ErrRoleNotAllowed, role, current.ID, current.Status, status)
		}
		return nil
	})
}

func (s *OrderService) updateStatus(ctx context.Context, orderID string, status domain.OrderStatus, staffID string, authorize func(domain.Order) error) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	staffID = strings.TrimSpace(staffID)

	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.load(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	idx := indexOf(orders, orderID)
	if idx < 0 {
		return domain.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	order := orders[idx]
	if !domain.CanTransition(order.Status, status) {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
	}
	if authorize != nil {
		if err := authorize(order); err != nil {
			return domain.Order{}, err
		}
	}
	switch {
	case domain.RequiresStaff(status) && staffID == "":
		return domain.Order{}, ErrStaffRequired
	case !domain.RequiresStaff(status) && staffID != "":
		return domain.Order{}, ErrStaffNotAllowed
	}

	previous := order.Status
	order.Status = status
	order.UpdatedAt = s.after(order.UpdatedAt)
	if staffID != "" {
		order.StaffAssigned = staffID
	}
	orders[idx] = order

	if err := s.save(ctx, orders); err != nil {
		return domain.Order{}, err
	}

	s.log.Info("order status changed",
		slog.String("order_id", order.ID),
		slog.String("from", string(previous)),
		slog.String("to", string(status)),
	)

	if status.Notifies() {
		s.notify(order)
	}
	return order, nil
}

// Clear wipes the whole collection.
func (s *OrderService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.DeleteOrders(ctx); err != nil {
		return fmt.Errorf("clear orders: %w: %w", ErrStorageUnavailable, err)
	}
	s.log.Warn("all orders cleared")
	return nil
}

func (s *OrderService) notify(order domain.Order) {
	if s.notifier == nil {
		return
	}
	n := port.Notification{
		OrderID:      order.ID,
		Status:       order.Status,
		CustomerName: order.CustomerName,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.notifier.Publish(ctx, n); err != nil {
			s.log.Warn("notification not delivered",
				slog.String("order_id", n.OrderID),
				slog.String("status", string(n.Status)),
				slog.Any("err", err),
			)
		}
	}()
}

func (s *OrderService) load(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.repo.LoadOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w: %w", ErrStorageUnavailable, err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

func (s *OrderService) save(ctx context.Context, orders []domain.Order) error {
	if err := s.repo.SaveOrders(ctx, orders); err != nil {
		return fmt.Errorf("save orders: %w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *OrderService) uniqueID(orders []domain.Order) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.newID()
		if indexOf(orders, id) < 0 {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}

// timestamp is millisecond precision, the resolution of the stored record.
func (s *OrderService) timestamp() time.Time {
	return time.UnixMilli(s.now().UnixMilli())
}

// after returns a timestamp strictly later than prev.
func (s *OrderService) after(prev time.Time) time.Time {
	now := s.timestamp()
	if !now.After(prev) {
		return prev.Add(time.Millisecond)
	}
	return now
}

func indexOf(orders []domain.Order, orderID string) int {
	for i, o := range orders {
		if o.ID == orderID {
			return i
		}
	}
	return -1
}
