package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rl1809/dinepilot/internal/core/domain"
	"github.com/rl1809/dinepilot/internal/port"
)

// Mock OrderRecordRepository
type mockRecordRepo struct {
	orders  []domain.Order
	present bool
	failErr error
	saves   int
	mu      sync.Mutex
}

func newMockRecordRepo() *mockRecordRepo {
	return &mockRecordRepo{}
}

func (m *mockRecordRepo) LoadOrders(ctx context.Context) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return nil, m.failErr
	}
	if !m.present {
		return nil, nil
	}
	out := make([]domain.Order, len(m.orders))
	copy(out, m.orders)
	return out, nil
}

func (m *mockRecordRepo) SaveOrders(ctx context.Context, orders []domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return m.failErr
	}
	m.orders = make([]domain.Order, len(orders))
	copy(m.orders, orders)
	m.present = true
	m.saves++
	return nil
}

func (m *mockRecordRepo) DeleteOrders(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return m.failErr
	}
	m.orders = nil
	m.present = false
	return nil
}

// Mock Notifier
type mockNotifier struct {
	published chan port.Notification
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{published: make(chan port.Notification, 16)}
}

func (m *mockNotifier) Publish(ctx context.Context, n port.Notification) error {
	m.published <- n
	return nil
}

// steppingClock advances one second on every call.
func steppingClock() func() time.Time {
	var ticks atomic.Int64
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		return base.Add(time.Duration(ticks.Add(1)) * time.Second)
	}
}

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("ORD-%04d", n.Add(1))
	}
}

func newTestService(repo port.OrderRecordRepository, notifier port.Notifier) *OrderService {
	return NewOrderService(repo, notifier, WithClock(steppingClock()), WithIDGenerator(sequentialIDs()))
}

func menuItem(t *testing.T, id string) domain.MenuItem {
	t.Helper()
	m, ok := domain.MenuItemByID(id)
	if !ok {
		t.Fatalf("menu item %s missing", id)
	}
	return m
}

func TestListAll_EmptyWhenUninitialized(t *testing.T) {
	svc := newTestService(newMockRecordRepo(), nil)

	orders, err := svc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if orders == nil || len(orders) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", orders)
	}
}

func TestCreate_Success(t *testing.T) {
	repo := newMockRecordRepo()
	svc := newTestService(repo, nil)

	items := []domain.MenuItem{menuItem(t, "2"), menuItem(t, "8"), menuItem(t, "8")}
	order, err := svc.Create(context.Background(), items, 280, "Priya")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if order.Status != domain.OrderStatusPlaced {
		t.Errorf("expected Placed, got %s", order.Status)
	}
	if order.ID == "" {
		t.Error("expected non-empty order ID")
	}
	if len(order.Items) != 3 {
		t.Fatalf("expected 3 line items, got %d", len(order.Items))
	}
	for i, it := range order.Items {
		if it.Quantity != 1 {
			t.Errorf("line %d: expected quantity 1, got %d", i, it.Quantity)
		}
	}
	if order.TotalAmount != domain.LineTotal(order.Items) {
		t.Errorf("total %d does not match line total %d", order.TotalAmount, domain.LineTotal(order.Items))
	}
	if !order.CreatedAt.Equal(order.UpdatedAt) {
		t.Error("expected createdAt == updatedAt on creation")
	}
	if order.StaffAssigned != "" {
		t.Error("expected no staff on a new order")
	}
	if repo.saves != 1 {
		t.Errorf("expected 1 save, got %d", repo.saves)
	}
}

func TestCreate_TotalMismatch(t *testing.T) {
	repo := newMockRecordRepo()
	svc := newTestService(repo, nil)

	_, err := svc.Create(context.Background(), []domain.MenuItem{menuItem(t, "1")}, 100, "Rahul")
	if !errors.Is(err, ErrTotalMismatch) {
		t.Fatalf("expected ErrTotalMismatch, got: %v", err)
	}
	if repo.saves != 0 {
		t.Error("expected nothing persisted")
	}
}

func TestCreate_CountMatchesSuccessfulCreates(t *testing.T) {
	svc := newTestService(newMockRecordRepo(), nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		items := []domain.MenuItem{menuItem(t, "5")}
		if _, err := svc.Create(ctx, items, 210, "Guest"); err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
	}
	// rejected create must not count
	svc.Create(ctx, []domain.MenuItem{menuItem(t, "5")}, 1, "Guest")

	orders, _ := svc.ListAll(ctx)
	if len(orders) != 5 {
		t.Errorf("expected 5 orders, got %d", len(orders))
	}
	for _, o := range orders {
		if o.TotalAmount != domain.LineTotal(o.Items) {
			t.Errorf("order %s: total %d != line total", o.ID, o.TotalAmount)
		}
	}
}

func TestCreate_RegeneratesCollidingID(t *testing.T) {
	ids := []string{"ORD-1", "ORD-1", "ORD-2"}
	var n int
	svc := NewOrderService(newMockRecordRepo(), nil, WithIDGenerator(func() string {
		id := ids[n]
		n++
		return id
	}))
	ctx := context.Background()

	first, _ := svc.Create(ctx, nil, 0, "A")
	second, err := svc.Create(ctx, nil, 0, "B")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if first.ID == second.ID {
		t.Errorf("expected unique IDs, both were %s", first.ID)
	}
}

func TestCreate_IDExhausted(t *testing.T) {
	svc := NewOrderService(newMockRecordRepo(), nil, WithIDGenerator(func() string { return "ORD-SAME" }))
	ctx := context.Background()

	if _, err := svc.Create(ctx, nil, 0, "A"); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := svc.Create(ctx, nil, 0, "B"); !errors.Is(err, ErrIDExhausted) {
		t.Errorf("expected ErrIDExhausted, got: %v", err)
	}
}

func TestCreate_StorageUnavailable(t *testing.T) {
	repo := newMockRecordRepo()
	repo.failErr = errors.New("connection refused")
	svc := newTestService(repo, nil)

	_, err := svc.Create(context.Background(), nil, 0, "Priya")
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("expected ErrStorageUnavailable, got: %v", err)
	}
	if !errors.Is(err, repo.failErr) {
		t.Errorf("expected underlying error to be wrapped, got: %v", err)
	}
}

func TestListByCustomer_CaseInsensitiveMostRecentFirst(t *testing.T) {
	svc := newTestService(newMockRecordRepo(), nil)
	ctx := context.Background()

	first, _ := svc.Create(ctx, nil, 0, "Rahul")
	svc.Create(ctx, nil, 0, "Priya")
	second, _ := svc.Create(ctx, nil, 0, "RAHUL")

	upper, err := svc.ListByCustomer(ctx, "Rahul")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lower, _ := svc.ListByCustomer(ctx, "rahul")

	if len(upper) != 2 || len(lower) != 2 {
		t.Fatalf("expected 2 matches each, got %d and %d", len(upper), len(lower))
	}
	for i := range upper {
		if upper[i].ID != lower[i].ID {
			t.Errorf("position %d differs: %s vs %s", i, upper[i].ID, lower[i].ID)
		}
	}
	if upper[0].ID != second.ID || upper[1].ID != first.ID {
		t.Errorf("expected most recent first, got %s, %s", upper[0].ID, upper[1].ID)
	}
	if !upper[0].CreatedAt.After(upper[1].CreatedAt) {
		t.Error("expected first result to be created later")
	}

	none, _ := svc.ListByCustomer(ctx, "nobody")
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty slice, got %#v", none)
	}
}

func TestUpdateStatus_NotFoundLeavesCollectionUnchanged(t *testing.T) {
	repo := newMockRecordRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	svc.Create(ctx, nil, 0, "Priya")
	before, _ := svc.ListAll(ctx)
	savesBefore := repo.saves

	_, err := svc.UpdateStatus(ctx, "ORD-missing", domain.OrderStatusCooking, "")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}

	after, _ := svc.ListAll(ctx)
	if len(after) != len(before) || after[0].Status != before[0].Status || !after[0].UpdatedAt.Equal(before[0].UpdatedAt) {
		t.Error("collection changed after not-found update")
	}
	if repo.saves != savesBefore {
		t.Error("expected no save on not-found")
	}
}

func TestUpdateStatus_RejectsIllegalTransitions(t *testing.T) {
	svc := newTestService(newMockRecordRepo(), nil)
	ctx := context.Background()

	order, _ := svc.Create(ctx, nil, 0, "Priya")

	tests := []struct {
		name   string
		status domain.OrderStatus
		staff  string
		want   error
	}{
		{"skip to ready", domain.OrderStatusReady, "", ErrInvalidTransition},
		{"skip to served", domain.OrderStatusServed, "s1", ErrInvalidTransition},
		{"same status", domain.OrderStatusPlaced, "", ErrInvalidTransition},
		{"unknown status", domain.OrderStatus("Cancelled"), "", ErrInvalidTransition},
		{"staff before serving", domain.OrderStatusCooking, "s1", ErrStaffNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateStatus(ctx, order.ID, tt.status, tt.staff)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got: %v", tt.want, err)
			}
		})
	}

	current, _ := svc.Get(ctx, order.ID)
	if current.Status != domain.OrderStatusPlaced {
		t.Errorf("expected order to stay Placed, got %s", current.Status)
	}
}

func TestUpdateStatus_ServedRequiresStaff(t *testing.T) {
	svc := newTestService(newMockRecordRepo(), nil)
	ctx := context.Background()

	order, _ := svc.Create(ctx, nil, 0, "Priya")
	svc.UpdateStatus(ctx, order.ID, domain.OrderStatusCooking, "")
	svc.UpdateStatus(ctx, order.ID, domain.OrderStatusReady, "")

	_, err := svc.UpdateStatus(ctx, order.ID, domain.OrderStatusServed, "   ")
	if !errors.Is(err, ErrStaffRequired) {
		t.Errorf("expected ErrStaffRequired, got: %v", err)
	}
}

func TestUpdateStatus_UpdatedAtStrictlyIncreases(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewOrderService(newMockRecordRepo(), nil, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	order, _ := svc.Create(ctx, nil, 0, "Priya")
	prev := order.UpdatedAt
	for _, next := range []domain.OrderStatus{domain.OrderStatusCooking, domain.OrderStatusReady} {
		updated, err := svc.UpdateStatus(ctx, order.ID, next, "")
		if err != nil {
			t.Fatalf("update to %s failed: %v", next, err)
		}
		if !updated.UpdatedAt.After(prev) {
			t.Errorf("updatedAt did not increase: %v -> %v", prev, updated.UpdatedAt)
		}
		if updated.UpdatedAt.Before(updated.CreatedAt) {
			t.Error("updatedAt before createdAt")
		}
		prev = updated.UpdatedAt
	}
}

func TestTransition_RoleAuthorization(t *testing.T) {
	svc := newTestService(newMockRecordRepo(), nil)
	ctx := context.Background()

	order, _ := svc.Create(ctx, nil, 0, "Priya")

	if _, err := svc.Transition(ctx, domain.RoleManager, order.ID, domain.OrderStatusCooking, ""); !errors.Is(err, ErrRoleNotAllowed) {
		t.Errorf("manager starting to cook: expected ErrRoleNotAllowed, got: %v", err)
	}
	if _, err := svc.Transition(ctx, domain.RoleCustomer, order.ID, domain.OrderStatusCooking, ""); !errors.Is(err, ErrRoleNotAllowed) {
		t.Errorf("customer starting to cook: expected ErrRoleNotAllowed, got: %v", err)
	}
	if _, err := svc.Transition(ctx, domain.RoleChef, order.ID, domain.OrderStatusCooking, ""); err != nil {
		t.Fatalf("chef start cooking failed: %v", err)
	}
	if _, err := svc.Transition(ctx, domain.RoleChef, order.ID, domain.OrderStatusReady, ""); err != nil {
		t.Fatalf("chef mark ready failed: %v", err)
	}
	if _, err := svc.Transition(ctx, domain.RoleChef, order.ID, domain.OrderStatusServed, "s1"); !errors.Is(err, ErrRoleNotAllowed) {
		t.Errorf("chef serving: expected ErrRoleNotAllowed, got: %v", err)
	}
	served, err := svc.Transition(ctx, domain.RoleManager, order.ID, domain.OrderStatusServed, "s2")
	if err != nil {
		t.Fatalf("manager serve failed: %v", err)
	}
	if served.StaffAssigned != "s2" {
		t.Errorf("expected staff s2, got %q", served.StaffAssigned)
	}
}

func TestUpdateStatus_NotifiesOnReadyAndServed(t *testing.T) {
	notifier := newMockNotifier()
	svc := newTestService(newMockRecordRepo(), notifier)
	ctx := context.Background()

	order, _ := svc.Create(ctx, nil, 0, "Priya")
	svc.UpdateStatus(ctx, order.ID, domain.OrderStatusCooking, "")
	svc.UpdateStatus(ctx, order.ID, domain.OrderStatusReady, "")
	svc.UpdateStatus(ctx, order.ID, domain.OrderStatusServed, "s1")

	got := map[domain.OrderStatus]port.Notification{}
	for i := 0; i < 2; i++ {
		select {
		case n := <-notifier.published:
			got[n.Status] = n
		case <-time.After(time.Second):
			t.Fatalf("expected 2 notifications, got %d", len(got))
		}
	}

	for _, s := range []domain.OrderStatus{domain.OrderStatusReady, domain.OrderStatusServed} {
		n, ok := got[s]
		if !ok {
			t.Errorf("missing %s notification", s)
			continue
		}
		if n.OrderID != order.ID || n.CustomerName != "Priya" {
			t.Errorf("unexpected notification: %+v", n)
		}
	}

	select {
	case n := <-notifier.published:
		t.Errorf("unexpected extra notification: %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClear_EmptiesRegardlessOfContents(t *testing.T) {
	svc := newTestService(newMockRecordRepo(), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		svc.Create(ctx, nil, 0, "Guest")
	}
	if err := svc.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	orders, _ := svc.ListAll(ctx)
	if len(orders) != 0 {
		t.Errorf("expected no orders, got %d", len(orders))
	}

	// clearing an empty store is fine too
	if err := svc.Clear(ctx); err != nil {
		t.Errorf("second clear failed: %v", err)
	}
}

func TestEndToEnd_PriyaLifecycle(t *testing.T) {
	svc := newTestService(newMockRecordRepo(), newMockNotifier())
	ctx := context.Background()

	order, err := svc.Create(ctx, []domain.MenuItem{menuItem(t, "2")}, 240, "Priya")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if order.Status != domain.OrderStatusPlaced {
		t.Fatalf("expected Placed, got %s", order.Status)
	}

	svc.UpdateStatus(ctx, order.ID, domain.OrderStatusCooking, "")
	svc.UpdateStatus(ctx, order.ID, domain.OrderStatusReady, "")
	final, err := svc.UpdateStatus(ctx, order.ID, domain.OrderStatusServed, "s1")
	if err != nil {
		t.Fatalf("serve failed: %v", err)
	}

	if final.Status != domain.OrderStatusServed || final.StaffAssigned != "s1" || final.TotalAmount != 240 {
		t.Errorf("unexpected final order: %+v", final)
	}

	var revenue int64
	all, _ := svc.ListAll(ctx)
	for _, o := range all {
		if o.Status == domain.OrderStatusServed {
			revenue += o.TotalAmount
		}
	}
	if revenue != 240 {
		t.Errorf("expected revenue 240, got %d", revenue)
	}
}

func TestUpdateStatus_ConcurrentSingleWinner(t *testing.T) {
	svc := newTestService(newMockRecordRepo(), nil)
	ctx := context.Background()

	order, _ := svc.Create(ctx, nil, 0, "Priya")

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.UpdateStatus(ctx, order.ID, domain.OrderStatusCooking, ""); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 successful transition, got %d", successCount.Load())
	}
}
