package handler_test

import (
	"context"
	"errors"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rl1809/dinepilot/internal/adapter/handler"
	"github.com/rl1809/dinepilot/internal/adapter/storage"
	"github.com/rl1809/dinepilot/internal/core/domain"
	"github.com/rl1809/dinepilot/internal/core/service"
	"github.com/rl1809/dinepilot/internal/port"
)

// startGRPC serves the order service over bufconn and returns the raw
// connection; wrap it with handler.NewGRPCClient per caller.
func startGRPC(t *testing.T, repo port.OrderRecordRepository) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	h := handler.NewGRPCHandler(service.NewOrderService(repo, nopNotifier{}), testSecret, discard)
	srv := grpc.NewServer(grpc.UnaryInterceptor(h.UnaryInterceptor()))
	h.Register(srv)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func grpcClient(t *testing.T, conn *grpc.ClientConn, name string, role domain.Role) *handler.GRPCClient {
	t.Helper()
	return handler.NewGRPCClient(conn, token(t, name, role))
}

func TestGRPCRoundTrip(t *testing.T) {
	ctx := context.Background()
	conn := startGRPC(t, storage.NewMemoryAdapter())
	customer := grpcClient(t, conn, "Priya", domain.RoleCustomer)
	chef := grpcClient(t, conn, "Chef", domain.RoleChef)
	manager := grpcClient(t, conn, "Manager", domain.RoleManager)

	paneer, _ := domain.MenuItemByID("2")
	lassi, _ := domain.MenuItemByID("11")

	order, err := customer.Create(ctx, []domain.MenuItem{paneer, lassi}, paneer.Price+lassi.Price, "Priya")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if order.Status != domain.OrderStatusPlaced || order.TotalAmount != 330 {
		t.Errorf("created = %+v", order)
	}
	if len(order.Items) != 2 || order.Items[1].Name != "Mango Lassi" {
		t.Errorf("items = %+v", order.Items)
	}

	for _, s := range []domain.OrderStatus{domain.OrderStatusCooking, domain.OrderStatusReady} {
		if _, err := chef.UpdateStatus(ctx, order.ID, s, ""); err != nil {
			t.Fatalf("UpdateStatus(%s) error = %v", s, err)
		}
	}
	served, err := manager.UpdateStatus(ctx, order.ID, domain.OrderStatusServed, "s1")
	if err != nil {
		t.Fatalf("UpdateStatus(Served) error = %v", err)
	}
	if served.StaffAssigned != "s1" || !served.UpdatedAt.After(order.UpdatedAt) {
		t.Errorf("served = %+v", served)
	}

	mine, err := customer.ListByCustomer(ctx, "PRIYA")
	if err != nil {
		t.Fatalf("ListByCustomer() error = %v", err)
	}
	if len(mine) != 1 || mine[0].ID != order.ID {
		t.Errorf("ListByCustomer() = %+v", mine)
	}

	if err := manager.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	all, err := chef.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(all) != 0 {
		t.Errorf("ListAll() after clear = %d orders", len(all))
	}
}

func TestGRPCErrorMapping(t *testing.T) {
	ctx := context.Background()
	conn := startGRPC(t, storage.NewMemoryAdapter())
	customer := grpcClient(t, conn, "Ravi", domain.RoleCustomer)
	manager := grpcClient(t, conn, "Manager", domain.RoleManager)

	_, err := manager.UpdateStatus(ctx, "ORD-NOPE", domain.OrderStatusCooking, "")
	if !errors.Is(err, service.ErrOrderNotFound) {
		t.Errorf("missing order: got %v, want ErrOrderNotFound", err)
	}

	item, _ := domain.MenuItemByID("1")
	if _, err := customer.Create(ctx, []domain.MenuItem{item}, 1, "Ravi"); !errors.Is(err, service.ErrTotalMismatch) {
		t.Errorf("bad total: got %v, want ErrTotalMismatch", err)
	}

	order, err := customer.Create(ctx, []domain.MenuItem{item}, item.Price, "Ravi")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := manager.UpdateStatus(ctx, order.ID, domain.OrderStatusServed, "s1"); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("skip to served: got %v, want ErrInvalidTransition", err)
	}
}

func TestGRPCUnknownMenuItem(t *testing.T) {
	conn := startGRPC(t, storage.NewMemoryAdapter())
	customer := grpcClient(t, conn, "Ravi", domain.RoleCustomer)

	ghost := domain.MenuItem{ID: "999", Name: "Ghost Curry", Price: 100}
	_, err := customer.Create(context.Background(), []domain.MenuItem{ghost}, 100, "Ravi")
	if !errors.Is(err, handler.ErrUnknownMenuItem) {
		t.Errorf("got %v, want ErrUnknownMenuItem", err)
	}
	if errors.Is(err, service.ErrTotalMismatch) {
		t.Errorf("unknown item reported as total mismatch: %v", err)
	}
}

func TestGRPCRequiresToken(t *testing.T) {
	ctx := context.Background()
	conn := startGRPC(t, storage.NewMemoryAdapter())
	customer := grpcClient(t, conn, "Ravi", domain.RoleCustomer)
	chef := grpcClient(t, conn, "Chef", domain.RoleChef)

	item, _ := domain.MenuItemByID("1")
	order, err := customer.Create(ctx, []domain.MenuItem{item}, item.Price, "Ravi")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name   string
		client *handler.GRPCClient
	}{
		{"no token", handler.NewGRPCClient(conn, "")},
		{"forged token", handler.NewGRPCClient(conn, "not-a-jwt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.client.UpdateStatus(ctx, order.ID, domain.OrderStatusCooking, "")
			if !errors.Is(err, handler.ErrUnauthenticated) {
				t.Errorf("UpdateStatus() = %v, want ErrUnauthenticated", err)
			}
			if err := tt.client.Clear(ctx); !errors.Is(err, handler.ErrUnauthenticated) {
				t.Errorf("Clear() = %v, want ErrUnauthenticated", err)
			}
		})
	}

	var raw handler.OrdersResponse
	err = conn.Invoke(ctx, "/dinepilot.OrderService/ListAll", &handler.ListAllRequest{}, &raw, handler.CallOptions())
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("raw ListAll code = %v, want Unauthenticated", status.Code(err))
	}

	orders, err := chef.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(orders) != 1 || orders[0].Status != domain.OrderStatusPlaced {
		t.Errorf("orders after rejected calls = %+v", orders)
	}
}

func TestGRPCRoleGates(t *testing.T) {
	ctx := context.Background()
	conn := startGRPC(t, storage.NewMemoryAdapter())
	customer := grpcClient(t, conn, "Ravi", domain.RoleCustomer)
	chef := grpcClient(t, conn, "Chef", domain.RoleChef)

	item, _ := domain.MenuItemByID("1")
	order, err := customer.Create(ctx, []domain.MenuItem{item}, item.Price, "Ravi")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	var raw handler.ClearResponse
	err = conn.Invoke(metadataCtx(t, "Chef", domain.RoleChef), "/dinepilot.OrderService/Clear", &handler.ClearRequest{}, &raw, handler.CallOptions())
	if status.Code(err) != codes.PermissionDenied {
		t.Errorf("chef Clear code = %v, want PermissionDenied", status.Code(err))
	}
	if err := chef.Clear(ctx); !errors.Is(err, service.ErrRoleNotAllowed) {
		t.Errorf("chef Clear() = %v, want ErrRoleNotAllowed", err)
	}

	if _, err := customer.UpdateStatus(ctx, order.ID, domain.OrderStatusCooking, ""); !errors.Is(err, service.ErrRoleNotAllowed) {
		t.Errorf("customer start cooking = %v, want ErrRoleNotAllowed", err)
	}
	if _, err := chef.Create(ctx, []domain.MenuItem{item}, item.Price, "Chef"); !errors.Is(err, service.ErrRoleNotAllowed) {
		t.Errorf("chef Create() = %v, want ErrRoleNotAllowed", err)
	}
	if _, err := customer.ListAll(ctx); !errors.Is(err, service.ErrRoleNotAllowed) {
		t.Errorf("customer ListAll() = %v, want ErrRoleNotAllowed", err)
	}
	if _, err := customer.ListByCustomer(ctx, "Someone Else"); !errors.Is(err, service.ErrRoleNotAllowed) {
		t.Errorf("customer reading another customer = %v, want ErrRoleNotAllowed", err)
	}
	if _, err := customer.Create(ctx, []domain.MenuItem{item}, item.Price, "Someone Else"); !errors.Is(err, service.ErrRoleNotAllowed) {
		t.Errorf("customer ordering for another = %v, want ErrRoleNotAllowed", err)
	}

	orders, err := chef.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(orders) != 1 || orders[0].Status != domain.OrderStatusPlaced {
		t.Errorf("orders after denied calls = %+v", orders)
	}
}

func TestGRPCStorageUnavailable(t *testing.T) {
	conn := startGRPC(t, brokenRepo{})
	chef := grpcClient(t, conn, "Chef", domain.RoleChef)
	if _, err := chef.ListAll(context.Background()); !errors.Is(err, service.ErrStorageUnavailable) {
		t.Errorf("got %v, want ErrStorageUnavailable", err)
	}
}

func metadataCtx(t *testing.T, name string, role domain.Role) context.Context {
	t.Helper()
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token(t, name, role))
}
