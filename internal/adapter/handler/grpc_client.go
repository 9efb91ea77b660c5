package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/rl1809/dinepilot/internal/core/domain"
)

// GRPCClient talks to a remote dinepilot.OrderService and exposes the same
// methods as the local order service, so panels can run against either.
type GRPCClient struct {
	cc    grpc.ClientConnInterface
	token string
}

// NewGRPCClient sends token as the bearer credential on every call.
func NewGRPCClient(cc grpc.ClientConnInterface, token string) *GRPCClient {
	return &GRPCClient{cc: cc, token: token}
}

// CallOptions selects the JSON codec; pass it to grpc.WithDefaultCallOptions.
func CallOptions() grpc.CallOption {
	return grpc.CallContentSubtype(CodecName)
}

func (c *GRPCClient) invoke(ctx context.Context, method string, in, out any) error {
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}
	err := c.cc.Invoke(ctx, "/"+orderServiceName+"/"+method, in, out, CallOptions())
	return fromStatus(err)
}

func (c *GRPCClient) ListAll(ctx context.Context) ([]domain.Order, error) {
	var out OrdersResponse
	if err := c.invoke(ctx, "ListAll", &ListAllRequest{}, &out); err != nil {
		return nil, err
	}
	return fromOrderDTOs(out.Orders), nil
}

func (c *GRPCClient) ListByCustomer(ctx context.Context, customerName string) ([]domain.Order, error) {
	var out OrdersResponse
	if err := c.invoke(ctx, "ListByCustomer", &ListByCustomerRequest{CustomerName: customerName}, &out); err != nil {
		return nil, err
	}
	return fromOrderDTOs(out.Orders), nil
}

func (c *GRPCClient) Create(ctx context.Context, items []domain.MenuItem, total int64, customerName string) (domain.Order, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	var out OrderResponse
	req := &CreateOrderRequest{ItemIDs: ids, Total: total, CustomerName: customerName}
	if err := c.invoke(ctx, "Create", req, &out); err != nil {
		return domain.Order{}, err
	}
	return fromOrderDTO(out.Order), nil
}

func (c *GRPCClient) UpdateStatus(ctx context.Context, orderID string, s domain.OrderStatus, staffID string) (domain.Order, error) {
	var out OrderResponse
	req := &UpdateStatusRequest{OrderID: orderID, Status: string(s), StaffID: staffID}
	if err := c.invoke(ctx, "UpdateStatus", req, &out); err != nil {
		return domain.Order{}, err
	}
	return fromOrderDTO(out.Order), nil
}

func (c *GRPCClient) Clear(ctx context.Context) error {
	return c.invoke(ctx, "Clear", &ClearRequest{}, &ClearResponse{})
}
