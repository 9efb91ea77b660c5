package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/dinepilot/internal/auth"
	"github.com/rl1809/dinepilot/internal/core/domain"
	"github.com/rl1809/dinepilot/internal/core/service"
)

const orderServiceName = "dinepilot.OrderService"

type ListAllRequest struct{}

type ListByCustomerRequest struct {
	CustomerName string `json:"customer_name"`
}

type CreateOrderRequest struct {
	ItemIDs      []string `json:"item_ids"`
	Total        int64    `json:"total"`
	CustomerName string   `json:"customer_name"`
}

type UpdateStatusRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	StaffID string `json:"staff_id"`
}

type ClearRequest struct{}

type OrdersResponse struct {
	Orders []OrderDTO `json:"orders"`
}

type OrderResponse struct {
	Order OrderDTO `json:"order"`
}

type ClearResponse struct{}

// OrderServiceServer is the server API for dinepilot.OrderService.
type OrderServiceServer interface {
	ListAll(context.Context, *ListAllRequest) (*OrdersResponse, error)
	ListByCustomer(context.Context, *ListByCustomerRequest) (*OrdersResponse, error)
	Create(context.Context, *CreateOrderRequest) (*OrderResponse, error)
	UpdateStatus(context.Context, *UpdateStatusRequest) (*OrderResponse, error)
	Clear(context.Context, *ClearRequest) (*ClearResponse, error)
}

type GRPCHandler struct {
	orderService *service.OrderService
	jwtSecret    string
	log          *slog.Logger
}

// NewGRPCHandler builds the service. Install UnaryInterceptor on the server,
// without it every call is rejected as unauthenticated.
func NewGRPCHandler(orderService *service.OrderService, jwtSecret string, log *slog.Logger) *GRPCHandler {
	return &GRPCHandler{orderService: orderService, jwtSecret: jwtSecret, log: log}
}

// Register attaches the handler to s.
func (h *GRPCHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&orderServiceDesc, h)
}

func (h *GRPCHandler) ListAll(ctx context.Context, _ *ListAllRequest) (*OrdersResponse, error) {
	if _, err := h.caller(ctx); err != nil {
		return nil, err
	}
	orders, err := h.orderService.ListAll(ctx)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &OrdersResponse{Orders: toOrderDTOs(orders)}, nil
}

// ListByCustomer lets staff read any customer; customers only themselves.
func (h *GRPCHandler) ListByCustomer(ctx context.Context, req *ListByCustomerRequest) (*OrdersResponse, error) {
	claims, err := h.caller(ctx)
	if err != nil {
		return nil, err
	}
	name := req.CustomerName
	if claims.Role == domain.RoleCustomer {
		if name, err = ownName(claims, name); err != nil {
			return nil, h.toStatus(err)
		}
	}

	orders, err := h.orderService.ListByCustomer(ctx, name)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &OrdersResponse{Orders: toOrderDTOs(orders)}, nil
}

func (h *GRPCHandler) Create(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error) {
	claims, err := h.caller(ctx)
	if err != nil {
		return nil, err
	}
	name, err := ownName(claims, req.CustomerName)
	if err != nil {
		return nil, h.toStatus(err)
	}

	items, _, err := resolveItems(req.ItemIDs)
	if err != nil {
		return nil, h.toStatus(err)
	}
	order, err := h.orderService.Create(ctx, items, req.Total, name)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &OrderResponse{Order: toOrderDTO(order)}, nil
}

func (h *GRPCHandler) UpdateStatus(ctx context.Context, req *UpdateStatusRequest) (*OrderResponse, error) {
	claims, err := h.caller(ctx)
	if err != nil {
		return nil, err
	}
	order, err := h.orderService.Transition(ctx, claims.Role, req.OrderID, domain.OrderStatus(req.Status), req.StaffID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &OrderResponse{Order: toOrderDTO(order)}, nil
}

func (h *GRPCHandler) Clear(ctx context.Context, _ *ClearRequest) (*ClearResponse, error) {
	claims, err := h.caller(ctx)
	if err != nil {
		return nil, err
	}
	if claims.Role != domain.RoleManager {
		return nil, h.toStatus(errRoleDenied(claims.Role, "Clear"))
	}
	if err := h.orderService.Clear(ctx); err != nil {
		return nil, h.toStatus(err)
	}
	return &ClearResponse{}, nil
}

// caller returns the claims placed by UnaryInterceptor.
func (h *GRPCHandler) caller(ctx context.Context) (*auth.Claims, error) {
	claims := claimsFromContext(ctx)
	if claims == nil {
		return nil, h.toStatus(unauthenticated("no credentials"))
	}
	return claims, nil
}

// ownName resolves the customer name for a customer token: empty means the
// token's own name, anything else must match it.
func ownName(claims *auth.Claims, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return claims.Name, nil
	}
	if !strings.EqualFold(name, claims.Name) {
		return "", fmt.Errorf("%w: %s cannot act for customer %q", service.ErrRoleNotAllowed, claims.Name, name)
	}
	return name, nil
}

func errRoleDenied(role domain.Role, method string) error {
	return fmt.Errorf("%w: %s cannot call %s", service.ErrRoleNotAllowed, role, method)
}

func unauthenticated(reason string) error {
	return fmt.Errorf("%w: %s", ErrUnauthenticated, reason)
}

func (h *GRPCHandler) toStatus(err error) error {
	if st, ok := statusFor(err); ok {
		return st.Err()
	}
	h.log.Error("grpc call failed", slog.Any("err", err))
	return status.Error(codes.Internal, "internal error")
}

var orderServiceDesc = grpc.ServiceDesc{
	ServiceName: orderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListAll", Handler: unaryHandler("ListAll", OrderServiceServer.ListAll)},
		{MethodName: "ListByCustomer", Handler: unaryHandler("ListByCustomer", OrderServiceServer.ListByCustomer)},
		{MethodName: "Create", Handler: unaryHandler("Create", OrderServiceServer.Create)},
		{MethodName: "UpdateStatus", Handler: unaryHandler("UpdateStatus", OrderServiceServer.UpdateStatus)},
		{MethodName: "Clear", Handler: unaryHandler("Clear", OrderServiceServer.Clear)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dinepilot/order_service",
}

func unaryHandler[Req, Resp any](method string, call func(OrderServiceServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OrderServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + orderServiceName + "/" + method,
		}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(OrderServiceServer), ctx, req.(*Req))
		})
	}
}
