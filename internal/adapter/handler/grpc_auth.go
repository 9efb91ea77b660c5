package handler

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/rl1809/dinepilot/internal/auth"
	"github.com/rl1809/dinepilot/internal/core/domain"
)

// methodRoles mirrors the HTTP role gates. UpdateStatus is open to every
// role because the order service checks the role per transition.
var methodRoles = map[string][]domain.Role{
	"ListAll":        {domain.RoleChef, domain.RoleManager},
	"ListByCustomer": {domain.RoleCustomer, domain.RoleChef, domain.RoleManager},
	"Create":         {domain.RoleCustomer},
	"UpdateStatus":   {domain.RoleCustomer, domain.RoleChef, domain.RoleManager},
	"Clear":          {domain.RoleManager},
}

// UnaryInterceptor authenticates every dinepilot.OrderService call with the
// bearer token in the "authorization" metadata and applies methodRoles.
func (h *GRPCHandler) UnaryInterceptor() grpc.UnaryServerInterceptor {
	prefix := "/" + orderServiceName + "/"

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		method, ok := strings.CutPrefix(info.FullMethod, prefix)
		if !ok {
			return next(ctx, req)
		}

		claims, err := h.bearerClaims(ctx)
		if err != nil {
			return nil, h.toStatus(err)
		}
		if !roleAllowed(claims.Role, methodRoles[method]) {
			return nil, h.toStatus(errRoleDenied(claims.Role, method))
		}

		return next(context.WithValue(ctx, claimsKey, claims), req)
	}
}

func (h *GRPCHandler) bearerClaims(ctx context.Context) (*auth.Claims, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get("authorization")
	if len(values) == 0 {
		return nil, unauthenticated("missing authorization metadata")
	}

	parts := strings.SplitN(values[0], " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, unauthenticated("invalid authorization format")
	}

	claims, err := auth.ValidateToken(h.jwtSecret, parts[1])
	if err != nil {
		return nil, unauthenticated("invalid token")
	}
	return claims, nil
}

func roleAllowed(role domain.Role, allowed []domain.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
