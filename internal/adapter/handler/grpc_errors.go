package handler

import (
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/dinepilot/internal/core/service"
)

const errorDomain = "dinepilot"

var ErrUnauthenticated = errors.New("unauthenticated")

type errorReason struct {
	err    error
	code   codes.Code
	reason string
}

// Order matters: the first match wins when an error wraps several sentinels.
var errorReasons = []errorReason{
	{service.ErrOrderNotFound, codes.NotFound, "ORDER_NOT_FOUND"},
	{service.ErrDuplicateRequest, codes.AlreadyExists, "DUPLICATE_REQUEST"},
	{service.ErrStorageUnavailable, codes.Unavailable, "STORAGE_UNAVAILABLE"},
	{service.ErrInvalidTransition, codes.FailedPrecondition, "INVALID_TRANSITION"},
	{service.ErrStaffRequired, codes.FailedPrecondition, "STAFF_REQUIRED"},
	{service.ErrStaffNotAllowed, codes.FailedPrecondition, "STAFF_NOT_ALLOWED"},
	{service.ErrRoleNotAllowed, codes.PermissionDenied, "ROLE_NOT_ALLOWED"},
	{service.ErrTotalMismatch, codes.InvalidArgument, "TOTAL_MISMATCH"},
	{ErrUnknownMenuItem, codes.InvalidArgument, "UNKNOWN_MENU_ITEM"},
	{ErrUnauthenticated, codes.Unauthenticated, "UNAUTHENTICATED"},
}

// statusFor converts a known error into a status carrying an ErrorInfo
// reason. ok is false for errors outside the table.
func statusFor(err error) (*status.Status, bool) {
	for _, r := range errorReasons {
		if !errors.Is(err, r.err) {
			continue
		}
		st := status.New(r.code, err.Error())
		if detailed, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: r.reason, Domain: errorDomain}); derr == nil {
			st = detailed
		}
		return st, true
	}
	return nil, false
}

// fromStatus maps a gRPC error back onto the sentinel it was built from,
// using the ErrorInfo reason when present and the code otherwise.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %w", service.ErrStorageUnavailable, err)
	}

	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != errorDomain {
			continue
		}
		for _, r := range errorReasons {
			if r.reason == info.GetReason() {
				return fmt.Errorf("%w: %s", r.err, st.Message())
			}
		}
	}

	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", service.ErrOrderNotFound, st.Message())
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", service.ErrStorageUnavailable, st.Message())
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthenticated, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", service.ErrRoleNotAllowed, st.Message())
	}
	return err
}
