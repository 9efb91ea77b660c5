package port

import "context"

type IdempotencyRepository interface {
	// ClaimRequest records key as seen, returns false if it already was
	ClaimRequest(ctx context.Context, key string) (bool, error)

	// ReleaseRequest forgets key so a failed request can be retried
	ReleaseRequest(ctx context.Context, key string) error
}
