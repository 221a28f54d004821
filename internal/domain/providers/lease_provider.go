package providers

import (
	"context"
	"time"
)

// Lease is a held exclusive lease
type Lease interface {
	// Release gives the lease up early. Releasing an expired lease is a no-op.
	Release(ctx context.Context) error
}

// LeaseProvider grants short exclusive leases shared by all replicas
type LeaseProvider interface {
	// TryAcquire returns the lease and true when key was free, or nil and false
	// when another holder has it.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error)
}
