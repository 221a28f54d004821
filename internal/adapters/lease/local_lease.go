package lease

import (
	"context"
	"sync"
	"time"

	"github.com/zatekoja/slotbooking/internal/domain/providers"
)

// LocalLeaseProvider grants leases within one process
type LocalLeaseProvider struct {
	mu     sync.Mutex
	held   map[string]time.Time
	nextID uint64
	owners map[string]uint64
	now    func() time.Time
}

// NewLocalLeaseProvider creates an in-process lease provider
func NewLocalLeaseProvider() *LocalLeaseProvider {
	return &LocalLeaseProvider{
		held:   make(map[string]time.Time),
		owners: make(map[string]uint64),
		now:    time.Now,
	}
}

var _ providers.LeaseProvider = (*LocalLeaseProvider)(nil)

// TryAcquire takes key unless an unexpired lease holds it
func (p *LocalLeaseProvider) TryAcquire(_ context.Context, key string, ttl time.Duration) (providers.Lease, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if expiry, ok := p.held[key]; ok && now.Before(expiry) {
		return nil, false, nil
	}
	p.nextID++
	p.held[key] = now.Add(ttl)
	p.owners[key] = p.nextID
	return &localLease{provider: p, key: key, id: p.nextID}, true, nil
}

type localLease struct {
	provider *LocalLeaseProvider
	key      string
	id       uint64
}

func (l *localLease) Release(context.Context) error {
	p := l.provider
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.owners[l.key] == l.id {
		delete(p.held, l.key)
		delete(p.owners, l.key)
	}
	return nil
}
