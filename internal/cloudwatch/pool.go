package cloudwatch

import (
	"context"
	"sync"
)

// ClientPool lazily constructs and caches one client per region. Clients
// are safe for concurrent use, so cache hits hand out the shared
// instance.
type ClientPool struct {
	profile       string
	defaultRegion string

	mu      sync.RWMutex
	clients map[string]API

	// newClient is swapped out by tests.
	newClient func(ctx context.Context, profile, region string) (API, error)
}

// NewClientPool creates an empty pool bound to the given credential
// profile and default region, both optional.
func NewClientPool(profile, defaultRegion string) *ClientPool {
	return &ClientPool{
		profile:       profile,
		defaultRegion: defaultRegion,
		clients:       make(map[string]API),
		newClient:     newClient,
	}
}

// Get returns the cached client for region, constructing it on first
// use. An empty region falls back to the pool's default region, else to
// the SDK's ambient configuration. Construction errors are returned to
// the caller and never cached.
func (p *ClientPool) Get(ctx context.Context, region string) (API, error) {
	effective := region
	if effective == "" {
		effective = p.defaultRegion
	}
	key := effective
	if key == "" {
		key = "default"
	}

	p.mu.RLock()
	client, ok := p.clients[key]
	p.mu.RUnlock()
	if ok {
		return client, nil
	}

	// Construct under the exclusive lock so a racing miss for the same
	// key collapses to a single construction.
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[key]; ok {
		return client, nil
	}

	client, err := p.newClient(ctx, p.profile, effective)
	if err != nil {
		return nil, err
	}
	p.clients[key] = client

	return client, nil
}
