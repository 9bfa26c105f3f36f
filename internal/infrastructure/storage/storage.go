package storage

import (
	"context"
	"sync"

	"topfeed/internal/application/port"
)

// InMemoryRepo keeps the latest snapshot per (kind, mint) in a map.
type InMemoryRepo struct {
	mu     sync.RWMutex
	latest map[string]port.LatestSnapshot
}

// NewInMemoryRepo creates a new in-memory repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		latest: make(map[string]port.LatestSnapshot),
	}
}

func key(kind, mint string) string { return kind + ":" + mint }

func (r *InMemoryRepo) UpsertLatest(ctx context.Context, snap port.LatestSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest[key(snap.Kind, snap.Mint)] = snap
	return nil
}

func (r *InMemoryRepo) GetLatest(ctx context.Context, kind, mint string) (*port.LatestSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.latest[key(kind, mint)]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (r *InMemoryRepo) Close() error {
	return nil
}

var _ port.Repository = (*InMemoryRepo)(nil)
