package monitor

import (
	"context"

	"topfeed/internal/application/port"
)

type noopRepo struct{}

func NewNoopRepo() port.Repository { return &noopRepo{} }

func (n *noopRepo) UpsertLatest(ctx context.Context, snap port.LatestSnapshot) error {
	return nil
}

func (n *noopRepo) GetLatest(ctx context.Context, kind, mint string) (*port.LatestSnapshot, error) {
	return nil, nil
}

func (n *noopRepo) Close() error { return nil }
