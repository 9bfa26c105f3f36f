package composite

import (
	"context"

	"topfeed/internal/application/port"
)

type Repo struct {
	repos []port.Repository
}

func New(repos ...port.Repository) *Repo {
	// nil repos are allowed; filter in constructor for safety
	out := make([]port.Repository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) Len() int { return len(r.repos) }

func (r *Repo) UpsertLatest(ctx context.Context, snap port.LatestSnapshot) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.UpsertLatest(ctx, snap); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// GetLatest returns the first hit in registration order.
func (r *Repo) GetLatest(ctx context.Context, kind, mint string) (*port.LatestSnapshot, error) {
	var firstErr error
	for _, repo := range r.repos {
		snap, err := repo.GetLatest(ctx, kind, mint)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if snap != nil {
			return snap, nil
		}
	}
	return nil, firstErr
}

func (r *Repo) Close() error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.Repository = (*Repo)(nil)
