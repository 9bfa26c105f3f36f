package port

import "context"

// LatestSnapshot 某个 (kind, mint) 最近一次推送的 items
type LatestSnapshot struct {
	Kind    string `json:"kind"`
	Mint    string `json:"mint"`
	Count   int    `json:"count"`
	Payload string `json:"payload"` // JSON array
	Ts      int64  `json:"ts_ms"`
}

type Repository interface {
	// UpsertLatest replaces the stored snapshot for (kind, mint).
	UpsertLatest(ctx context.Context, snap LatestSnapshot) error

	// GetLatest returns nil, nil when nothing is stored.
	GetLatest(ctx context.Context, kind, mint string) (*LatestSnapshot, error)

	Close() error
}
