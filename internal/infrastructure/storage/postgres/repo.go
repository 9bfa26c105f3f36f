package postgres

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/jackc/pgx/v5/stdlib"

	"topfeed/internal/application/port"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS latest_snapshots (
  id BIGSERIAL PRIMARY KEY,
  kind TEXT NOT NULL,
  mint TEXT NOT NULL,
  item_count INTEGER NOT NULL,
  payload JSONB NOT NULL,
  ts_ms BIGINT NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE(kind, mint)
);
CREATE INDEX IF NOT EXISTS idx_latest_ts ON latest_snapshots(ts_ms);
`)
	return err
}

func (r *Repo) UpsertLatest(ctx context.Context, snap port.LatestSnapshot) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO latest_snapshots(kind, mint, item_count, payload, ts_ms)
		VALUES($1, $2, $3, $4, $5)
		ON CONFLICT(kind, mint) DO UPDATE SET
		item_count=excluded.item_count, payload=excluded.payload, ts_ms=excluded.ts_ms, updated_at=now()
	`, snap.Kind, snap.Mint, snap.Count, snap.Payload, snap.Ts)
	return err
}

func (r *Repo) GetLatest(ctx context.Context, kind, mint string) (*port.LatestSnapshot, error) {
	snap := port.LatestSnapshot{Kind: kind, Mint: mint}
	err := r.db.QueryRowContext(ctx,
		`SELECT item_count, payload::text, ts_ms FROM latest_snapshots WHERE kind=$1 AND mint=$2`, kind, mint).
		Scan(&snap.Count, &snap.Payload, &snap.Ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

var _ port.Repository = (*Repo)(nil)
