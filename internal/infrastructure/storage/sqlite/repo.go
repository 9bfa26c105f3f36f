package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"topfeed/internal/application/port"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

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
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  kind TEXT NOT NULL,
  mint TEXT NOT NULL,
  item_count INTEGER NOT NULL,
  payload TEXT NOT NULL,
  ts_ms INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  UNIQUE(kind, mint)
);
CREATE INDEX IF NOT EXISTS idx_latest_ts ON latest_snapshots(ts_ms);
`)
	return err
}

func (r *Repo) UpsertLatest(ctx context.Context, snap port.LatestSnapshot) error {
	now := time.Now().UnixMilli()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO latest_snapshots(kind, mint, item_count, payload, ts_ms, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, mint) DO UPDATE SET
		item_count=excluded.item_count, payload=excluded.payload, ts_ms=excluded.ts_ms, updated_at=excluded.updated_at
	`, snap.Kind, snap.Mint, snap.Count, snap.Payload, snap.Ts, now, now)
	return err
}

func (r *Repo) GetLatest(ctx context.Context, kind, mint string) (*port.LatestSnapshot, error) {
	snap := port.LatestSnapshot{Kind: kind, Mint: mint}
	err := r.db.QueryRowContext(ctx,
		`SELECT item_count, payload, ts_ms FROM latest_snapshots WHERE kind=? AND mint=?`, kind, mint).
		Scan(&snap.Count, &snap.Payload, &snap.Ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListLatest returns every stored snapshot, most recent first.
func (r *Repo) ListLatest(ctx context.Context) ([]port.LatestSnapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, mint, item_count, payload, ts_ms FROM latest_snapshots ORDER BY ts_ms DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []port.LatestSnapshot
	for rows.Next() {
		var s port.LatestSnapshot
		if err := rows.Scan(&s.Kind, &s.Mint, &s.Count, &s.Payload, &s.Ts); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

var _ port.Repository = (*Repo)(nil)
