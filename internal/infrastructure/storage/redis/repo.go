package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"topfeed/internal/application/port"
)

// Repo keeps the latest snapshot per (kind, mint) in one hash and publishes
// every update so other processes can follow the feed.
type Repo struct {
	rdb       *redis.Client
	prefix    string
	ttl       time.Duration
	keyLatest string // prefix + ":latest"
	updates   string // pub/sub channel
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, channel string) *Repo {
	if strings.TrimSpace(channel) == "" {
		channel = prefix + ":updates"
	}
	return &Repo{
		rdb:       rdb,
		prefix:    prefix,
		ttl:       ttl,
		keyLatest: prefix + ":latest",
		updates:   channel,
	}
}

func field(kind, mint string) string {
	return fmt.Sprintf("%s:%s", kind, mint)
}

func (r *Repo) UpsertLatest(ctx context.Context, snap port.LatestSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	// Hash: field = "holders:<mint>" -> json
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, field(snap.Kind, snap.Mint), string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	pipe.Publish(ctx, r.updates, string(b))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Repo) GetLatest(ctx context.Context, kind, mint string) (*port.LatestSnapshot, error) {
	s, err := r.rdb.HGet(ctx, r.keyLatest, field(kind, mint)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap port.LatestSnapshot
	if err := json.Unmarshal([]byte(s), &snap); err != nil {
		return nil, fmt.Errorf("decode latest %s: %w", field(kind, mint), err)
	}
	return &snap, nil
}

// Close is a no-op; the client is owned by the container.
func (r *Repo) Close() error { return nil }

var _ port.Repository = (*Repo)(nil)
