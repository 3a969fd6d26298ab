package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/nyambogahezron/connectThree/internal/domain"
)

const snapshotKeyPrefix = "connectthree:game:"

// Connect opens a client and checks the server answers. Callers treat an
// error as "run without the cache".
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "could not connect to redis at %s", addr)
	}
	return client, nil
}

// SnapshotCache keeps the latest snapshot of every live game
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

func (c *SnapshotCache) SaveSnapshot(ctx context.Context, gameID string, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "failed to encode snapshot")
	}
	if err := c.client.Set(ctx, snapshotKey(gameID), data, c.ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to cache snapshot for %s", gameID)
	}
	return nil
}

// GetSnapshot returns domain.ErrGameNotFound when nothing is cached for gameID
func (c *SnapshotCache) GetSnapshot(ctx context.Context, gameID string) (domain.Snapshot, error) {
	data, err := c.client.Get(ctx, snapshotKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Snapshot{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.Snapshot{}, errors.Wrapf(err, "failed to read snapshot for %s", gameID)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, errors.Wrap(err, "failed to decode snapshot")
	}
	return snap, nil
}

func (c *SnapshotCache) DeleteSnapshot(ctx context.Context, gameID string) error {
	if err := c.client.Del(ctx, snapshotKey(gameID)).Err(); err != nil {
		return errors.Wrapf(err, "failed to drop snapshot for %s", gameID)
	}
	return nil
}

func snapshotKey(gameID string) string {
	return snapshotKeyPrefix + gameID
}
