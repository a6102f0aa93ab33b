// Package redis wraps go-redis with a readiness flag and the item helpers
// used by the session store.
package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Laisky/errors/v2"
	gredis "github.com/Laisky/go-redis/v2"
	"github.com/Laisky/zap"
	"github.com/redis/go-redis/v9"

	"github.com/Laisky/files-manager/library/log"
)

// ErrNil is returned by GetItem when the key does not exist or has expired.
var ErrNil = errors.New("redis: key not found")

// DB is a wrapper for go-redis
type DB struct {
	cli    *redis.Client
	utils  *gredis.Utils
	alive  atomic.Bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDB creates a new DB instance and pings the server once.
func NewDB(ctx context.Context, opt *redis.Options) (*DB, error) {
	log.Logger.Info("try to connect to redis",
		zap.String("addr", opt.Addr),
		zap.Int("db", opt.DB),
	)

	rdb := redis.NewClient(opt)
	db := &DB{
		cli:   rdb,
		utils: gredis.NewRedisUtils(rdb),
	}

	if err := db.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "ping redis")
	}

	db.alive.Store(true)
	db.startHealthCheck()
	return db, nil
}

// Ping checks the connection and updates the readiness flag.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	err := db.cli.Ping(ctx).Err()
	db.alive.Store(err == nil)
	return errors.Wrap(err, "ping")
}

// IsAlive reports the result of the latest ping.
func (db *DB) IsAlive() bool {
	return db.alive.Load()
}

// SetItem stores val under key, expiring after ttl.
func (db *DB) SetItem(ctx context.Context, key, val string, ttl time.Duration) error {
	if err := db.utils.SetItem(ctx, key, val, ttl); err != nil {
		return errors.Wrapf(err, "set %q", key)
	}

	return nil
}

// GetItem loads the value of key, returns ErrNil when it is absent.
func (db *DB) GetItem(ctx context.Context, key string) (string, error) {
	val, err := db.cli.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNil
	}
	if err != nil {
		return "", errors.Wrapf(err, "get %q", key)
	}

	return val, nil
}

// DelItem removes key, deleting an absent key is not an error.
func (db *DB) DelItem(ctx context.Context, key string) error {
	if err := db.cli.Del(ctx, key).Err(); err != nil {
		return errors.Wrapf(err, "del %q", key)
	}

	return nil
}

// Close stops the health check and closes the client.
func (db *DB) Close() error {
	if db.cancel != nil {
		db.cancel()
	}
	db.wg.Wait()
	db.alive.Store(false)
	return errors.Wrap(db.cli.Close(), "close redis")
}

func (db *DB) startHealthCheck() {
	ctx, cancel := context.WithCancel(context.Background())
	db.cancel = cancel
	db.wg.Add(1)
	go func() {
		defer db.wg.Done()

		ticker := time.NewTicker(healthCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			wasAlive := db.IsAlive()
			if err := db.Ping(ctx); err != nil && wasAlive {
				log.Logger.Warn("redis ping failed, mark session store unavailable", zap.Error(err))
			} else if err == nil && !wasAlive {
				log.Logger.Info("redis is reachable again")
			}
		}
	}()
}
