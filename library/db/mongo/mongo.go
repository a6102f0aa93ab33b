// Package mongo provides a wrapper for the MongoDB client.
package mongo

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Laisky/files-manager/library/log"
)

const (
	defaultTimeout      = 30 * time.Second
	healthCheckInterval = 5 * time.Second
	defaultHeartbeat    = 10 * time.Second
)

// DB is the database handle injected into the document store.
type DB interface {
	Close(ctx context.Context) error
	GetCol(colName string) *mongo.Collection
	CurrentDB() *mongo.Database
	// IsAlive reports the result of the latest health check.
	IsAlive() bool
}

// DialInfo defines the MongoDB connection information.
type DialInfo struct {
	Addr,
	DBName,
	User,
	Pwd string
	AuthDB string
}

// db implements DB around one long-lived client.
type db struct {
	mu       sync.RWMutex
	cli      *mongo.Client
	dialInfo DialInfo
	alive    atomic.Bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

var (
	connectMongo = func(ctx context.Context, clientOpts *options.ClientOptions) (*mongo.Client, error) {
		return mongo.Connect(ctx, clientOpts)
	}
	pingMongo = func(ctx context.Context, cli *mongo.Client) error {
		return cli.Ping(ctx, readpref.Primary())
	}
	disconnectMongo = func(ctx context.Context, cli *mongo.Client) error {
		return cli.Disconnect(ctx)
	}
)

// buildMongoURI builds a MongoDB connection URI from the given dial info.
func buildMongoURI(dialInfo DialInfo) string {
	uri := &url.URL{
		Scheme: "mongodb",
		Host:   dialInfo.Addr,
		Path:   "/" + dialInfo.DBName,
	}
	if dialInfo.User != "" || dialInfo.Pwd != "" {
		uri.User = url.UserPassword(dialInfo.User, dialInfo.Pwd)
	}
	if dialInfo.AuthDB != "" {
		query := url.Values{}
		query.Set("authSource", dialInfo.AuthDB)
		uri.RawQuery = query.Encode()
	}
	return uri.String()
}

// NewDB connects to mongodb and pings it before returning,
// so a bad address fails at startup instead of on the first request.
func NewDB(ctx context.Context, dialInfo DialInfo) (DB, error) {
	log.Logger.Info("try to connect to mongodb",
		zap.String("addr", dialInfo.Addr),
		zap.String("db", dialInfo.DBName),
	)

	d := &db{dialInfo: dialInfo}
	if err := d.dial(ctx); err != nil {
		return nil, errors.Wrap(err, "connect")
	}

	d.alive.Store(true)
	d.startHealthCheck()
	return d, nil
}

func (d *db) dial(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(buildMongoURI(d.dialInfo)).
		SetConnectTimeout(defaultTimeout).
		SetServerSelectionTimeout(defaultTimeout).
		SetSocketTimeout(defaultTimeout).
		SetHeartbeatInterval(defaultHeartbeat).
		SetRetryReads(true).
		SetRetryWrites(true).
		SetMaxPoolSize(100).
		SetMinPoolSize(0).
		SetMaxConnecting(2).
		SetMaxConnIdleTime(300 * time.Second)

	cli, err := connectMongo(ctx, clientOpts)
	if err != nil {
		return errors.Wrap(err, "connect db")
	}

	if err := pingMongo(ctx, cli); err != nil {
		_ = disconnectMongo(context.Background(), cli)
		return errors.Wrap(err, "ping db")
	}

	d.mu.Lock()
	d.cli = cli
	d.mu.Unlock()
	return nil
}

// CurrentDB returns the database based on the dial info.
func (d *db) CurrentDB() *mongo.Database {
	return d.client().Database(d.dialInfo.DBName)
}

// GetCol returns a collection handle by name.
func (d *db) GetCol(colName string) *mongo.Collection {
	return d.CurrentDB().Collection(colName)
}

// IsAlive reports whether the last ping succeeded.
func (d *db) IsAlive() bool {
	return d.alive.Load()
}

func (d *db) startHealthCheck() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.runHealthCheck(ctx)
	}()
}

// runHealthCheck only flips the readiness flag,
// reconnecting is left to the driver's own topology monitor.
func (d *db) runHealthCheck(ctx context.Context) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		d.checkOnce()
	}
}

func (d *db) checkOnce() {
	cli := d.client()
	if cli == nil {
		d.alive.Store(false)
		return
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := pingMongo(pingCtx, cli)
	cancel()

	wasAlive := d.alive.Swap(err == nil)
	switch {
	case err != nil && wasAlive:
		log.Logger.Warn("mongodb ping failed, mark store unavailable",
			zap.Error(err),
			zap.String("addr", d.dialInfo.Addr),
		)
	case err == nil && !wasAlive:
		log.Logger.Info("mongodb is reachable again", zap.String("addr", d.dialInfo.Addr))
	}
}

// Close stops the health check and disconnects the client.
func (d *db) Close(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.alive.Store(false)

	cli := d.client()
	if cli == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	closeCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := disconnectMongo(closeCtx, cli)
	d.mu.Lock()
	d.cli = nil
	d.mu.Unlock()
	return errors.Wrap(err, "disconnect")
}

func (d *db) client() *mongo.Client {
	d.mu.RLock()
	cli := d.cli
	d.mu.RUnlock()
	return cli
}
