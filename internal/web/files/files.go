// Package files wires the stores, the auth gate and the files service
// into one application.
package files

import (
	"context"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Laisky/files-manager/internal/web/files/auth"
	"github.com/Laisky/files-manager/internal/web/files/controller"
	"github.com/Laisky/files-manager/internal/web/files/service"
	"github.com/Laisky/files-manager/internal/web/files/session"
	"github.com/Laisky/files-manager/internal/web/files/storage"
	"github.com/Laisky/files-manager/internal/web/files/store"
	"github.com/Laisky/files-manager/library/db/mongo"
	rlibs "github.com/Laisky/files-manager/library/db/redis"
	"github.com/Laisky/files-manager/library/log"
)

// App holds every long-lived component of the files service.
type App struct {
	Docs       store.DocumentStore
	Sessions   session.Store
	Storage    storage.Storage
	Gate       *auth.Gate
	Files      *service.Service
	Controller *controller.Controller

	closers []func(context.Context) error
}

var (
	dialMongo = mongo.NewDB
	dialRedis = rlibs.NewDB
)

// Initialize connects the configured backends and builds the app.
// Mongo and redis are dialed concurrently.
func Initialize(ctx context.Context, settings Settings) (_ *App, err error) {
	settings = settings.withDefaults()
	logger := log.Logger.Named("files")
	app := new(App)
	defer func() {
		if err != nil {
			if closeErr := app.Close(context.Background()); closeErr != nil {
				logger.Warn("close partially initialized app", zap.Error(closeErr))
			}
		}
	}()

	var (
		mongoDB mongo.DB
		redisDB *rlibs.DB
	)
	var pool errgroup.Group
	if settings.StoreBackend == BackendMongo {
		pool.Go(func() (err error) {
			mongoDB, err = dialMongo(ctx, mongo.DialInfo{
				Addr:   settings.Mongo.Addr,
				DBName: settings.Mongo.DB,
				User:   settings.Mongo.User,
				Pwd:    settings.Mongo.Pwd,
				AuthDB: settings.Mongo.AuthDB,
			})
			return errors.Wrap(err, "connect mongo")
		})
	}
	if settings.SessionBackend == BackendRedis {
		pool.Go(func() (err error) {
			redisDB, err = dialRedis(ctx, &redis.Options{
				Addr:     settings.Redis.Addr,
				Password: settings.Redis.Pwd,
				DB:       settings.Redis.DB,
			})
			return errors.Wrap(err, "connect redis")
		})
	}
	err = pool.Wait()
	if mongoDB != nil {
		app.closers = append(app.closers, mongoDB.Close)
	}
	if redisDB != nil {
		app.closers = append(app.closers, func(context.Context) error { return redisDB.Close() })
	}
	if err != nil {
		return nil, err
	}

	if app.Docs, err = newDocumentStore(ctx, settings, mongoDB); err != nil {
		return nil, err
	}
	if app.Sessions, err = newSessionStore(settings, redisDB); err != nil {
		return nil, err
	}
	if app.Storage, err = newStorage(settings); err != nil {
		return nil, err
	}

	if app.Gate, err = auth.NewGate(app.Docs, app.Sessions, logger.Named("auth"),
		auth.WithSessionTTL(settings.SessionTTL),
		auth.WithHasher(auth.NewBcryptHasher(settings.BcryptCost)),
	); err != nil {
		return nil, errors.Wrap(err, "new auth gate")
	}
	if app.Files, err = service.NewService(app.Docs, app.Storage, logger.Named("service"), nil); err != nil {
		return nil, errors.Wrap(err, "new files service")
	}
	if app.Controller, err = controller.New(app.Gate, app.Files, app.Sessions, app.Docs, controller.Options{
		MaxPayloadBytes: settings.MaxPayloadBytes,
		ConnectRate:     settings.ConnectRate,
		ConnectBurst:    settings.ConnectBurst,
	}); err != nil {
		return nil, errors.Wrap(err, "new controller")
	}

	logger.Info("files service initialized",
		zap.String("store", settings.StoreBackend),
		zap.String("session", settings.SessionBackend),
		zap.String("storage", settings.Storage.Backend),
	)
	return app, nil
}

func newDocumentStore(ctx context.Context, settings Settings, db mongo.DB) (store.DocumentStore, error) {
	switch settings.StoreBackend {
	case BackendMongo:
		docs := store.NewMongo(db)
		if err := docs.EnsureIndexes(ctx); err != nil {
			return nil, errors.Wrap(err, "ensure indexes")
		}
		return docs, nil
	case BackendMemory:
		return store.NewMemory(), nil
	default:
		return nil, errors.Errorf("unknown store backend %q", settings.StoreBackend)
	}
}

func newSessionStore(settings Settings, db *rlibs.DB) (session.Store, error) {
	switch settings.SessionBackend {
	case BackendRedis:
		return session.NewRedis(db), nil
	case BackendMemory:
		return session.NewMemory(nil), nil
	default:
		return nil, errors.Errorf("unknown session backend %q", settings.SessionBackend)
	}
}

func newStorage(settings Settings) (storage.Storage, error) {
	switch settings.Storage.Backend {
	case BackendLocal:
		return storage.NewLocal(settings.Storage.FolderPath), nil
	case BackendMinio:
		cli, err := storage.NewMinioClient(settings.Storage.Minio)
		if err != nil {
			return nil, errors.Wrap(err, "new minio client")
		}
		return storage.NewMinio(cli, settings.Storage.Minio.Bucket, settings.Storage.Minio.Prefix), nil
	default:
		return nil, errors.Errorf("unknown storage backend %q", settings.Storage.Backend)
	}
}

// Close releases every backend connection.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			if firstErr == nil {
				firstErr = err
				continue
			}
			log.Logger.Warn("close backend", zap.Error(err))
		}
	}
	a.closers = nil

	return firstErr
}
