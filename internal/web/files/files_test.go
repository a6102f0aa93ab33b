package files

import (
	"context"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/files-manager/internal/web/files/session"
	"github.com/Laisky/files-manager/internal/web/files/storage"
	"github.com/Laisky/files-manager/internal/web/files/store"
	"github.com/Laisky/files-manager/library/db/mongo"
	rlibs "github.com/Laisky/files-manager/library/db/redis"
)

func stubDialers(t *testing.T,
	m func(context.Context, mongo.DialInfo) (mongo.DB, error),
	r func(context.Context, *redis.Options) (*rlibs.DB, error),
) {
	t.Helper()
	origMongo, origRedis := dialMongo, dialRedis
	t.Cleanup(func() {
		dialMongo, dialRedis = origMongo, origRedis
	})
	dialMongo, dialRedis = m, r
}

// TestInitializeMemoryBackends verifies the app is wired without any network backend.
func TestInitializeMemoryBackends(t *testing.T) {
	stubDialers(t,
		func(context.Context, mongo.DialInfo) (mongo.DB, error) {
			return nil, errors.New("mongo must not be dialed")
		},
		func(context.Context, *redis.Options) (*rlibs.DB, error) {
			return nil, errors.New("redis must not be dialed")
		},
	)

	app, err := Initialize(context.Background(), Settings{
		StoreBackend:   BackendMemory,
		SessionBackend: BackendMemory,
		Storage:        StorageSettings{Backend: BackendLocal, FolderPath: t.TempDir()},
	})
	require.NoError(t, err)
	require.IsType(t, &store.Memory{}, app.Docs)
	require.IsType(t, &session.Memory{}, app.Sessions)
	require.IsType(t, &storage.Local{}, app.Storage)
	require.NotNil(t, app.Controller)
	require.NoError(t, app.Close(context.Background()))
}

// TestInitializeDialFailure verifies a backend error aborts startup.
func TestInitializeDialFailure(t *testing.T) {
	stubDialers(t,
		func(_ context.Context, info mongo.DialInfo) (mongo.DB, error) {
			return nil, errors.Errorf("no reachable servers at %s", info.Addr)
		},
		func(_ context.Context, opt *redis.Options) (*rlibs.DB, error) {
			return nil, errors.Errorf("connection refused to db %d", opt.DB)
		},
	)

	_, err := Initialize(context.Background(), Settings{
		Mongo: MongoSettings{Addr: "mongo:27017"},
		Redis: RedisSettings{DB: 3},
	})
	require.Error(t, err)
	require.Regexp(t, "mongo:27017|db 3", err.Error())
}

// TestInitializeUnknownBackend verifies a typo in the backend names is rejected.
func TestInitializeUnknownBackend(t *testing.T) {
	for _, settings := range []Settings{
		{StoreBackend: "postgres", SessionBackend: BackendMemory},
		{StoreBackend: BackendMemory, SessionBackend: "memcached"},
		{StoreBackend: BackendMemory, SessionBackend: BackendMemory, Storage: StorageSettings{Backend: "ftp"}},
	} {
		_, err := Initialize(context.Background(), settings)
		require.Error(t, err)
	}
}

// TestInitializeMinioStorage verifies the minio backend is built from settings.
func TestInitializeMinioStorage(t *testing.T) {
	app, err := Initialize(context.Background(), Settings{
		StoreBackend:   BackendMemory,
		SessionBackend: BackendMemory,
		Storage: StorageSettings{
			Backend: BackendMinio,
			Minio: storage.MinioOption{
				Endpoint: "localhost:9000",
				Bucket:   "files",
			},
		},
	})
	require.NoError(t, err)
	require.IsType(t, &storage.Minio{}, app.Storage)
}

// TestSettingsDefaults verifies empty settings fall back to the documented defaults.
func TestSettingsDefaults(t *testing.T) {
	t.Setenv("FOLDER_PATH", "")
	s := Settings{}.withDefaults()

	require.Equal(t, BackendMongo, s.StoreBackend)
	require.Equal(t, BackendRedis, s.SessionBackend)
	require.Equal(t, 24*time.Hour, s.SessionTTL)
	require.Equal(t, BackendLocal, s.Storage.Backend)
	require.Equal(t, storage.DefaultFolderPath, s.Storage.FolderPath)
	require.Equal(t, "localhost:27017", s.Mongo.Addr)
	require.Equal(t, "files_manager", s.Mongo.DB)
	require.Equal(t, "localhost:6379", s.Redis.Addr)

	t.Setenv("FOLDER_PATH", "/data/files")
	require.Equal(t, "/data/files", Settings{}.withDefaults().Storage.FolderPath)
}

// TestLoadSettingsFromConfig verifies values are read from the shared config.
func TestLoadSettingsFromConfig(t *testing.T) {
	gconfig.S.Set("settings.files.store", " Memory ")
	gconfig.S.Set("settings.files.session_ttl_seconds", "60")
	gconfig.S.Set("settings.files.connect_rate_per_second", 2.5)
	gconfig.S.Set("settings.storage.minio.secure", "no")
	gconfig.S.Set("settings.db.redis.db", 2)
	t.Cleanup(func() {
		gconfig.S.Set("settings.files.store", nil)
		gconfig.S.Set("settings.files.session_ttl_seconds", nil)
		gconfig.S.Set("settings.files.connect_rate_per_second", nil)
		gconfig.S.Set("settings.storage.minio.secure", nil)
		gconfig.S.Set("settings.db.redis.db", nil)
	})

	s := LoadSettingsFromConfig()
	require.Equal(t, BackendMemory, s.StoreBackend)
	require.Equal(t, time.Minute, s.SessionTTL)
	require.InDelta(t, 2.5, s.ConnectRate, 1e-9)
	require.False(t, s.Storage.Minio.Secure)
	require.Equal(t, 2, s.Redis.DB)
	require.EqualValues(t, 10_000_000, s.MaxPayloadBytes)
}
