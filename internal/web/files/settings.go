package files

import (
	"fmt"
	"os"
	"strings"
	"time"

	gconfig "github.com/Laisky/go-config/v2"

	"github.com/Laisky/files-manager/internal/web/files/session"
	"github.com/Laisky/files-manager/internal/web/files/storage"
)

const (
	// BackendMongo stores documents in mongodb.
	BackendMongo = "mongo"
	// BackendRedis keeps sessions in redis.
	BackendRedis = "redis"
	// BackendMemory keeps everything in process.
	BackendMemory = "memory"
	// BackendLocal writes contents to the local filesystem.
	BackendLocal = "local"
	// BackendMinio writes contents to an s3 compatible bucket.
	BackendMinio = "minio"
)

// Settings captures runtime configuration of the files service.
type Settings struct {
	StoreBackend    string
	SessionBackend  string
	SessionTTL      time.Duration
	MaxPayloadBytes int64
	BcryptCost      int
	ConnectRate     float64
	ConnectBurst    int
	Mongo           MongoSettings
	Redis           RedisSettings
	Storage         StorageSettings
}

// MongoSettings is the document store connection.
type MongoSettings struct {
	Addr   string
	DB     string
	User   string
	Pwd    string
	AuthDB string
}

// RedisSettings is the session cache connection.
type RedisSettings struct {
	Addr string
	Pwd  string
	DB   int
}

// StorageSettings selects where file contents are written.
type StorageSettings struct {
	Backend    string
	FolderPath string
	Minio      storage.MinioOption
}

// LoadSettingsFromConfig reads configuration and applies safe defaults.
func LoadSettingsFromConfig() Settings {
	settings := Settings{
		StoreBackend:    strings.ToLower(strings.TrimSpace(gconfig.S.GetString("settings.files.store"))),
		SessionBackend:  strings.ToLower(strings.TrimSpace(gconfig.S.GetString("settings.files.session"))),
		SessionTTL:      time.Duration(intFromConfig("settings.files.session_ttl_seconds", 86400)) * time.Second,
		MaxPayloadBytes: int64FromConfig("settings.files.max_payload_bytes", 10_000_000),
		BcryptCost:      intFromConfig("settings.files.bcrypt_cost", 10),
		ConnectRate:     floatFromConfig("settings.files.connect_rate_per_second", 1),
		ConnectBurst:    intFromConfig("settings.files.connect_burst", 5),
		Mongo: MongoSettings{
			Addr:   strings.TrimSpace(gconfig.S.GetString("settings.db.mongo.addr")),
			DB:     strings.TrimSpace(gconfig.S.GetString("settings.db.mongo.db")),
			User:   gconfig.S.GetString("settings.db.mongo.user"),
			Pwd:    gconfig.S.GetString("settings.db.mongo.pwd"),
			AuthDB: strings.TrimSpace(gconfig.S.GetString("settings.db.mongo.auth_db")),
		},
		Redis: RedisSettings{
			Addr: strings.TrimSpace(gconfig.S.GetString("settings.db.redis.addr")),
			Pwd:  gconfig.S.GetString("settings.db.redis.pwd"),
			DB:   intFromConfig("settings.db.redis.db", 0),
		},
		Storage: StorageSettings{
			Backend:    strings.ToLower(strings.TrimSpace(gconfig.S.GetString("settings.storage.backend"))),
			FolderPath: strings.TrimSpace(gconfig.S.GetString("settings.storage.folder_path")),
			Minio: storage.MinioOption{
				Endpoint:  strings.TrimSpace(gconfig.S.GetString("settings.storage.minio.endpoint")),
				AccessKey: gconfig.S.GetString("settings.storage.minio.access_key"),
				SecretKey: gconfig.S.GetString("settings.storage.minio.secret_key"),
				Secure:    boolFromConfig("settings.storage.minio.secure", true),
				Bucket:    strings.TrimSpace(gconfig.S.GetString("settings.storage.minio.bucket")),
				Prefix:    strings.TrimSpace(gconfig.S.GetString("settings.storage.minio.prefix")),
			},
		},
	}

	return settings.withDefaults()
}

func (s Settings) withDefaults() Settings {
	if s.StoreBackend == "" {
		s.StoreBackend = BackendMongo
	}
	if s.SessionBackend == "" {
		s.SessionBackend = BackendRedis
	}
	if s.SessionTTL <= 0 {
		s.SessionTTL = session.DefaultTTL
	}
	if s.MaxPayloadBytes <= 0 {
		s.MaxPayloadBytes = 10_000_000
	}
	if s.BcryptCost <= 0 {
		s.BcryptCost = 10
	}
	if s.ConnectRate < 0 {
		s.ConnectRate = 0
	}
	if s.ConnectBurst <= 0 {
		s.ConnectBurst = 5
	}
	if s.Mongo.Addr == "" {
		s.Mongo.Addr = "localhost:27017"
	}
	if s.Mongo.DB == "" {
		s.Mongo.DB = "files_manager"
	}
	if s.Redis.Addr == "" {
		s.Redis.Addr = "localhost:6379"
	}
	if s.Storage.Backend == "" {
		s.Storage.Backend = BackendLocal
	}
	if s.Storage.FolderPath == "" {
		s.Storage.FolderPath = strings.TrimSpace(os.Getenv("FOLDER_PATH"))
	}
	if s.Storage.FolderPath == "" {
		s.Storage.FolderPath = storage.DefaultFolderPath
	}

	return s
}

// intFromConfig reads an int configuration value with a default fallback.
func intFromConfig(key string, def int) int {
	value := gconfig.S.Get(key)
	switch v := value.(type) {
	case nil:
		return def
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return def
		}
		var parsed int
		_, err := fmt.Sscanf(trimmed, "%d", &parsed)
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

// int64FromConfig reads an int64 configuration value with a default fallback.
func int64FromConfig(key string, def int64) int64 {
	return int64(intFromConfig(key, int(def)))
}

// boolFromConfig reads a boolean configuration value with a default fallback.
func boolFromConfig(key string, def bool) bool {
	value := gconfig.S.Get(key)
	switch v := value.(type) {
	case nil:
		return def
	case bool:
		return v
	case int:
		return v != 0
	case float64:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		default:
			return def
		}
	default:
		return def
	}
}

// floatFromConfig reads a float64 configuration value with a default fallback.
func floatFromConfig(key string, def float64) float64 {
	value := gconfig.S.Get(key)
	switch v := value.(type) {
	case nil:
		return def
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return def
		}
		var parsed float64
		_, err := fmt.Sscanf(trimmed, "%f", &parsed)
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}
