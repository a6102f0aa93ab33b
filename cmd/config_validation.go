package cmd

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
)

// configGetter retrieves raw configuration values by dotted key path.
type configGetter func(key string) any

// validateStartupConfig validates startup configuration from the shared config source.
// It returns an error when any configured value is malformed or violates constraints.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(func(key string) any {
		return gconfig.S.Get(key)
	})
}

// validateStartupConfigWithGetter validates startup configuration via a key-value getter.
// It accepts a value getter and returns nil when all configured values are valid.
func validateStartupConfigWithGetter(get configGetter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}

	validationErrs := make([]string, 0)

	validateMongoConfig(get, &validationErrs)
	validateRedisConfig(get, &validationErrs)
	validateFilesConfig(get, &validationErrs)
	validateStorageConfig(get, &validationErrs)
	validateWebConfig(get, &validationErrs)

	if len(validationErrs) == 0 {
		return nil
	}

	return errors.Errorf("invalid configuration:\n - %s", strings.Join(validationErrs, "\n - "))
}

// validateMongoConfig validates the document store connection.
func validateMongoConfig(get configGetter, errs *[]string) {
	validateOptionalHostPort(get, "settings.db.mongo.addr", errs)
	validateOptionalString(get, "settings.db.mongo.db", errs)
}

// validateRedisConfig validates redis-related startup configuration values.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateRedisConfig(get configGetter, errs *[]string) {
	validateOptionalHostPort(get, "settings.db.redis.addr", errs)
	validateOptionalIntMin(get, "settings.db.redis.db", 0, errs)
}

// validateFilesConfig validates the files service limits and backends.
func validateFilesConfig(get configGetter, errs *[]string) {
	validateOptionalEnum(get, "settings.files.store", []string{"mongo", "memory"}, errs)
	validateOptionalEnum(get, "settings.files.session", []string{"redis", "memory"}, errs)
	validateOptionalIntMin(get, "settings.files.session_ttl_seconds", 1, errs)
	validateOptionalInt64Min(get, "settings.files.max_payload_bytes", 1, errs)
	validateOptionalIntMin(get, "settings.files.bcrypt_cost", 4, errs)
	validateOptionalIntMax(get, "settings.files.bcrypt_cost", 31, errs)
	validateOptionalFloatMin(get, "settings.files.connect_rate_per_second", 0, errs)
	validateOptionalIntMin(get, "settings.files.connect_burst", 1, errs)
}

// validateStorageConfig validates where file contents are written.
// The minio endpoint and bucket are required once the minio backend is selected.
func validateStorageConfig(get configGetter, errs *[]string) {
	validateOptionalEnum(get, "settings.storage.backend", []string{"local", "minio"}, errs)
	validateOptionalString(get, "settings.storage.folder_path", errs)
	validateOptionalBool(get, "settings.storage.minio.secure", errs)

	backend, err := parseStrictString(get("settings.storage.backend"))
	if err != nil || strings.ToLower(strings.TrimSpace(backend)) != "minio" {
		return
	}

	validateRequiredHostPort(get, "settings.storage.minio.endpoint", errs)
	validateRequiredString(get, "settings.storage.minio.bucket", errs)
}

// validateWebConfig validates the HTTP surface.
func validateWebConfig(get configGetter, errs *[]string) {
	validateOptionalPathPrefix(get, "settings.web.url_prefix", errs)
	validateOptionalBool(get, "settings.web.disable_metric", errs)
}

// validateOptionalEnum validates an optionally configured string key against allowed values.
func validateOptionalEnum(get configGetter, key string, allowed []string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range allowed {
		if normalized == candidate {
			return
		}
	}

	appendValidationError(errs, "%s must be one of [%s]", key, strings.Join(allowed, ", "))
}

// validateOptionalHostPort validates an optionally configured `host:port` address.
func validateOptionalHostPort(get configGetter, key string, errs *[]string) {
	if get(key) == nil {
		return
	}

	validateRequiredHostPort(get, key, errs)
}

// validateRequiredHostPort validates a `host:port` address that must be configured.
func validateRequiredHostPort(get configGetter, key string, errs *[]string) {
	value, parseErr := parseStrictString(get(key))
	if parseErr != nil || strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s is required", key)
		return
	}

	// url.Parse needs a scheme to split the host from the port
	parsed, err := url.Parse("tcp://" + strings.TrimSpace(value))
	if err != nil || parsed.Hostname() == "" || parsed.Port() == "" || parsed.Path != "" {
		appendValidationError(errs, "%s must look like host:port", key)
	}
}

// validateOptionalString validates an optionally configured non-empty string key.
func validateOptionalString(get configGetter, key string, errs *[]string) {
	if get(key) == nil {
		return
	}

	validateRequiredString(get, key, errs)
}

// validateRequiredString validates a non-empty string key that must be configured.
func validateRequiredString(get configGetter, key string, errs *[]string) {
	value, parseErr := parseStrictString(get(key))
	if parseErr != nil {
		appendValidationError(errs, "%s must be a non-empty string", key)
		return
	}

	if strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must not be empty", key)
	}
}

// validateOptionalIntMax validates an optionally configured integer key with a maximum constraint.
func validateOptionalIntMax(get configGetter, key string, max int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	// type errors are reported by validateOptionalIntMin
	if value, parseErr := parseStrictInt(raw); parseErr == nil && value > max {
		appendValidationError(errs, "%s must be <= %d", key, max)
	}
}

// validateOptionalFloatMin validates an optionally configured float key with an inclusive minimum.
func validateOptionalFloatMin(get configGetter, key string, min float64, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictFloat(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a float", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %v", key, min)
	}
}

// validateOptionalBool validates an optionally configured boolean key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalBool(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	if _, ok := parseStrictBool(raw); !ok {
		appendValidationError(errs, "%s must be a boolean", key)
	}
}

// validateOptionalIntMin validates an optionally configured integer key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalIntMin(get configGetter, key string, min int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalInt64Min validates an optionally configured int64 key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalInt64Min(get configGetter, key string, min int64, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt64(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalPathPrefix validates an optionally configured URL base path.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalPathPrefix(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string path", key)
		return
	}

	if !isValidBasePath(value) {
		appendValidationError(errs, "%s must be empty or start with '/'", key)
	}
}

// parseStrictBool parses a value as boolean using strict conversion rules.
// It accepts a raw value and returns the parsed boolean and whether parsing succeeded.
func parseStrictBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		if math.Trunc(v) != v {
			return false, false
		}
		return int64(v) != 0, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false, false
		}
		switch strings.ToLower(trimmed) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// parseStrictInt parses a value as a strict integer.
// It accepts a raw value and returns the parsed int and an error when parsing fails.
func parseStrictInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.Trunc(v) != v {
			return 0, errors.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, errors.New("empty integer string")
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, errors.Wrap(err, "atoi")
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("unsupported int type %T", value)
	}
}

// parseStrictInt64 parses a value as a strict int64.
// It accepts a raw value and returns the parsed int64 and an error when parsing fails.
func parseStrictInt64(value any) (int64, error) {
	parsed, err := parseStrictInt(value)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return int64(parsed), nil
}

// parseStrictFloat parses a value as a strict floating-point number.
// It accepts a raw value and returns the parsed float64 and an error when parsing fails.
func parseStrictFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, errors.New("empty float string")
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, errors.Wrap(err, "parse float")
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("unsupported float type %T", value)
	}
}

// parseStrictString parses a value as a strict string.
// It accepts a raw value and returns the parsed string and an error when parsing fails.
func parseStrictString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.Errorf("unsupported string type %T", value)
	}
}

// isValidBasePath validates a base path used for URL prefixes.
// It accepts a path string and returns whether it is empty or starts with '/'.
func isValidBasePath(path string) bool {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return true
	}
	return strings.HasPrefix(trimmed, "/")
}

// appendValidationError appends a formatted validation error to the collector.
// It accepts an error slice pointer, a format string, and format arguments, and has no return value.
func appendValidationError(errs *[]string, format string, args ...any) {
	if errs == nil {
		return
	}
	*errs = append(*errs, fmt.Sprintf(format, args...))
}
