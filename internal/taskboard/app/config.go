package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/pkg/cryptox"
	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	ServiceName         string        // SERVICE_NAME (default: taskboard)
	Env                 string        // Environment (dev, test, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	HTTPAddr            string        // Listen address (default: :8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	DBDriver    string // sqlite or postgres (default: sqlite)
	DBFile      string // SQLite database file (default: ./data/taskboard.db)
	DatabaseURL string // Postgres DSN, required when DBDriver is postgres

	JWTSecret     string        // Optional: HS256 secret; wins over JWTSecretFile
	JWTSecretFile string        // Secret file, generated on first start (default: ./data/jwt.secret)
	JWTIssuer     string        // iss claim (default: taskboard)
	AccessTTL     time.Duration // Access token lifetime (default: 15m)

	RefreshTTL          time.Duration // Refresh token lifetime (default: 168h)
	RefreshRotate       bool          // Rotate refresh tokens on every refresh (default: false)
	MaxSessions         int           // Live refresh tokens per account, 0 disables the ceiling (default: 10)
	RefreshCookieName   string        // (default: jid)
	RefreshCookiePath   string        // (default: /auth/refresh)
	RefreshCookieSecure bool          // (default: true unless ENV=dev)

	HashAlgorithm    string // bcrypt or argon2id (default: bcrypt)
	BcryptCost       int    // (default: 12)
	Argon2Iterations int    // (default: 2)
	Argon2MemoryKiB  int    // (default: 19456)
	PepperFile       string // Optional: pepper appended before hashing, generated on first start

	CORSOrigins []string // Comma separated (default: http://localhost:3000)

	// Refresh records are only ever deleted by housekeeping, once past
	// expiry plus retention. With an interval of 0 nothing is deleted in
	// process and cleanup is left to external tooling.
	HousekeepingInterval  time.Duration // HOUSEKEEPING_INTERVAL, 0 disables the in-process pass (default: 1h)
	HousekeepingRetention time.Duration // Keep expired records this long (default: 720h)

	MetricsEnabled bool // Serve /metrics (default: true)
}

func LoadConfig() Config {
	env := getEnvOrDefault("ENV", "dev")

	return Config{
		ServiceName:         getEnvOrDefault("SERVICE_NAME", "taskboard"),
		Env:                 env,
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		HTTPAddr:            getEnvOrDefault("HTTP_ADDR", ":8080"),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		DBDriver:    strings.ToLower(getEnvOrDefault("DB_DRIVER", DriverSQLite)),
		DBFile:      getEnvOrDefault("DB_FILE", "./data/taskboard.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:     os.Getenv("JWT_ACCESS_SECRET"),
		JWTSecretFile: getEnvOrDefault("JWT_ACCESS_SECRET_FILE", "./data/jwt.secret"),
		JWTIssuer:     getEnvOrDefault("JWT_ISSUER", "taskboard"),
		AccessTTL:     getEnvDurationOrDefault("ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),

		RefreshTTL:          getEnvDurationOrDefault("REFRESH_TOKEN_TTL", service.DefaultRefreshTokenTTL),
		RefreshRotate:       getEnvBoolOrDefault("REFRESH_ROTATE", false),
		MaxSessions:         getEnvIntOrDefault("MAX_SESSIONS_PER_ACCOUNT", service.DefaultMaxSessions),
		RefreshCookieName:   getEnvOrDefault("REFRESH_COOKIE_NAME", "jid"),
		RefreshCookiePath:   getEnvOrDefault("REFRESH_COOKIE_PATH", "/auth/refresh"),
		RefreshCookieSecure: getEnvBoolOrDefault("REFRESH_COOKIE_SECURE", env != "dev"),

		HashAlgorithm:    strings.ToLower(getEnvOrDefault("PASSWORD_HASH_ALGORITHM", string(cryptox.AlgorithmBcrypt))),
		BcryptCost:       getEnvIntOrDefault("BCRYPT_SALT_ROUNDS", cryptox.DefaultBcryptCost),
		Argon2Iterations: getEnvIntOrDefault("ARGON2_ITERATIONS", cryptox.DefaultArgon2Iterations),
		Argon2MemoryKiB:  getEnvIntOrDefault("ARGON2_MEMORY_KIB", cryptox.DefaultArgon2MemoryKiB),
		PepperFile:       os.Getenv("PEPPER_FILE"),

		CORSOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		HousekeepingInterval:  getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
		HousekeepingRetention: getEnvDurationOrDefault("HOUSEKEEPING_RETENTION", service.DefaultRetention),

		MetricsEnabled: getEnvBoolOrDefault("METRICS_ENABLED", true),
	}
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	switch c.DBDriver {
	case DriverSQLite:
		if c.DBFile == "" {
			errs = append(errs, errors.New("DB_FILE is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not one of sqlite, postgres", c.DBDriver))
	}

	if c.JWTSecret == "" && c.JWTSecretFile == "" {
		errs = append(errs, errors.New("one of JWT_ACCESS_SECRET or JWT_ACCESS_SECRET_FILE is required"))
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < jwtx.MinSecretLength {
		errs = append(errs, fmt.Errorf("JWT_ACCESS_SECRET must be at least %d bytes", jwtx.MinSecretLength))
	}
	if c.AccessTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must be positive"))
	}
	if c.AccessTTL >= c.RefreshTTL {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL"))
	}
	if c.MaxSessions < 0 {
		errs = append(errs, errors.New("MAX_SESSIONS_PER_ACCOUNT must not be negative"))
	}

	switch cryptox.Algorithm(c.HashAlgorithm) {
	case cryptox.AlgorithmBcrypt, cryptox.AlgorithmArgon2id:
	default:
		errs = append(errs, fmt.Errorf("PASSWORD_HASH_ALGORITHM %q is not one of bcrypt, argon2id", c.HashAlgorithm))
	}
	if c.Argon2Iterations < 0 || c.Argon2MemoryKiB < 0 {
		errs = append(errs, errors.New("argon2 parameters must not be negative"))
	}

	if c.RefreshCookieName == "" {
		errs = append(errs, errors.New("REFRESH_COOKIE_NAME must not be empty"))
	}
	if !strings.HasPrefix(c.RefreshCookiePath, "/") {
		errs = append(errs, errors.New("REFRESH_COOKIE_PATH must start with /"))
	}

	if c.HousekeepingInterval < 0 || c.HousekeepingRetention < 0 {
		errs = append(errs, errors.New("housekeeping durations must not be negative"))
	}
	if c.ShutdownGracePeriod <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_GRACE_PERIOD must be positive"))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
