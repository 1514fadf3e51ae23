package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            string `yaml:"port"`
	Environment     string `yaml:"environment"`
	SupabaseURL     string `yaml:"supabase_url"`
	SupabaseKey     string `yaml:"-"`
	SupabaseDBURL   string `yaml:"-"`
	SupabaseJWKSURL string `yaml:"-"` // Constructed from SupabaseURL + /auth/v1/.well-known/jwks.json
	CORSOrigins     string `yaml:"cors_origins"`
	TablePrefix     string `yaml:"table_prefix"`
	AutoMigrate     bool   `yaml:"auto_migrate"`

	// Document store: "postgres" or "memory"
	Store string `yaml:"store"`

	// Change feed: Redis pub/sub when set, in-process hub otherwise
	RedisURL string `yaml:"redis_url"`

	// Object storage: S3 when S3Bucket is set, local directory otherwise
	BlobDir           string `yaml:"blob_dir"`
	BlobBaseURL       string `yaml:"blob_base_url"`
	S3Bucket          string `yaml:"s3_bucket"`
	S3Region          string `yaml:"s3_region"`
	S3Endpoint        string `yaml:"s3_endpoint"`
	S3ForcePathStyle  bool   `yaml:"s3_force_path_style"`
	S3AccessKeyID     string `yaml:"-"`
	S3SecretAccessKey string `yaml:"-"`
	MaxUploadBytes    int64  `yaml:"max_upload_bytes"`

	// Live folder views. Zero disables the first-snapshot timeout.
	FirstSnapshotTimeout time.Duration `yaml:"first_snapshot_timeout"`

	// Orphaned blob reconciliation (cron spec, empty = disabled)
	OrphanSweepSchedule string        `yaml:"orphan_sweep_schedule"`
	OrphanGracePeriod   time.Duration `yaml:"orphan_grace_period"`

	LogDir      string `yaml:"log_dir"`
	LogMaxFiles int    `yaml:"log_max_files"`

	// DevUserID bypasses JWT verification (dev only)
	DevUserID string `yaml:"dev_user_id"`

	// Debug flags
	Debug bool `yaml:"debug"`
}

// Load builds the configuration from defaults, an optional YAML file
// (CONFIG_FILE) and environment variables, in increasing precedence.
func Load() (*Config, error) {
	cfg := defaults(getEnv("ENVIRONMENT", "dev"))

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	// Construct JWKS URL from Supabase URL
	if cfg.SupabaseURL != "" {
		cfg.SupabaseJWKSURL = cfg.SupabaseURL + "/auth/v1/.well-known/jwks.json"
	}

	if cfg.Environment == "prod" && cfg.DevUserID != "" {
		return nil, fmt.Errorf("DEV_USER_ID must not be set in prod")
	}

	return cfg, nil
}

func defaults(env string) *Config {
	return &Config{
		Port:              "8080",
		Environment:       env,
		CORSOrigins:       "http://localhost:3000",
		TablePrefix:       getTablePrefix(env),
		AutoMigrate:       env != "prod",
		Store:             "postgres",
		BlobDir:           "data/blobs",
		BlobBaseURL:       "http://localhost:8080/api/blobs",
		S3Region:          "us-east-1",
		MaxUploadBytes:    100 << 20,
		OrphanGracePeriod: time.Hour,
		LogMaxFiles:       10,
		// Debug flags - default to true in dev/test, false in production
		Debug: getDefaultDebug(env) == "true",
	}
}

func applyEnv(cfg *Config) error {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.SupabaseURL = getEnv("SUPABASE_URL", cfg.SupabaseURL)
	cfg.SupabaseKey = getEnv("SUPABASE_KEY", cfg.SupabaseKey)
	cfg.SupabaseDBURL = getEnv("SUPABASE_DB_URL", cfg.SupabaseDBURL)
	cfg.CORSOrigins = getEnv("CORS_ORIGINS", cfg.CORSOrigins)
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		cfg.TablePrefix = prefix
	}
	cfg.Store = getEnv("STORE", cfg.Store)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.BlobDir = getEnv("BLOB_DIR", cfg.BlobDir)
	cfg.BlobBaseURL = getEnv("BLOB_BASE_URL", cfg.BlobBaseURL)
	cfg.S3Bucket = getEnv("S3_BUCKET", cfg.S3Bucket)
	cfg.S3Region = getEnv("S3_REGION", cfg.S3Region)
	cfg.S3Endpoint = getEnv("S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3AccessKeyID = getEnv("S3_ACCESS_KEY_ID", cfg.S3AccessKeyID)
	cfg.S3SecretAccessKey = getEnv("S3_SECRET_ACCESS_KEY", cfg.S3SecretAccessKey)
	cfg.OrphanSweepSchedule = getEnv("ORPHAN_SWEEP_SCHEDULE", cfg.OrphanSweepSchedule)
	cfg.LogDir = getEnv("LOG_DIR", cfg.LogDir)
	cfg.DevUserID = getEnv("DEV_USER_ID", cfg.DevUserID)

	var err error
	if cfg.AutoMigrate, err = getEnvBool("AUTO_MIGRATE", cfg.AutoMigrate); err != nil {
		return err
	}
	if cfg.S3ForcePathStyle, err = getEnvBool("S3_FORCE_PATH_STYLE", cfg.S3ForcePathStyle); err != nil {
		return err
	}
	if cfg.Debug, err = getEnvBool("DEBUG", cfg.Debug); err != nil {
		return err
	}
	if cfg.MaxUploadBytes, err = getEnvInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes); err != nil {
		return err
	}
	maxFiles, err := getEnvInt64("LOG_MAX_FILES", int64(cfg.LogMaxFiles))
	if err != nil {
		return err
	}
	cfg.LogMaxFiles = int(maxFiles)
	if cfg.FirstSnapshotTimeout, err = getEnvDuration("LIVE_FIRST_SNAPSHOT_TIMEOUT", cfg.FirstSnapshotTimeout); err != nil {
		return err
	}
	if cfg.OrphanGracePeriod, err = getEnvDuration("ORPHAN_GRACE_PERIOD", cfg.OrphanGracePeriod); err != nil {
		return err
	}
	return nil
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true" // Enable DEBUG in dev/test by default
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
