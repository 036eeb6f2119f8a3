package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/docshelf/docshelf/pkg/observability"
	"github.com/docshelf/docshelf/pkg/storage"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Database configuration
	Database storage.ConnectConfig `yaml:"database"`

	// Cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Upload policy for document validation
	Upload UploadPolicy `yaml:"upload"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// CacheConfig holds the Redis cache settings.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	URL          string        `yaml:"url"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	PoolSize     int           `yaml:"pool_size"`
	HierarchyTTL time.Duration `yaml:"hierarchy_ttl"`
	RightsTTL    time.Duration `yaml:"rights_ttl"`
}

// UploadPolicy governs which files may be stored as documents.
type UploadPolicy struct {
	// AllowedExtensions is the whitelist of file extensions, lowercase
	// with leading dot (e.g. ".pdf").
	AllowedExtensions []string `yaml:"allowed_extensions"`

	// MaxFileSize is the maximum upload size in bytes.
	MaxFileSize int64 `yaml:"max_file_size"`

	// BasePath is the root directory for stored document files.
	BasePath string `yaml:"base_path"`
}

// Allows reports whether a file extension is permitted. Matching is
// case-insensitive.
func (p UploadPolicy) Allows(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range p.AllowedExtensions {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel `yaml:"-"`
	LogLevelName   string                 `yaml:"log_level"`
	MetricsEnabled bool                   `yaml:"metrics_enabled"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Database: storage.DefaultConnectConfig(""),
		Cache: CacheConfig{
			Enabled:      false,
			DB:           0,
			MaxRetries:   3,
			PoolSize:     10,
			HierarchyTTL: 5 * time.Minute,
			RightsTTL:    30 * time.Second,
		},
		Upload: UploadPolicy{
			AllowedExtensions: []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".txt", ".png", ".jpg", ".jpeg"},
			MaxFileSize:       25 << 20, // 25 MiB
			BasePath:          "/var/lib/docshelf/files",
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.InfoLevel,
			LogLevelName:   "info",
			MetricsEnabled: true,
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML
// file named by DOCSHELF_CONFIG_FILE, and DOCSHELF_* environment
// variables, in that precedence order (env wins).
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := getEnv("DOCSHELF_CONFIG_FILE", ""); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	cfg.Observability.LogLevel = observability.ParseLogLevel(cfg.Observability.LogLevelName)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadUploadPolicy reads just the upload policy section from a YAML
// file. Used by the policy watcher on reload.
func LoadUploadPolicy(path string) (UploadPolicy, error) {
	var wrapper struct {
		Upload UploadPolicy `yaml:"upload"`
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return UploadPolicy{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return UploadPolicy{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	policy := wrapper.Upload
	if err := policy.Validate(); err != nil {
		return UploadPolicy{}, err
	}
	return policy, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	// Server
	cfg.Server.Host = getEnv("DOCSHELF_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("DOCSHELF_PORT", cfg.Server.Port)
	cfg.Server.HealthPort = getEnv("DOCSHELF_HEALTH_PORT", cfg.Server.HealthPort)
	cfg.Server.ReadTimeout = getEnvDuration("DOCSHELF_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("DOCSHELF_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("DOCSHELF_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("DOCSHELF_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	// Database
	cfg.Database.URL = getEnv("DOCSHELF_POSTGRES_URL", cfg.Database.URL)
	if maxConns := getEnvInt("DOCSHELF_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.Database.MaxConns = maxConns
	}
	if minConns := getEnvInt("DOCSHELF_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.Database.MinConns = minConns
	}
	if timeout := getEnvDuration("DOCSHELF_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.Database.Timeout = timeout
	}

	// Cache
	if enabled := getEnv("DOCSHELF_CACHE_ENABLED", ""); enabled != "" {
		cfg.Cache.Enabled = strings.ToLower(enabled) == "true"
	}
	cfg.Cache.URL = getEnv("DOCSHELF_REDIS_URL", cfg.Cache.URL)
	cfg.Cache.Password = getEnv("DOCSHELF_REDIS_PASSWORD", cfg.Cache.Password)
	if db := getEnvInt("DOCSHELF_REDIS_DB", -1); db >= 0 {
		cfg.Cache.DB = db
	}
	if retries := getEnvInt("DOCSHELF_REDIS_MAX_RETRIES", 0); retries > 0 {
		cfg.Cache.MaxRetries = retries
	}
	if poolSize := getEnvInt("DOCSHELF_REDIS_POOL_SIZE", 0); poolSize > 0 {
		cfg.Cache.PoolSize = poolSize
	}
	if ttl := getEnvDuration("DOCSHELF_HIERARCHY_TTL", 0); ttl > 0 {
		cfg.Cache.HierarchyTTL = ttl
	}
	if ttl := getEnvDuration("DOCSHELF_RIGHTS_TTL", 0); ttl > 0 {
		cfg.Cache.RightsTTL = ttl
	}

	// Upload policy
	if exts := getEnv("DOCSHELF_ALLOWED_EXTENSIONS", ""); exts != "" {
		parts := strings.Split(exts, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if !strings.HasPrefix(p, ".") {
				p = "." + p
			}
			cleaned = append(cleaned, strings.ToLower(p))
		}
		cfg.Upload.AllowedExtensions = cleaned
	}
	if size := getEnvInt64("DOCSHELF_MAX_FILE_SIZE", 0); size > 0 {
		cfg.Upload.MaxFileSize = size
	}
	cfg.Upload.BasePath = getEnv("DOCSHELF_FILES_BASE_PATH", cfg.Upload.BasePath)

	// Observability
	cfg.Observability.LogLevelName = getEnv("DOCSHELF_LOG_LEVEL", cfg.Observability.LogLevelName)
	cfg.Observability.MetricsEnabled = getEnvBool("DOCSHELF_METRICS_ENABLED", cfg.Observability.MetricsEnabled)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Cache.Enabled && c.Cache.URL == "" {
		return fmt.Errorf("redis URL is required when cache is enabled")
	}

	return c.Upload.Validate()
}

// Validate checks the upload policy.
func (p UploadPolicy) Validate() error {
	if len(p.AllowedExtensions) == 0 {
		return fmt.Errorf("at least one allowed extension is required")
	}
	for _, ext := range p.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	if p.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive")
	}
	if p.BasePath == "" {
		return fmt.Errorf("files base path is required")
	}
	return nil
}

// getEnv retrieves an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64 retrieves an int64 environment variable with a default value.
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
