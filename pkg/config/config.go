package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/schoolreg/pkg/observability"
	"github.com/platinummonkey/schoolreg/pkg/schools"
	"github.com/platinummonkey/schoolreg/pkg/storage"
	"github.com/platinummonkey/schoolreg/pkg/storage/relational"
	"github.com/platinummonkey/schoolreg/pkg/upload"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// Uploads configuration
	Uploads UploadConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// UploadConfig holds image upload settings
type UploadConfig struct {
	// PublicDir is the static root; images live in PublicDir/schoolImages
	PublicDir    string `yaml:"public_dir"`
	Dir          string `yaml:"dir"`
	MaxFileSize  int64  `yaml:"max_file_size"`
	MaxFieldSize int64  `yaml:"max_field_size"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
	ServiceVersion string
}

// fileConfig mirrors the YAML document. Storage keys follow the
// environment variable names.
type fileConfig struct {
	Server        ServerConfig      `yaml:"server"`
	Storage       storageFileConfig `yaml:"storage"`
	Uploads       UploadConfig      `yaml:"uploads"`
	Observability struct {
		LogLevel       string `yaml:"log_level"`
		MetricsEnabled *bool  `yaml:"metrics_enabled"`
		ServiceVersion string `yaml:"service_version"`
	} `yaml:"observability"`
}

type storageFileConfig struct {
	DataFile    string        `yaml:"data_file"`
	Driver      string        `yaml:"driver"`
	Host        string        `yaml:"host"`
	Port        string        `yaml:"port"`
	User        string        `yaml:"user"`
	Password    string        `yaml:"password"`
	Name        string        `yaml:"name"`
	SSLMode     string        `yaml:"sslmode"`
	MaxConns    int           `yaml:"max_conns"`
	MinConns    int           `yaml:"min_conns"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxLifetime time.Duration `yaml:"max_lifetime"`
	MaxIdleTime time.Duration `yaml:"max_idle_time"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "3000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: storage.DefaultConfig(),
		Uploads: UploadConfig{
			PublicDir:    "public",
			MaxFileSize:  upload.DefaultMaxFileSize,
			MaxFieldSize: upload.DefaultMaxFieldSize,
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.InfoLevel,
			MetricsEnabled: true,
			ServiceVersion: "dev",
		},
	}
}

// LoadConfig builds configuration from defaults, then the optional YAML file
// named by SCHOOLS_CONFIG_FILE, then environment variables.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := getEnv("SCHOOLS_CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Server = loadServerConfig(cfg.Server)
	cfg.Storage = loadStorageConfig(cfg.Storage)
	cfg.Uploads = loadUploadConfig(cfg.Uploads)
	cfg.Observability = loadObservabilityConfig(cfg.Observability)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile applies every non-zero value of the YAML document at path
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	mergeString(&c.Server.Host, fc.Server.Host)
	mergeString(&c.Server.Port, fc.Server.Port)
	mergeDuration(&c.Server.ReadTimeout, fc.Server.ReadTimeout)
	mergeDuration(&c.Server.WriteTimeout, fc.Server.WriteTimeout)
	mergeDuration(&c.Server.IdleTimeout, fc.Server.IdleTimeout)
	mergeDuration(&c.Server.ShutdownTimeout, fc.Server.ShutdownTimeout)
	if len(fc.Server.CORSOrigins) > 0 {
		c.Server.CORSOrigins = fc.Server.CORSOrigins
	}

	s := fc.Storage
	mergeString(&c.Storage.DataFile, s.DataFile)
	mergeString(&c.Storage.DBDriver, s.Driver)
	mergeString(&c.Storage.DBHost, s.Host)
	mergeString(&c.Storage.DBPort, s.Port)
	mergeString(&c.Storage.DBUser, s.User)
	mergeString(&c.Storage.DBPassword, s.Password)
	mergeString(&c.Storage.DBName, s.Name)
	mergeString(&c.Storage.DBSSLMode, s.SSLMode)
	if s.MaxConns > 0 {
		c.Storage.DBMaxConns = s.MaxConns
	}
	if s.MinConns > 0 {
		c.Storage.DBMinConns = s.MinConns
	}
	mergeDuration(&c.Storage.DBTimeout, s.Timeout)
	mergeDuration(&c.Storage.DBMaxLifetime, s.MaxLifetime)
	mergeDuration(&c.Storage.DBMaxIdleTime, s.MaxIdleTime)

	mergeString(&c.Uploads.PublicDir, fc.Uploads.PublicDir)
	mergeString(&c.Uploads.Dir, fc.Uploads.Dir)
	if fc.Uploads.MaxFileSize > 0 {
		c.Uploads.MaxFileSize = fc.Uploads.MaxFileSize
	}
	if fc.Uploads.MaxFieldSize > 0 {
		c.Uploads.MaxFieldSize = fc.Uploads.MaxFieldSize
	}

	if fc.Observability.LogLevel != "" {
		c.Observability.LogLevel = parseLogLevel(fc.Observability.LogLevel)
	}
	if fc.Observability.MetricsEnabled != nil {
		c.Observability.MetricsEnabled = *fc.Observability.MetricsEnabled
	}
	mergeString(&c.Observability.ServiceVersion, fc.Observability.ServiceVersion)

	return nil
}

// loadServerConfig overlays server settings from the environment
func loadServerConfig(base ServerConfig) ServerConfig {
	cfg := ServerConfig{
		Host:            getEnv("SCHOOLS_HOST", base.Host),
		Port:            getEnv("SCHOOLS_PORT", getEnv("PORT", base.Port)),
		ReadTimeout:     getEnvDuration("SCHOOLS_READ_TIMEOUT", base.ReadTimeout),
		WriteTimeout:    getEnvDuration("SCHOOLS_WRITE_TIMEOUT", base.WriteTimeout),
		IdleTimeout:     getEnvDuration("SCHOOLS_IDLE_TIMEOUT", base.IdleTimeout),
		ShutdownTimeout: getEnvDuration("SCHOOLS_SHUTDOWN_TIMEOUT", base.ShutdownTimeout),
		CORSOrigins:     base.CORSOrigins,
	}
	if origins := getEnv("SCHOOLS_CORS_ORIGINS", ""); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	return cfg
}

// loadStorageConfig overlays storage settings from the environment. The
// connection parameters fall back to the MYSQL_* names.
func loadStorageConfig(cfg storage.Config) storage.Config {
	cfg.DataFile = getEnv("SCHOOLS_DATA_FILE", cfg.DataFile)

	cfg.DBDriver = getEnv("SCHOOLS_DB_DRIVER", cfg.DBDriver)
	cfg.DBHost = getEnvFallback("SCHOOLS_DB_HOST", "MYSQL_HOST", cfg.DBHost)
	cfg.DBPort = getEnvFallback("SCHOOLS_DB_PORT", "MYSQL_PORT", cfg.DBPort)
	cfg.DBUser = getEnvFallback("SCHOOLS_DB_USER", "MYSQL_USER", cfg.DBUser)
	cfg.DBPassword = getEnvFallback("SCHOOLS_DB_PASSWORD", "MYSQL_PASSWORD", cfg.DBPassword)
	cfg.DBName = getEnvFallback("SCHOOLS_DB_NAME", "MYSQL_DATABASE", cfg.DBName)
	cfg.DBSSLMode = getEnv("SCHOOLS_DB_SSLMODE", cfg.DBSSLMode)

	if maxConns := getEnvInt("SCHOOLS_DB_MAX_CONNS", 0); maxConns > 0 {
		cfg.DBMaxConns = maxConns
	}
	if minConns := getEnvInt("SCHOOLS_DB_MIN_CONNS", 0); minConns > 0 {
		cfg.DBMinConns = minConns
	}
	cfg.DBTimeout = getEnvDuration("SCHOOLS_DB_TIMEOUT", cfg.DBTimeout)
	cfg.DBMaxLifetime = getEnvDuration("SCHOOLS_DB_MAX_LIFETIME", cfg.DBMaxLifetime)
	cfg.DBMaxIdleTime = getEnvDuration("SCHOOLS_DB_MAX_IDLE_TIME", cfg.DBMaxIdleTime)

	return cfg
}

// loadUploadConfig overlays upload settings from the environment
func loadUploadConfig(base UploadConfig) UploadConfig {
	cfg := UploadConfig{
		PublicDir:    getEnv("SCHOOLS_PUBLIC_DIR", base.PublicDir),
		Dir:          getEnv("SCHOOLS_UPLOAD_DIR", base.Dir),
		MaxFileSize:  getEnvInt64("SCHOOLS_UPLOAD_MAX_BYTES", base.MaxFileSize),
		MaxFieldSize: getEnvInt64("SCHOOLS_UPLOAD_MAX_FIELD_BYTES", base.MaxFieldSize),
	}
	if cfg.Dir == "" {
		cfg.Dir = filepath.Join(cfg.PublicDir, strings.TrimPrefix(schools.PublicImagePrefix, "/"))
	}
	return cfg
}

// loadObservabilityConfig overlays observability settings from the environment
func loadObservabilityConfig(base ObservabilityConfig) ObservabilityConfig {
	cfg := ObservabilityConfig{
		LogLevel:       base.LogLevel,
		MetricsEnabled: getEnvBool("SCHOOLS_METRICS_ENABLED", base.MetricsEnabled),
		ServiceVersion: getEnv("SCHOOLS_VERSION", base.ServiceVersion),
	}
	if level := getEnv("SCHOOLS_LOG_LEVEL", ""); level != "" {
		cfg.LogLevel = parseLogLevel(level)
	}
	return cfg
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %q", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		return errors.New("server timeouts must not be negative")
	}

	if strings.TrimSpace(c.Storage.DataFile) == "" {
		return errors.New("data file path is required")
	}
	if _, err := relational.DialectFor(c.Storage.DBDriver); err != nil {
		return err
	}
	if c.Storage.DBPort != "" {
		if p, err := strconv.Atoi(c.Storage.DBPort); err != nil || p < 1 || p > 65535 {
			return fmt.Errorf("invalid database port: %q", c.Storage.DBPort)
		}
	}
	if c.Storage.DBMaxConns < 1 {
		return errors.New("database max connections must be at least 1")
	}
	if c.Storage.DBMinConns > c.Storage.DBMaxConns {
		return errors.New("database min connections cannot exceed max connections")
	}

	if strings.TrimSpace(c.Uploads.Dir) == "" {
		return errors.New("upload directory is required")
	}
	if c.Uploads.MaxFileSize <= 0 {
		return errors.New("upload size limit must be positive")
	}
	if c.Uploads.MaxFieldSize <= 0 {
		return errors.New("form field size limit must be positive")
	}

	return nil
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFallback reads key, then fallback, then returns defaultValue
func getEnvFallback(key, fallback, defaultValue string) string {
	return getEnv(key, getEnv(fallback, defaultValue))
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
