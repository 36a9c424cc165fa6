package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 5000
	defaultEnv        = "development"
	defaultRedisHost  = "localhost"
	defaultRedisPort  = 6379
	defaultRedisDB    = 0
	defaultUploadsDir = "uploads"
	defaultLogsDir    = "logs"
	defaultMaxSizeMB  = 10
	defaultDatasetTTL = 24 * time.Hour
	defaultRateLimit  = 30
	defaultRateBurst  = 10
)

// AppConfig holds runtime startup configuration loaded from YAML, .env and the environment.
type AppConfig struct {
	Port           int                `yaml:"port"`
	Env            string             `yaml:"env"` // "development" | "production"
	Paths          RuntimePathsConfig `yaml:"paths"`
	AllowedOrigins []string           `yaml:"allowed_origins"`
	Timezone       string             `yaml:"timezone"`
	Redis          RedisRuntimeConfig `yaml:"redis"`
	RedisURL       string             `yaml:"-"`
	LLM            LLMConfig          `yaml:"llm"`
	Upload         UploadConfig       `yaml:"upload"`
	Storage        StorageConfig      `yaml:"storage"`
	RateLimit      RateLimitConfig    `yaml:"rate_limit"`
	DatasetTTL     time.Duration      `yaml:"-"`
}

type RuntimePathsConfig struct {
	Logs    string `yaml:"logs"`
	Uploads string `yaml:"uploads"`
}

type UploadConfig struct {
	MaxSizeMB int `yaml:"max_size_mb"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

// S3Config mirrors the stored spreadsheet to an S3 compatible bucket.
type S3Config struct {
	Enable          bool   `yaml:"enable"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix"`
	PathStyle       bool   `yaml:"path_style"`
}

type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute"`
	Burst     int `yaml:"burst"`
}

type rawAppConfig struct {
	Port           int                `yaml:"port"`
	Env            string             `yaml:"env"`
	Paths          RuntimePathsConfig `yaml:"paths"`
	UploadDir      string             `yaml:"upload_dir"`
	LogDir         string             `yaml:"log_dir"`
	AllowedOrigins []string           `yaml:"allowed_origins"`
	Timezone       string             `yaml:"timezone"`
	TZ             string             `yaml:"tz"`
	Redis          rawRedisConfig     `yaml:"redis"`
	RedisURL       string             `yaml:"redis_url"`
	LLM            rawLLMConfig       `yaml:"llm"`
	Upload         UploadConfig       `yaml:"upload"`
	Storage        StorageConfig      `yaml:"storage"`
	RateLimit      *RateLimitConfig   `yaml:"rate_limit"`
	DatasetTTL     string             `yaml:"dataset_ttl"`
}

// Load reads the YAML file (optional when it is the default path), then .env,
// then environment overrides.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	raw := rawAppConfig{}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := defaultAppConfig()
	if err := applyRawAppConfig(&cfg, raw); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	cfg := AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		LLM:        defaultLLMConfig(),
		Upload:     UploadConfig{MaxSizeMB: defaultMaxSizeMB},
		RateLimit:  RateLimitConfig{PerMinute: defaultRateLimit, Burst: defaultRateBurst},
		DatasetTTL: defaultDatasetTTL,
	}
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.RedisURL = cfg.Redis.URLValue()
	return cfg
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) error {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.Paths.Uploads); v != "" {
		cfg.Paths.Uploads = v
	}
	if v := strings.TrimSpace(raw.UploadDir); v != "" {
		cfg.Paths.Uploads = v
	}
	if raw.AllowedOrigins != nil {
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	}
	if v := strings.TrimSpace(raw.Timezone); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(raw.TZ); v != "" {
		cfg.Timezone = v
	}

	cfg.Redis = applyRawRedisConfig(cfg.Redis, raw)

	llm, err := applyRawLLMConfig(cfg.LLM, raw.LLM)
	if err != nil {
		return err
	}
	cfg.LLM = llm

	if raw.Upload.MaxSizeMB != 0 {
		cfg.Upload.MaxSizeMB = raw.Upload.MaxSizeMB
	}
	cfg.Storage.S3 = normalizeS3Config(raw.Storage.S3)
	if raw.RateLimit != nil {
		cfg.RateLimit = *raw.RateLimit
	}
	if v := strings.TrimSpace(raw.DatasetTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid dataset_ttl %q: %w", v, err)
		}
		cfg.DatasetTTL = d
	}

	cfg.RedisURL = cfg.Redis.URLValue()
	cfg.Paths = normalizeRuntimePaths(cfg.Paths)
	cfg.Env = normalizeEnv(cfg.Env)
	return nil
}

func (c *AppConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", c.Redis.DB)
	}
	if c.Upload.MaxSizeMB < 1 {
		return fmt.Errorf("invalid upload.max_size_mb %d, expected >= 1", c.Upload.MaxSizeMB)
	}
	if c.RateLimit.PerMinute < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("invalid rate_limit %d/%d, expected >= 0", c.RateLimit.PerMinute, c.RateLimit.Burst)
	}
	if c.DatasetTTL <= 0 {
		return fmt.Errorf("invalid dataset_ttl %s, expected > 0", c.DatasetTTL)
	}
	if s3 := c.Storage.S3; s3.Enable {
		if s3.Bucket == "" || s3.Region == "" || s3.AccessKeyID == "" || s3.SecretAccessKey == "" {
			return fmt.Errorf("incomplete storage.s3 config: bucket/region/access_key_id/secret_access_key are required")
		}
	}
	return c.LLM.validate()
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

func (c *AppConfig) LogDir() string {
	if c == nil {
		return ResolveRuntimePath("", defaultLogsDir)
	}
	return ResolveRuntimePath(c.Paths.Logs, defaultLogsDir)
}

// UploadDir is where the stored spreadsheet lives.
func (c *AppConfig) UploadDir() string {
	if c == nil {
		return ResolveRuntimePath("", defaultUploadsDir)
	}
	return ResolveRuntimePath(c.Paths.Uploads, defaultUploadsDir)
}

// MaxUploadBytes is the upload size limit in bytes.
func (c *AppConfig) MaxUploadBytes() int64 {
	return int64(c.Upload.MaxSizeMB) << 20
}
