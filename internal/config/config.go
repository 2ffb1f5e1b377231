package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPathEnv names an optional YAML file loaded before env overrides.
const ConfigPathEnv = "CASEFLOW_CONFIG"

// Config holds all configuration for the caseflow server.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Workspace  WorkspaceConfig  `yaml:"workspace"`
	Convert    ConvertConfig    `yaml:"convert"`
	Upload     UploadConfig     `yaml:"upload"`
	Extraction ExtractionConfig `yaml:"extraction"`
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	Env            string        `yaml:"env"`
	MaxUploadBytes int64         `yaml:"maxUploadBytes"`
	RateLimit      int           `yaml:"rateLimitPerMinute"`
	RunStatusTTL   time.Duration `yaml:"runStatusTTL"`
}

type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type WorkspaceConfig struct {
	Dir string `yaml:"dir"`
}

type ConvertConfig struct {
	DPI         int `yaml:"dpi"`
	JPEGQuality int `yaml:"jpegQuality"`
}

// UploadConfig selects where pre-signed upload targets come from.
// "api" asks the upload-URL service; "s3" presigns locally.
type UploadConfig struct {
	Source       string        `yaml:"source"`
	URLsEndpoint string        `yaml:"urlsEndpoint"`
	Timeout      time.Duration `yaml:"timeout"`
	S3           S3Config      `yaml:"s3"`
}

type S3Config struct {
	Bucket     string        `yaml:"bucket"`
	Region     string        `yaml:"region"`
	KeyPrefix  string        `yaml:"keyPrefix"`
	PresignTTL time.Duration `yaml:"presignTTL"`
}

type ExtractionConfig struct {
	ExtractEndpoint   string        `yaml:"extractEndpoint"`
	JobStatusEndpoint string        `yaml:"jobStatusEndpoint"`
	RequestTimeout    time.Duration `yaml:"requestTimeout"`
	PollInterval      time.Duration `yaml:"pollInterval"`
	MaxPollAttempts   int           `yaml:"maxPollAttempts"`
}

var validUploadSources = map[string]bool{
	"api": true,
	"s3":  true,
}

// Load builds defaults, overlays the YAML file named by CASEFLOW_CONFIG (if
// any), overlays environment variables, and returns a validated Config.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv(ConfigPathEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			Env:            "development",
			MaxUploadBytes: 100 << 20,
			RateLimit:      30,
			RunStatusTTL:   time.Hour,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Workspace: WorkspaceConfig{
			Dir: filepath.Join(os.TempDir(), "caseflow"),
		},
		Convert: ConvertConfig{
			DPI:         300,
			JPEGQuality: 95,
		},
		Upload: UploadConfig{
			Source:  "api",
			Timeout: 30 * time.Second,
			S3: S3Config{
				KeyPrefix:  "uploads",
				PresignTTL: 15 * time.Minute,
			},
		},
		Extraction: ExtractionConfig{
			RequestTimeout:  30 * time.Second,
			PollInterval:    5 * time.Second,
			MaxPollAttempts: 120,
		},
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = envInt("CASEFLOW_PORT", c.Server.Port)
	c.Server.Env = envString("CASEFLOW_ENV", c.Server.Env)
	c.Server.MaxUploadBytes = int64(envInt("CASEFLOW_MAX_UPLOAD_BYTES", int(c.Server.MaxUploadBytes)))
	c.Server.RateLimit = envInt("RATE_LIMIT_PER_MINUTE", c.Server.RateLimit)
	c.Server.RunStatusTTL = envDuration("RUN_STATUS_TTL", c.Server.RunStatusTTL)

	c.Database.URL = envString("DATABASE_URL", c.Database.URL)
	c.Database.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetime = envDuration("DATABASE_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime)

	c.Redis.URL = envString("REDIS_URL", c.Redis.URL)

	c.Workspace.Dir = envString("WORK_DIR", c.Workspace.Dir)

	c.Convert.DPI = envInt("CONVERT_DPI", c.Convert.DPI)
	c.Convert.JPEGQuality = envInt("CONVERT_JPEG_QUALITY", c.Convert.JPEGQuality)

	c.Upload.Source = envString("UPLOAD_TARGET_SOURCE", c.Upload.Source)
	c.Upload.URLsEndpoint = envString("UPLOAD_URLS_ENDPOINT", c.Upload.URLsEndpoint)
	c.Upload.Timeout = envDuration("UPLOAD_TIMEOUT", c.Upload.Timeout)
	c.Upload.S3.Bucket = envString("S3_BUCKET", c.Upload.S3.Bucket)
	c.Upload.S3.Region = envString("AWS_REGION", c.Upload.S3.Region)
	c.Upload.S3.KeyPrefix = envString("S3_KEY_PREFIX", c.Upload.S3.KeyPrefix)
	c.Upload.S3.PresignTTL = envDuration("S3_PRESIGN_TTL", c.Upload.S3.PresignTTL)

	c.Extraction.ExtractEndpoint = envString("EXTRACT_ENDPOINT", c.Extraction.ExtractEndpoint)
	c.Extraction.JobStatusEndpoint = envString("JOB_STATUS_ENDPOINT", c.Extraction.JobStatusEndpoint)
	c.Extraction.RequestTimeout = envDuration("EXTRACTION_REQUEST_TIMEOUT", c.Extraction.RequestTimeout)
	c.Extraction.PollInterval = envDuration("POLL_INTERVAL", c.Extraction.PollInterval)
	c.Extraction.MaxPollAttempts = envInt("POLL_MAX_ATTEMPTS", c.Extraction.MaxPollAttempts)
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !validUploadSources[c.Upload.Source] {
		return fmt.Errorf("UPLOAD_TARGET_SOURCE must be one of api, s3; got %q", c.Upload.Source)
	}
	switch c.Upload.Source {
	case "api":
		if err := requireHTTPURL("UPLOAD_URLS_ENDPOINT", c.Upload.URLsEndpoint); err != nil {
			return err
		}
	case "s3":
		if c.Upload.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when UPLOAD_TARGET_SOURCE is s3")
		}
		if c.Upload.S3.Region == "" {
			return fmt.Errorf("AWS_REGION is required when UPLOAD_TARGET_SOURCE is s3")
		}
	}

	if err := requireHTTPURL("EXTRACT_ENDPOINT", c.Extraction.ExtractEndpoint); err != nil {
		return err
	}
	if err := requireHTTPURL("JOB_STATUS_ENDPOINT", c.Extraction.JobStatusEndpoint); err != nil {
		return err
	}

	if c.Extraction.MaxPollAttempts < 1 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS must be at least 1, got %d", c.Extraction.MaxPollAttempts)
	}
	if c.Extraction.PollInterval < 0 {
		return fmt.Errorf("POLL_INTERVAL must not be negative, got %s", c.Extraction.PollInterval)
	}

	if c.Convert.DPI < 36 || c.Convert.DPI > 1200 {
		return fmt.Errorf("CONVERT_DPI must be between 36 and 1200, got %d", c.Convert.DPI)
	}
	if c.Convert.JPEGQuality < 1 || c.Convert.JPEGQuality > 100 {
		return fmt.Errorf("CONVERT_JPEG_QUALITY must be between 1 and 100, got %d", c.Convert.JPEGQuality)
	}

	return nil
}

func requireHTTPURL(key, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", key)
	}
	if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
		return fmt.Errorf("%s must start with http:// or https://, got %q", key, v)
	}
	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
