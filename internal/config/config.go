// Package config loads the service configuration from environment variables.
// Values are read once at start-up, defaults applied, and the whole result
// validated before anything else runs.
package config

import (
	"net"
	"strconv"
	"time"
)

// Storage backends.
const (
	BackendFS    = "fs"
	BackendMinio = "minio"
)

// ImageExtensions are the storage key extensions images are kept and served
// under. IMAGE_EXTENSION must be one of them.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Minio   MinioConfig
	Upload  UploadConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"3000"`

	// ReadTimeout bounds reading the whole request, body included.
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StorageConfig selects and configures where images are kept.
type StorageConfig struct {
	// Backend is "fs" or "minio".
	Backend string `env:"STORAGE_BACKEND" default:"fs"`

	// Dir is the flat directory used by the fs backend.
	Dir string `env:"STORAGE_DIR" envAlt:"PUBLIC_DIR" default:"./public"`

	// Extension is appended to the lower-cased name to form a key.
	Extension string `env:"IMAGE_EXTENSION" default:".jpg"`

	// PublicPrefix is the URL path stored images are served under.
	PublicPrefix string `env:"PUBLIC_PREFIX" default:"/images/"`
}

// MinioConfig holds the MinIO connection used by the minio backend.
type MinioConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKey string `env:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `env:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket    string `env:"MINIO_BUCKET" default:"image-depot"`
	UseSSL    bool   `env:"MINIO_USE_SSL" default:"false"`
}

// UploadConfig bounds upload processing.
type UploadConfig struct {
	// MaxBodySize is the largest accepted request body in bytes (default: 20MB).
	MaxBodySize int64 `env:"UPLOAD_MAX_BODY_SIZE" default:"20971520"`

	// MaxConcurrent is how many uploads may be decoded and written at once.
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"8"`

	// MaxWaitTime is how long an upload waits for a free slot.
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"10s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json.
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
