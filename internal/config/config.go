package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL settings for the conversions ledger.
// The ledger is optional; an empty Host disables it.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings used to archive original uploads.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// SMTPConfig holds settings for the operator notification email.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       string
	// MinInterval throttles notifications; zero disables throttling.
	MinInterval time.Duration
}

// AnnotationConfig describes the label stamped onto every slide.
type AnnotationConfig struct {
	Marker         string
	BoxWidthMM     float64
	BoxHeightMM    float64
	MarginRightMM  float64
	MarginBottomMM float64
	FontSizePt     float64
	Color          string
}

// RenderConfig controls the external conversion engine.
type RenderConfig struct {
	Binary        string
	Timeout       time.Duration
	MaxConcurrent int
	ProbeTTL      time.Duration
	TempDir       string
}

// AppConfig is everything the server and CLI read from the environment.
type AppConfig struct {
	AppHost        string
	Port           string
	Timezone       string
	LogLevel       string
	MaxUploadBytes int64
	ArchiveTimeout time.Duration
	Database       DatabaseConfig
	MinIO          MinIOConfig
	SMTP           SMTPConfig
	Annotation     AnnotationConfig
	Render         RenderConfig
}

// Load reads the environment. Unset or empty variables take their defaults;
// binaries import godotenv/autoload so a .env file can supply them.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:        getEnv("APP_HOST", "localhost:8080"),
		Port:           getEnv("PORT", "8080"),
		Timezone:       getEnv("APP_TIMEZONE", "UTC"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 50)) * 1024 * 1024,
		ArchiveTimeout: getEnvDuration("ARCHIVE_TIMEOUT", 60*time.Second),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		SMTP: SMTPConfig{
			Host:        getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:        getEnvInt("SMTP_PORT", 587),
			User:        getEnv("SMTP_USER", ""),
			Password:    getEnv("SMTP_APP_PASSWORD", ""),
			From:        getEnv("SMTP_FROM", ""),
			To:          getEnv("NOTIFY_TO", ""),
			MinInterval: getEnvDuration("NOTIFY_MIN_INTERVAL", 0),
		},
		Annotation: AnnotationConfig{
			Marker:         getEnv("ANNOTATION_MARKER", "__WATERMARK_NAME__"),
			BoxWidthMM:     getEnvFloat("ANNOTATION_BOX_WIDTH_MM", 70),
			BoxHeightMM:    getEnvFloat("ANNOTATION_BOX_HEIGHT_MM", 10),
			MarginRightMM:  getEnvFloat("ANNOTATION_MARGIN_RIGHT_MM", 12),
			MarginBottomMM: getEnvFloat("ANNOTATION_MARGIN_BOTTOM_MM", 10),
			FontSizePt:     getEnvFloat("ANNOTATION_FONT_PT", 12),
			Color:          strings.ToUpper(getEnv("ANNOTATION_COLOR", "FF0000")),
		},
		Render: RenderConfig{
			Binary:        getEnv("RENDER_BINARY", "soffice"),
			Timeout:       getEnvDuration("RENDER_TIMEOUT", 120*time.Second),
			MaxConcurrent: getEnvInt("RENDER_MAX_CONCURRENT", 2),
			ProbeTTL:      getEnvDuration("RENDER_PROBE_TTL", 30*time.Second),
			TempDir:       getEnv("RENDER_TEMP_DIR", ""),
		},
	}
}

// LedgerEnabled reports whether a database is configured for the conversions ledger.
func (c *AppConfig) LedgerEnabled() bool {
	return c.Database.Host != ""
}

// ArchivalEnabled reports whether original uploads should be archived.
func (c *AppConfig) ArchivalEnabled() bool {
	return c.MinIO.Endpoint != "" && c.MinIO.Bucket != ""
}

// NotifierEnabled reports whether operator email can be sent.
func (c *AppConfig) NotifierEnabled() bool {
	return c.SMTP.User != "" && c.SMTP.Password != "" && c.SMTP.To != ""
}

// Location resolves the configured timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

// getEnvDuration accepts Go duration strings ("90s") or bare seconds ("90").
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
