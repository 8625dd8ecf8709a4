package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config home-health-aid（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  DatabaseConfig
	Redis     struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Geocoding GeocodingConfig
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// GeocodingConfig 地理编码服务配置
// Base URLs are overridable so self-hosted mirrors and tests can point at
// local endpoints; empty means the provider's public default.
type GeocodingConfig struct {
	UserAgent    string
	NominatimURL string
	ArcGISURL    string
	PhotonURL    string
	Timeout      time.Duration
	MaxRetries   int
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true for local dev: if DB is unavailable, the service will
	// fall back to in-memory repositories instead of refusing to start.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "homehealth")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "25"), 25)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// Geocoding 配置
	cfg.Geocoding.UserAgent = getEnv("GEOCODING_USER_AGENT", "home_health_aid_app")
	cfg.Geocoding.NominatimURL = getEnv("GEOCODING_NOMINATIM_URL", "")
	cfg.Geocoding.ArcGISURL = getEnv("GEOCODING_ARCGIS_URL", "")
	cfg.Geocoding.PhotonURL = getEnv("GEOCODING_PHOTON_URL", "")
	cfg.Geocoding.Timeout = time.Duration(parseInt(getEnv("GEOCODING_TIMEOUT_SECONDS", "10"), 10)) * time.Second
	cfg.Geocoding.MaxRetries = parseInt(getEnv("GEOCODING_MAX_RETRIES", "3"), 3)

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
