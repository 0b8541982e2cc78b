package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	Port                     string
	DatabaseURL              string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
	NotifyChannel            string
	NotifyFallbackSeconds    int
	DefaultTimerSeconds      int
	TimerExtendSeconds       int
	AuthJWTSecret            string
	AuthCookieName           string
	AdminUserIDs             []string
	CORSAllowedOrigins       []string
	NATSURL                  string
	RedisURL                 string
	DashboardCacheSeconds    int
	StorageProvider          string
	StorageLocalRoot         string
	StoragePublicBaseURL     string
	S3Endpoint               string
	S3Region                 string
	S3Bucket                 string
	S3AccessKey              string
	S3SecretKey              string
	LogLevel                 string
	LogFormat                string
}

func Default() Config {
	return Config{
		Port:                     "8080",
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
		NotifyChannel:            "session_state_changed",
		NotifyFallbackSeconds:    15,
		DefaultTimerSeconds:      600,
		TimerExtendSeconds:       300,
		AuthCookieName:           "neweyes_token",
		DashboardCacheSeconds:    30,
		StorageProvider:          "local",
		StorageLocalRoot:         "uploads",
		StoragePublicBaseURL:     "/uploads",
		S3Region:                 "us-east-1",
		LogLevel:                 "info",
		LogFormat:                "json",
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Port = raw
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if raw := os.Getenv("DB_MAX_OPEN_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxOpenConns = value
		}
	}
	if raw := os.Getenv("DB_MAX_IDLE_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxIdleConns = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_LIFETIME_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxLifetimeSeconds = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_IDLE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxIdleTimeSeconds = value
		}
	}
	if raw := os.Getenv("NOTIFY_CHANNEL"); raw != "" {
		cfg.NotifyChannel = raw
	}
	if raw := os.Getenv("NOTIFY_FALLBACK_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.NotifyFallbackSeconds = value
		}
	}
	if raw := os.Getenv("DEFAULT_TIMER_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.DefaultTimerSeconds = value
		}
	}
	if raw := os.Getenv("TIMER_EXTEND_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.TimerExtendSeconds = value
		}
	}
	cfg.AuthJWTSecret = os.Getenv("AUTH_JWT_SECRET")
	if raw := os.Getenv("AUTH_COOKIE_NAME"); raw != "" {
		cfg.AuthCookieName = raw
	}
	if raw := os.Getenv("ADMIN_USER_IDS"); raw != "" {
		cfg.AdminUserIDs = splitList(raw)
	}
	if raw := os.Getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		cfg.CORSAllowedOrigins = splitList(raw)
	}
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.RedisURL = os.Getenv("REDIS_URL")
	if raw := os.Getenv("DASHBOARD_CACHE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DashboardCacheSeconds = value
		}
	}
	if raw := os.Getenv("STORAGE_PROVIDER"); raw != "" {
		cfg.StorageProvider = strings.ToLower(raw)
	}
	if raw := os.Getenv("STORAGE_LOCAL_ROOT"); raw != "" {
		cfg.StorageLocalRoot = raw
	}
	if raw := os.Getenv("STORAGE_PUBLIC_BASE_URL"); raw != "" {
		cfg.StoragePublicBaseURL = strings.TrimRight(raw, "/")
	}
	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	if raw := os.Getenv("S3_REGION"); raw != "" {
		cfg.S3Region = raw
	}
	cfg.S3Bucket = os.Getenv("S3_BUCKET")
	cfg.S3AccessKey = os.Getenv("S3_ACCESS_KEY")
	cfg.S3SecretKey = os.Getenv("S3_SECRET_KEY")
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = strings.ToLower(raw)
	}
	if raw := os.Getenv("LOG_FORMAT"); raw != "" {
		cfg.LogFormat = strings.ToLower(raw)
	}
	return cfg
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
