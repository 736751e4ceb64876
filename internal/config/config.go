package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"draw-service/internal/logger"
)

// Config holds all configuration for the service, the worker and drawctl.
type Config struct {
	Env      string
	LogLevel string
	GinMode  string
	Server   ServerConfig
	DB       DBConfig
	Redis    RedisConfig
	Draw     DrawConfig
	Lock     LockConfig
	NodeID   int64
}

type ServerConfig struct {
	Port        string
	GRPCPort    string
	CORSOrigins []string
}

type DBConfig struct {
	Driver   string // mysql or sqlite
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	DSN      string // overrides the individual fields when set
	Timeout  time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DrawConfig carries the business constants of the draw core.
type DrawConfig struct {
	EntryFee            int64
	CompletionThreshold int
	CloseAfter          time.Duration
	TaskReward          int64
	ScanInterval        time.Duration
	ScanMaxBackoff      time.Duration
	SelectionTimeout    time.Duration
}

type LockConfig struct {
	Wait time.Duration
	TTL  time.Duration
}

// Load reads .env (current dir, then parent) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found in current directory, trying parent")
		if err := godotenv.Load("../.env"); err != nil {
			logger.Debug("No .env file found, using system environment variables")
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return &Config{
		Env:      v.GetString("APP_ENV"),
		LogLevel: v.GetString("LOG_LEVEL"),
		GinMode:  v.GetString("GIN_MODE"),
		NodeID:   v.GetInt64("NODE_ID"),
		Server: ServerConfig{
			Port:        v.GetString("PORT"),
			GRPCPort:    v.GetString("GRPC_PORT"),
			CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		},
		DB: DBConfig{
			Driver:   v.GetString("DB_DRIVER"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			DSN:      v.GetString("DB_DSN"),
			Timeout:  v.GetDuration("DB_TIMEOUT"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_URL"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Draw: DrawConfig{
			EntryFee:            v.GetInt64("ENTRY_FEE"),
			CompletionThreshold: v.GetInt("COMPLETION_THRESHOLD"),
			CloseAfter:          v.GetDuration("DRAW_CLOSE_AFTER"),
			TaskReward:          v.GetInt64("TASK_REWARD"),
			ScanInterval:        v.GetDuration("SCAN_INTERVAL"),
			ScanMaxBackoff:      v.GetDuration("SCAN_MAX_BACKOFF"),
			SelectionTimeout:    v.GetDuration("SELECTION_TIMEOUT"),
		},
		Lock: LockConfig{
			Wait: v.GetDuration("LOCK_WAIT"),
			TTL:  v.GetDuration("LOCK_TTL"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", "8080")
	v.SetDefault("GRPC_PORT", "50051")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("NODE_ID", 1)

	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_NAME", "draws")
	v.SetDefault("DB_TIMEOUT", 5*time.Second)

	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ENTRY_FEE", 100)
	v.SetDefault("COMPLETION_THRESHOLD", 2500)
	v.SetDefault("DRAW_CLOSE_AFTER", 6*time.Hour)
	v.SetDefault("TASK_REWARD", 100)
	v.SetDefault("SCAN_INTERVAL", 60*time.Second)
	v.SetDefault("SCAN_MAX_BACKOFF", 5*time.Minute)
	v.SetDefault("SELECTION_TIMEOUT", time.Minute)

	v.SetDefault("LOCK_WAIT", 3*time.Second)
	v.SetDefault("LOCK_TTL", 30*time.Second)
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
