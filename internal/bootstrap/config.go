package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/paragishere/Cyvance-chat/internal/infra/setup"
	"github.com/paragishere/Cyvance-chat/internal/service"
)

// Config 结构体用于存储从环境变量或 .env 文件加载的配置
type Config struct {
	ServerPort string
	AppEnv     string // development / production
	LogLevel   string

	DBDriver   string // mysql / postgres
	DBDSN      string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	RedisAddr     string // 为空时不使用 Redis
	RedisPassword string
	RedisDB       int
	KeyPrefix     string

	RoomIdleMinutes   int
	MaxImageSizeMB    int
	AllowedImageTypes []string
	RoomLockTimeout   time.Duration

	MediaRoot string
	MediaURL  string

	PurgeSchedule      string // robfig/cron 表达式，为空时只在请求时清理
	CORSAllowedOrigins []string
}

// LoadConfig 从环境变量加载配置
func LoadConfig() (*Config, error) {
	// 优先加载 .env 文件 (如果存在)
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:         envOr("SERVER_PORT", "8080"),
		AppEnv:             envOr("APP_ENV", "development"),
		LogLevel:           envOr("LOG_LEVEL", "info"),
		DBDriver:           strings.ToLower(envOr("DB_DRIVER", "mysql")),
		DBDSN:              os.Getenv("DB_DSN"),
		DBUser:             os.Getenv("DB_USER"),
		DBPassword:         os.Getenv("DB_PASSWORD"),
		DBHost:             envOr("DB_HOST", "127.0.0.1"),
		DBPort:             os.Getenv("DB_PORT"),
		DBName:             envOr("DB_NAME", "ephemeral_chat"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		KeyPrefix:          envOr("REDIS_KEY_PREFIX", "chat:"),
		AllowedImageTypes:  splitList(envOr("ALLOWED_IMAGE_TYPES", "image/jpeg,image/png,image/gif,image/webp")),
		MediaRoot:          envOr("MEDIA_ROOT", "./media"),
		MediaURL:           envOr("MEDIA_URL", "/media/"),
		PurgeSchedule:      strings.TrimSpace(os.Getenv("PURGE_SCHEDULE")),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	var err error
	if cfg.RedisDB, err = envInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RoomIdleMinutes, err = envInt("ROOM_IDLE_MINUTES", 120); err != nil {
		return nil, err
	}
	if cfg.MaxImageSizeMB, err = envInt("MAX_IMAGE_SIZE_MB", 5); err != nil {
		return nil, err
	}
	if cfg.RoomLockTimeout, err = envDuration("ROOM_LOCK_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	// --- 默认值与检查 ---
	if cfg.DBDriver != "mysql" && cfg.DBDriver != "postgres" {
		return nil, fmt.Errorf("environment variable DB_DRIVER must be mysql or postgres, got %q", cfg.DBDriver)
	}
	if cfg.DBPort == "" {
		if cfg.DBDriver == "postgres" {
			cfg.DBPort = "5432"
		} else {
			cfg.DBPort = "3306"
		}
	}
	if cfg.RoomIdleMinutes <= 0 {
		return nil, fmt.Errorf("environment variable ROOM_IDLE_MINUTES must be positive")
	}
	if cfg.MaxImageSizeMB <= 0 {
		return nil, fmt.Errorf("environment variable MAX_IMAGE_SIZE_MB must be positive")
	}
	if len(cfg.AllowedImageTypes) == 0 {
		return nil, fmt.Errorf("environment variable ALLOWED_IMAGE_TYPES cannot be empty")
	}
	if !strings.HasSuffix(cfg.MediaURL, "/") {
		cfg.MediaURL += "/"
	}

	// 验证日志级别
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// Settings 构造各业务服务使用的配置
func (c *Config) Settings() service.Settings {
	return service.Settings{
		IdleThreshold:     time.Duration(c.RoomIdleMinutes) * time.Minute,
		MaxImageBytes:     int64(c.MaxImageSizeMB) * 1024 * 1024,
		AllowedImageTypes: c.AllowedImageTypes,
		LockTimeout:       c.RoomLockTimeout,
	}
}

// DBOptions 构造数据库连接参数
func (c *Config) DBOptions() setup.DBOptions {
	level, _ := logrus.ParseLevel(c.LogLevel)
	return setup.DBOptions{
		Driver:   c.DBDriver,
		DSN:      c.DBDSN,
		User:     c.DBUser,
		Password: c.DBPassword,
		Host:     c.DBHost,
		Port:     c.DBPort,
		Name:     c.DBName,
		LogLevel: level,
	}
}

// UseRedis 是否配置了 Redis
func (c *Config) UseRedis() bool {
	return c.RedisAddr != ""
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an integer: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be a duration: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
