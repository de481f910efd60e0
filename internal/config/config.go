package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// 缓存后端
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr    string `env:"LISTEN_ADDR"`
	Port          string `env:"PORT" envDefault:"8080"`
	DatabasePath  string `env:"DATABASE_PATH" envDefault:"chatbubbles.db"`
	SessionSecret string `env:"SESSION_SECRET" envDefault:"chatbubbles-dev-secret"`
	GinMode       string `env:"GIN_MODE" envDefault:"release"`
	UploadDir     string `env:"UPLOAD_DIR" envDefault:"web/static/uploads"`
	UploadURLPath string `env:"UPLOAD_URL_PATH" envDefault:"/static/uploads"`
	AssetBaseURL  string `env:"ASSET_BASE_URL" envDefault:"/assets"`
	AssetDir      string `env:"ASSET_DIR" envDefault:"web/assets"`

	SuperRootUserName string `env:"SUPER_ROOT_USER_NAME"`
	SuperRootPassword string `env:"SUPER_ROOT_PASSWORD"`

	// 后台接口的标签长度与批量排序限制
	LabelMinLength int `env:"LABEL_MIN_LENGTH" envDefault:"2"`
	LabelMaxLength int `env:"LABEL_MAX_LENGTH" envDefault:"50"`
	ReorderLimit   int `env:"REORDER_LIMIT" envDefault:"50"`

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"20"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`

	CacheBackend  string        `env:"CACHE_BACKEND" envDefault:"memory"` // memory, redis, none
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"1h"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string        `env:"REDIS_PREFIX" envDefault:"chatbubbles"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // json, console
}

// Load 读取可选的 .env 文件后解析环境变量。
func Load() (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("load .env: %w", err)
	}
	return parse(env.Options{})
}

// LoadFrom 使用给定的变量表解析配置，不读取进程环境。
func LoadFrom(environ map[string]string) (AppConfig, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (AppConfig, error) {
	var cfg AppConfig
	if err := env.Parse(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *AppConfig) normalize() {
	c.Port = strings.TrimSpace(c.Port)
	c.ListenAddr = strings.TrimSpace(c.ListenAddr)
	if c.ListenAddr == "" {
		c.ListenAddr = fmt.Sprintf(":%s", c.Port)
	}
	c.CacheBackend = strings.ToLower(strings.TrimSpace(c.CacheBackend))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.SuperRootUserName = strings.TrimSpace(c.SuperRootUserName)
	c.SuperRootPassword = strings.TrimSpace(c.SuperRootPassword)
}

// Validate 检查相互依赖的配置项。
func (c AppConfig) Validate() error {
	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis, CacheBackendNone:
	default:
		return fmt.Errorf("unsupported CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.LabelMinLength < 1 || c.LabelMaxLength < c.LabelMinLength {
		return fmt.Errorf("invalid label length range %d-%d", c.LabelMinLength, c.LabelMaxLength)
	}
	if c.ReorderLimit < 1 {
		return errors.New("REORDER_LIMIT must be positive")
	}
	if c.RateLimitRequests < 0 {
		return errors.New("RATE_LIMIT_REQUESTS must not be negative")
	}
	return nil
}

// IsRelease 表示是否以 gin release 模式运行。
func (c AppConfig) IsRelease() bool {
	return c.GinMode == "release"
}
