// 包 config：进程配置（.env 文件 + 环境变量 → 类型化 Config）
package config

import (
	"fmt"
	"strings"
	"time"

	"hideseek/internal/geometry"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config 汇总服务与命令行工具共用的配置项
type Config struct {
	Addr    string `env:"ADDR" envDefault:":8080"`
	APIBase string `env:"API_BASE" envDefault:"/api/v1"`

	// ZonesSource：file 读取 DataDir 下的 GeoJSON；postgres 查询 PostGIS
	ZonesSource string `env:"ZONES_SOURCE" envDefault:"file"`
	DataDir     string `env:"DATA_DIR" envDefault:"data/zones"`

	BufferSteps int `env:"BUFFER_STEPS" envDefault:"64"`
	MaxVertices int `env:"GEOMETRY_MAX_VERTICES" envDefault:"20000"`

	LookupCacheSize   int `env:"LOOKUP_CACHE_SIZE" envDefault:"4096"`
	LookupCacheTTLSec int `env:"LOOKUP_CACHE_TTL_S" envDefault:"600"`
	LookupConcurrency int `env:"LOOKUP_CONCURRENCY" envDefault:"8"`

	Redis Redis `envPrefix:"REDIS_"`
	PG    PG    `envPrefix:"PG_"`

	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	RateLimitQPS     int  `env:"RATE_LIMIT_QPS" envDefault:"200"`

	// TLS 开启且证书缺失时生成自签名证书
	TLSEnable   bool   `env:"TLS_ENABLE" envDefault:"false"`
	TLSCertPath string `env:"TLS_CERT_PATH" envDefault:"data/certs/server.crt"`
	TLSKeyPath  string `env:"TLS_KEY_PATH" envDefault:"data/certs/server.key"`

	// LookupTimeoutSec：单次请求内外部查询总时限
	LookupTimeoutSec int `env:"LOOKUP_TIMEOUT_S" envDefault:"10"`
}

// Redis：未配置 HOST 时不启用共享缓存
type Redis struct {
	Host string `env:"HOST"`
	Port string `env:"PORT" envDefault:"6379"`
	Pass string `env:"PASS"`
	DB   int    `env:"DB" envDefault:"0"`
}

func (r Redis) Enabled() bool { return r.Host != "" }

func (r Redis) Addr() string { return r.Host + ":" + r.Port }

type PG struct {
	Host         string `env:"HOST" envDefault:"localhost"`
	Port         string `env:"PORT" envDefault:"5432"`
	User         string `env:"USER" envDefault:"postgres"`
	Password     string `env:"PASSWORD"`
	DB           string `env:"DB" envDefault:"hideseek"`
	SSLMode      string `env:"SSLMODE" envDefault:"disable"`
	MaxOpenConns int    `env:"MAX_OPEN_CONNS" envDefault:"50"`
	MaxIdleConns int    `env:"MAX_IDLE_CONNS" envDefault:"25"`
}

// DSN 拼装 lib/pq 连接串
func (p PG) DSN() string {
	dsn := "postgres://" + p.User
	if p.Password != "" {
		dsn += ":" + p.Password
	}
	return dsn + "@" + p.Host + ":" + p.Port + "/" + p.DB + "?sslmode=" + p.SSLMode
}

// 文档注释：加载配置
// 背景：本地开发通过 .env 文件注入，生产环境直接使用进程环境变量。
// 约束：files 为空时尝试当前目录 .env；文件缺失不报错，已存在的环境变量不被覆盖；取值非法时返回错误。
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.ZonesSource = strings.ToLower(c.ZonesSource)
	switch c.ZonesSource {
	case "file", "postgres":
	default:
		return fmt.Errorf("ZONES_SOURCE must be file or postgres, got %q", c.ZonesSource)
	}
	c.APIBase = "/" + strings.Trim(c.APIBase, "/")
	if c.APIBase == "/" {
		c.APIBase = ""
	}
	return nil
}

// Geometry 转为几何内核参数
func (c *Config) Geometry() geometry.Options {
	return geometry.Options{BufferSteps: c.BufferSteps, MaxVertices: c.MaxVertices}
}

func (c *Config) LookupCacheTTL() time.Duration {
	return time.Duration(c.LookupCacheTTLSec) * time.Second
}

func (c *Config) LookupTimeout() time.Duration {
	return time.Duration(c.LookupTimeoutSec) * time.Second
}
