package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Env  string `env:"APP_ENV" envDefault:"dev"`
	Port int    `env:"PORT" envDefault:"8080"`

	// storage
	Storage     string `env:"STORAGE" envDefault:"postgres"`
	DBURL       string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" envDefault:"127.0.0.1"`
	DBPort      string `env:"DB_PORT" envDefault:"5432"`
	DBUser      string `env:"DB_USER" envDefault:"habithub"`
	DBPassword  string `env:"DB_PASSWORD" envDefault:"habithub"`
	DBName      string `env:"DB_NAME" envDefault:"habithub"`
	DBSSLMode   string `env:"DB_SSLMODE" envDefault:"disable"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"5"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	// auth
	JWTSecret       string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL          time.Duration `env:"JWT_TTL" envDefault:"1h"`
	BcryptCost      int           `env:"BCRYPT_COST" envDefault:"10"`
	HashConcurrency int           `env:"HASH_CONCURRENCY" envDefault:"0"`

	// http
	CORSOrigins  []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	MaxBodyBytes int64    `env:"MAX_BODY_BYTES" envDefault:"1048576"`

	// cache
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"30s"`

	// tracing
	OTELEnabled  bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint string `env:"OTEL_ENDPOINT" envDefault:"localhost:4317"`
	ServiceName  string `env:"SERVICE_NAME" envDefault:"habithub"`

	// optional user created at startup
	SeedUserName     string `env:"SEED_USER_NAME" envDefault:"Seed User"`
	SeedUserEmail    string `env:"SEED_USER_EMAIL"`
	SeedUserPassword string `env:"SEED_USER_PASSWORD"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	// a missing .env is fine; real deployments use the environment directly
	_ = godotenv.Load()

	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DBURL == "" {
		cfg.DBURL = cfg.buildDBURL()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// dbOnly is the subset cmd/migrate needs; it does not require JWT_SECRET.
type dbOnly struct {
	Env        string `env:"APP_ENV" envDefault:"dev"`
	DBURL      string `env:"DATABASE_URL"`
	DBHost     string `env:"DB_HOST" envDefault:"127.0.0.1"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"habithub"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"habithub"`
	DBName     string `env:"DB_NAME" envDefault:"habithub"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// LoadDB reads only the database settings.
func LoadDB() (Config, error) {
	_ = godotenv.Load()

	var d dbOnly
	if err := env.Parse(&d); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := Config{
		Env:        d.Env,
		Storage:    StoragePostgres,
		DBURL:      d.DBURL,
		DBHost:     d.DBHost,
		DBPort:     d.DBPort,
		DBUser:     d.DBUser,
		DBPassword: d.DBPassword,
		DBName:     d.DBName,
		DBSSLMode:  d.DBSSLMode,
	}
	if cfg.DBURL == "" {
		cfg.DBURL = cfg.buildDBURL()
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE %q (want %q or %q)", c.Storage, StoragePostgres, StorageMemory)
	}

	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}

	return nil
}

func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}

func (c Config) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}

func (c Config) buildDBURL() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

// WithTimeout bounds a storage call made on behalf of a request.
func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, duration)
}
