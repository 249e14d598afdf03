package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"pick-allocation-service/internal/adapters/cache"
	"pick-allocation-service/internal/domain"
	"pick-allocation-service/internal/platform/db"
	"pick-allocation-service/internal/ports"
)

// Distance cache backends.
const (
	CacheNone     = "none"
	CacheMemory   = "memory"
	CacheSqlite   = "sqlite"
	CachePostgres = "postgres"
	CacheRedis    = "redis"
)

// Config stores the planner configuration.
// Values come from the environment (optionally seeded from a .env file).
type Config struct {
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	PickMinutesPerLine  float64       `mapstructure:"PICK_MINUTES_PER_LINE"`
	FixedOrderCost      float64       `mapstructure:"FIXED_ORDER_COST"`
	ClosedTours         bool          `mapstructure:"CLOSED_TOURS"`
	ExactStopLimit      int           `mapstructure:"EXACT_STOP_LIMIT"`
	SolverTimeLimit     time.Duration `mapstructure:"SOLVER_TIME_LIMIT"`
	SolverWorkers       int           `mapstructure:"SOLVER_WORKERS"`
	RequireFullCoverage bool          `mapstructure:"REQUIRE_FULL_COVERAGE"`
	RouteParallelism    int           `mapstructure:"ROUTE_PARALLELISM"`

	DistanceCache    string        `mapstructure:"DISTANCE_CACHE"`
	DistanceCacheTTL time.Duration `mapstructure:"DISTANCE_CACHE_TTL"`
	SqlitePath       string        `mapstructure:"DB_PATH"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	RedisAddress     string        `mapstructure:"REDIS_ADDRESS"`
	RedisPassword    string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB          int           `mapstructure:"REDIS_DB"`

	FleetProfilePath string `mapstructure:"FLEET_PROFILE_PATH"`
}

func setDefaults(v *viper.Viper) {
	d := domain.DefaultParams()

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)

	v.SetDefault("PICK_MINUTES_PER_LINE", d.PickMinutesPerLine)
	v.SetDefault("FIXED_ORDER_COST", d.FixedOrderCost)
	v.SetDefault("CLOSED_TOURS", d.ClosedTours)
	v.SetDefault("EXACT_STOP_LIMIT", d.ExactStopLimit)
	v.SetDefault("SOLVER_TIME_LIMIT", d.TimeLimit)
	v.SetDefault("SOLVER_WORKERS", d.SolverWorkers)
	v.SetDefault("REQUIRE_FULL_COVERAGE", d.RequireFullCoverage)
	v.SetDefault("ROUTE_PARALLELISM", d.RouteParallelism)

	v.SetDefault("DISTANCE_CACHE", CacheMemory)
	v.SetDefault("DISTANCE_CACHE_TTL", time.Duration(0))
	v.SetDefault("DB_PATH", "data/distances.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDRESS", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("FLEET_PROFILE_PATH", "")
}

// Load reads configuration from the environment. envFiles are loaded first
// (default ".env"); a missing file is not an error. Variables already set in
// the environment win over file values.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load config: read env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	cfg.DistanceCache = strings.ToLower(strings.TrimSpace(cfg.DistanceCache))
	cfg.RedisPassword = trimOptionalQuotes(cfg.RedisPassword)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and that the selected cache backend has what it needs.
func (c Config) Validate() error {
	if c.PickMinutesPerLine < 0 {
		return fmt.Errorf("config: PICK_MINUTES_PER_LINE must not be negative")
	}
	if c.FixedOrderCost < 0 {
		return fmt.Errorf("config: FIXED_ORDER_COST must not be negative")
	}
	if c.ExactStopLimit < 0 {
		return fmt.Errorf("config: EXACT_STOP_LIMIT must not be negative")
	}
	if c.SolverTimeLimit < 0 {
		return fmt.Errorf("config: SOLVER_TIME_LIMIT must not be negative")
	}
	if c.SolverWorkers <= 0 {
		return fmt.Errorf("config: SOLVER_WORKERS must be positive")
	}
	if c.RouteParallelism <= 0 {
		return fmt.Errorf("config: ROUTE_PARALLELISM must be positive")
	}

	switch c.DistanceCache {
	case CacheNone, CacheMemory:
	case CacheSqlite:
		if strings.TrimSpace(c.SqlitePath) == "" {
			return fmt.Errorf("config: DB_PATH is required for the sqlite cache")
		}
	case CachePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the postgres cache")
		}
	case CacheRedis:
		if strings.TrimSpace(c.RedisAddress) == "" {
			return fmt.Errorf("config: REDIS_ADDRESS is required for the redis cache")
		}
	default:
		return fmt.Errorf("config: unknown DISTANCE_CACHE %q", c.DistanceCache)
	}
	return nil
}

// Params converts the planning settings into the immutable value the
// planner components take.
func (c Config) Params() domain.Params {
	return domain.Params{
		PickMinutesPerLine:  c.PickMinutesPerLine,
		FixedOrderCost:      c.FixedOrderCost,
		ClosedTours:         c.ClosedTours,
		ExactStopLimit:      c.ExactStopLimit,
		TimeLimit:           c.SolverTimeLimit,
		SolverWorkers:       c.SolverWorkers,
		RequireFullCoverage: c.RequireFullCoverage,
		RouteParallelism:    c.RouteParallelism,
	}
}

// OpenDistanceCache opens the configured cache backend. The returned close
// function releases its connection; it is never nil. A "none" backend
// returns a nil cache.
func OpenDistanceCache(ctx context.Context, cfg Config) (ports.DistanceCache, func() error, error) {
	noop := func() error { return nil }

	switch cfg.DistanceCache {
	case CacheNone:
		return nil, noop, nil

	case CacheMemory:
		return cache.NewMemoryDistanceCache(), noop, nil

	case CacheSqlite:
		conn, err := db.OpenSqlite(ctx, cfg.SqlitePath)
		if err != nil {
			return nil, noop, err
		}
		if err := cache.InitSchema(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, noop, err
		}
		return cache.NewSqliteDistanceCache(conn), conn.Close, nil

	case CachePostgres:
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		if err := cache.InitSchema(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, noop, err
		}
		return cache.NewSQLDistanceCache(conn), conn.Close, nil

	case CacheRedis:
		client, err := cache.DialRedis(ctx, cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, noop, err
		}
		return cache.NewRedisDistanceCache(client, cfg.DistanceCacheTTL), client.Close, nil
	}

	return nil, noop, fmt.Errorf("open distance cache: unknown backend %q", cfg.DistanceCache)
}

func trimOptionalQuotes(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "\"")
	s = strings.TrimSuffix(s, "\"")
	s = strings.TrimPrefix(s, "'")
	s = strings.TrimSuffix(s, "'")
	return s
}
