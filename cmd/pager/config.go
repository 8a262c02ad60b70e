package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/agentuity/go-paging/cache"
	"github.com/agentuity/go-paging/env"
	"github.com/agentuity/go-paging/logger"
	"github.com/agentuity/go-paging/paging"
	"github.com/agentuity/go-paging/paging/sqlsource"
	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"
)

const defaultPageSize = 20

// Config is the pager configuration. A YAML file supplies the base values,
// then PAGING_DB and PAGING_REDIS_URL, then explicit flags.
type Config struct {
	DB        string        `yaml:"db"`
	Table     string        `yaml:"table"`
	Fields    string        `yaml:"fields,omitempty"`
	Where     string        `yaml:"where,omitempty"`
	Order     string        `yaml:"order,omitempty"`
	Group     string        `yaml:"group,omitempty"`
	Field     string        `yaml:"field,omitempty"`
	Page      int           `yaml:"page,omitempty"`
	Size      int           `yaml:"size,omitempty"`
	Redis     string        `yaml:"redis,omitempty"`
	CacheTTL  time.Duration `yaml:"cache_ttl,omitempty"`
	Staleness float64       `yaml:"staleness,omitempty"`
}

func (c Config) paged() bool {
	return c.Page > 0 || c.Size > 0
}

func loadConfig(cmd *cobra.Command) (Config, error) {
	var cfg Config
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if v := env.FlagOrEnv(cmd, "db", env.DatabaseEnv, ""); v != "" {
		cfg.DB = v
	}
	if v := env.FlagOrEnv(cmd, "redis", env.RedisURLEnv, ""); v != "" {
		cfg.Redis = v
	}
	for name, dst := range map[string]*string{
		"table":  &cfg.Table,
		"fields": &cfg.Fields,
		"where":  &cfg.Where,
		"order":  &cfg.Order,
		"group":  &cfg.Group,
		"field":  &cfg.Field,
	} {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	cfg.Page = env.IntFlagOrEnv(cmd, "page", "PAGING_PAGE", cfg.Page)
	cfg.Size = env.IntFlagOrEnv(cmd, "size", "PAGING_PAGE_SIZE", cfg.Size)
	if cmd.Flags().Changed("cache-ttl") {
		cfg.CacheTTL, _ = cmd.Flags().GetDuration("cache-ttl")
	}
	if cmd.Flags().Changed("staleness") {
		cfg.Staleness, _ = cmd.Flags().GetFloat64("staleness")
	}

	if cfg.DB == "" {
		return cfg, errors.New("a database is required (--db or PAGING_DB)")
	}
	if cfg.Table == "" {
		return cfg, errors.New("a table is required (--table)")
	}
	return cfg, nil
}

type engine = paging.Paging[paging.Row, paging.Row]

// openEngine builds the paging engine described by cfg. The returned func
// releases the database and the Redis client.
func openEngine(ctx context.Context, cfg Config, log logger.Logger) (*engine, func(), error) {
	db, err := sql.Open("sqlite", cfg.DB)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", cfg.DB)
	}
	closers := []func(){func() { db.Close() }}
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	src := sqlsource.NewRows(db, sqlsource.Query{
		Fields: cfg.Fields,
		Table:  cfg.Table,
		Where:  cfg.Where,
		Order:  cfg.Order,
		Group:  cfg.Group,
	}, sqlsource.WithStaleness(cfg.Staleness))
	p := paging.Of[paging.Row](src, paging.WithName(cfg.Table), paging.WithLogger(log))

	if cfg.Redis != "" {
		opts, err := redis.ParseURL(cfg.Redis)
		if err != nil {
			release()
			return nil, nil, errors.Wrap(err, "parse redis url")
		}
		client := redis.NewClient(opts)
		closers = append(closers, func() { client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			release()
			return nil, nil, errors.Wrap(err, "connect to redis")
		}
		if err := p.EnableCache(cache.NewRedis(client, cache.WithPrefix("pager")), cfg.CacheTTL); err != nil {
			release()
			return nil, nil, err
		}
		log.Debug("caching through redis at %s", opts.Addr)
	}

	if cfg.paged() {
		size := cfg.Size
		if size <= 0 {
			size = defaultPageSize
		}
		if err := p.SetPage(ctx, max(cfg.Page, 1), size); err != nil {
			release()
			return nil, nil, err
		}
	}
	return p, release, nil
}
