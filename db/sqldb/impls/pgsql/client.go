package pgsql

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/zeptools/gw-multids/db/sqldb"
)

const (
	Type       = "pgsql"
	DriverName = "pgx"
)

// Client keeps the pgx pool as the real pool and exposes it through database/sql,
// so the session and transaction layers see the same *sql.DB as for other types.
type Client struct {
	Conf *sqldb.Conf
	Pool *pgxpool.Pool

	db  *sql.DB
	dsn string
}

// Ensure pgsql.Client implements sqldb.Client interface
var _ sqldb.Client = (*Client)(nil)

func Register() {
	sqldb.RegisterFactory(Type, New)
}

func New(conf *sqldb.Conf) (sqldb.Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("pgsql: nil conf")
	}
	normalized := conf.WithDefaults()
	return &Client{Conf: &normalized}, nil
}

// PoolConfig parses the DSN and applies the pool sizing of conf
func PoolConfig(conf *sqldb.Conf) (*pgxpool.Config, error) {
	dsn := conf.DSN
	if dsn == "" {
		dsn = sqldb.PostgresKeyValueDSN(conf)
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}
	config.MaxConns = int32(min(conf.MaxOpenConns, math.MaxInt32))
	config.MaxConnLifetime = conf.ConnMaxLifetime
	if conf.ConnMaxIdleTime > 0 {
		config.MaxConnIdleTime = conf.ConnMaxIdleTime
	}
	config.ConnConfig.ConnectTimeout = conf.ConnectTimeout
	return config, nil
}

func (c *Client) Init(ctx context.Context) error {
	config, err := PoolConfig(c.Conf)
	if err != nil {
		return err
	}
	c.dsn = config.ConnString()

	ctx, cancel := context.WithTimeout(ctx, c.Conf.ConnectTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to connect pgx pool: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	c.Pool = pool
	c.db = stdlib.OpenDBFromPool(pool)
	log.Debug("pgsql client initialized", "host", config.ConnConfig.Host, "db", config.ConnConfig.Database)
	return nil
}

func (c *Client) Close() error {
	if c.Pool == nil {
		return nil
	}
	err := c.db.Close()
	c.Pool.Close()
	return err
}

func (c *Client) DB() *sql.DB {
	return c.db
}

func (c *Client) DriverName() string {
	return DriverName
}

func (c *Client) GetConf() *sqldb.Conf {
	return c.Conf
}

func (c *Client) GetDSN() string {
	return c.dsn
}

func (c *Client) Ping(ctx context.Context) error {
	if c.Pool == nil {
		return fmt.Errorf("pgsql client not initialized")
	}
	return c.Pool.Ping(ctx)
}
