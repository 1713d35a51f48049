package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/lib/pq"
	"github.com/zeptools/gw-multids/db/sqldb"
)

const (
	Type       = "postgres"
	DriverName = "postgres"
)

// Client is a lib/pq backed pool, for deployments that stay on the pure database/sql driver
type Client struct {
	Conf *sqldb.Conf

	db  *sql.DB
	dsn string
}

// Ensure postgres.Client implements sqldb.Client interface
var _ sqldb.Client = (*Client)(nil)

func Register() {
	sqldb.RegisterFactory(Type, New)
}

func New(conf *sqldb.Conf) (sqldb.Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("postgres: nil conf")
	}
	normalized := conf.WithDefaults()
	return &Client{Conf: &normalized}, nil
}

func (c *Client) Init(ctx context.Context) error {
	c.dsn = c.Conf.DSN
	if c.dsn == "" {
		c.dsn = sqldb.PostgresKeyValueDSN(c.Conf)
	}
	// NewConnector parses the DSN up front, unlike sql.Open
	connector, err := pq.NewConnector(c.dsn)
	if err != nil {
		return fmt.Errorf("invalid postgres dsn: %w", err)
	}
	db := sql.OpenDB(connector)
	sqldb.ApplyPoolSettings(db, c.Conf)
	if err = sqldb.PingWithin(ctx, db, c.Conf); err != nil {
		_ = db.Close()
		return fmt.Errorf("postgres: %w", err)
	}
	c.db = db
	log.Debug("postgres client initialized", "host", c.Conf.Host, "db", c.Conf.DB)
	return nil
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
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
	if c.db == nil {
		return fmt.Errorf("postgres client not initialized")
	}
	return c.db.PingContext(ctx)
}
