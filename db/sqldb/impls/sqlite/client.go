package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"
	"github.com/zeptools/gw-multids/db/sqldb"
	_ "modernc.org/sqlite" // side-effect
)

const (
	Type       = "sqlite"
	DriverName = "sqlite"
)

// DefaultPragmas is appended to file paths that carry no query string
const DefaultPragmas = "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

type Client struct {
	Conf *sqldb.Conf

	db  *sql.DB
	dsn string
}

// Ensure sqlite.Client implements sqldb.Client interface
var _ sqldb.Client = (*Client)(nil)

func init() {
	// sqlx only knows "sqlite3" out of the box
	sqlx.BindDriver(DriverName, sqlx.QUESTION)
}

func Register() {
	sqldb.RegisterFactory(Type, New)
}

func New(conf *sqldb.Conf) (sqldb.Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("sqlite: nil conf")
	}
	normalized := conf.WithDefaults()
	return &Client{Conf: &normalized}, nil
}

func BuildDSN(conf *sqldb.Conf) (string, error) {
	if conf.DSN != "" {
		return conf.DSN, nil
	}
	if conf.DB == "" {
		return "", fmt.Errorf("sqlite: db path is empty")
	}
	return conf.DB + DefaultPragmas, nil
}

func (c *Client) Init(ctx context.Context) error {
	var err error
	if c.dsn, err = BuildDSN(c.Conf); err != nil {
		return err
	}
	db, err := sql.Open(DriverName, c.dsn)
	if err != nil {
		return err
	}
	sqldb.ApplyPoolSettings(db, c.Conf)
	if err = sqldb.PingWithin(ctx, db, c.Conf); err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlite: %w", err)
	}
	c.db = db
	log.Debug("sqlite client initialized", "path", c.Conf.DB)
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
		return fmt.Errorf("sqlite client not initialized")
	}
	return c.db.PingContext(ctx)
}
