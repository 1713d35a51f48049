package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-sql-driver/mysql"
	"github.com/zeptools/gw-multids/db/sqldb"
)

const (
	Type       = "mysql"
	DriverName = "mysql"
)

type Client struct {
	Conf *sqldb.Conf

	// db fields are implementation details, not exported
	db  *sql.DB
	dsn string
}

// Ensure mysql.Client implements sqldb.Client interface
var _ sqldb.Client = (*Client)(nil)

// Register makes the "mysql" type available to sqldb.New
func Register() {
	sqldb.RegisterFactory(Type, New)
}

func New(conf *sqldb.Conf) (sqldb.Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("mysql: nil conf")
	}
	normalized := conf.WithDefaults()
	return &Client{Conf: &normalized}, nil
}

// BuildDSN returns conf.DSN when set (after checking it parses), otherwise composes one
func BuildDSN(conf *sqldb.Conf) (string, error) {
	if conf.DSN != "" {
		if _, err := mysql.ParseDSN(conf.DSN); err != nil {
			return "", fmt.Errorf("invalid mysql dsn: %w", err)
		}
		return conf.DSN, nil
	}
	cfg := mysql.NewConfig()
	cfg.User = conf.User
	cfg.Passwd = conf.PW
	cfg.Net = "tcp"
	port := conf.Port
	if port == 0 {
		port = 3306
	}
	cfg.Addr = net.JoinHostPort(conf.Host, strconv.Itoa(port))
	cfg.DBName = conf.DB
	cfg.ParseTime = true
	cfg.MultiStatements = true
	cfg.Timeout = conf.ConnectTimeout
	cfg.Params = map[string]string{"sql_mode": "ANSI_QUOTES"}
	if conf.TZ != "" {
		loc, err := time.LoadLocation(conf.TZ)
		if err != nil {
			return "", fmt.Errorf("invalid mysql tz %q: %w", conf.TZ, err)
		}
		cfg.Loc = loc
	}
	return cfg.FormatDSN(), nil
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
		return fmt.Errorf("mysql: %w", err)
	}
	c.db = db
	log.Debug("mysql client initialized", "addr", c.Conf.Host, "db", c.Conf.DB)
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
		return fmt.Errorf("mysql client not initialized")
	}
	return c.db.PingContext(ctx)
}
