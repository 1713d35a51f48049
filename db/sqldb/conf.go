package sqldb

import (
	"fmt"
	"time"
)

// Pool defaults applied by WithDefaults when a field is left at zero
const (
	DefaultMaxOpenConns    = 10
	DefaultMaxIdleConns    = 10
	DefaultConnMaxLifetime = 3 * time.Minute
	DefaultConnectTimeout  = 5 * time.Second
)

type Conf struct {
	Type string `yaml:"type" json:"type"` // mysql, pgsql, postgres, sqlite
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
	User string `yaml:"user" json:"user"`
	PW   string `yaml:"pw" json:"pw"`
	DB   string `yaml:"db" json:"db"`   // database name. file path for sqlite
	TZ   string `yaml:"tz" json:"tz"`   // Connection Timezone
	DSN  string `yaml:"dsn" json:"dsn"` // To Overwrite Default DSN

	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" json:"connect_timeout"` // bounds Init's first ping
}

// WithDefaults returns a copy of c with zero pool settings replaced by the package defaults.
func (c Conf) WithDefaults() Conf {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = DefaultMaxOpenConns
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = min(DefaultMaxIdleConns, c.MaxOpenConns)
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = DefaultConnMaxLifetime
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	return c
}

// String never includes the password or the raw DSN
func (c Conf) String() string {
	if c.DSN != "" {
		return fmt.Sprintf("%s(dsn)", c.Type)
	}
	return fmt.Sprintf("%s(%s:%d/%s)", c.Type, c.Host, c.Port, c.DB)
}
