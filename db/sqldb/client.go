package sqldb

import (
	"context"
	"database/sql"
)

// Client is the connection pool of one configured backend.
// Init opens and verifies the pool. A Client must not be used before Init succeeds.
type Client interface {
	Init(ctx context.Context) error
	Close() error
	DB() *sql.DB
	DriverName() string // database/sql driver name, used by sqlx for bind types
	GetConf() *Conf
	GetDSN() string
	Ping(ctx context.Context) error
}
