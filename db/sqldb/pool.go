package sqldb

import (
	"context"
	"database/sql"
	"fmt"
)

// ApplyPoolSettings copies the pool sizing of conf onto db.
// conf is expected to have gone through WithDefaults.
func ApplyPoolSettings(db *sql.DB, conf *Conf) {
	db.SetMaxOpenConns(conf.MaxOpenConns)
	db.SetMaxIdleConns(conf.MaxIdleConns)
	db.SetConnMaxLifetime(conf.ConnMaxLifetime)
	if conf.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(conf.ConnMaxIdleTime)
	}
}

// PingWithin pings db, giving up after conf.ConnectTimeout.
// sql.Open is lazy, so this is where bad hosts and credentials surface.
func PingWithin(ctx context.Context, db *sql.DB, conf *Conf) error {
	ctx, cancel := context.WithTimeout(ctx, conf.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}
