// Package session turns a sqldb.Source into sqlx handles.
//
// A Factory opens one *sqlx.DB per resolved pool and caches it.
// A Template runs queries against whatever pool the Factory resolves for the
// context of each call, so a Template over a routing data source follows the
// routing key of the caller.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
	"github.com/zeptools/gw-multids/db/sqldb"
)

// DB is a sqlx handle bound to one pool
type DB struct {
	*sqlx.DB
	Name   string
	logger *log.Logger
}

// NewDB wraps the pool of target in sqlx using the column mapper of settings.
// The returned DB shares the pool, closing it is the owner's job.
func NewDB(target sqldb.Target, settings Settings, logger *log.Logger) (*DB, error) {
	if target.Client == nil || target.Client.DB() == nil {
		return nil, fmt.Errorf("pool %q is not initialized", target.Name)
	}
	mapper, err := settings.Mapper()
	if err != nil {
		return nil, err
	}
	db := sqlx.NewDb(target.Client.DB(), target.Client.DriverName())
	db.Mapper = reflectx.NewMapperFunc("db", mapper)
	d := &DB{DB: db, Name: target.Name}
	if settings.Trace {
		if logger == nil {
			logger = log.Default()
		}
		d.logger = logger.With("target", target.Name)
	}
	return d, nil
}

// Logger is nil unless tracing is enabled
func (d *DB) Logger() *log.Logger {
	return d.logger
}

// Factory hands out sqlx handles for the pool its source resolves.
type Factory struct {
	source   sqldb.Source
	settings Settings
	logger   *log.Logger

	mu  sync.Mutex
	dbs map[string]*DB
}

func NewFactory(source sqldb.Source, settings Settings, logger *log.Logger) (*Factory, error) {
	if source == nil {
		return nil, fmt.Errorf("session factory needs a source")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Factory{
		source:   source,
		settings: settings,
		logger:   logger,
		dbs:      map[string]*DB{},
	}, nil
}

func (f *Factory) Settings() Settings {
	return f.settings
}

// Open returns the handle for the pool resolved from ctx.
// Resolution errors are returned unchanged.
func (f *Factory) Open(ctx context.Context) (*DB, error) {
	target, err := f.source.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if db, ok := f.dbs[target.Name]; ok {
		return db, nil
	}
	db, err := NewDB(target, f.settings, f.logger)
	if err != nil {
		return nil, err
	}
	f.dbs[target.Name] = db
	return db, nil
}
