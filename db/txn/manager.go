// Package txn coordinates commit and rollback on the pool a sqldb.Source resolves.
package txn

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"
	"github.com/zeptools/gw-multids/db/session"
	"github.com/zeptools/gw-multids/db/sqldb"
)

// Tx is a transaction on one named pool
type Tx struct {
	*sqlx.Tx
	Name   string
	logger *log.Logger
}

// Manager begins transactions. It keeps its own sqlx handles, separate from any session factory.
type Manager struct {
	source   sqldb.Source
	settings session.Settings
	logger   *log.Logger

	mu  sync.Mutex
	dbs map[string]*session.DB
}

func NewManager(source sqldb.Source, settings session.Settings, logger *log.Logger) (*Manager, error) {
	if source == nil {
		return nil, fmt.Errorf("transaction manager needs a source")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		source:   source,
		settings: settings,
		logger:   logger,
		dbs:      map[string]*session.DB{},
	}, nil
}

func (m *Manager) db(ctx context.Context) (*session.DB, error) {
	target, err := m.source.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if db, ok := m.dbs[target.Name]; ok {
		return db, nil
	}
	db, err := session.NewDB(target, m.settings, m.logger)
	if err != nil {
		return nil, err
	}
	m.dbs[target.Name] = db
	return db, nil
}

// Begin starts a transaction on the pool resolved from ctx.
// The pool is chosen once; the whole transaction stays on it.
func (m *Manager) Begin(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	db, err := m.db(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{Tx: tx, Name: db.Name, logger: db.Logger()}, nil
}
