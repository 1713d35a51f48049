package session

import (
	"context"
	"database/sql"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"
)

func trace(l *log.Logger, query string, args ...interface{}) {
	if l != nil {
		query = strings.ReplaceAll(query, "\t", "")
		query = strings.TrimSpace(query)
		l.Debug("trace", "query", query, "args", args)
	}
}

// Template executes queries through its Factory.
// Queries use '?' placeholders and are rebound to the bindvar of the resolved driver.
type Template struct {
	factory *Factory
}

func NewTemplate(factory *Factory) *Template {
	return &Template{factory: factory}
}

func (t *Template) Factory() *Factory {
	return t.factory
}

// DB returns the handle the next call from ctx would use
func (t *Template) DB(ctx context.Context) (*DB, error) {
	return t.factory.Open(ctx)
}

// SelectContext is a wrapper around sqlx.SelectContext that logs the query and arguments.
func (t *Template) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	db, err := t.factory.Open(ctx)
	if err != nil {
		return err
	}
	query = db.Rebind(query)
	trace(db.logger, query, args...)
	return db.DB.SelectContext(ctx, dest, query, args...)
}

// GetContext is a wrapper around sqlx.GetContext that logs the query and arguments.
func (t *Template) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	db, err := t.factory.Open(ctx)
	if err != nil {
		return err
	}
	query = db.Rebind(query)
	trace(db.logger, query, args...)
	return db.DB.GetContext(ctx, dest, query, args...)
}

// QueryxContext is a wrapper around sqlx.QueryxContext that logs the query and arguments.
func (t *Template) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	db, err := t.factory.Open(ctx)
	if err != nil {
		return nil, err
	}
	query = db.Rebind(query)
	trace(db.logger, query, args...)
	return db.DB.QueryxContext(ctx, query, args...)
}

// ExecContext is a wrapper around sqlx.ExecContext that logs the query and arguments.
func (t *Template) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	db, err := t.factory.Open(ctx)
	if err != nil {
		return nil, err
	}
	query = db.Rebind(query)
	trace(db.logger, query, args...)
	return db.DB.ExecContext(ctx, query, args...)
}

// NamedExecContext is a wrapper around sqlx.NamedExecContext that logs the query and argument.
func (t *Template) NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error) {
	db, err := t.factory.Open(ctx)
	if err != nil {
		return nil, err
	}
	trace(db.logger, query, arg)
	return db.DB.NamedExecContext(ctx, query, arg)
}
