package txn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Option configures a Template
type Option func(*Template)

func ReadOnly() Option {
	return func(t *Template) {
		t.opts.ReadOnly = true
	}
}

func Isolation(level sql.IsolationLevel) Option {
	return func(t *Template) {
		t.opts.Isolation = level
	}
}

// Template runs a function inside a transaction from its Manager.
type Template struct {
	manager *Manager
	opts    sql.TxOptions
}

func NewTemplate(manager *Manager, options ...Option) *Template {
	t := &Template{manager: manager}
	for _, o := range options {
		o(t)
	}
	return t
}

func (t *Template) Manager() *Manager {
	return t.manager
}

// Execute commits when fn returns nil and rolls back when it returns an error or panics.
// A panic is re-raised after the rollback.
func (t *Template) Execute(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) (err error) {
	opts := t.opts
	tx, err := t.manager.Begin(ctx, &opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				t.manager.logger.Warn("rollback after panic failed", "target", tx.Name, "err", rbErr)
			}
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback %s: %w", tx.Name, rbErr))
		}
		return err
	}
	return tx.Commit()
}
