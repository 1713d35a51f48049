package session

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeptools/gw-multids/db/sqldb"
	"github.com/zeptools/gw-multids/db/sqldb/sqldbtest"
)

type order struct {
	ID       int64
	Customer string
	TotalDue int64
}

type failingSource struct{ err error }

func (s failingSource) Resolve(context.Context) (sqldb.Target, error) {
	return sqldb.Target{}, s.err
}

func newTemplate(t *testing.T, settings Settings, logger *log.Logger) *Template {
	t.Helper()
	ctx := context.Background()
	client := sqldbtest.OpenSqlite(ctx, t, "orders")
	f, err := NewFactory(sqldb.Fixed{Name: "orders", Client: client}, settings, logger)
	require.NoError(t, err)
	tpl := NewTemplate(f)
	_, err = tpl.ExecContext(ctx, `CREATE TABLE orders (id INTEGER PRIMARY KEY, customer TEXT NOT NULL, total_due INTEGER NOT NULL)`)
	require.NoError(t, err)
	return tpl
}

func TestTemplateQueries(t *testing.T) {
	ctx := context.Background()
	tpl := newTemplate(t, Settings{}, nil)

	_, err := tpl.ExecContext(ctx, `INSERT INTO orders (customer, total_due) VALUES (?, ?)`, "ann", 120)
	require.NoError(t, err)
	_, err = tpl.NamedExecContext(ctx, `INSERT INTO orders (customer, total_due) VALUES (:customer, :total_due)`,
		order{Customer: "bob", TotalDue: 80})
	require.NoError(t, err)

	var got order
	require.NoError(t, tpl.GetContext(ctx, &got, `SELECT * FROM orders WHERE customer = ?`, "ann"))
	assert.Equal(t, int64(120), got.TotalDue)

	var all []order
	require.NoError(t, tpl.SelectContext(ctx, &all, `SELECT * FROM orders ORDER BY id`))
	require.Len(t, all, 2)
	assert.Equal(t, "bob", all[1].Customer)

	rows, err := tpl.QueryxContext(ctx, `SELECT customer FROM orders WHERE total_due > ?`, 100)
	require.NoError(t, err)
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"ann"}, names)
}

func TestTemplateTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	tpl := newTemplate(t, Settings{Trace: true}, logger)

	_, err := tpl.ExecContext(context.Background(), "\tINSERT INTO orders (customer, total_due) VALUES (?, ?)", "ann", 1)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "INSERT INTO orders")
	assert.Contains(t, buf.String(), "target=orders")
}

func TestFactoryCachesPerTarget(t *testing.T) {
	ctx := context.Background()
	tpl := newTemplate(t, Settings{}, nil)
	a, err := tpl.DB(ctx)
	require.NoError(t, err)
	b, err := tpl.Factory().Open(ctx)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, "orders", a.Name)
	assert.Nil(t, a.Logger())
}

func TestResolveErrorPropagates(t *testing.T) {
	boom := errors.New("no route")
	f, err := NewFactory(failingSource{err: boom}, Settings{}, nil)
	require.NoError(t, err)
	tpl := NewTemplate(f)

	var n int
	assert.ErrorIs(t, tpl.GetContext(context.Background(), &n, "SELECT 1"), boom)
	_, err = tpl.ExecContext(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, boom)
}

func TestNewFactoryRejectsBadSettings(t *testing.T) {
	_, err := NewFactory(sqldb.Fixed{}, Settings{NameMapper: "kebab"}, nil)
	assert.Error(t, err)
	_, err = NewFactory(nil, Settings{}, nil)
	assert.Error(t, err)
}
