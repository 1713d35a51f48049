package sqldb

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfWithDefaults(t *testing.T) {
	c := Conf{Type: "mysql"}.WithDefaults()
	assert.Equal(t, DefaultMaxOpenConns, c.MaxOpenConns)
	assert.Equal(t, DefaultMaxIdleConns, c.MaxIdleConns)
	assert.Equal(t, DefaultConnMaxLifetime, c.ConnMaxLifetime)
	assert.Equal(t, DefaultConnectTimeout, c.ConnectTimeout)

	c = Conf{MaxOpenConns: 4, ConnectTimeout: time.Second}.WithDefaults()
	assert.Equal(t, 4, c.MaxOpenConns)
	assert.Equal(t, 4, c.MaxIdleConns, "idle conns never exceed open conns by default")
	assert.Equal(t, time.Second, c.ConnectTimeout)
}

func TestConfStringHidesSecrets(t *testing.T) {
	c := Conf{Type: "pgsql", Host: "db", Port: 5432, DB: "users", PW: "hunter2"}
	assert.Equal(t, "pgsql(db:5432/users)", c.String())
	assert.NotContains(t, c.String(), "hunter2")

	c.DSN = "postgres://app:hunter2@db/users"
	assert.NotContains(t, c.String(), "hunter2")
}

type nopClient struct {
	Client
	conf *Conf
}

func TestFactories(t *testing.T) {
	f := Factories{
		"fake": func(conf *Conf) (Client, error) { return &nopClient{conf: conf}, nil },
	}
	assert.True(t, f.Supports("fake"))
	assert.False(t, f.Supports("oracle"))
	assert.Equal(t, []string{"fake"}, f.Types())

	c, err := f.New("fake", &Conf{DB: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", c.(*nopClient).conf.DB)

	_, err = f.New("oracle", &Conf{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestRegisterFactorySnapshot(t *testing.T) {
	RegisterFactory("snapshot-test", func(conf *Conf) (Client, error) { return &nopClient{conf: conf}, nil })
	snap := Registered()
	assert.True(t, snap.Supports("snapshot-test"))

	// later registrations do not leak into an earlier snapshot
	RegisterFactory("snapshot-test-2", func(conf *Conf) (Client, error) { return nil, nil })
	assert.False(t, snap.Supports("snapshot-test-2"))
	_, err := New("snapshot-test", &Conf{})
	assert.NoError(t, err)
}

func TestPostgresKeyValueDSN(t *testing.T) {
	dsn := PostgresKeyValueDSN(&Conf{Host: "db2", Port: 5432, User: "app", PW: "it's secret", DB: "users", TZ: "UTC"})
	assert.Equal(t, `host=db2 port=5432 user=app password='it\'s secret' dbname=users sslmode=disable TimeZone=UTC`, dsn)

	dsn = PostgresKeyValueDSN(&Conf{Host: "db2", DB: "users"})
	assert.False(t, strings.Contains(dsn, "port="))
	assert.False(t, strings.Contains(dsn, "TimeZone"))
}

func TestFixedSource(t *testing.T) {
	c := &nopClient{}
	target, err := Fixed{Name: "orders", Client: c}.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "orders", target.Name)
	assert.Same(t, c, target.Client)
}

func TestIsIdentifier(t *testing.T) {
	for _, s := range []string{"orders", "_a", "users2", "Orders_EU"} {
		assert.True(t, IsIdentifier(s), s)
	}
	for _, s := range []string{"", "2users", "a.b", "a-b", "a b"} {
		assert.False(t, IsIdentifier(s), s)
	}
}
