package mysql

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeptools/gw-multids/db/sqldb"
)

func TestBuildDSN(t *testing.T) {
	conf := sqldb.Conf{Host: "db1", Port: 3306, User: "app", PW: "secret", DB: "orders", TZ: "UTC"}.WithDefaults()
	dsn, err := BuildDSN(&conf)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, "app:secret@tcp(db1:3306)/orders?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "multiStatements=true")
	assert.Contains(t, dsn, "timeout=5s")
}

func TestBuildDSNDefaultPort(t *testing.T) {
	dsn, err := BuildDSN(&sqldb.Conf{Host: "db1", User: "app", DB: "orders"})
	require.NoError(t, err)
	assert.Contains(t, dsn, "tcp(db1:3306)")
}

func TestBuildDSNOverride(t *testing.T) {
	dsn, err := BuildDSN(&sqldb.Conf{DSN: "app:pw@tcp(other:3307)/x"})
	require.NoError(t, err)
	assert.Equal(t, "app:pw@tcp(other:3307)/x", dsn)

	_, err = BuildDSN(&sqldb.Conf{DSN: "app:pw@tcp(other:3307)x"})
	assert.Error(t, err)
}

func TestBuildDSNBadTimezone(t *testing.T) {
	_, err := BuildDSN(&sqldb.Conf{Host: "db1", TZ: "Nowhere/Atlantis"})
	assert.Error(t, err)
}

func TestNewAppliesDefaults(t *testing.T) {
	c, err := New(&sqldb.Conf{Host: "db1", ConnectTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, sqldb.DefaultMaxOpenConns, c.GetConf().MaxOpenConns)
	assert.Equal(t, time.Second, c.GetConf().ConnectTimeout)
	assert.Nil(t, c.DB(), "pool is not opened before Init")
	assert.NoError(t, c.Close())
}
