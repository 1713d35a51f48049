package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeptools/gw-multids/db/sqldb"
)

func TestInitRejectsMalformedDSN(t *testing.T) {
	c, err := New(&sqldb.Conf{DSN: "host='unterminated"})
	require.NoError(t, err)
	err = c.Init(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid postgres dsn")
	assert.Nil(t, c.DB())
}

func TestNilConf(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
