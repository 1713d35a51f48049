package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeptools/gw-multids/db/sqldb/sqldbtest"
)

func scrape(t *testing.T, g prometheus.Gatherer) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler(g).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestSelected(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Selected("orders", OutcomeDefault)
	m.Selected("orders", OutcomeDefault)
	m.Selected("users", OutcomeMatched)
	assert.Contains(t, scrape(t, reg), `gw_multids_routing_selections_total{outcome="default",target="orders"} 2`)

	again, err := New(reg)
	require.NoError(t, err)
	again.Selected("users", OutcomeMatched)
	assert.Contains(t, scrape(t, reg), `gw_multids_routing_selections_total{outcome="matched",target="users"} 2`)
}

func TestNilMetrics(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	assert.Nil(t, m)
	m.Selected("orders", OutcomeDefault)
	assert.NoError(t, m.RegisterPool("orders", nil))
	m.UnregisterPools()
}

func TestPoolStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	client := sqldbtest.OpenSqlite(context.Background(), t, "orders")

	require.NoError(t, m.RegisterPool("orders", client.DB()))
	assert.Error(t, m.RegisterPool("orders", client.DB()), "same pool name twice")

	assert.Contains(t, scrape(t, reg), `go_sql_max_open_connections{db_name="orders"} 10`)

	m.UnregisterPools()
	require.NoError(t, m.RegisterPool("orders", client.DB()))
}
