// Package metrics exposes routing and pool statistics to prometheus.
package metrics

import (
	"database/sql"
	"errors"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes recorded by Metrics.Selected
const (
	OutcomeDefault  = "default"  // no routing key
	OutcomeMatched  = "matched"  // key named a configured pool
	OutcomeFallback = "fallback" // unknown key, default pool used
	OutcomeRejected = "rejected" // unknown key, error returned
)

// UnknownTarget is the target label of rejected selections. Unknown keys come
// from callers and are never used as label values.
const UnknownTarget = "unknown"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	reg        prometheus.Registerer
	selections *prometheus.CounterVec

	mu    sync.Mutex
	pools map[string]prometheus.Collector
}

// New registers the routing counter with reg.
// A counter already registered by an earlier Metrics on the same reg is reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}
	selections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gw_multids",
		Subsystem: "routing",
		Name:      "selections_total",
		Help:      "The total number of pool selections made by the routing data source",
	}, []string{"target", "outcome"})
	if err := reg.Register(selections); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		selections = existing
	}
	return &Metrics{
		reg:        reg,
		selections: selections,
		pools:      map[string]prometheus.Collector{},
	}, nil
}

// Selected counts one routing decision
func (m *Metrics) Selected(target, outcome string) {
	if m == nil {
		return
	}
	m.selections.WithLabelValues(target, outcome).Inc()
}

// RegisterPool exports the database/sql stats of db under db_name=name.
func (m *Metrics) RegisterPool(name string, db *sql.DB) error {
	if m == nil {
		return nil
	}
	c := collectors.NewDBStatsCollector(db, name)
	if err := m.reg.Register(c); err != nil {
		return err
	}
	m.mu.Lock()
	m.pools[name] = c
	m.mu.Unlock()
	return nil
}

// UnregisterPools removes every collector added by RegisterPool
func (m *Metrics) UnregisterPools() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, c := range m.pools {
		m.reg.Unregister(c)
		delete(m.pools, name)
	}
}

// Handler serves the metrics of g in the prometheus text format
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
