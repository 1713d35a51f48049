package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/zeptools/gw-multids/db/sqldb"
	"github.com/zeptools/gw-multids/metrics"
	"github.com/zeptools/gw-multids/routekey"
)

// Table maps names to pools. It is not modified after construction.
type Table struct {
	pools       map[Name]sqldb.Client
	defaultName Name
}

// NewTable checks that defaultName is one of the keys of pools.
func NewTable(pools map[Name]sqldb.Client, defaultName Name) (*Table, error) {
	if len(pools) == 0 {
		return nil, ConfigurationError{Reason: ErrEmptyConfig}
	}
	if _, ok := pools[defaultName]; !ok {
		return nil, ConfigurationError{Name: string(defaultName), Reason: ErrDefaultNotFound}
	}
	copied := make(map[Name]sqldb.Client, len(pools))
	for n, p := range pools {
		copied[n] = p
	}
	return &Table{pools: copied, defaultName: defaultName}, nil
}

// RoutingDataSource hands out connections from the pool named by the routing key of the context.
type RoutingDataSource struct {
	table   *Table
	policy  Policy
	metrics *metrics.Metrics
}

// Ensure RoutingDataSource implements sqldb.Source
var _ sqldb.Source = (*RoutingDataSource)(nil)

func NewRoutingDataSource(table *Table, policy Policy, m *metrics.Metrics) *RoutingDataSource {
	if policy == "" {
		policy = PolicyFail
	}
	return &RoutingDataSource{table: table, policy: policy, metrics: m}
}

// Resolve picks the pool for ctx:
// no key gives the default pool, a configured key gives its pool,
// and an unknown key is rejected or sent to the default pool depending on the policy.
func (r *RoutingDataSource) Resolve(ctx context.Context) (sqldb.Target, error) {
	def := r.table.defaultName
	key, ok := routekey.From(ctx)
	if !ok {
		r.metrics.Selected(string(def), metrics.OutcomeDefault)
		return r.target(def), nil
	}
	if _, found := r.table.pools[Name(key)]; found {
		r.metrics.Selected(key, metrics.OutcomeMatched)
		return r.target(Name(key)), nil
	}
	if r.policy == PolicyFallback {
		r.metrics.Selected(string(def), metrics.OutcomeFallback)
		return r.target(def), nil
	}
	r.metrics.Selected(metrics.UnknownTarget, metrics.OutcomeRejected)
	return sqldb.Target{}, RoutingKeyNotFoundError{Key: key}
}

func (r *RoutingDataSource) target(name Name) sqldb.Target {
	return sqldb.Target{Name: string(name), Client: r.table.pools[name]}
}

// DB returns the database/sql pool selected for ctx
func (r *RoutingDataSource) DB(ctx context.Context) (*sql.DB, error) {
	t, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	db := t.Client.DB()
	if db == nil {
		return nil, fmt.Errorf("pool %q is closed", t.Name)
	}
	return db, nil
}

// Conn acquires a connection from the pool selected for ctx.
// Acquisition errors of the pool are returned as they are.
func (r *RoutingDataSource) Conn(ctx context.Context) (*sql.Conn, error) {
	db, err := r.DB(ctx)
	if err != nil {
		return nil, err
	}
	return db.Conn(ctx)
}

// Pool returns the pool configured under name
func (r *RoutingDataSource) Pool(name Name) (sqldb.Client, bool) {
	p, ok := r.table.pools[name]
	return p, ok
}

// Names lists the configured names in sorted order
func (r *RoutingDataSource) Names() []Name {
	names := make([]Name, 0, len(r.table.pools))
	for n := range r.table.pools {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func (r *RoutingDataSource) DefaultName() Name {
	return r.table.defaultName
}

func (r *RoutingDataSource) Policy() Policy {
	return r.policy
}
