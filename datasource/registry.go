package datasource

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zeptools/gw-multids/db"
	"github.com/zeptools/gw-multids/db/session"
	"github.com/zeptools/gw-multids/db/sqldb"
	"github.com/zeptools/gw-multids/metrics"
)

// Config is the bound datasource configuration
type Config struct {
	Mode        Mode
	DefaultName Name   // required in dynamic mode
	UnknownKey  Policy // dynamic mode only
	Multi       map[Name]*sqldb.Conf

	// Session is handed to every session factory and transaction manager.
	// SessionOverrides change it for single backends in static mode.
	Session          session.Settings
	SessionOverrides map[Name]session.Override
}

type Option func(*Registry)

func WithLogger(logger *log.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithFactories replaces the globally registered pool factories
func WithFactories(f sqldb.Factories) Option {
	return func(r *Registry) {
		r.factories = f
	}
}

// WithMetrics exports routing selections and pool stats to reg
func WithMetrics(reg prometheus.Registerer) Option {
	return func(r *Registry) {
		r.promReg = reg
	}
}

// Registry builds the configured pools and exposes their resource chains.
type Registry struct {
	logger    *log.Logger
	factories sqldb.Factories
	promReg   prometheus.Registerer

	mu         sync.RWMutex
	registered bool
	mode       Mode
	order      []Name // pool construction order
	pools      map[Name]sqldb.Client
	bundles    map[Name]*Bundle
	routing    *RoutingDataSource
	shared     *Chain
	metrics    *metrics.Metrics
}

func NewRegistry(options ...Option) *Registry {
	r := &Registry{}
	for _, o := range options {
		o(r)
	}
	if r.logger == nil {
		r.logger = log.Default().WithPrefix("datasource")
	}
	if r.factories == nil {
		r.factories = sqldb.Registered()
	}
	return r
}

type plan struct {
	mode     Mode
	names    []Name
	confs    map[Name]*sqldb.Conf
	settings map[Name]session.Settings
	def      Name
	policy   Policy
}

func (r *Registry) validate(cfg Config) (*plan, error) {
	p := &plan{
		confs:    make(map[Name]*sqldb.Conf, len(cfg.Multi)),
		settings: make(map[Name]session.Settings, len(cfg.Multi)),
	}

	switch cfg.Mode {
	case Static, "":
		p.mode = Static
	case Dynamic:
		p.mode = Dynamic
	default:
		return nil, ConfigurationError{Reason: ErrInvalidMode, Detail: string(cfg.Mode)}
	}
	switch cfg.UnknownKey {
	case PolicyFail, "":
		p.policy = PolicyFail
	case PolicyFallback:
		p.policy = PolicyFallback
	default:
		return nil, ConfigurationError{Reason: ErrInvalidPolicy, Detail: string(cfg.UnknownKey)}
	}

	if len(cfg.Multi) == 0 {
		return nil, ConfigurationError{Reason: ErrEmptyConfig}
	}

	folded := make(map[string]Name, len(cfg.Multi))
	for raw, conf := range cfg.Multi {
		name, err := ParseName(string(raw))
		if err != nil {
			return nil, err
		}
		key := strings.ToLower(string(name))
		if prev, dup := folded[key]; dup {
			return nil, ConfigurationError{
				Name:   string(name),
				Reason: ErrDuplicateName,
				Detail: fmt.Sprintf("collides with %q", prev),
			}
		}
		folded[key] = name
		if conf == nil {
			return nil, ConfigurationError{Name: string(name), Reason: ErrUnknownType, Detail: "empty datasource entry"}
		}
		if !r.factories.Supports(conf.Type) {
			return nil, ConfigurationError{
				Name:   string(name),
				Reason: ErrUnknownType,
				Detail: fmt.Sprintf("type %q, supported: %s", conf.Type, strings.Join(r.factories.Types(), ", ")),
			}
		}
		p.confs[name] = conf
		p.names = append(p.names, name)
	}
	sort.Slice(p.names, func(i, j int) bool { return p.names[i] < p.names[j] })

	if err := cfg.Session.Validate(); err != nil {
		return nil, ConfigurationError{Reason: ErrInvalidSettings, Detail: err.Error()}
	}
	for raw, o := range cfg.SessionOverrides {
		name := Name(strings.TrimSpace(string(raw)))
		if _, ok := p.confs[name]; !ok {
			return nil, ConfigurationError{Name: string(raw), Reason: ErrUnknownOverride}
		}
		merged := cfg.Session.Merge(o)
		if err := merged.Validate(); err != nil {
			return nil, ConfigurationError{Name: string(name), Reason: ErrInvalidSettings, Detail: err.Error()}
		}
		p.settings[name] = merged
	}
	for _, name := range p.names {
		if _, ok := p.settings[name]; !ok {
			p.settings[name] = cfg.Session
		}
	}

	def := Name(strings.TrimSpace(string(cfg.DefaultName)))
	if p.mode == Dynamic && def == "" {
		return nil, ConfigurationError{Reason: ErrDefaultNotFound, Detail: "dynamic mode needs a default name"}
	}
	if def != "" {
		if _, ok := p.confs[def]; !ok {
			return nil, ConfigurationError{Name: string(def), Reason: ErrDefaultNotFound}
		}
	}
	p.def = def

	seen := map[string]bool{}
	for _, id := range p.ids() {
		if seen[id.String()] {
			return nil, ConfigurationError{Name: string(id.Name), Reason: ErrDuplicateName, Detail: "identifier " + id.String()}
		}
		seen[id.String()] = true
	}
	return p, nil
}

func (p *plan) ids() []ID {
	if p.mode == Dynamic {
		ids := make([]ID, 0, len(RoutingKinds))
		for _, k := range RoutingKinds {
			ids = append(ids, ID{Name: RoutingName, Kind: k})
		}
		return ids
	}
	ids := make([]ID, 0, len(p.names)*len(BundleKinds))
	for _, n := range p.names {
		for _, k := range BundleKinds {
			ids = append(ids, ID{Name: n, Kind: k})
		}
	}
	return ids
}

// Register validates cfg, builds every pool and wires the resource chains.
// Nothing is built when validation fails. When a pool fails to build, the pools
// built before it are closed and the registry stays empty.
// A registry accepts one successful Register until Close.
func (r *Registry) Register(ctx context.Context, cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registered {
		return ConfigurationError{Reason: ErrAlreadyRegistered}
	}

	p, err := r.validate(cfg)
	if err != nil {
		return err
	}

	pools, err := r.buildPools(ctx, p)
	if err != nil {
		return err
	}

	m, err := metrics.New(r.promReg)
	if err == nil {
		for _, name := range p.names {
			if err = m.RegisterPool(string(name), pools[name].DB()); err != nil {
				break
			}
		}
	}
	if err != nil {
		m.UnregisterPools()
		r.closePools(p.names, pools)
		return fmt.Errorf("register pool metrics: %w", err)
	}

	var table *Table
	if p.mode == Dynamic {
		if table, err = NewTable(pools, p.def); err != nil {
			m.UnregisterPools()
			r.closePools(p.names, pools)
			return err
		}
	}

	r.mode = p.mode
	r.order = p.names
	r.pools = pools
	r.metrics = m
	if p.mode == Dynamic {
		r.routing = NewRoutingDataSource(table, p.policy, m)
		r.shared = newChain(RoutingName, r.routing, cfg.Session, r.logger.With("datasource", RoutingName))
	} else {
		r.bundles = make(map[Name]*Bundle, len(p.names))
		for _, name := range p.names {
			r.bundles[name] = newBundle(name, pools[name], p.settings[name], r.logger.With("datasource", name))
		}
	}
	r.registered = true

	for _, id := range p.ids() {
		r.logger.Info("resource registered", "id", id, "kind", id.Kind)
	}
	if p.mode == Dynamic {
		r.logger.Info("routing data source ready", "default", p.def, "unknown_key", p.policy, "targets", len(p.names))
	}
	return nil
}

func (r *Registry) buildPools(ctx context.Context, p *plan) (map[Name]sqldb.Client, error) {
	pools := make(map[Name]sqldb.Client, len(p.names))
	built := make([]Name, 0, len(p.names))
	for _, name := range p.names {
		conf := p.confs[name]
		client, err := r.factories.New(conf.Type, conf)
		if err == nil {
			err = client.Init(ctx)
		}
		if err != nil {
			r.logger.Error("pool construction failed", "datasource", name, "conf", conf, "err", err)
			r.closePools(built, pools)
			return nil, PoolConstructionError{Name: name, Err: err}
		}
		r.logger.Info("pool initialized", "datasource", name, "conf", conf)
		pools[name] = client
		built = append(built, name)
	}
	return pools, nil
}

// closePools closes pools in reverse order of names
func (r *Registry) closePools(names []Name, pools map[Name]sqldb.Client) error {
	var errs []error
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		if err := db.CloseClient(r.logger, string(name)+KindPool.Suffix(), pools[name]); err != nil {
			errs = append(errs, fmt.Errorf("close pool %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every pool in reverse construction order and resets the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.registered {
		return nil
	}
	r.metrics.UnregisterPools()
	err := r.closePools(r.order, r.pools)
	r.registered = false
	r.mode = ""
	r.order = nil
	r.pools = nil
	r.bundles = nil
	r.routing = nil
	r.shared = nil
	r.metrics = nil
	return err
}

func (r *Registry) Mode() Mode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mode
}

// Names lists the configured names in construction order
func (r *Registry) Names() []Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Name(nil), r.order...)
}

// IDs lists every exposed identifier, grouped by name in construction order
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.registered {
		return nil
	}
	p := plan{mode: r.mode, names: r.order}
	return p.ids()
}

// Bundle returns the resource chain of name. Static mode only.
func (r *Registry) Bundle(name Name) (*Bundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.registered {
		return nil, ErrNotRegistered
	}
	b, ok := r.bundles[name]
	if !ok {
		return nil, NotFoundError{ID: ID{Name: name, Kind: KindPool}}
	}
	return b, nil
}

// RoutingDataSource returns the routing data source. Dynamic mode only.
func (r *Registry) RoutingDataSource() (*RoutingDataSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.registered {
		return nil, ErrNotRegistered
	}
	if r.routing == nil {
		return nil, NotFoundError{ID: ID{Name: RoutingName, Kind: KindRoutingDataSource}}
	}
	return r.routing, nil
}

// Shared returns the chain built over the routing data source. Dynamic mode only.
func (r *Registry) Shared() (*Chain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.registered {
		return nil, ErrNotRegistered
	}
	if r.shared == nil {
		return nil, NotFoundError{ID: ID{Name: RoutingName, Kind: KindSessionFactory}}
	}
	return r.shared, nil
}

// Lookup returns the resource exposed under id, building it on first access.
func (r *Registry) Lookup(id ID) (any, error) {
	r.mu.RLock()
	registered, bundles, routing, shared := r.registered, r.bundles, r.routing, r.shared
	r.mu.RUnlock()
	if !registered {
		return nil, ErrNotRegistered
	}

	if id.Name == RoutingName && routing != nil {
		if id.Kind == KindRoutingDataSource {
			return routing, nil
		}
		return shared.stage(id.Kind)
	}
	if b, ok := bundles[id.Name]; ok && id.Kind != KindRoutingDataSource {
		return b.stage(id.Kind)
	}
	return nil, NotFoundError{ID: id}
}

// LookupAs is a typed wrapper around Lookup.
func LookupAs[T any](r *Registry, id ID) (T, error) {
	var zero T
	v, err := r.Lookup(id)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, TypeMismatchError{
			ID:       id,
			Expected: reflect.TypeOf((*T)(nil)).Elem().String(),
			Actual:   fmt.Sprintf("%T", v),
		}
	}
	return typed, nil
}

// Stats reports how many times each built resource has been constructed.
// Pools and the routing data source are built during Register and always count one.
func (r *Registry) Stats() map[ID]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[ID]int{}
	if !r.registered {
		return out
	}
	if r.routing != nil {
		out[ID{Name: RoutingName, Kind: KindRoutingDataSource}] = 1
		for k, n := range r.shared.Builds() {
			out[ID{Name: RoutingName, Kind: k}] = n
		}
		return out
	}
	for name, b := range r.bundles {
		out[ID{Name: name, Kind: KindPool}] = 1
		for k, n := range b.Builds() {
			out[ID{Name: name, Kind: k}] = n
		}
	}
	return out
}
