package datasource

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/zeptools/gw-multids/db/session"
	"github.com/zeptools/gw-multids/db/sqldb"
	"github.com/zeptools/gw-multids/db/txn"
	"golang.org/x/sync/singleflight"
)

// Chain builds the session and transaction stages over one source.
// Each stage is built on first access and cached; concurrent first accesses share one build.
// Later stages are constructed from the cached earlier stage, never from the source directly.
type Chain struct {
	name     Name
	source   sqldb.Source
	settings session.Settings
	logger   *log.Logger

	sf        singleflight.Group
	mu        sync.RWMutex
	instances map[Kind]any
	builds    map[Kind]int
}

func newChain(name Name, source sqldb.Source, settings session.Settings, logger *log.Logger) *Chain {
	return &Chain{
		name:      name,
		source:    source,
		settings:  settings,
		logger:    logger,
		instances: map[Kind]any{},
		builds:    map[Kind]int{},
	}
}

// Name is the name the chain's identifiers are formed from
func (c *Chain) Name() Name {
	return c.name
}

// Source is what the chain resolves pools from: a fixed pool or the routing data source.
func (c *Chain) Source() sqldb.Source {
	return c.source
}

func lazy[T any](c *Chain, kind Kind, build func() (T, error)) (T, error) {
	c.mu.RLock()
	cached, ok := c.instances[kind]
	c.mu.RUnlock()
	if ok {
		return cached.(T), nil
	}

	id := ID{Name: c.name, Kind: kind}
	v, err, _ := c.sf.Do(kind.String(), func() (any, error) {
		c.mu.RLock()
		cachedAgain, ok := c.instances[kind]
		c.mu.RUnlock()
		if ok {
			return cachedAgain, nil
		}

		instance, err := build()
		if err != nil {
			return nil, fmt.Errorf("build resource %s: %w", id, err)
		}

		c.mu.Lock()
		c.instances[kind] = instance
		c.builds[kind]++
		c.mu.Unlock()
		c.logger.Debug("resource built", "id", id)
		return instance, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (c *Chain) SessionFactory() (*session.Factory, error) {
	return lazy(c, KindSessionFactory, func() (*session.Factory, error) {
		return session.NewFactory(c.source, c.settings, c.logger)
	})
}

func (c *Chain) SessionTemplate() (*session.Template, error) {
	return lazy(c, KindSessionTemplate, func() (*session.Template, error) {
		f, err := c.SessionFactory()
		if err != nil {
			return nil, err
		}
		return session.NewTemplate(f), nil
	})
}

func (c *Chain) TransactionManager() (*txn.Manager, error) {
	return lazy(c, KindTransactionManager, func() (*txn.Manager, error) {
		return txn.NewManager(c.source, c.settings, c.logger)
	})
}

func (c *Chain) TransactionTemplate() (*txn.Template, error) {
	return lazy(c, KindTransactionTemplate, func() (*txn.Template, error) {
		m, err := c.TransactionManager()
		if err != nil {
			return nil, err
		}
		return txn.NewTemplate(m), nil
	})
}

// stage returns the instance for kind, building it if needed
func (c *Chain) stage(kind Kind) (any, error) {
	switch kind {
	case KindSessionFactory:
		return c.SessionFactory()
	case KindSessionTemplate:
		return c.SessionTemplate()
	case KindTransactionManager:
		return c.TransactionManager()
	case KindTransactionTemplate:
		return c.TransactionTemplate()
	default:
		return nil, NotFoundError{ID: ID{Name: c.name, Kind: kind}}
	}
}

// Builds reports how many times each stage has been constructed
func (c *Chain) Builds() map[Kind]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[Kind]int, len(c.builds))
	for k, n := range c.builds {
		out[k] = n
	}
	return out
}
