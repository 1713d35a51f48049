package sqldb

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrUnsupportedType = errors.New("unsupported database type")

// ClientFactory is a callback that constructs a Client from Conf.
// It is registered with RegisterFactory and called by sqldb.New.
type ClientFactory func(conf *Conf) (Client, error)

// Factories maps database types to their ClientFactory
type Factories map[string]ClientFactory

func (f Factories) Supports(dbType string) bool {
	_, ok := f[dbType]
	return ok
}

func (f Factories) New(dbType string, conf *Conf) (Client, error) {
	factory, ok := f[dbType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, dbType)
	}
	return factory(conf)
}

func (f Factories) Types() []string {
	types := make([]string, 0, len(f))
	for t := range f {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

var (
	mu       sync.RWMutex
	registry = Factories{}
)

func RegisterFactory(dbType string, factory ClientFactory) {
	mu.Lock()
	defer mu.Unlock()
	registry[dbType] = factory
}

// Registered returns a snapshot of the globally registered factories
func Registered() Factories {
	mu.RLock()
	defer mu.RUnlock()
	snapshot := make(Factories, len(registry))
	for t, f := range registry {
		snapshot[t] = f
	}
	return snapshot
}

func New(dbType string, conf *Conf) (Client, error) {
	return Registered().New(dbType, conf)
}
