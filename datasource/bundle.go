package datasource

import (
	"github.com/charmbracelet/log"
	"github.com/zeptools/gw-multids/db/session"
	"github.com/zeptools/gw-multids/db/sqldb"
)

// Bundle is the resource chain of one backend in static mode.
// It owns its pool; the stages of the embedded Chain only reference it.
type Bundle struct {
	*Chain
	pool sqldb.Client
}

func newBundle(name Name, pool sqldb.Client, settings session.Settings, logger *log.Logger) *Bundle {
	source := sqldb.Fixed{Name: string(name), Client: pool}
	return &Bundle{
		Chain: newChain(name, source, settings, logger),
		pool:  pool,
	}
}

func (b *Bundle) Pool() sqldb.Client {
	return b.pool
}

func (b *Bundle) stage(kind Kind) (any, error) {
	if kind == KindPool {
		return b.pool, nil
	}
	return b.Chain.stage(kind)
}
