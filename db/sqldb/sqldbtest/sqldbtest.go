// Package sqldbtest provides sqlite backed pools for tests.
package sqldbtest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/zeptools/gw-multids/db/sqldb"
	"github.com/zeptools/gw-multids/db/sqldb/impls/sqlite"
)

// SqliteConf returns a sqlite Conf pointing at a fresh file under tb.TempDir().
func SqliteConf(tb testing.TB, name string) *sqldb.Conf {
	return &sqldb.Conf{
		Type: sqlite.Type,
		DB:   filepath.Join(tb.TempDir(), name+".db"),
	}
}

// OpenSqlite opens an initialized sqlite pool. It is closed when the test is done.
// If ctx is nil, context.TODO() is used.
func OpenSqlite(ctx context.Context, tb testing.TB, name string) sqldb.Client {
	tb.Helper()
	if ctx == nil {
		ctx = context.TODO()
	}
	c, err := sqlite.New(SqliteConf(tb, name))
	if err != nil {
		tb.Fatal(err)
	}
	if err := c.Init(ctx); err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() {
		if err := c.Close(); err != nil {
			tb.Error(err)
		}
	})
	return c
}

// Recorder is a ClientFactory wrapper that counts pool construction and closing per conf.DB.
type Recorder struct {
	mu     sync.Mutex
	inits  map[string]int
	closes map[string]int
	failOn map[string]error
}

func NewRecorder() *Recorder {
	return &Recorder{
		inits:  map[string]int{},
		closes: map[string]int{},
		failOn: map[string]error{},
	}
}

// FailInit makes Init fail with err for the pool whose conf.DB equals path.
func (r *Recorder) FailInit(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failOn[path] = err
}

// Factories returns a factory set where "sqlite" builds recorded sqlite pools.
func (r *Recorder) Factories() sqldb.Factories {
	return sqldb.Factories{sqlite.Type: r.New}
}

func (r *Recorder) New(conf *sqldb.Conf) (sqldb.Client, error) {
	c, err := sqlite.New(conf)
	if err != nil {
		return nil, err
	}
	return &recordedClient{Client: c, rec: r, path: conf.DB}, nil
}

// Inits is the number of successful Init calls across all pools
func (r *Recorder) Inits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, v := range r.inits {
		n += v
	}
	return n
}

// Open is the number of pools initialized and not yet closed
func (r *Recorder) Open() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for path, v := range r.inits {
		n += v - r.closes[path]
	}
	return n
}

type recordedClient struct {
	sqldb.Client
	rec  *Recorder
	path string
}

func (c *recordedClient) Init(ctx context.Context) error {
	c.rec.mu.Lock()
	failErr := c.rec.failOn[c.path]
	c.rec.mu.Unlock()
	if failErr != nil {
		return failErr
	}
	if err := c.Client.Init(ctx); err != nil {
		return err
	}
	c.rec.mu.Lock()
	c.rec.inits[c.path]++
	c.rec.mu.Unlock()
	return nil
}

func (c *recordedClient) Close() error {
	if c.Client.DB() != nil {
		c.rec.mu.Lock()
		c.rec.closes[c.path]++
		c.rec.mu.Unlock()
	}
	return c.Client.Close()
}
