package conf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
	"github.com/zeptools/gw-multids/datasource"
	"github.com/zeptools/gw-multids/db/sqldb"
)

func TestCoreLifecycle(t *testing.T) {
	is := is.New(t)
	root := t.TempDir()
	is.NoErr(os.MkdirAll(filepath.Join(root, "config"), 0o755))
	content := fmt.Sprintf(`
datasource:
  mode: dynamic
  default_name: orders
  multi:
    orders: {type: sqlite, db: %q}
    users: {type: sqlite, db: %q}
log:
  level: error
  path: %q
`, filepath.Join(root, "orders.db"), filepath.Join(root, "users.db"), filepath.Join(root, "app.log"))
	is.NoErr(os.WriteFile(filepath.Join(root, DefaultPath), []byte(content), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var core Core
	is.NoErr(core.BaseInit(root, "", ctx, cancel))
	is.True(core.Metrics != nil)
	is.True(core.LogFile != nil)

	is.NoErr(core.PrepareDataSources())
	rds, err := core.DataSources.RoutingDataSource()
	is.NoErr(err)
	is.Equal(rds.Names(), []datasource.Name{"orders", "users"})
	is.True(sqldb.Registered().Supports("mysql"))

	mfs, err := core.Metrics.Gather()
	is.NoErr(err)
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "go_sql_open_connections" {
			found = true
		}
	}
	is.True(found) // pool stats exported

	core.ResourceCleanUp()
	_, err = core.DataSources.RoutingDataSource()
	is.True(err != nil) // closed
}

func TestPrepareDataSourcesFailsFast(t *testing.T) {
	is := is.New(t)
	path := writeFile(t, `
datasource:
  mode: dynamic
  default_name: billing
  multi:
    orders: {type: sqlite, db: orders.db}
`)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var core Core
	is.NoErr(core.BaseInit(t.TempDir(), path, ctx, cancel))
	err := core.PrepareDataSources()
	var ce datasource.ConfigurationError
	is.True(errors.As(err, &ce))
	is.Equal(ce.Name, "billing")
	is.True(core.DataSources == nil)
}
