package conf

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/zeptools/gw-multids/datasource"
	"github.com/zeptools/gw-multids/db"
	"github.com/zeptools/gw-multids/db/sqldb/impls/mysql"
	"github.com/zeptools/gw-multids/db/sqldb/impls/pgsql"
	"github.com/zeptools/gw-multids/db/sqldb/impls/postgres"
	"github.com/zeptools/gw-multids/db/sqldb/impls/sqlite"
	"github.com/zeptools/gw-multids/svc"
	"github.com/zeptools/gw-multids/web"
)

// Core - common app state shared by the commands
type Core struct {
	AppRoot     string               // config paths are relative to it
	Config      *Config              // BaseInit
	Logger      *log.Logger          // BaseInit
	LogFile     *os.File             // BaseInit. nil when logging to stderr
	RootCtx     context.Context      // Global Context with RootCancel
	RootCancel  context.CancelFunc   // CancelFunc for RootCtx
	Metrics     *prometheus.Registry // BaseInit. nil when metrics are disabled
	DataSources *datasource.Registry // PrepareDataSources
	WebService  *web.Service         // PrepareWebService

	services []svc.Service // Services to Manage
	done     chan error
}

// BaseInit - 1st step for initialization
// 1. set AppRoot
// 2. load the config file (DefaultPath under appRoot when configPath is empty)
// 3. build the logger and the metrics registry
// 4. Start ShutdownSignalListener
func (c *Core) BaseInit(appRoot, configPath string, rootCtx context.Context, rootCancel context.CancelFunc) error {
	c.AppRoot = appRoot
	if configPath == "" {
		configPath = DefaultPath
	}
	if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(appRoot, configPath)
	}
	cfg, err := Load(configPath)
	if err != nil {
		return err
	}
	c.Config = cfg

	logger, f, err := NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	c.Logger = logger.WithPrefix(cfg.AppName)
	c.LogFile = f
	log.SetDefault(c.Logger)

	if cfg.Metrics.Enabled {
		c.Metrics = prometheus.NewRegistry()
		c.Metrics.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c.RootCtx = rootCtx
	c.RootCancel = rootCancel
	c.startShutdownSignalListener()
	return nil
}

func (c *Core) AddService(s svc.Service) {
	c.services = append(c.services, s)
	c.Logger.Info("service added", "service", s.Name(), "total", len(c.services))
}

func (c *Core) StartServices() error {
	c.done = make(chan error, len(c.services))
	for _, s := range c.services {
		err := s.Start()
		if err != nil {
			return fmt.Errorf("start %s: %w", s.Name(), err)
		}
		go func(s svc.Service) {
			err := <-s.Done()
			c.done <- err
		}(s) // pass the loop var to the param. otherwise, they are captured inside goroutine lazily
	}
	return nil
}

// WaitServicesDone blocks until every started service has stopped and returns the first error
func (c *Core) WaitServicesDone() error {
	var first error
	for i := 0; i < len(c.services); i++ {
		if err := <-c.done; err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (c *Core) StopServices() {
	for _, s := range c.services {
		s.Stop()
	}
}

var once sync.Once

func (c *Core) startShutdownSignalListener() {
	once.Do(func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigs
			c.Logger.Info("got signal, shutting down", "signal", sig, "app", c.Config.AppName)
			c.RootCancel() // broadcast to all child services via Context.Done()
		}()
	})
	c.Logger.Debug("shutdown signal listener started")
}

// RegisterDrivers makes every supported database type available to sqldb.New
func RegisterDrivers() {
	mysql.Register()
	pgsql.Register()
	postgres.Register()
	sqlite.Register()
}

// PrepareDataSources builds every configured pool and wires the resource chains.
// Use after BaseInit.
func (c *Core) PrepareDataSources(options ...datasource.Option) error {
	if c.Config == nil {
		return ErrNilConfig
	}
	dsCfg, err := c.Config.ToDataSourceConfig()
	if err != nil {
		return err
	}

	RegisterDrivers()

	opts := []datasource.Option{datasource.WithLogger(c.Logger.WithPrefix("datasource"))}
	if c.Metrics != nil {
		opts = append(opts, datasource.WithMetrics(c.Metrics))
	}
	registry := datasource.NewRegistry(append(opts, options...)...)
	if err := registry.Register(c.RootCtx, dsCfg); err != nil {
		return err
	}
	c.DataSources = registry
	return nil
}

// PrepareWebService serves router on the configured listen address until RootCtx is done.
// Use after BaseInit.
func (c *Core) PrepareWebService(router http.Handler) {
	c.WebService = web.NewService(c.RootCtx, c.Config.Listen, router, c.Config.ShutdownTimeout, c.Logger)
	c.AddService(c.WebService)
}

func (c *Core) ResourceCleanUp() {
	c.Logger.Info("app resource cleaning up...")
	if c.DataSources != nil {
		_ = db.CloseClient(c.Logger, "datasources", c.DataSources)
	}
	c.Logger.Info("app resource cleanup complete")
	if c.LogFile != nil {
		_ = c.LogFile.Close()
	}
}
