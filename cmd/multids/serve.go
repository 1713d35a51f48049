package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/zeptools/gw-multids/metrics"
	"github.com/zeptools/gw-multids/web"
)

func newServeCommand(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:                "serve",
		Short:              "Serve datasource diagnostics and metrics over HTTP",
		Args:               cobra.NoArgs,
		PersistentPreRunE:  a.initCore,
		PersistentPostRunE: a.cleanUp,
		RunE: func(cmd *cobra.Command, _ []string) error {
			core := &a.core
			if listen != "" {
				core.Config.Listen = listen
			}
			h := web.Handlers{Registry: core.DataSources}
			var mh http.Handler
			if core.Metrics != nil {
				mh = metrics.Handler(core.Metrics)
			}
			router := web.NewRouter(h, mh,
				web.AccessLogWrapper(core.Logger, ""),
				web.RecoverWrapper(core.Logger),
				web.DataSourceKeyWrapper{},
			)
			core.PrepareWebService(router)
			if err := core.StartServices(); err != nil {
				core.StopServices()
				return err
			}
			<-core.RootCtx.Done()
			core.StopServices()
			if err := core.WaitServicesDone(); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			core.Logger.Info("shutdown complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "override the listen address")
	return cmd
}
