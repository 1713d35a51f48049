package main

import (
	"github.com/spf13/cobra"
	"github.com/zeptools/gw-multids/conf"
)

type app struct {
	appRoot    string
	configPath string
	cancel     func()
	core       conf.Core
}

func newRootCommand(cancel func()) *cobra.Command {
	a := &app{cancel: cancel}
	root := &cobra.Command{
		Use:           "multids",
		Short:         "Provision and route multiple relational datasources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.appRoot, "app-root", ".", "directory the config path is relative to")
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", conf.DefaultPath, "config file")
	root.AddCommand(
		newCheckCommand(a),
		newServeCommand(a),
	)
	return root
}

// initCore loads the config and builds every datasource
func (a *app) initCore(cmd *cobra.Command, _ []string) error {
	if err := a.core.BaseInit(a.appRoot, a.configPath, cmd.Context(), a.cancel); err != nil {
		return err
	}
	return a.core.PrepareDataSources()
}

func (a *app) cleanUp(*cobra.Command, []string) error {
	if a.core.Logger != nil {
		a.core.ResourceCleanUp()
	}
	return nil
}
