package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zeptools/gw-multids/datasource"
	"github.com/zeptools/gw-multids/db/sqldb"
	"github.com/zeptools/gw-multids/web"
)

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:                "check",
		Short:              "Validate the config, build every pool and list the exposed resources",
		Args:               cobra.NoArgs,
		PersistentPreRunE:  a.initCore,
		PersistentPostRunE: a.cleanUp,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h := web.Handlers{Registry: a.core.DataSources}
			rep := h.Report()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mode: %s\n", rep.Mode)
			if rep.DefaultName != "" {
				fmt.Fprintf(out, "default: %s (unknown keys: %s)\n", rep.DefaultName, rep.UnknownKey)
			}
			fmt.Fprintf(out, "datasources: %s\n", strings.Join(rep.Names, ", "))
			for _, id := range rep.IDs {
				fmt.Fprintf(out, "  %s\n", id)
			}

			var failed []string
			for _, name := range a.core.DataSources.Names() {
				pool, err := lookupPool(a.core.DataSources, name)
				if err != nil {
					return err
				}
				if err := pool.Ping(cmd.Context()); err != nil {
					failed = append(failed, fmt.Sprintf("%s: %v", name, err))
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("ping failed: %s", strings.Join(failed, "; "))
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}

func lookupPool(r *datasource.Registry, name datasource.Name) (sqldb.Client, error) {
	if rds, err := r.RoutingDataSource(); err == nil {
		pool, ok := rds.Pool(name)
		if !ok {
			return nil, datasource.NotFoundError{ID: datasource.ID{Name: name, Kind: datasource.KindPool}}
		}
		return pool, nil
	}
	b, err := r.Bundle(name)
	if err != nil {
		return nil, err
	}
	return b.Pool(), nil
}
