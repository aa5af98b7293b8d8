package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"crudgen/internal/api"
)

// ServeCmd returns the serve command.
func ServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the model, its DDL and lint results over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				e.cfg.Listen = listen
			}
			storage, err := api.NewStorage(e.loader(), e.cfg.SchemaDialect(), e.cfg.ProjectRoot, e.options())
			if err != nil {
				return err
			}

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return api.RunServer(ctx, e.cfg.Listen, storage)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	return cmd
}
