package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/config"
	"github.com/Veraticus/quotewright/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the action endpoint",
		Long: `Serve the JSON action endpoint used by browser editors: table preference
save and load, catalog search, trade presets and quote saves.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(ctx, a)

			if a.Config.Prefs.Backend == config.BackendHTTP {
				return common.NewUserError("serve stores table preferences itself; set prefs.backend to sqlite or redis", common.ErrInvalidConfig)
			}

			cfg := server.Config{
				Addr:            a.Config.Server.Addr,
				ShutdownTimeout: a.Config.Server.ShutdownTimeout,
			}
			srv := server.NewWithConfig(a.Prefs, a.Catalog, a.Quotes, cfg, a.Logger)
			common.LogInfo(a.Logger, "Serving action endpoint", common.Fields{
				"addr":          cfg.Addr,
				"prefs_backend": a.Config.Prefs.Backend,
			})
			if err := srv.Run(ctx); err != nil {
				return fmt.Errorf("server stopped: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().String("addr", "", "listen address (default: server.addr)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}
