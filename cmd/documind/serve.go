package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/documind/bootstrap"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var hotReload bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the documind HTTP server.

Configuration comes from documind.yaml (or --config) when present, otherwise
from DOCUMIND_* environment variables. A .env file in the working directory
is loaded first.

With --hot-reload the config file is watched and SIGHUP triggers a reload.
Quota limits, the log level and the AI model list apply without a restart.

Examples:
  documind serve
  documind serve --config /etc/documind/documind.yaml --hot-reload

  # Env only:
  DOCUMIND_STORE_DRIVER=redis DOCUMIND_REDIS_ADDR=localhost:6379 documind serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap.New(cmd.Context(), bootstrap.Options{
				ConfigPath: root.cfgFile,
				HotReload:  hotReload,
			})
			if err != nil {
				return fmt.Errorf("error initializing: %w", err)
			}
			return a.Run()
		},
	}

	cmd.Flags().BoolVar(&hotReload, "hot-reload", false, "watch the config file and reload on change or SIGHUP")
	return cmd
}
