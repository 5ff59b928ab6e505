package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/documind/bootstrap"
	"github.com/artpar/documind/config"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	var checkStore bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration before deployment",
		Long: `Validate the documind configuration.

Checks:
  - YAML syntax is valid
  - Driver and engine settings are complete
  - Store is reachable and migrated (optional)

Examples:
  documind validate
  documind validate --config /etc/documind/documind.yaml --check-store`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			source := root.cfgFile
			if _, err := os.Stat(root.cfgFile); err != nil {
				source = "environment"
			}
			fmt.Fprintf(out, "Validating %s...\n\n", source)

			cfg, err := config.LoadWithFallback(root.cfgFile)
			if err != nil {
				fmt.Fprintf(out, "  %s Config valid\n", crossMark)
				return fmt.Errorf("config error: %w", err)
			}
			fmt.Fprintf(out, "  %s Config valid\n", checkMark)

			fmt.Fprintf(out, "  %s Quota: guest %d, user %d, ai %d per day\n",
				checkMark, cfg.Quota.GuestDaily, cfg.Quota.UserDaily, cfg.Quota.AIDaily)
			fmt.Fprintf(out, "  %s Store: %s\n", checkMark, cfg.Store.Driver)
			fmt.Fprintf(out, "  %s PDF engine: %s\n", checkMark, cfg.PDF.Engine)
			fmt.Fprintf(out, "  %s AI models: %s\n", checkMark, strings.Join(cfg.AI.Models, ", "))
			if cfg.Auth.JWTSecret == "" {
				fmt.Fprintf(out, "  %s Auth: no jwt_secret, all callers are guests\n", warnMark)
			}
			if cfg.AI.APIKey == "" {
				fmt.Fprintf(out, "  %s AI: no api_key, chat is disabled\n", warnMark)
			}

			if checkStore {
				if err := checkStoreReachable(cmd.Context(), cfg.Store); err != nil {
					fmt.Fprintf(out, "  %s Store reachable\n", crossMark)
					fmt.Fprintf(out, "      Error: %v\n", err)
				} else {
					fmt.Fprintf(out, "  %s Store reachable\n", checkMark)
				}
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Configuration is valid.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkStore, "check-store", false, "connect to the store and apply migrations")
	return cmd
}

func checkStoreReachable(ctx context.Context, cfg config.StoreConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stores, err := bootstrap.OpenStores(ctx, cfg, zerolog.Nop())
	if err != nil {
		return err
	}
	defer stores.Close()
	return stores.Pinger.Ping(ctx)
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
	warnMark  = "\033[33m!\033[0m"
)
