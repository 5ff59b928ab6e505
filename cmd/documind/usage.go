package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/documind/adapters/clock"
	"github.com/artpar/documind/adapters/idgen"
	"github.com/artpar/documind/app"
	"github.com/artpar/documind/bootstrap"
	"github.com/artpar/documind/config"
	"github.com/artpar/documind/domain/quota"
	"github.com/artpar/documind/domain/usage"
)

func newUsageCmd(root *rootOptions) *cobra.Command {
	var userID, ip string

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show today's usage for a user or guest address",
		Long: `Show today's usage snapshot from the configured store.

Examples:
  documind usage --user 3f6c2a
  documind usage --ip 203.0.113.7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var id usage.Identity
			switch {
			case userID != "" && ip != "":
				return fmt.Errorf("use either --user or --ip, not both")
			case userID != "":
				id = usage.User(userID)
			case ip != "":
				id = usage.Guest(ip)
			default:
				return fmt.Errorf("--user or --ip is required")
			}

			cfg, err := config.LoadWithFallback(root.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			stores, err := bootstrap.OpenStores(ctx, cfg.Store, zerolog.Nop())
			if err != nil {
				return err
			}
			defer stores.Close()

			clk := clock.Real{}
			gate := app.NewUsageGate(stores.Usage, clk, idgen.NewULID(clk), zerolog.Nop(),
				app.WithLimits(app.StaticLimits(cfg.Quota.Limits())))

			printSnapshot(cmd.OutOrStdout(), id, gate.Snapshot(ctx, id), quota.NextReset(clk.Now()).Format("2006-01-02 15:04 MST"))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	cmd.Flags().StringVar(&ip, "ip", "", "guest IP address")
	return cmd
}

func printSnapshot(out io.Writer, id usage.Identity, s app.Snapshot, resets string) {
	fmt.Fprintf(out, "Usage for %s (resets %s)\n\n", id, resets)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POOL\tUSED\tLIMIT\tREMAINING")
	if s.IsGuest {
		fmt.Fprintf(w, "guest\t%d\t%d\t%d\n", s.GeneralUsed, s.GeneralLimit, s.Remaining())
	} else {
		fmt.Fprintf(w, "general\t%d\t%d\t%d\n", s.GeneralUsed, s.GeneralLimit, s.Remaining())
		fmt.Fprintf(w, "ai-chat\t%d\t%d\t%d\n", s.AIUsed, s.AILimit, quota.Remaining(s.AIUsed, s.AILimit))
	}
	w.Flush()
}
