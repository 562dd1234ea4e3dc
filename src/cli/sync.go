package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stake-plus/simd-tracker/src/syncer"
)

var (
	syncSince       string
	syncIncludeOpen bool
	syncFull        bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one or all sync engines once",
}

var syncProposalsCmd = &cobra.Command{
	Use:   "proposals",
	Short: "Mirror merged proposal documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			r, err := a.runner()
			if err != nil {
				return err
			}
			res, err := r.SyncProposals(ctx)
			if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
				return perr
			}
			return err
		})
	},
}

var syncPRsCmd = &cobra.Command{
	Use:   "prs",
	Short: "Sync pull requests touching proposal files",
	Example: `  simd-tracker sync prs
  simd-tracker sync prs --since 2026-01-01 --include-open`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := prOptionsFromFlags()
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			r, err := a.runner()
			if err != nil {
				return err
			}
			res, err := r.SyncPRs(ctx, opts)
			if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
				return perr
			}
			return err
		})
	},
}

var syncDiscussionsCmd = &cobra.Command{
	Use:   "discussions",
	Short: "Sync GitHub discussions in the configured categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			r, err := a.runner()
			if err != nil {
				return err
			}
			res, err := r.SyncDiscussions(ctx, syncer.DiscussionOptions{Full: syncFull})
			if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
				return perr
			}
			return err
		})
	},
}

var syncAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Run proposals, PRs and discussions in order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := prOptionsFromFlags()
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			r, err := a.runner()
			if err != nil {
				return err
			}
			res := r.SyncAll(ctx, opts, syncer.DiscussionOptions{Full: syncFull})
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Success() {
				return fmt.Errorf("sync all: %d engine(s) failed", len(res.Errors))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.AddCommand(syncProposalsCmd, syncPRsCmd, syncDiscussionsCmd, syncAllCmd)

	for _, c := range []*cobra.Command{syncPRsCmd, syncAllCmd} {
		c.Flags().StringVar(&syncSince, "since", "", "Only walk PRs updated after this date (RFC3339 or YYYY-MM-DD)")
		c.Flags().BoolVar(&syncIncludeOpen, "include-open", false, "Also revisit every open PR regardless of --since")
	}
	for _, c := range []*cobra.Command{syncDiscussionsCmd, syncAllCmd} {
		c.Flags().BoolVar(&syncFull, "full", false, "Ignore the discussion watermark and walk every page")
	}
}

func prOptionsFromFlags() (syncer.PROptions, error) {
	opts := syncer.PROptions{IncludeAllOpen: syncIncludeOpen}
	if syncSince == "" {
		return opts, nil
	}
	since, err := parseDate(syncSince)
	if err != nil {
		return opts, err
	}
	opts.Since = &since
	return opts, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want RFC3339 or YYYY-MM-DD", raw)
}
