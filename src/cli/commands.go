package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	aicore "github.com/stake-plus/simd-tracker/src/ai/core"
	"github.com/stake-plus/simd-tracker/src/data"
)

var (
	digestDays    int
	checkProvider string
	checkPrompt   string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(_ context.Context, a *app) error {
			if err := data.Migrate(a.db); err != nil {
				return err
			}
			a.log.Info("schema up to date")
			return nil
		})
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Generate or refresh stale PR discussion summaries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			job, err := a.summaryJob()
			if err != nil {
				return err
			}
			res, err := job.Run(ctx)
			if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
				return perr
			}
			return err
		})
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Print the markdown activity digest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if digestDays <= 0 {
			return fmt.Errorf("--days must be positive")
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			md, err := a.digest().Build(ctx, time.Now().UTC().AddDate(0, 0, -digestDays))
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), md)
			return err
		})
	},
}

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show the remaining GitHub API budget",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			gh, err := a.github()
			if err != nil {
				return err
			}
			q, err := gh.Quota(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "remaining %d/%d, resets %s\n",
				q.Remaining, q.Limit, q.ResetAt.UTC().Format(time.RFC3339))
			return err
		})
	},
}

var aiCheckCmd = &cobra.Command{
	Use:   "ai-check",
	Short: "Send a test prompt through the configured summary provider",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if checkProvider != "" {
				a.cfg.AI.Provider = checkProvider
			}
			client, err := a.aiClient()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(ctx, 45*time.Second)
			defer cancel()
			start := time.Now()
			out, err := client.Respond(ctx, checkPrompt, aicore.Options{})
			if err != nil {
				return fmt.Errorf("%s: %w", client.Model(), err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n%s\n", client.Model(), time.Since(start).Round(time.Millisecond), out)
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, summarizeCmd, digestCmd, quotaCmd, aiCheckCmd)
	digestCmd.Flags().IntVar(&digestDays, "days", 7, "Report window in days")
	aiCheckCmd.Flags().StringVar(&checkProvider, "provider", "", "Provider override (openai, anthropic, gemini)")
	aiCheckCmd.Flags().StringVar(&checkPrompt, "prompt", "Summarize in one sentence: reviewers agreed to raise the fee cap after benchmarks.", "Prompt to send")
}
