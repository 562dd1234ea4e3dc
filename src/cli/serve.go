package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stake-plus/simd-tracker/src/api/webserver"
	"github.com/stake-plus/simd-tracker/src/data"
	"github.com/stake-plus/simd-tracker/src/service"
)

var (
	serveNoScheduler bool
	serveMigrate     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP triggers and feeds, and run the scheduler",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)
		return withApp(cmd, runServe)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveNoScheduler, "no-scheduler", false, "Only serve HTTP; rely on external cron triggers")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "Apply schema migrations before serving")
}

func runServe(ctx context.Context, a *app) error {
	if serveMigrate {
		if err := data.Migrate(a.db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	runner, err := a.runner()
	if err != nil {
		return err
	}
	deps := webserver.Deps{
		Store:      a.store,
		Sync:       runner,
		Digest:     a.digest(),
		BotAuthors: a.cfg.BotAuthors,
		Log:        a.log,
	}
	job, err := a.summaryJob()
	if err != nil {
		a.log.Warn("summaries disabled", zap.Error(err))
	} else {
		deps.Summaries = job
	}

	mgr := service.NewManager(a.log)
	if err := mgr.Add(service.NewHTTPServer(":"+a.cfg.HTTP.Port, webserver.New(a.cfg.HTTP, deps), a.log)); err != nil {
		return err
	}
	if !serveNoScheduler && a.cfg.Sync.ScheduleInterval > 0 {
		var sum service.SummaryRunner
		if job != nil {
			sum = job
		}
		if err := mgr.Add(service.NewScheduler(runner, sum, a.cfg.Sync.ScheduleInterval, a.log)); err != nil {
			return err
		}
	}

	if err := mgr.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.log.Info("shutting down")
	mgr.Stop(context.WithoutCancel(ctx))
	return nil
}
