package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	aicore "github.com/stake-plus/simd-tracker/src/ai/core"
	_ "github.com/stake-plus/simd-tracker/src/ai/providers"
	"github.com/stake-plus/simd-tracker/src/config"
	"github.com/stake-plus/simd-tracker/src/data"
	"github.com/stake-plus/simd-tracker/src/digest"
	"github.com/stake-plus/simd-tracker/src/github"
	"github.com/stake-plus/simd-tracker/src/logging"
	"github.com/stake-plus/simd-tracker/src/notify"
	"github.com/stake-plus/simd-tracker/src/summaries"
	"github.com/stake-plus/simd-tracker/src/syncer"
)

// app holds the wired collaborators for one command invocation.
type app struct {
	cfg   config.Config
	log   *zap.Logger
	db    *gorm.DB
	store *data.Store
	rdb   *redis.Client
	deps  *syncer.Deps
}

// bootstrap reads configuration, opens the store and builds the shared
// engine dependencies. Redis and Discord are optional.
func bootstrap(ctx context.Context, cmd *cobra.Command) (*app, error) {
	v, err := config.NewViper(configFile)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	level := v.GetString("log.level")
	if verbose {
		level = "debug"
	}
	asJSON := v.GetBool("log.json")
	if cmd.Flags().Changed("json-logs") {
		asJSON = jsonLogs
	}
	log, err := logging.New(level, asJSON)
	if err != nil {
		return nil, err
	}
	logging.Set(log)

	dbCfg := config.LoadDatabase(v)
	if dbCfg.DSN == "" {
		return nil, fmt.Errorf("config: database.dsn is required")
	}
	db, err := data.Connect(dbCfg.Driver, dbCfg.DSN, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	cfg := config.Load(v, db)

	a := &app{cfg: cfg, log: log, db: db, store: data.NewStore(db, log)}
	a.deps = &syncer.Deps{Store: a.store, Log: log}

	if cfg.RedisURL != "" {
		rdb, err := data.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.rdb = rdb
		a.deps.Locker = data.NewRedisLocker(rdb)
		a.deps.Events = data.NewStreamPublisher(rdb)
	} else {
		log.Info("redis not configured, runs are not locked across processes")
	}

	d, err := notify.NewDiscord(cfg.Discord, cfg.GitHub.Owner, cfg.GitHub.Repo, log)
	if err != nil {
		log.Warn("discord notifications disabled", zap.Error(err))
	} else if d != nil {
		a.deps.Notifier = d
	}
	return a, nil
}

func (a *app) close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}

func (a *app) github() (*github.Client, error) {
	return github.New(github.Options{
		Token:      a.cfg.GitHub.Token,
		Owner:      a.cfg.GitHub.Owner,
		Repo:       a.cfg.GitHub.Repo,
		APIURL:     a.cfg.GitHub.APIURL,
		GraphQLURL: a.cfg.GitHub.GraphQLURL,
		Log:        a.log,
	})
}

func (a *app) runner() (*syncer.Runner, error) {
	gh, err := a.github()
	if err != nil {
		return nil, err
	}
	return syncer.NewRunner(a.deps, gh, syncer.SettingsFromConfig(a.cfg)), nil
}

func (a *app) aiClient() (aicore.Client, error) {
	return aicore.NewClient(aicore.FactoryConfig{
		Provider:            a.cfg.AI.Provider,
		SystemPrompt:        summaries.SystemPrompt,
		Model:               a.cfg.AI.Model,
		Temperature:         a.cfg.AI.Temperature,
		MaxCompletionTokens: a.cfg.AI.MaxTokens,
		OpenAIKey:           a.cfg.AI.OpenAIKey,
		ClaudeKey:           a.cfg.AI.ClaudeKey,
		GeminiKey:           a.cfg.AI.GeminiKey,
	})
}

func (a *app) summaryJob() (*summaries.Job, error) {
	client, err := a.aiClient()
	if err != nil {
		return nil, err
	}
	settings := summaries.DefaultSettings()
	if a.cfg.Summaries.BatchSize > 0 {
		settings.BatchSize = a.cfg.Summaries.BatchSize
	}
	if a.cfg.Summaries.RefreshInterval > 0 {
		settings.RefreshInterval = a.cfg.Summaries.RefreshInterval
	}
	if a.cfg.Sync.RunTimeout > 0 {
		settings.RunTimeout = a.cfg.Sync.RunTimeout
	}
	return summaries.NewJob(a.deps, summaries.NewSummarizer(client), settings), nil
}

func (a *app) digest() *digest.Builder {
	return digest.NewBuilder(a.store, a.cfg.GitHub.Owner, a.cfg.GitHub.Repo, a.cfg.BotAuthors, a.log)
}

// withApp bootstraps, runs fn and releases resources.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := bootstrap(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
