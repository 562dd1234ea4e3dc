// Package webserver exposes the sync triggers and the read-only feeds over HTTP.
package webserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stake-plus/simd-tracker/src/config"
	"github.com/stake-plus/simd-tracker/src/data"
	"github.com/stake-plus/simd-tracker/src/logging"
	"github.com/stake-plus/simd-tracker/src/summaries"
	"github.com/stake-plus/simd-tracker/src/syncer"
)

// Syncer runs the sync engines.
type Syncer interface {
	SyncProposals(ctx context.Context) (syncer.ProposalResult, error)
	SyncPRs(ctx context.Context, opts syncer.PROptions) (syncer.PRResult, error)
	SyncDiscussions(ctx context.Context, opts syncer.DiscussionOptions) (syncer.DiscussionResult, error)
	SyncAll(ctx context.Context, prOpts syncer.PROptions, discOpts syncer.DiscussionOptions) syncer.AllResult
}

// SummaryRunner runs the summary job.
type SummaryRunner interface {
	Run(ctx context.Context) (summaries.Result, error)
}

// DigestBuilder renders the activity digest.
type DigestBuilder interface {
	Build(ctx context.Context, since time.Time) (string, error)
}

// Deps are the collaborators behind the routes. Summaries and Digest may be nil.
type Deps struct {
	Store      *data.Store
	Sync       Syncer
	Summaries  SummaryRunner
	Digest     DigestBuilder
	BotAuthors []string
	Log        *zap.Logger
}

// New builds the gin engine.
func New(cfg config.HTTP, deps Deps) *gin.Engine {
	deps.Log = logging.OrNop(deps.Log).Named("http")
	g := gin.New()
	g.Use(requestLogger(deps.Log), gin.Recovery())
	attachRoutes(g, cfg, deps)
	return g
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("ip", c.ClientIP()))
	}
}
