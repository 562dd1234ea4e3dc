package webserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stake-plus/simd-tracker/src/data"
	"github.com/stake-plus/simd-tracker/src/syncer"
)

// Triggers runs engines on request. The same handlers back the cron and admin groups.
type Triggers struct {
	store   *data.Store
	sync    Syncer
	summary SummaryRunner
	digest  DigestBuilder
	log     *zap.Logger
}

func NewTriggers(deps Deps) Triggers {
	return Triggers{
		store:   deps.Store,
		sync:    deps.Sync,
		summary: deps.Summaries,
		digest:  deps.Digest,
		log:     deps.Log,
	}
}

func (t Triggers) attach(g *gin.RouterGroup) {
	for path, h := range map[string]gin.HandlerFunc{
		"/sync-proposals":     t.SyncProposals,
		"/sync-prs":           t.SyncPRs,
		"/sync-discussions":   t.SyncDiscussions,
		"/sync-all":           t.SyncAll,
		"/generate-summaries": t.GenerateSummaries,
	} {
		g.GET(path, h)
		g.POST(path, h)
	}
}

// runContext detaches the run from the caller; the engines apply their own timeout.
func runContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func parseSince(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errors.New("since must be RFC3339 or YYYY-MM-DD")
}

func prOptions(c *gin.Context) (syncer.PROptions, error) {
	since, err := parseSince(c.Query("since"))
	if err != nil {
		return syncer.PROptions{}, err
	}
	open, _ := strconv.ParseBool(c.Query("include_open"))
	return syncer.PROptions{Since: since, IncludeAllOpen: open}, nil
}

func discussionOptions(c *gin.Context) syncer.DiscussionOptions {
	full, _ := strconv.ParseBool(c.Query("full"))
	return syncer.DiscussionOptions{Full: full}
}

func (t Triggers) respond(c *gin.Context, name string, result any, err error) {
	switch {
	case errors.Is(err, data.ErrLocked):
		c.JSON(http.StatusConflict, gin.H{"success": false, "err": err.Error()})
	case err != nil:
		t.log.Error("triggered run failed", zap.String("job", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "err": err.Error(), "result": result})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
	}
}

func (t Triggers) SyncProposals(c *gin.Context) {
	res, err := t.sync.SyncProposals(runContext(c))
	t.respond(c, "proposals", res, err)
}

func (t Triggers) SyncPRs(c *gin.Context) {
	opts, err := prOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	res, err := t.sync.SyncPRs(runContext(c), opts)
	t.respond(c, "prs", res, err)
}

func (t Triggers) SyncDiscussions(c *gin.Context) {
	res, err := t.sync.SyncDiscussions(runContext(c), discussionOptions(c))
	t.respond(c, "discussions", res, err)
}

func (t Triggers) SyncAll(c *gin.Context) {
	opts, err := prOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	out := t.sync.SyncAll(runContext(c), opts, discussionOptions(c))
	status := http.StatusOK
	if !out.Success() {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{
		"success": out.Success(),
		"results": gin.H{"proposals": out.Proposals, "prs": out.PRs, "discussions": out.Discussions},
		"errors":  out.Errors,
	})
}

func (t Triggers) GenerateSummaries(c *gin.Context) {
	if t.summary == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "err": "summaries are not configured"})
		return
	}
	res, err := t.summary.Run(runContext(c))
	t.respond(c, "summaries", res, err)
}

// Jobs lists recent sync_jobs rows.
func (t Triggers) Jobs(c *gin.Context) {
	jobs, err := t.store.RecentJobs(c.Request.Context(), queryInt(c, "limit", 20))
	if err != nil {
		t.log.Warn("store read failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"err": unavailable})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// Digest renders the activity digest for the last `days` days (default 7).
func (t Triggers) Digest(c *gin.Context) {
	if t.digest == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"err": "digest is not configured"})
		return
	}
	days := queryInt(c, "days", 7)
	if days == 0 {
		days = 7
	}
	md, err := t.digest.Build(c.Request.Context(), time.Now().UTC().AddDate(0, 0, -days))
	if err != nil {
		t.log.Warn("digest failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"err": unavailable})
		return
	}
	c.JSON(http.StatusOK, gin.H{"markdown": md})
}
