package webserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stake-plus/simd-tracker/src/data"
	"github.com/stake-plus/simd-tracker/src/resolver"
	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

const unavailable = "data temporarily unavailable"

// Feeds serves the read-only presentation endpoints.
type Feeds struct {
	store *data.Store
	bots  []string
	log   *zap.Logger
}

func NewFeeds(store *data.Store, bots []string, log *zap.Logger) Feeds {
	return Feeds{store: store, bots: bots, log: log}
}

// fail answers 503 for store errors so clients render an explicit
// unavailable state instead of partial data.
func (f Feeds) fail(c *gin.Context, err error) {
	f.log.Warn("store read failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusServiceUnavailable, gin.H{"err": unavailable})
}

func queryInt(c *gin.Context, key string, def int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil && v >= 0 {
		return v
	}
	return def
}

func (f Feeds) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := f.store.Ping(ctx); err != nil {
		f.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type simdListItem struct {
	simd.SIMD
	MessageCount int `json:"message_count"`
}

func (f Feeds) ListSIMDs(c *gin.Context) {
	filter := data.SIMDFilter{
		Limit:  queryInt(c, "limit", 100),
		Offset: queryInt(c, "offset", 0),
	}
	if raw := c.Query("status"); raw != "" {
		st, ok := simd.ParseStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"err": "unknown status"})
			return
		}
		filter.Status = st
	}
	if raw := c.Query("stage"); raw != "" {
		filter.Stage = simd.Stage(strings.ToLower(raw))
	}

	rows, err := f.store.ListSIMDs(c.Request.Context(), filter)
	if err != nil {
		f.fail(c, err)
		return
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	counts, err := f.store.MessageCounts(c.Request.Context(), ids)
	if err != nil {
		f.fail(c, err)
		return
	}
	items := make([]simdListItem, len(rows))
	for i, r := range rows {
		items[i] = simdListItem{SIMD: r, MessageCount: counts[r.ID]}
	}
	c.JSON(http.StatusOK, gin.H{"simds": items})
}

// SIMD returns one proposal with its PRs, summaries, discussions and recent
// non-bot messages.
func (f Feeds) SIMD(c *gin.Context) {
	id := c.Param("id")
	if n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(id), "SIMD-")); err == nil {
		id = resolver.FormatID(n)
	}
	ctx := c.Request.Context()

	rec, err := f.store.GetSIMD(ctx, id)
	if errors.Is(err, data.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"err": "simd not found"})
		return
	}
	if err != nil {
		f.fail(c, err)
		return
	}
	prs, err := f.store.PRsForSIMD(ctx, id)
	if err != nil {
		f.fail(c, err)
		return
	}
	sums, err := f.store.SummariesForSIMD(ctx, id)
	if err != nil {
		f.fail(c, err)
		return
	}
	discussions, err := f.store.DiscussionsForSIMD(ctx, id)
	if err != nil {
		f.fail(c, err)
		return
	}
	msgs, err := f.store.RecentMessages(ctx, id, queryInt(c, "messages", 20), f.bots)
	if err != nil {
		f.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"simd":        rec,
		"prs":         prs,
		"summaries":   sums,
		"discussions": discussions,
		"messages":    msgs,
	})
}

func (f Feeds) Merged(c *gin.Context) {
	prs, err := f.store.MergedPRs(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		f.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prs": prs})
}

func (f Feeds) OpenPRs(c *gin.Context) {
	items, err := f.store.OpenPRs(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		f.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prs": items})
}

func (f Feeds) Discussions(c *gin.Context) {
	out, err := f.store.RecentDiscussions(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		f.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"discussions": out})
}
