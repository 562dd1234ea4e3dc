package syncer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stake-plus/simd-tracker/src/data"
	"github.com/stake-plus/simd-tracker/src/github"
	"github.com/stake-plus/simd-tracker/src/resolver"
	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

// DiscussionOptions narrows a discussion sync run.
type DiscussionOptions struct {
	// Full ignores the stored watermark and pages through every discussion.
	Full bool
}

// DiscussionResult summarises one discussion sync run.
type DiscussionResult struct {
	Processed    int  `json:"processed"`
	Synced       int  `json:"synced"`
	Linked       int  `json:"linked"`
	Skipped      int  `json:"skipped"`
	Failed       int  `json:"failed"`
	Comments     int  `json:"comments"`
	StoppedEarly bool `json:"stopped_early"`
}

// DiscussionEngine mirrors repository discussions in the allowed categories.
type DiscussionEngine struct {
	deps       *Deps
	src        github.DiscussionSource
	settings   Settings
	categories map[string]bool
	log        *zap.Logger
}

// NewDiscussionEngine returns a DiscussionEngine.
func NewDiscussionEngine(deps *Deps, src github.DiscussionSource, settings Settings) *DiscussionEngine {
	d := deps.withDefaults()
	cats := make(map[string]bool, len(settings.DiscussionCategories))
	for _, c := range settings.DiscussionCategories {
		cats[normalizeCategory(c)] = true
	}
	return &DiscussionEngine{
		deps:       d,
		src:        src,
		settings:   settings,
		categories: cats,
		log:        d.Log.Named("discussions"),
	}
}

// normalizeCategory folds "SIMD Discussions" and "simd-discussions" onto one key.
func normalizeCategory(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

// Run pages through discussions, newest update first.
func (e *DiscussionEngine) Run(ctx context.Context, opts DiscussionOptions) (DiscussionResult, error) {
	var res DiscussionResult
	err := e.deps.RunJob(ctx, simd.JobDiscussions, e.settings.RunTimeout, func(ctx context.Context) (Outcome, error) {
		err := e.run(ctx, opts, &res)
		return Outcome{Processed: res.Processed, StoppedEarly: res.StoppedEarly}, err
	})
	return res, err
}

func (e *DiscussionEngine) run(ctx context.Context, opts DiscussionOptions, res *DiscussionResult) error {
	var cutoff *time.Time
	if !opts.Full {
		st, err := e.deps.Store.GetSyncState(ctx, data.ScopeDiscussions)
		if err != nil {
			return fmt.Errorf("load watermark: %w", err)
		}
		cutoff = st.WatermarkTS
	}

	guard := newQuotaGuard(e.src, e.settings, e.log)
	if err := guard.check(ctx); err != nil {
		if errors.Is(err, ErrQuotaLow) {
			res.StoppedEarly = true
			return nil
		}
		return fmt.Errorf("quota check: %w", err)
	}

	var prog progress
	walkErr := e.walk(ctx, cutoff, guard, res, &prog)

	var watermark *time.Time
	if walkErr == nil && !res.StoppedEarly {
		watermark = prog.watermark(cutoff)
	}
	if err := e.deps.Store.RecordSyncAttempt(context.WithoutCancel(ctx), data.ScopeDiscussions, watermark, walkErr, res); err != nil {
		e.log.Warn("record sync state", zap.Error(err))
	}
	return walkErr
}

func (e *DiscussionEngine) walk(ctx context.Context, cutoff *time.Time, guard *quotaGuard, res *DiscussionResult, prog *progress) error {
	after := ""
	for page := 1; ; page++ {
		batch, err := e.src.ListDiscussions(ctx, after, e.settings.DiscussionPageSize)
		if err != nil {
			if softStop(err) {
				res.StoppedEarly = true
				return nil
			}
			return fmt.Errorf("list discussions page %d: %w", page, err)
		}
		for _, d := range batch.Discussions {
			if cutoff != nil && d.UpdatedAt.Before(*cutoff) {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			prog.saw(d.UpdatedAt)
			if !e.categories[normalizeCategory(d.Category)] {
				res.Skipped++
				continue
			}

			res.Processed++
			if err := e.syncDiscussion(ctx, d, res); err != nil {
				if softStop(err) {
					res.StoppedEarly = true
					e.log.Warn("rate limited, stopping early", zap.Int("discussion", d.Number), zap.Error(err))
					return nil
				}
				res.Failed++
				prog.failed(d.UpdatedAt)
				e.log.Error("sync discussion", zap.Int("discussion", d.Number), zap.Error(err))
			}
			if err := guard.tick(ctx); err != nil {
				res.StoppedEarly = true
				return nil
			}
		}
		if !batch.HasNextPage || batch.EndCursor == "" {
			return nil
		}
		after = batch.EndCursor
	}
}

// discussionSIMD looks for a SIMD id in the title first, then the body.
func discussionSIMD(d github.Discussion) (string, bool) {
	if id, ok := resolver.MatchTitleID(d.Title); ok {
		return id, true
	}
	return resolver.MatchTitleID(d.Body)
}

func (e *DiscussionEngine) syncDiscussion(ctx context.Context, d github.Discussion, res *DiscussionResult) error {
	log := e.log.With(zap.Int("discussion", d.Number))
	row := &simd.Discussion{
		GitHubDiscussionID: d.NodeID,
		Number:             d.Number,
		Title:              d.Title,
		Body:               d.Body,
		Author:             d.Author,
		Category:           d.Category,
		URL:                d.URL,
		CommentCount:       d.CommentCount,
		GitHubCreatedAt:    d.CreatedAt,
		GitHubUpdatedAt:    d.UpdatedAt,
	}
	id, linked := discussionSIMD(d)
	if linked {
		row.SIMDID = &id
		log = log.With(zap.String("simd", id))
		if _, err := e.deps.Store.GetSIMD(ctx, id); errors.Is(err, data.ErrNotFound) {
			log.Warn("discussion references an unknown simd, storing link anyway")
		} else if err != nil {
			return err
		}
	}

	rowID, err := e.deps.Store.UpsertDiscussion(ctx, row)
	if err != nil {
		return err
	}
	if linked {
		if err := e.deps.Store.AdvanceActivity(ctx, id, d.UpdatedAt); err != nil {
			return err
		}
		res.Linked++
	}

	comments, err := e.src.ListDiscussionComments(ctx, d.Number, e.settings.DiscussionCommentCap)
	if err != nil {
		if softStop(err) {
			return err
		}
		return fmt.Errorf("list comments: %w", err)
	}
	rows := make([]simd.DiscussionComment, 0, len(comments))
	for _, c := range comments {
		ext := c.NodeID
		if ext == "" {
			ext = strconv.FormatInt(c.ID, 10)
		}
		rows = append(rows, simd.DiscussionComment{
			DiscussionID:    rowID,
			GitHubCommentID: ext,
			Author:          c.Author,
			Body:            c.Body,
			CreatedAt:       c.CreatedAt,
		})
	}
	n, err := e.deps.Store.UpsertDiscussionComments(ctx, rows)
	res.Comments += n
	if err != nil {
		return err
	}
	res.Synced++
	return nil
}
