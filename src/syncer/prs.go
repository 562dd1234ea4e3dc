package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/stake-plus/simd-tracker/src/data"
	"github.com/stake-plus/simd-tracker/src/github"
	"github.com/stake-plus/simd-tracker/src/parser"
	"github.com/stake-plus/simd-tracker/src/resolver"
	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

// PROptions narrows a PR sync run.
type PROptions struct {
	// Since overrides the stored watermark.
	Since *time.Time
	// IncludeAllOpen also walks every open PR regardless of age.
	IncludeAllOpen bool
}

// PRResult summarises one PR sync run.
type PRResult struct {
	Processed           int       `json:"processed"`
	Synced              int       `json:"synced"`
	Unresolved          int       `json:"unresolved"`
	Failed              int       `json:"failed"`
	Messages            int       `json:"messages"`
	PlaceholdersCreated int       `json:"placeholders_created"`
	Enriched            int       `json:"enriched"`
	Since               time.Time `json:"since"`
	StoppedEarly        bool      `json:"stopped_early"`
}

// PREngine mirrors pull requests and their conversation.
type PREngine struct {
	deps     *Deps
	src      github.PullRequestSource
	resolver *resolver.Resolver
	settings Settings
	log      *zap.Logger
}

// NewPREngine returns a PREngine.
func NewPREngine(deps *Deps, src github.PullRequestSource, settings Settings) *PREngine {
	d := deps.withDefaults()
	return &PREngine{
		deps:     d,
		src:      src,
		resolver: resolver.New(settings.ProposalsDir, settings.DocExtension),
		settings: settings,
		log:      d.Log.Named("prs"),
	}
}

// Run walks PRs updated since the watermark, newest first.
func (e *PREngine) Run(ctx context.Context, opts PROptions) (PRResult, error) {
	var res PRResult
	err := e.deps.RunJob(ctx, simd.JobPRs, e.settings.RunTimeout, func(ctx context.Context) (Outcome, error) {
		err := e.run(ctx, opts, &res)
		return Outcome{Processed: res.Processed, StoppedEarly: res.StoppedEarly}, err
	})
	return res, err
}

func (e *PREngine) since(ctx context.Context, opts PROptions) (time.Time, error) {
	if opts.Since != nil {
		return opts.Since.UTC(), nil
	}
	st, err := e.deps.Store.GetSyncState(ctx, data.ScopePRs)
	if err != nil {
		return time.Time{}, err
	}
	if st.WatermarkTS != nil {
		return st.WatermarkTS.UTC(), nil
	}
	return e.deps.Now().Add(-e.settings.PRLookback), nil
}

func (e *PREngine) run(ctx context.Context, opts PROptions, res *PRResult) error {
	since, err := e.since(ctx, opts)
	if err != nil {
		return fmt.Errorf("resolve watermark: %w", err)
	}
	res.Since = since

	guard := newQuotaGuard(e.src, e.settings, e.log)
	if err := guard.check(ctx); err != nil {
		if errors.Is(err, ErrQuotaLow) {
			res.StoppedEarly = true
			return nil
		}
		return fmt.Errorf("quota check: %w", err)
	}

	w := &prWalk{engine: e, guard: guard, res: res, seen: map[int]bool{}}
	walkErr := w.walk(ctx, "all", &since)
	if walkErr == nil && !res.StoppedEarly && (opts.IncludeAllOpen || e.settings.IncludeAllOpen) {
		walkErr = w.walk(ctx, simd.PRStateOpen, nil)
	}

	var watermark *time.Time
	if walkErr == nil && !res.StoppedEarly {
		watermark = w.progress.watermark(&since)
	}
	stateCtx := context.WithoutCancel(ctx)
	if err := e.deps.Store.RecordSyncAttempt(stateCtx, data.ScopePRs, watermark, walkErr, res); err != nil {
		e.log.Warn("record sync state", zap.Error(err))
	}
	return walkErr
}

type prWalk struct {
	engine   *PREngine
	guard    *quotaGuard
	res      *PRResult
	seen     map[int]bool
	progress progress
}

// walk pages through PRs in state. With a cutoff the walk ends at the first
// PR last updated before it.
func (w *prWalk) walk(ctx context.Context, state string, cutoff *time.Time) error {
	e := w.engine
	for page := 1; ; page++ {
		prs, hasNext, err := e.src.ListPullRequests(ctx, state, page, e.settings.PRPageSize)
		if err != nil {
			if softStop(err) {
				w.res.StoppedEarly = true
				return nil
			}
			return fmt.Errorf("list %s pulls page %d: %w", state, page, err)
		}
		for _, pr := range prs {
			if cutoff != nil && pr.UpdatedAt.Before(*cutoff) {
				return nil
			}
			if w.seen[pr.Number] {
				continue
			}
			w.seen[pr.Number] = true
			if err := ctx.Err(); err != nil {
				return err
			}

			w.res.Processed++
			w.progress.saw(pr.UpdatedAt)
			if err := e.syncPR(ctx, pr, w.res); err != nil {
				if softStop(err) {
					w.res.StoppedEarly = true
					e.log.Warn("rate limited, stopping early", zap.Int("pr", pr.Number), zap.Error(err))
					return nil
				}
				w.res.Failed++
				w.progress.failed(pr.UpdatedAt)
				e.log.Error("sync pr", zap.Int("pr", pr.Number), zap.Error(err))
			}
			if err := w.guard.tick(ctx); err != nil {
				w.res.StoppedEarly = true
				return nil
			}
		}
		if !hasNext || len(prs) == 0 {
			return nil
		}
	}
}

func (e *PREngine) syncPR(ctx context.Context, pr github.PullRequest, res *PRResult) error {
	files, err := e.src.ListPullRequestFiles(ctx, pr.Number)
	if err != nil {
		return err
	}
	rpr := resolver.PullRequest{Number: pr.Number, Title: pr.Title}
	for _, f := range files {
		rpr.Files = append(rpr.Files, resolver.File{Path: f.Filename, SHA: f.SHA})
	}
	resolved, ok := e.resolver.Resolve(rpr)
	if !ok {
		res.Unresolved++
		e.log.Debug("pr does not reference a simd", zap.Int("pr", pr.Number), zap.String("title", pr.Title))
		return nil
	}
	log := e.log.With(zap.String("simd", resolved.SIMDID), zap.Int("pr", pr.Number))

	if err := e.ensureSIMD(ctx, pr, resolved, res, log); err != nil {
		return fmt.Errorf("simd %s: %w", resolved.SIMDID, err)
	}

	detail, err := e.src.PullRequestDetail(ctx, pr.Number)
	if err != nil {
		if softStop(err) {
			return err
		}
		log.Warn("pr detail unavailable", zap.Error(err))
	}

	row := &simd.PullRequest{
		SIMDID:             resolved.SIMDID,
		PRNumber:           pr.Number,
		Title:              pr.Title,
		State:              prState(pr),
		Author:             pr.Author,
		HTMLURL:            pr.HTMLURL,
		HeadSHA:            pr.HeadSHA,
		HeadRef:            pr.HeadRef,
		BaseRef:            pr.BaseRef,
		LastCommitSHA:      detail.LastCommitSHA,
		LastCommitAt:       detail.LastCommitAt,
		ReviewCount:        detail.ReviewCount,
		Reviewers:          jsonList(detail.Reviewers),
		IssueCommentCount:  pr.Comments,
		ReviewCommentCount: pr.ReviewComments,
		GitHubCreatedAt:    pr.CreatedAt,
		GitHubUpdatedAt:    pr.UpdatedAt,
		MergedAt:           pr.MergedAt,
		ClosedAt:           pr.ClosedAt,
	}
	if resolved.ProposalFile != nil {
		row.ProposalPath = resolved.ProposalFile.Path
	}
	if err := e.deps.Store.UpsertPullRequest(ctx, row); err != nil {
		return err
	}
	if err := e.deps.Store.AdvancePRActivity(ctx, resolved.SIMDID, pr.UpdatedAt); err != nil {
		return err
	}

	msgs, err := e.fetchMessages(ctx, resolved.SIMDID, pr.Number)
	if err != nil {
		return err
	}
	n, err := e.deps.Store.UpsertMessages(ctx, msgs)
	if err != nil {
		return err
	}
	if err := e.deps.Store.RecomputePRAggregates(ctx, resolved.SIMDID, pr.Number); err != nil {
		return err
	}
	res.Synced++
	res.Messages += n
	return nil
}

func prState(pr github.PullRequest) string {
	if pr.MergedAt != nil {
		return simd.PRStateMerged
	}
	if pr.State == simd.PRStateOpen {
		return simd.PRStateOpen
	}
	return simd.PRStateClosed
}

// fetchMessages collects conversation and review comments up to the cap, oldest first.
func (e *PREngine) fetchMessages(ctx context.Context, simdID string, number int) ([]simd.Message, error) {
	limit := e.settings.PRMessageCap
	issue, err := e.src.ListIssueComments(ctx, number, limit)
	if err != nil {
		return nil, err
	}
	remaining := limit - len(issue)
	var review []github.Comment
	if limit <= 0 || remaining > 0 {
		review, err = e.src.ListReviewComments(ctx, number, remaining)
		if err != nil {
			return nil, err
		}
	}

	msgs := make([]simd.Message, 0, len(issue)+len(review))
	add := func(kind string, comments []github.Comment) {
		for _, c := range comments {
			msgs = append(msgs, simd.Message{
				SIMDID:     simdID,
				PRNumber:   number,
				Type:       kind,
				ExternalID: c.ID,
				Author:     c.Author,
				Body:       c.Body,
				URL:        c.URL,
				CreatedAt:  c.CreatedAt,
			})
		}
	}
	add(simd.MessageComment, issue)
	add(simd.MessageReview, review)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	return msgs, nil
}

// ensureSIMD creates a placeholder for unknown ids and refreshes PR-stage
// records whose proposal document changed at the PR head. Merged records are
// never rewritten from a PR.
func (e *PREngine) ensureSIMD(ctx context.Context, pr github.PullRequest, resolved resolver.Result, res *PRResult, log *zap.Logger) error {
	existing, err := e.deps.Store.GetSIMD(ctx, resolved.SIMDID)
	if err != nil && !errors.Is(err, data.ErrNotFound) {
		return err
	}

	if existing == nil {
		incoming := simd.SIMD{
			ID:                resolved.SIMDID,
			Title:             parser.CleanTitle(pr.Title),
			Status:            simd.StatusDraft,
			SourceStage:       simd.StagePR,
			ProposalUpdatedAt: timePtr(pr.UpdatedAt),
			LastActivityAt:    timePtr(pr.UpdatedAt),
			LastPRActivityAt:  timePtr(pr.UpdatedAt),
		}
		if f := resolved.ProposalFile; f != nil {
			incoming.PRProposalPath = f.Path
			if err := e.applyDocument(ctx, &incoming, pr, *f); err != nil {
				if softStop(err) {
					return err
				}
				log.Warn("proposal document unavailable, using pr title", zap.String("path", f.Path), zap.Error(err))
			}
		}
		created, rec, err := e.deps.Store.UpsertSIMD(ctx, incoming)
		if err != nil {
			return err
		}
		if created {
			res.PlaceholdersCreated++
			log.Info("placeholder simd created", zap.String("title", rec.Title), zap.String("via", string(resolved.Method)))
			e.deps.Notifier.SIMDCreated(ctx, rec)
		}
		return nil
	}

	f := resolved.ProposalFile
	if f == nil || existing.SourceStage == simd.StageMain || pr.State != simd.PRStateOpen || pr.MergedAt != nil {
		if f != nil && resolved.Method == resolver.MethodPlaceholder && existing.SourceStage == simd.StageMain {
			log.Warn("placeholder id collides with a merged simd, leaving it untouched",
				zap.String("path", f.Path), zap.String("main_path", existing.MainProposalPath))
		}
		return nil
	}
	if existing.PRProposalPath != "" && existing.PRProposalPath != f.Path {
		log.Warn("simd already tracks a different proposal file, leaving it untouched",
			zap.String("path", f.Path), zap.String("tracked", existing.PRProposalPath))
		return nil
	}
	if f.SHA != "" && f.SHA == existing.ProposalSHA {
		return nil
	}

	incoming := simd.SIMD{ID: existing.ID, SourceStage: simd.StagePR, PRProposalPath: f.Path}
	if err := e.applyDocument(ctx, &incoming, pr, *f); err != nil {
		if softStop(err) {
			return err
		}
		log.Warn("proposal document unavailable", zap.String("path", f.Path), zap.Error(err))
		return nil
	}
	if incoming.ProposalSHA == existing.ProposalSHA {
		return nil
	}
	if _, _, err := e.deps.Store.UpsertSIMD(ctx, incoming); err != nil {
		return err
	}
	res.Enriched++
	log.Info("pr-stage simd refreshed from head", zap.String("path", f.Path))
	return nil
}

// applyDocument fills rec from the proposal file at the PR head.
func (e *PREngine) applyDocument(ctx context.Context, rec *simd.SIMD, pr github.PullRequest, f resolver.File) error {
	doc, err := e.src.GetDocument(ctx, f.Path, pr.HeadSHA)
	if err != nil {
		return err
	}
	parsed := parser.Parse(doc.Content)
	if parsed.Title != parser.UntitledProposal {
		rec.Title = parsed.Title
	}
	rec.Status = parsed.Status
	rec.Summary = parsed.Summary
	rec.Topics = jsonList(parsed.Topics)
	rec.ProposalContent = doc.Content
	switch {
	case f.SHA != "":
		rec.ProposalSHA = f.SHA
	case doc.SHA != "":
		rec.ProposalSHA = doc.SHA
	default:
		rec.ProposalSHA = parser.Fingerprint(doc.Content)
	}
	return nil
}
