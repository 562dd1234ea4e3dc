package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/stake-plus/simd-tracker/src/data"
	"github.com/stake-plus/simd-tracker/src/github"
	"github.com/stake-plus/simd-tracker/src/parser"
	"github.com/stake-plus/simd-tracker/src/resolver"
	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

// ProposalResult summarises one proposal sync run.
type ProposalResult struct {
	Processed    int  `json:"processed"`
	Created      int  `json:"created"`
	Updated      int  `json:"updated"`
	Unchanged    int  `json:"unchanged"`
	Skipped      int  `json:"skipped"`
	Failed       int  `json:"failed"`
	StoppedEarly bool `json:"stopped_early"`
}

// ProposalEngine mirrors merged proposal documents into SIMD records.
type ProposalEngine struct {
	deps     *Deps
	src      github.ProposalSource
	settings Settings
	log      *zap.Logger
}

// NewProposalEngine returns a ProposalEngine.
func NewProposalEngine(deps *Deps, src github.ProposalSource, settings Settings) *ProposalEngine {
	d := deps.withDefaults()
	return &ProposalEngine{deps: d, src: src, settings: settings, log: d.Log.Named("proposals")}
}

// Run walks the proposals directory once.
func (e *ProposalEngine) Run(ctx context.Context) (ProposalResult, error) {
	var res ProposalResult
	err := e.deps.RunJob(ctx, simd.JobProposals, e.settings.RunTimeout, func(ctx context.Context) (Outcome, error) {
		err := e.run(ctx, &res)
		return Outcome{Processed: res.Processed, StoppedEarly: res.StoppedEarly}, err
	})
	return res, err
}

func (e *ProposalEngine) run(ctx context.Context, res *ProposalResult) error {
	guard := newQuotaGuard(e.src, e.settings, e.log)
	if err := guard.check(ctx); err != nil {
		if errors.Is(err, ErrQuotaLow) {
			res.StoppedEarly = true
			return nil
		}
		return fmt.Errorf("quota check: %w", err)
	}

	files, err := e.src.ListDirectory(ctx, e.settings.ProposalsDir)
	if err != nil {
		return fmt.Errorf("list proposals: %w", err)
	}

	for _, f := range files {
		if f.Type != "" && f.Type != "file" {
			continue
		}
		if !strings.HasSuffix(f.Name, e.settings.DocExtension) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		id, ok := resolver.ExtractID(f.Name)
		if !ok {
			res.Skipped++
			e.log.Debug("no simd number in filename", zap.String("path", f.Path))
			continue
		}

		res.Processed++
		if err := e.syncFile(ctx, f, id, res); err != nil {
			if softStop(err) {
				res.StoppedEarly = true
				e.log.Warn("rate limited, stopping early", zap.Error(err))
				return nil
			}
			res.Failed++
			e.log.Error("sync proposal", zap.String("simd", id), zap.String("path", f.Path), zap.Error(err))
		}
		if err := guard.tick(ctx); err != nil {
			res.StoppedEarly = true
			return nil
		}
	}
	return nil
}

func (e *ProposalEngine) syncFile(ctx context.Context, f github.File, id string, res *ProposalResult) error {
	existing, err := e.deps.Store.GetSIMD(ctx, id)
	if err != nil && !errors.Is(err, data.ErrNotFound) {
		return err
	}
	if existing != nil && existing.SourceStage == simd.StageMain && existing.ProposalSHA == f.SHA {
		res.Unchanged++
		return nil
	}

	doc, err := e.src.GetDocument(ctx, f.Path, "")
	if err != nil {
		return err
	}
	sha := f.SHA
	if sha == "" {
		sha = doc.SHA
	}
	if sha == "" {
		sha = parser.Fingerprint(doc.Content)
	}

	lastCommit, err := e.src.LastCommitDate(ctx, f.Path)
	if err != nil {
		if softStop(err) {
			return err
		}
		e.log.Warn("last commit date unavailable, using now", zap.String("path", f.Path), zap.Error(err))
		lastCommit = e.deps.Now()
	}

	parsed := parser.Parse(doc.Content)
	incoming := simd.SIMD{
		ID:                id,
		Title:             parsed.Title,
		Status:            simd.StatusAccepted,
		Summary:           parsed.Summary,
		Topics:            jsonList(parsed.Topics),
		ProposalContent:   doc.Content,
		ProposalSHA:       sha,
		SourceStage:       simd.StageMain,
		MainProposalPath:  f.Path,
		ProposalUpdatedAt: timePtr(lastCommit),
		LastActivityAt:    timePtr(lastCommit),
	}
	created, rec, err := e.deps.Store.UpsertSIMD(ctx, incoming)
	if err != nil {
		return err
	}
	if created {
		res.Created++
		e.log.Info("simd created", zap.String("simd", id), zap.String("title", rec.Title))
		e.deps.Notifier.SIMDCreated(ctx, rec)
	} else {
		res.Updated++
		e.log.Debug("simd updated", zap.String("simd", id))
	}
	return nil
}
