package syncer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/stake-plus/simd-tracker/src/github"
)

// Runner owns the three engines and runs them under the configured timeout.
type Runner struct {
	Proposals   *ProposalEngine
	PRs         *PREngine
	Discussions *DiscussionEngine

	timeout time.Duration
	log     *zap.Logger
}

// NewRunner wires every engine against one upstream source.
func NewRunner(deps *Deps, src github.Source, settings Settings) *Runner {
	d := deps.withDefaults()
	return &Runner{
		Proposals:   NewProposalEngine(d, src, settings),
		PRs:         NewPREngine(d, src, settings),
		Discussions: NewDiscussionEngine(d, src, settings),
		timeout:     settings.RunTimeout,
		log:         d.Log.Named("runner"),
	}
}

func (r *Runner) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// SyncProposals runs the proposal engine once.
func (r *Runner) SyncProposals(ctx context.Context) (ProposalResult, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return r.Proposals.Run(ctx)
}

// SyncPRs runs the PR engine once.
func (r *Runner) SyncPRs(ctx context.Context, opts PROptions) (PRResult, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return r.PRs.Run(ctx, opts)
}

// SyncDiscussions runs the discussion engine once.
func (r *Runner) SyncDiscussions(ctx context.Context, opts DiscussionOptions) (DiscussionResult, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return r.Discussions.Run(ctx, opts)
}

// AllResult collects the outcome of SyncAll, one entry per engine.
type AllResult struct {
	Proposals   *ProposalResult   `json:"proposals,omitempty"`
	PRs         *PRResult         `json:"prs,omitempty"`
	Discussions *DiscussionResult `json:"discussions,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
}

// Success reports whether every engine completed.
func (a AllResult) Success() bool { return len(a.Errors) == 0 }

// SyncAll runs proposals, PRs and discussions in that order. A failing engine
// is recorded and the next one still runs.
func (r *Runner) SyncAll(ctx context.Context, prOpts PROptions, discOpts DiscussionOptions) AllResult {
	out := AllResult{Errors: map[string]string{}}
	record := func(name string, err error) {
		if err != nil {
			out.Errors[name] = err.Error()
			r.log.Error("engine failed", zap.String("engine", name), zap.Error(err))
		}
	}

	prop, err := r.SyncProposals(ctx)
	out.Proposals = &prop
	record("proposals", err)

	prs, err := r.SyncPRs(ctx, prOpts)
	out.PRs = &prs
	record("prs", err)

	disc, err := r.SyncDiscussions(ctx, discOpts)
	out.Discussions = &disc
	record("discussions", err)

	if len(out.Errors) == 0 {
		out.Errors = nil
	}
	return out
}
