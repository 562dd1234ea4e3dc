package summaries

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stake-plus/simd-tracker/src/shared/simd"
	"github.com/stake-plus/simd-tracker/src/syncer"
)

// Settings tunes the summary job.
type Settings struct {
	BatchSize       int
	RefreshInterval time.Duration
	RunTimeout      time.Duration
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{BatchSize: 50, RefreshInterval: 6 * time.Hour, RunTimeout: 5 * time.Minute}
}

// Result summarises one summary run.
type Result struct {
	Candidates int `json:"candidates"`
	Generated  int `json:"generated"`
	Skipped    int `json:"skipped"`
	Rejected   int `json:"rejected"`
	Failed     int `json:"failed"`
}

// Job refreshes stale PR summaries.
type Job struct {
	deps       *syncer.Deps
	summarizer *Summarizer
	settings   Settings
	log        *zap.Logger
}

// NewJob returns a Job. deps supplies the store, lock and audit plumbing
// shared with the sync engines.
func NewJob(deps *syncer.Deps, summarizer *Summarizer, settings Settings) *Job {
	if settings.BatchSize <= 0 {
		settings.BatchSize = DefaultSettings().BatchSize
	}
	d := *deps
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	log := zap.NewNop()
	if d.Log != nil {
		log = d.Log
	}
	return &Job{deps: &d, summarizer: summarizer, settings: settings, log: log.Named("summaries")}
}

// Run summarises the selected batch once.
func (j *Job) Run(ctx context.Context) (Result, error) {
	if j.settings.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.settings.RunTimeout)
		defer cancel()
	}
	var res Result
	err := j.deps.RunJob(ctx, simd.JobSummaries, j.settings.RunTimeout, func(ctx context.Context) (syncer.Outcome, error) {
		err := j.run(ctx, &res)
		return syncer.Outcome{Processed: res.Generated}, err
	})
	return res, err
}

func (j *Job) run(ctx context.Context, res *Result) error {
	snaps, err := j.deps.Store.SummarySnapshots(ctx)
	if err != nil {
		return err
	}
	cands := Select(snaps, j.deps.Now(), j.settings.RefreshInterval, j.settings.BatchSize)
	res.Candidates = len(cands)
	if len(cands) == 0 {
		j.log.Info("all summaries are up to date")
		return nil
	}

	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			return err
		}
		log := j.log.With(zap.String("simd", c.SIMDID), zap.Int("pr", c.PRNumber), zap.String("state", string(c.State)))
		if err := j.summarise(ctx, c, res, log); err != nil {
			res.Failed++
			log.Error("summarise pr", zap.Error(err))
		}
	}
	return nil
}

func (j *Job) summarise(ctx context.Context, c Candidate, res *Result, log *zap.Logger) error {
	existing, err := j.deps.Store.GetSummary(ctx, c.SIMDID, c.PRNumber)
	if err != nil {
		return fmt.Errorf("load summary: %w", err)
	}

	var (
		since    *time.Time
		previous string
	)
	if existing != nil && existing.LastMessageAt != nil {
		since = existing.LastMessageAt
		previous = existing.Summary
	}
	msgs, err := j.deps.Store.MessagesSince(ctx, c.SIMDID, c.PRNumber, since)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	if len(msgs) == 0 {
		res.Skipped++
		log.Debug("no new messages since last summary")
		return nil
	}

	summary, ok, err := j.summarizer.Generate(ctx, msgs, previous)
	if err != nil {
		return err
	}
	if !ok {
		res.Rejected++
		log.Warn("model output failed validation, keeping previous summary")
		return nil
	}

	err = j.deps.Store.SaveSummary(ctx, &simd.PRSummary{
		SIMDID:        c.SIMDID,
		PRNumber:      c.PRNumber,
		Summary:       summary,
		MessageCount:  c.TotalMessageCount,
		LastMessageAt: c.LastMessageAt,
		GeneratedAt:   j.deps.Now(),
		Model:         j.summarizer.Model(),
	})
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	res.Generated++
	log.Info("summary saved", zap.Int("messages", len(msgs)), zap.Bool("incremental", previous != ""))
	return nil
}
