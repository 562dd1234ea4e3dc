package syncer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/stake-plus/simd-tracker/src/data"
	"github.com/stake-plus/simd-tracker/src/logging"
	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

// Notifier receives notable sync outcomes.
type Notifier interface {
	SIMDCreated(ctx context.Context, rec simd.SIMD)
	RunFailed(ctx context.Context, jobType string, err error)
}

type nopNotifier struct{}

func (nopNotifier) SIMDCreated(context.Context, simd.SIMD)   {}
func (nopNotifier) RunFailed(context.Context, string, error) {}

// Deps are the collaborators shared by every engine.
type Deps struct {
	Store    *data.Store
	Locker   data.Locker
	Events   data.Publisher
	Notifier Notifier
	Log      *zap.Logger
	Now      func() time.Time
}

func (d *Deps) withDefaults() *Deps {
	out := *d
	if out.Locker == nil {
		out.Locker = data.NopLocker{}
	}
	if out.Events == nil {
		out.Events = data.NopPublisher{}
	}
	if out.Notifier == nil {
		out.Notifier = nopNotifier{}
	}
	out.Log = logging.OrNop(out.Log)
	if out.Now == nil {
		out.Now = func() time.Time { return time.Now().UTC() }
	}
	return &out
}

// Outcome is what a job body reports back for the audit row.
type Outcome struct {
	Processed    int
	StoppedEarly bool
}

// RunJob wraps one engine run in a lock and a sync_jobs audit row. A soft
// stop completes the job; any other error fails it.
func (d *Deps) RunJob(ctx context.Context, jobType string, lockTTL time.Duration, fn func(ctx context.Context) (Outcome, error)) error {
	d = d.withDefaults()
	log := d.Log.With(zap.String("job", jobType))

	release, err := d.Locker.Acquire(ctx, jobType, lockTTL)
	if err != nil {
		if errors.Is(err, data.ErrLocked) {
			log.Info("run already in progress, skipping")
		}
		return err
	}
	defer release()

	job, err := d.Store.StartJob(ctx, jobType)
	if err != nil {
		return err
	}
	started := time.Now()
	log.Info("sync started", zap.String("job_id", job.ID))

	out, runErr := fn(ctx)

	// The run context may have expired; audit writes must still land.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := d.Store.FinishJob(finishCtx, job, out.Processed, out.StoppedEarly, runErr); err != nil {
		log.Error("record job outcome", zap.Error(err))
	}

	status := simd.JobCompleted
	if runErr != nil {
		status = simd.JobFailed
		log.Error("sync failed", zap.Error(runErr), zap.Int("processed", out.Processed))
		d.Notifier.RunFailed(finishCtx, jobType, runErr)
	} else {
		log.Info("sync completed",
			zap.Int("processed", out.Processed),
			zap.Bool("stopped_early", out.StoppedEarly),
			zap.Duration("took", time.Since(started)))
	}
	event := map[string]any{
		"job_id":        job.ID,
		"job":           jobType,
		"status":        status,
		"processed":     out.Processed,
		"stopped_early": out.StoppedEarly,
	}
	if err := d.Events.Publish(finishCtx, event); err != nil {
		log.Warn("publish job event", zap.Error(err))
	}
	return runErr
}
