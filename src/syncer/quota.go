package syncer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/stake-plus/simd-tracker/src/github"
)

// ErrQuotaLow signals that the upstream budget fell below the safety
// threshold. Engines turn it into a soft stop; it never fails a run.
var ErrQuotaLow = errors.New("upstream quota below threshold")

type quotaGuard struct {
	src       github.QuotaSource
	threshold int
	every     int
	count     int
	log       *zap.Logger
}

func newQuotaGuard(src github.QuotaSource, s Settings, log *zap.Logger) *quotaGuard {
	return &quotaGuard{src: src, threshold: s.QuotaThreshold, every: s.QuotaCheckEvery, log: log}
}

// check queries the budget and returns ErrQuotaLow when it is under the threshold.
func (g *quotaGuard) check(ctx context.Context) error {
	q, err := g.src.Quota(ctx)
	if err != nil {
		if errors.Is(err, github.ErrRateLimited) {
			return fmt.Errorf("%w: %v", ErrQuotaLow, err)
		}
		return err
	}
	if q.Remaining < g.threshold {
		g.log.Warn("upstream quota low, stopping early",
			zap.Int("remaining", q.Remaining), zap.Int("threshold", g.threshold), zap.Time("reset", q.ResetAt))
		return fmt.Errorf("%w: %d remaining", ErrQuotaLow, q.Remaining)
	}
	return nil
}

// tick counts one processed item and re-checks the budget every N items.
// Errors other than ErrQuotaLow are logged and ignored mid-walk.
func (g *quotaGuard) tick(ctx context.Context) error {
	g.count++
	if g.every <= 0 || g.count%g.every != 0 {
		return nil
	}
	err := g.check(ctx)
	if err == nil || errors.Is(err, ErrQuotaLow) {
		return err
	}
	g.log.Warn("quota check failed", zap.Error(err))
	return nil
}

// softStop reports whether err should end a walk early rather than fail it.
func softStop(err error) bool {
	return errors.Is(err, ErrQuotaLow) || errors.Is(err, github.ErrRateLimited)
}
