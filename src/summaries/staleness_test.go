package summaries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stake-plus/simd-tracker/src/data"
)

func ptr[T any](v T) *T { return &v }

var base = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func TestClassify(t *testing.T) {
	t1 := base.Add(-2 * time.Hour)
	t2 := base.Add(-time.Hour)
	id := uint64(1)

	tests := []struct {
		name string
		snap data.SummarySnapshot
		want State
	}{
		{"no summary", data.SummarySnapshot{TotalMessageCount: 3, LastMessageAt: &t2}, StateNoSummary},
		{"newer message", data.SummarySnapshot{
			TotalMessageCount: 4, LastMessageAt: &t2,
			SummaryID: &id, SummaryMessageCount: ptr(3), SummaryLastMessageAt: &t1,
		}, StateNewMessages},
		{"count changed only", data.SummarySnapshot{
			TotalMessageCount: 2, LastMessageAt: &t1,
			SummaryID: &id, SummaryMessageCount: ptr(3), SummaryLastMessageAt: &t1,
		}, StateMessageCountChanged},
		{"up to date", data.SummarySnapshot{
			TotalMessageCount: 3, LastMessageAt: &t1,
			SummaryID: &id, SummaryMessageCount: ptr(3), SummaryLastMessageAt: &t1,
		}, StateUpToDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.snap))
		})
	}
}

func TestSelectOrdersAndCaps(t *testing.T) {
	id := uint64(1)
	old := base.Add(-10 * time.Hour)
	recent := base.Add(-time.Hour)

	snaps := []data.SummarySnapshot{
		{SIMDID: "0001", PRNumber: 1, TotalMessageCount: 1, LastMessageAt: ptr(base.Add(-3 * time.Hour))},
		{SIMDID: "0002", PRNumber: 2, TotalMessageCount: 1, LastMessageAt: ptr(base.Add(-30 * time.Minute))},
		// Up to date, summary old, PR active within the refresh window: refreshed.
		{SIMDID: "0003", PRNumber: 3, TotalMessageCount: 2, LastMessageAt: &recent,
			SummaryID: &id, SummaryMessageCount: ptr(2), SummaryLastMessageAt: &recent, SummaryGeneratedAt: &old},
		// Up to date, PR quiet: left alone.
		{SIMDID: "0004", PRNumber: 4, TotalMessageCount: 2, LastMessageAt: &old,
			SummaryID: &id, SummaryMessageCount: ptr(2), SummaryLastMessageAt: &old, SummaryGeneratedAt: &old},
	}

	got := Select(snaps, base, 6*time.Hour, 0)
	var ids []string
	for _, c := range got {
		ids = append(ids, c.SIMDID)
	}
	assert.Equal(t, []string{"0002", "0003", "0001"}, ids)
	assert.Equal(t, StateUpToDate, got[1].State)

	capped := Select(snaps, base, 6*time.Hour, 2)
	assert.Len(t, capped, 2)
}
