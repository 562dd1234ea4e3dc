package data

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

var dbSeq atomic.Int64

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:store_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := ConnectSQLite(dsn, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewStore(db, zap.NewNop())
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func tp(s string) *time.Time {
	t := ts(s)
	return &t
}

func TestUpsertSIMDCreatesThenMerges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, rec, err := s.UpsertSIMD(ctx, simd.SIMD{
		ID:             "0042",
		Title:          "Placeholder",
		SourceStage:    simd.StagePR,
		PRProposalPath: "proposals/XXXX-foo.md",
		LastActivityAt: tp("2024-03-01T00:00:00Z"),
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, simd.StatusDraft, rec.Status)

	created, rec, err = s.UpsertSIMD(ctx, simd.SIMD{
		ID:               "0042",
		Title:            "Real Title",
		Status:           simd.StatusAccepted,
		SourceStage:      simd.StageMain,
		MainProposalPath: "proposals/0042-foo.md",
		LastActivityAt:   tp("2024-02-01T00:00:00Z"),
	})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := s.GetSIMD(ctx, "0042")
	require.NoError(t, err)
	assert.Equal(t, "Real Title", got.Title)
	assert.Equal(t, simd.StatusAccepted, got.Status)
	assert.Equal(t, simd.StageMain, got.SourceStage)
	assert.Equal(t, "proposals/XXXX-foo.md", got.PRProposalPath)
	assert.Equal(t, "proposals/0042-foo.md", got.MainProposalPath)
	require.NotNil(t, got.LastActivityAt)
	assert.True(t, got.LastActivityAt.Equal(ts("2024-03-01T00:00:00Z")))
}

func TestGetSIMDNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSIMD(context.Background(), "9999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdvanceActivityIsMonotonic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, _, err := s.UpsertSIMD(ctx, simd.SIMD{ID: "0001", Title: "t", SourceStage: simd.StageMain})
	require.NoError(t, err)

	t1 := ts("2024-01-01T00:00:00Z")
	t2 := ts("2024-06-01T00:00:00Z")

	require.NoError(t, s.AdvanceActivity(ctx, "0001", t2))
	require.NoError(t, s.AdvanceActivity(ctx, "0001", t1))
	got, err := s.GetSIMD(ctx, "0001")
	require.NoError(t, err)
	assert.True(t, got.LastActivityAt.Equal(t2))

	require.NoError(t, s.AdvancePRActivity(ctx, "0001", t1))
	got, err = s.GetSIMD(ctx, "0001")
	require.NoError(t, err)
	assert.True(t, got.LastActivityAt.Equal(t2))
	require.NotNil(t, got.LastPRActivityAt)
	assert.True(t, got.LastPRActivityAt.Equal(t1))

	// Unknown ids are a no-op.
	assert.NoError(t, s.AdvanceActivity(ctx, "7777", t2))
}

func TestUpsertMessagesRefreshesBodyOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pr := &simd.PullRequest{
		SIMDID: "0042", PRNumber: 7, Title: "SIMD-0042: x", State: simd.PRStateOpen,
		GitHubCreatedAt: ts("2024-01-01T00:00:00Z"), GitHubUpdatedAt: ts("2024-01-02T00:00:00Z"),
	}
	require.NoError(t, s.UpsertPullRequest(ctx, pr))

	msgs := []simd.Message{
		{SIMDID: "0042", PRNumber: 7, Type: simd.MessageComment, ExternalID: 1, Author: "alice", Body: "first", CreatedAt: ts("2024-01-01T10:00:00Z")},
		{SIMDID: "0042", PRNumber: 7, Type: simd.MessageReview, ExternalID: 2, Author: "bob", Body: "nit", CreatedAt: ts("2024-01-01T12:00:00Z")},
		{SIMDID: "0042", PRNumber: 7, Type: simd.MessageComment, ExternalID: 3, Author: "alice", Body: "again", CreatedAt: ts("2024-01-01T11:00:00Z")},
	}
	n, err := s.UpsertMessages(ctx, msgs)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	edited := msgs[0]
	edited.Body = "first (edited)"
	edited.Author = "mallory"
	_, err = s.UpsertMessages(ctx, []simd.Message{edited})
	require.NoError(t, err)

	all, err := s.MessagesSince(ctx, "0042", 7, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "first (edited)", all[0].Body)
	assert.Equal(t, "alice", all[0].Author)

	require.NoError(t, s.RecomputePRAggregates(ctx, "0042", 7))
	got, err := s.GetPullRequest(ctx, "0042", 7)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalMessageCount)
	assert.Equal(t, 2, got.ParticipantCount)
	require.NotNil(t, got.LastMessageAt)
	assert.True(t, got.LastMessageAt.Equal(ts("2024-01-01T12:00:00Z")))

	since := ts("2024-01-01T10:30:00Z")
	newer, err := s.MessagesSince(ctx, "0042", 7, &since)
	require.NoError(t, err)
	require.Len(t, newer, 2)
	assert.Equal(t, int64(3), newer[0].ExternalID)
	assert.Equal(t, int64(2), newer[1].ExternalID)
}

func TestUpsertPullRequestKeepsAggregates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pr := &simd.PullRequest{SIMDID: "0050", PRNumber: 9, State: simd.PRStateOpen, GitHubUpdatedAt: ts("2024-01-01T00:00:00Z")}
	require.NoError(t, s.UpsertPullRequest(ctx, pr))
	_, err := s.UpsertMessages(ctx, []simd.Message{
		{SIMDID: "0050", PRNumber: 9, Type: simd.MessageComment, ExternalID: 10, Author: "a", Body: "b", CreatedAt: ts("2024-01-01T01:00:00Z")},
	})
	require.NoError(t, err)
	require.NoError(t, s.RecomputePRAggregates(ctx, "0050", 9))

	again := &simd.PullRequest{SIMDID: "0050", PRNumber: 9, State: simd.PRStateMerged, Title: "renamed", GitHubUpdatedAt: ts("2024-02-01T00:00:00Z")}
	require.NoError(t, s.UpsertPullRequest(ctx, again))

	got, err := s.GetPullRequest(ctx, "0050", 9)
	require.NoError(t, err)
	assert.Equal(t, simd.PRStateMerged, got.State)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, 1, got.TotalMessageCount)
}

func TestSummarySnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	open := &simd.PullRequest{SIMDID: "0001", PRNumber: 1, State: simd.PRStateOpen}
	quiet := &simd.PullRequest{SIMDID: "0002", PRNumber: 2, State: simd.PRStateOpen}
	closed := &simd.PullRequest{SIMDID: "0003", PRNumber: 3, State: simd.PRStateClosed}
	for _, pr := range []*simd.PullRequest{open, quiet, closed} {
		require.NoError(t, s.UpsertPullRequest(ctx, pr))
	}
	for _, pr := range []*simd.PullRequest{open, closed} {
		_, err := s.UpsertMessages(ctx, []simd.Message{{
			SIMDID: pr.SIMDID, PRNumber: pr.PRNumber, Type: simd.MessageComment,
			ExternalID: int64(pr.PRNumber), Author: "a", Body: "hi", CreatedAt: ts("2024-01-01T00:00:00Z"),
		}})
		require.NoError(t, err)
		require.NoError(t, s.RecomputePRAggregates(ctx, pr.SIMDID, pr.PRNumber))
	}

	rows, err := s.SummarySnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "0001", rows[0].SIMDID)
	assert.False(t, rows[0].HasSummary())

	require.NoError(t, s.SaveSummary(ctx, &simd.PRSummary{
		SIMDID: "0001", PRNumber: 1, Summary: "s", MessageCount: 1,
		LastMessageAt: tp("2024-01-01T00:00:00Z"), GeneratedAt: ts("2024-01-02T00:00:00Z"), Model: "m",
	}))
	rows, err = s.SummarySnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].HasSummary())
	require.NotNil(t, rows[0].SummaryMessageCount)
	assert.Equal(t, 1, *rows[0].SummaryMessageCount)
	require.NotNil(t, rows[0].SummaryLastMessageAt)
	assert.True(t, rows[0].SummaryLastMessageAt.Equal(ts("2024-01-01T00:00:00Z")))
}

func TestJobsLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.StartJob(ctx, simd.JobPRs)
	require.NoError(t, err)
	require.NoError(t, s.FinishJob(ctx, ok, 12, true, nil))

	bad, err := s.StartJob(ctx, simd.JobProposals)
	require.NoError(t, err)
	require.NoError(t, s.FinishJob(ctx, bad, 0, false, fmt.Errorf("boom")))

	jobs, err := s.RecentJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	byType := map[string]simd.SyncJob{}
	for _, j := range jobs {
		byType[j.JobType] = j
	}
	assert.Equal(t, simd.JobCompleted, byType[simd.JobPRs].Status)
	assert.Equal(t, 12, byType[simd.JobPRs].RecordsProcessed)
	assert.True(t, byType[simd.JobPRs].StoppedEarly)
	assert.Equal(t, simd.JobFailed, byType[simd.JobProposals].Status)
	require.NotNil(t, byType[simd.JobProposals].ErrorMessage)
	assert.Equal(t, "boom", *byType[simd.JobProposals].ErrorMessage)
}

func TestRecordSyncAttemptOnlyAdvancesOnSuccess(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	st, err := s.GetSyncState(ctx, ScopePRs)
	require.NoError(t, err)
	assert.Nil(t, st.WatermarkTS)

	require.NoError(t, s.RecordSyncAttempt(ctx, ScopePRs, tp("2024-05-01T00:00:00Z"), nil, map[string]int{"processed": 3}))
	require.NoError(t, s.RecordSyncAttempt(ctx, ScopePRs, tp("2024-06-01T00:00:00Z"), fmt.Errorf("down"), nil))
	require.NoError(t, s.RecordSyncAttempt(ctx, ScopePRs, tp("2024-04-01T00:00:00Z"), nil, nil))

	st, err = s.GetSyncState(ctx, ScopePRs)
	require.NoError(t, err)
	require.NotNil(t, st.WatermarkTS)
	assert.True(t, st.WatermarkTS.Equal(ts("2024-05-01T00:00:00Z")))
	assert.Nil(t, st.LastError)
}
