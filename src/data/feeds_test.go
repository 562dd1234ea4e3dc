package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

func seedFeeds(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	_, _, err := s.UpsertSIMD(ctx, simd.SIMD{
		ID: "0042", Title: "Foo", Status: simd.StatusAccepted, SourceStage: simd.StageMain,
		ProposalUpdatedAt: tp("2026-09-28T00:00:00Z"),
	})
	require.NoError(t, err)
	_, _, err = s.UpsertSIMD(ctx, simd.SIMD{ID: "0900", Title: "Bar"})
	require.NoError(t, err)

	require.NoError(t, s.UpsertPullRequest(ctx, &simd.PullRequest{
		SIMDID: "0900", PRNumber: 900, State: simd.PRStateOpen, LastCommitAt: tp("2026-09-29T00:00:00Z"),
		GitHubCreatedAt: ts("2026-09-20T00:00:00Z"), GitHubUpdatedAt: ts("2026-09-29T00:00:00Z"),
	}))
	require.NoError(t, s.UpsertPullRequest(ctx, &simd.PullRequest{
		SIMDID: "0042", PRNumber: 42, State: simd.PRStateMerged, MergedAt: tp("2026-09-28T00:00:00Z"),
		GitHubCreatedAt: ts("2026-08-01T00:00:00Z"), GitHubUpdatedAt: ts("2026-09-28T00:00:00Z"),
	}))
	_, err = s.UpsertMessages(ctx, []simd.Message{
		{SIMDID: "0900", PRNumber: 900, Type: simd.MessageComment, ExternalID: 1, Author: "alice", Body: "hi", CreatedAt: ts("2026-09-29T01:00:00Z")},
		{SIMDID: "0900", PRNumber: 900, Type: simd.MessageComment, ExternalID: 2, Author: "simd-bot[bot]", Body: "lint ok", CreatedAt: ts("2026-09-29T02:00:00Z")},
	})
	require.NoError(t, err)
	require.NoError(t, s.RecomputePRAggregates(ctx, "0900", 900))
	require.NoError(t, s.SaveSummary(ctx, &simd.PRSummary{
		SIMDID: "0900", PRNumber: 900, Summary: "quiet so far", MessageCount: 2, GeneratedAt: ts("2026-09-30T00:00:00Z"),
	}))
}

func TestActivitySinceExcludesBots(t *testing.T) {
	s := newTestStore(t)
	seedFeeds(t, s)

	a, err := s.ActivitySince(context.Background(), ts("2026-09-25T00:00:00Z"), []string{"simd-bot[bot]"})
	require.NoError(t, err)
	require.Len(t, a.MergedProposals, 1)
	assert.Equal(t, "0042", a.MergedProposals[0].ID)
	require.Len(t, a.MergedPRs, 1)
	require.Len(t, a.ActiveOpenPRs, 1)
	assert.Equal(t, 900, a.ActiveOpenPRs[0].PRNumber)
	assert.Len(t, a.OpenedPRs, 1)
	require.Len(t, a.Messages, 1)
	assert.Equal(t, "alice", a.Messages[0].Author)
}

func TestOpenPRsAttachSummaries(t *testing.T) {
	s := newTestStore(t)
	seedFeeds(t, s)
	ctx := context.Background()

	items, err := s.OpenPRs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Summary)
	assert.Equal(t, "quiet so far", items[0].Summary.Summary)

	counts, err := s.MessageCounts(ctx, []string{"0042", "0900"})
	require.NoError(t, err)
	assert.Equal(t, 2, counts["0900"])
	assert.Zero(t, counts["0042"])

	msgs, err := s.RecentMessages(ctx, "0900", 10, []string{"simd-bot[bot]"})
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	require.NoError(t, s.Ping(ctx))
}
