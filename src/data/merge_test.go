package data

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

func TestMergeSIMDKeepsKnownValues(t *testing.T) {
	conclusion := "Scheduled for v2.1"
	existing := simd.SIMD{
		ID: "0042", Title: "Old", Status: simd.StatusAccepted, Summary: "keep me", Conclusion: &conclusion,
		SourceStage: simd.StageMain, ProposalSHA: "abc",
		LastActivityAt: tp("2024-05-01T00:00:00Z"),
	}
	incoming := simd.SIMD{
		ID: "0042", Title: "New", SourceStage: simd.StagePR,
		PRProposalPath:   "proposals/XXXX-x.md",
		LastActivityAt:   tp("2024-04-01T00:00:00Z"),
		LastPRActivityAt: tp("2024-04-01T00:00:00Z"),
	}
	got := MergeSIMD(existing, incoming)

	assert.Equal(t, "New", got.Title)
	assert.Equal(t, simd.StatusAccepted, got.Status)
	assert.Equal(t, "keep me", got.Summary)
	assert.Equal(t, &conclusion, got.Conclusion)
	assert.Equal(t, "abc", got.ProposalSHA)
	assert.Equal(t, simd.StageMain, got.SourceStage)
	assert.Equal(t, "proposals/XXXX-x.md", got.PRProposalPath)
	assert.True(t, got.LastActivityAt.Equal(ts("2024-05-01T00:00:00Z")))
	assert.True(t, got.LastPRActivityAt.Equal(ts("2024-04-01T00:00:00Z")))
}

func TestMergeSIMDPromotesStage(t *testing.T) {
	got := MergeSIMD(
		simd.SIMD{SourceStage: simd.StageDiscussion},
		simd.SIMD{SourceStage: simd.StageMain},
	)
	assert.Equal(t, simd.StageMain, got.SourceStage)
}
