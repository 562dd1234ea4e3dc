package data

import (
	"time"

	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

// MergeSIMD combines a stored record with an incoming one. Incoming values win
// when present, known values are never cleared, the stage never moves backwards
// and activity timestamps only advance.
func MergeSIMD(existing, incoming simd.SIMD) simd.SIMD {
	out := existing
	if incoming.Title != "" {
		out.Title = incoming.Title
	}
	if incoming.Status != "" {
		out.Status = incoming.Status
	}
	if incoming.Summary != "" {
		out.Summary = incoming.Summary
	}
	if len(incoming.Topics) > 0 {
		out.Topics = incoming.Topics
	}
	if incoming.Conclusion != nil {
		out.Conclusion = incoming.Conclusion
	}
	if incoming.ProposalContent != "" {
		out.ProposalContent = incoming.ProposalContent
	}
	if incoming.ProposalSHA != "" {
		out.ProposalSHA = incoming.ProposalSHA
	}
	if incoming.SourceStage.Rank() > out.SourceStage.Rank() {
		out.SourceStage = incoming.SourceStage
	}
	if incoming.MainProposalPath != "" {
		out.MainProposalPath = incoming.MainProposalPath
	}
	if incoming.PRProposalPath != "" {
		out.PRProposalPath = incoming.PRProposalPath
	}
	if incoming.ProposalUpdatedAt != nil {
		out.ProposalUpdatedAt = incoming.ProposalUpdatedAt
	}
	out.LastActivityAt = latest(existing.LastActivityAt, incoming.LastActivityAt)
	out.LastPRActivityAt = latest(existing.LastPRActivityAt, incoming.LastPRActivityAt)
	return out
}

func latest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	default:
		return a
	}
}
