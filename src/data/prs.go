package data

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

// Columns refreshed on every PR upsert. Message aggregates are owned by
// RecomputePRAggregates and are left alone here.
var prUpdateColumns = []string{
	"title", "state", "author", "html_url", "head_sha", "head_ref", "base_ref",
	"last_commit_sha", "last_commit_at", "proposal_path", "review_count", "reviewers",
	"issue_comment_count", "review_comment_count", "github_created_at",
	"github_updated_at", "merged_at", "closed_at", "updated_at",
}

// UpsertPullRequest writes pr keyed on (simd_id, pr_number).
func (s *Store) UpsertPullRequest(ctx context.Context, pr *simd.PullRequest) error {
	pr.GitHubCreatedAt = pr.GitHubCreatedAt.UTC()
	pr.GitHubUpdatedAt = pr.GitHubUpdatedAt.UTC()
	pr.MergedAt = utc(pr.MergedAt)
	pr.ClosedAt = utc(pr.ClosedAt)
	pr.LastCommitAt = utc(pr.LastCommitAt)

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "simd_id"}, {Name: "pr_number"}},
		DoUpdates: clause.AssignmentColumns(prUpdateColumns),
	}).Create(pr).Error
	if err != nil {
		return fmt.Errorf("upsert pr %s#%d: %w", pr.SIMDID, pr.PRNumber, err)
	}
	return nil
}

// GetPullRequest loads one PR row.
func (s *Store) GetPullRequest(ctx context.Context, simdID string, number int) (*simd.PullRequest, error) {
	var pr simd.PullRequest
	err := s.db.WithContext(ctx).
		Where("simd_id = ? AND pr_number = ?", simdID, number).
		First(&pr).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &pr, nil
}

// UpsertMessages stores messages keyed on their external id. Existing rows
// only have their body refreshed.
func (s *Store) UpsertMessages(ctx context.Context, msgs []simd.Message) (int, error) {
	written := 0
	for i := range msgs {
		m := msgs[i]
		m.CreatedAt = m.CreatedAt.UTC()
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "simd_id"}, {Name: "pr_number"}, {Name: "type"}, {Name: "external_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"body"}),
		}).Create(&m).Error
		if err != nil {
			return written, fmt.Errorf("upsert message %d: %w", m.ExternalID, err)
		}
		written++
	}
	return written, nil
}

// RecomputePRAggregates refreshes total_message_count, last_message_at and
// participant_count from the stored messages.
func (s *Store) RecomputePRAggregates(ctx context.Context, simdID string, number int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope := func() *gorm.DB {
			return tx.Model(&simd.Message{}).Where("simd_id = ? AND pr_number = ?", simdID, number)
		}

		var total int64
		if err := scope().Count(&total).Error; err != nil {
			return err
		}
		var participants int64
		if err := scope().Distinct("author").Count(&participants).Error; err != nil {
			return err
		}

		updates := map[string]any{
			"total_message_count": total,
			"participant_count":   participants,
			"last_message_at":     nil,
		}
		var newest simd.Message
		err := scope().Order("created_at DESC").Limit(1).Take(&newest).Error
		switch {
		case err == nil:
			updates["last_message_at"] = newest.CreatedAt.UTC()
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		return tx.Model(&simd.PullRequest{}).
			Where("simd_id = ? AND pr_number = ?", simdID, number).
			UpdateColumns(updates).Error
	})
}

// PRsForSIMD returns every PR attached to a SIMD, newest first.
func (s *Store) PRsForSIMD(ctx context.Context, simdID string) ([]simd.PullRequest, error) {
	var out []simd.PullRequest
	err := s.db.WithContext(ctx).Where("simd_id = ?", simdID).
		Order("github_updated_at DESC").Find(&out).Error
	return out, err
}
