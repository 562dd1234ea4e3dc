package data

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

var discussionUpdateColumns = []string{
	"number", "simd_id", "title", "body", "author", "category", "url",
	"comment_count", "github_created_at", "github_updated_at", "updated_at",
}

// UpsertDiscussion writes d keyed on its GitHub node id and returns the row id.
func (s *Store) UpsertDiscussion(ctx context.Context, d *simd.Discussion) (uint64, error) {
	d.GitHubCreatedAt = d.GitHubCreatedAt.UTC()
	d.GitHubUpdatedAt = d.GitHubUpdatedAt.UTC()

	db := s.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "github_discussion_id"}},
		DoUpdates: clause.AssignmentColumns(discussionUpdateColumns),
	}).Create(d).Error
	if err != nil {
		return 0, fmt.Errorf("upsert discussion %s: %w", d.GitHubDiscussionID, err)
	}

	var stored simd.Discussion
	if err := db.Select("id").Where("github_discussion_id = ?", d.GitHubDiscussionID).
		First(&stored).Error; err != nil {
		return 0, notFound(err)
	}
	return stored.ID, nil
}

// UpsertDiscussionComments stores comments keyed on their GitHub node id.
// Re-synced comments only have their body refreshed.
func (s *Store) UpsertDiscussionComments(ctx context.Context, comments []simd.DiscussionComment) (int, error) {
	written := 0
	for i := range comments {
		c := comments[i]
		c.CreatedAt = c.CreatedAt.UTC()
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "github_comment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"body"}),
		}).Create(&c).Error
		if err != nil {
			return written, fmt.Errorf("upsert discussion comment %s: %w", c.GitHubCommentID, err)
		}
		written++
	}
	return written, nil
}

// DiscussionsForSIMD returns discussions linked to a SIMD, newest first.
func (s *Store) DiscussionsForSIMD(ctx context.Context, simdID string) ([]simd.Discussion, error) {
	var out []simd.Discussion
	err := s.db.WithContext(ctx).Where("simd_id = ?", simdID).
		Order("github_updated_at DESC").Find(&out).Error
	return out, err
}
