package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

// SummarySnapshot pairs an open PR's live aggregates with the snapshot its
// stored summary (if any) was generated from.
type SummarySnapshot struct {
	SIMDID               string `gorm:"column:simd_id"`
	PRNumber             int
	Title                string
	TotalMessageCount    int
	LastMessageAt        *time.Time
	SummaryID            *uint64
	SummaryMessageCount  *int
	SummaryLastMessageAt *time.Time
	SummaryGeneratedAt   *time.Time
}

// HasSummary reports whether a summary row exists for the PR.
func (s SummarySnapshot) HasSummary() bool { return s.SummaryID != nil }

// SummarySnapshots lists every open PR with at least one message together
// with its summary snapshot.
func (s *Store) SummarySnapshots(ctx context.Context) ([]SummarySnapshot, error) {
	var rows []SummarySnapshot
	err := s.db.WithContext(ctx).
		Table("simd_prs AS pr").
		Select(`pr.simd_id AS simd_id, pr.pr_number AS pr_number, pr.title AS title,
			pr.total_message_count AS total_message_count, pr.last_message_at AS last_message_at,
			s.id AS summary_id, s.message_count AS summary_message_count,
			s.last_message_at AS summary_last_message_at, s.generated_at AS summary_generated_at`).
		Joins("LEFT JOIN simd_pr_summaries s ON s.simd_id = pr.simd_id AND s.pr_number = pr.pr_number").
		Where("pr.state = ? AND pr.total_message_count > 0", simd.PRStateOpen).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("summary snapshots: %w", err)
	}
	return rows, nil
}

// GetSummary returns the stored summary for a PR, or nil when none exists.
func (s *Store) GetSummary(ctx context.Context, simdID string, number int) (*simd.PRSummary, error) {
	var sum simd.PRSummary
	err := s.db.WithContext(ctx).
		Where("simd_id = ? AND pr_number = ?", simdID, number).
		Take(&sum).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// MessagesSince returns a PR's messages created strictly after since, oldest
// first. A nil since returns every message.
func (s *Store) MessagesSince(ctx context.Context, simdID string, number int, since *time.Time) ([]simd.Message, error) {
	q := s.db.WithContext(ctx).Where("simd_id = ? AND pr_number = ?", simdID, number)
	if since != nil {
		q = q.Where("created_at > ?", since.UTC())
	}
	var out []simd.Message
	err := q.Order("created_at ASC").Order("id ASC").Find(&out).Error
	return out, err
}

// SaveSummary upserts a PR summary keyed on (simd_id, pr_number).
func (s *Store) SaveSummary(ctx context.Context, sum *simd.PRSummary) error {
	sum.GeneratedAt = sum.GeneratedAt.UTC()
	sum.LastMessageAt = utc(sum.LastMessageAt)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "simd_id"}, {Name: "pr_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"summary", "message_count", "last_message_at", "generated_at", "model",
		}),
	}).Create(sum).Error
}
