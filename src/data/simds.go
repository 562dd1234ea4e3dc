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

// GetSIMD loads one SIMD by id.
func (s *Store) GetSIMD(ctx context.Context, id string) (*simd.SIMD, error) {
	var rec simd.SIMD
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

// UpsertSIMD inserts incoming or merges it into the stored row under a row lock.
// It reports whether a new row was created along with the stored result.
func (s *Store) UpsertSIMD(ctx context.Context, incoming simd.SIMD) (bool, simd.SIMD, error) {
	if incoming.ID == "" {
		return false, simd.SIMD{}, fmt.Errorf("upsert simd: empty id")
	}
	incoming.LastActivityAt = utc(incoming.LastActivityAt)
	incoming.LastPRActivityAt = utc(incoming.LastPRActivityAt)
	incoming.ProposalUpdatedAt = utc(incoming.ProposalUpdatedAt)

	var (
		created bool
		result  simd.SIMD
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing simd.SIMD
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&existing, "id = ?", incoming.ID).Error
		if err == nil {
			result = MergeSIMD(existing, incoming)
			return tx.Save(&result).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		fresh := incoming
		if fresh.Status == "" {
			fresh.Status = simd.StatusDraft
		}
		if fresh.SourceStage == "" {
			fresh.SourceStage = simd.StagePR
		}
		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh)
		if ins.Error != nil {
			return ins.Error
		}
		if ins.RowsAffected == 1 {
			created = true
			result = fresh
			return nil
		}

		// Lost an insert race; merge into the winner.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&existing, "id = ?", incoming.ID).Error; err != nil {
			return err
		}
		result = MergeSIMD(existing, incoming)
		return tx.Save(&result).Error
	})
	if err != nil {
		return false, simd.SIMD{}, fmt.Errorf("upsert simd %s: %w", incoming.ID, err)
	}
	return created, result, nil
}

// AdvanceActivity moves last_activity_at forward to ts. Older timestamps are ignored.
func (s *Store) AdvanceActivity(ctx context.Context, id string, ts time.Time) error {
	return advance(s.db.WithContext(ctx), "last_activity_at", id, ts.UTC())
}

// AdvancePRActivity moves last_pr_activity_at and last_activity_at forward to ts.
func (s *Store) AdvancePRActivity(ctx context.Context, id string, ts time.Time) error {
	ts = ts.UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := advance(tx, "last_pr_activity_at", id, ts); err != nil {
			return err
		}
		return advance(tx, "last_activity_at", id, ts)
	})
}

func advance(db *gorm.DB, column, id string, ts time.Time) error {
	return db.Model(&simd.SIMD{}).
		Where("id = ? AND ("+column+" IS NULL OR "+column+" < ?)", id, ts).
		UpdateColumn(column, ts).Error
}

// SIMDFilter narrows ListSIMDs.
type SIMDFilter struct {
	Status simd.Status
	Stage  simd.Stage
	Limit  int
	Offset int
}

// ListSIMDs returns SIMDs ordered by most recent activity.
func (s *Store) ListSIMDs(ctx context.Context, f SIMDFilter) ([]simd.SIMD, error) {
	q := s.db.WithContext(ctx).Model(&simd.SIMD{}).
		Omit("proposal_content")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Stage != "" {
		q = q.Where("source_stage = ?", f.Stage)
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	var out []simd.SIMD
	err := q.Order("last_activity_at IS NULL, last_activity_at DESC").Order("id").
		Limit(f.Limit).Offset(f.Offset).Find(&out).Error
	return out, err
}

// SIMDTitles maps the given ids to their stored titles. Unknown ids are absent.
func (s *Store) SIMDTitles(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ID    string
		Title string
	}
	if err := s.db.WithContext(ctx).Model(&simd.SIMD{}).Select("id, title").
		Where("id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r.Title
	}
	return out, nil
}
