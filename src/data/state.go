package data

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

// Sync state scopes.
const (
	ScopePRs         = "github:prs"
	ScopeDiscussions = "github:discussions"
)

// GetSyncState returns the state for scope, or an empty state when none is stored.
func (s *Store) GetSyncState(ctx context.Context, scope string) (simd.SyncState, error) {
	var st simd.SyncState
	err := s.db.WithContext(ctx).Where("scope = ?", scope).Take(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return simd.SyncState{Scope: scope}, nil
	}
	if err != nil {
		return simd.SyncState{}, err
	}
	return st, nil
}

// RecordSyncAttempt stores the outcome of a run. The watermark is only moved
// when a new one is supplied and the run succeeded.
func (s *Store) RecordSyncAttempt(ctx context.Context, scope string, watermark *time.Time, runErr error, stats any) error {
	st, err := s.GetSyncState(ctx, scope)
	if err != nil {
		return err
	}
	now := s.now()
	st.LastAttemptAt = &now
	if runErr != nil {
		msg := runErr.Error()
		st.LastError = &msg
	} else {
		st.LastError = nil
		st.LastSuccessAt = &now
		if watermark != nil {
			st.WatermarkTS = latest(st.WatermarkTS, utc(watermark))
		}
	}
	if stats != nil {
		if raw, err := json.Marshal(stats); err == nil {
			st.StatsJSON = datatypes.JSON(raw)
		}
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}},
		UpdateAll: true,
	}).Create(&st).Error
}
