package data

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

// StartJob records a running job and returns it.
func (s *Store) StartJob(ctx context.Context, jobType string) (*simd.SyncJob, error) {
	job := &simd.SyncJob{
		ID:        uuid.NewString(),
		JobType:   jobType,
		Status:    simd.JobRunning,
		StartedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, fmt.Errorf("start %s job: %w", jobType, err)
	}
	return job, nil
}

// FinishJob closes a job. A nil runErr marks it completed, otherwise failed.
func (s *Store) FinishJob(ctx context.Context, job *simd.SyncJob, processed int, stoppedEarly bool, runErr error) error {
	now := s.now()
	job.CompletedAt = &now
	job.RecordsProcessed = processed
	job.StoppedEarly = stoppedEarly
	job.Status = simd.JobCompleted
	if runErr != nil {
		msg := runErr.Error()
		job.Status = simd.JobFailed
		job.ErrorMessage = &msg
	}
	return s.db.WithContext(ctx).Model(&simd.SyncJob{}).Where("id = ?", job.ID).
		UpdateColumns(map[string]any{
			"status":            job.Status,
			"completed_at":      job.CompletedAt,
			"records_processed": job.RecordsProcessed,
			"stopped_early":     job.StoppedEarly,
			"error_message":     job.ErrorMessage,
		}).Error
}

// RecentJobs returns the latest jobs, newest first.
func (s *Store) RecentJobs(ctx context.Context, limit int) ([]simd.SyncJob, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []simd.SyncJob
	err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&out).Error
	return out, err
}
