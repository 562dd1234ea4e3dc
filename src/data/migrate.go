package data

import (
	"gorm.io/gorm"

	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

// Migrate creates or updates every table the tracker owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&simd.Setting{},
		&simd.SIMD{},
		&simd.PullRequest{},
		&simd.Message{},
		&simd.Discussion{},
		&simd.DiscussionComment{},
		&simd.PRSummary{},
		&simd.SyncJob{},
		&simd.SyncState{},
	)
}
