package data

import (
	"fmt"
	"sync/atomic"

	"gorm.io/gorm"

	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

// overrides holds the active rows of the settings table, keyed by name.
// Operators use it to retune sync thresholds or rotate tokens without
// touching the environment; config.Load consults it before viper.
var overrides atomic.Pointer[map[string]string]

// LoadSettings replaces the override snapshot with the active settings rows.
// The previous snapshot stays in place when the query fails.
func LoadSettings(db *gorm.DB) error {
	var rows []simd.Setting
	if err := db.Where("active = ?", 1).Find(&rows).Error; err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	snap := make(map[string]string, len(rows))
	for _, r := range rows {
		snap[r.Name] = r.Value
	}
	overrides.Store(&snap)
	return nil
}

// GetSetting returns the override for name, or "" when none is loaded.
func GetSetting(name string) string {
	snap := overrides.Load()
	if snap == nil {
		return ""
	}
	return (*snap)[name]
}

// ResetSettings forgets every override.
func ResetSettings() {
	overrides.Store(nil)
}
