package syncer

import (
	"time"

	"github.com/stake-plus/simd-tracker/src/config"
)

// Settings tunes the engines.
type Settings struct {
	ProposalsDir         string
	DocExtension         string
	QuotaThreshold       int
	QuotaCheckEvery      int
	PRLookback           time.Duration
	IncludeAllOpen       bool
	PRPageSize           int
	PRMessageCap         int
	DiscussionCategories []string
	DiscussionPageSize   int
	DiscussionCommentCap int
	RunTimeout           time.Duration
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		ProposalsDir:         "proposals",
		DocExtension:         ".md",
		QuotaThreshold:       50,
		QuotaCheckEvery:      30,
		PRLookback:           90 * 24 * time.Hour,
		PRPageSize:           30,
		PRMessageCap:         500,
		DiscussionCategories: []string{"simd-discussions", "ideas"},
		DiscussionPageSize:   50,
		DiscussionCommentCap: 10,
		RunTimeout:           5 * time.Minute,
	}
}

// SettingsFromConfig builds engine settings from the resolved configuration,
// keeping defaults for unset values.
func SettingsFromConfig(cfg config.Config) Settings {
	s := DefaultSettings()
	setString(&s.ProposalsDir, cfg.GitHub.ProposalsDir)
	setString(&s.DocExtension, cfg.GitHub.DocExtension)
	setInt(&s.QuotaThreshold, cfg.Sync.QuotaThreshold)
	setInt(&s.QuotaCheckEvery, cfg.Sync.QuotaCheckEvery)
	setInt(&s.PRMessageCap, cfg.Sync.PRMessageCap)
	setInt(&s.DiscussionPageSize, cfg.Sync.DiscussionPageSize)
	setInt(&s.DiscussionCommentCap, cfg.Sync.DiscussionCommentCap)
	if cfg.Sync.PRLookback > 0 {
		s.PRLookback = cfg.Sync.PRLookback
	}
	if cfg.Sync.RunTimeout > 0 {
		s.RunTimeout = cfg.Sync.RunTimeout
	}
	if len(cfg.Sync.DiscussionCategories) > 0 {
		s.DiscussionCategories = cfg.Sync.DiscussionCategories
	}
	s.IncludeAllOpen = cfg.Sync.IncludeAllOpen
	return s
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
