package config

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stake-plus/simd-tracker/src/data"
	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

var dbSeq atomic.Int64

func TestLoadDefaults(t *testing.T) {
	data.ResetSettings()
	v, err := NewViper("")
	require.NoError(t, err)

	cfg := Load(v, nil)
	assert.Equal(t, "proposals", cfg.GitHub.ProposalsDir)
	assert.Equal(t, ".md", cfg.GitHub.DocExtension)
	assert.Equal(t, 50, cfg.Sync.QuotaThreshold)
	assert.Equal(t, 30, cfg.Sync.QuotaCheckEvery)
	assert.Equal(t, 90*24*time.Hour, cfg.Sync.PRLookback)
	assert.Equal(t, []string{"simd-discussions", "ideas"}, cfg.Sync.DiscussionCategories)
	assert.Equal(t, 10, cfg.Sync.DiscussionCommentCap)
	assert.Equal(t, 6*time.Hour, cfg.Summaries.RefreshInterval)
	assert.Equal(t, 5*time.Minute, cfg.Sync.RunTimeout)
	assert.Equal(t, []string{"simd-bot[bot]"}, cfg.BotAuthors)
	assert.Equal(t, "gpt-5-mini", cfg.AI.Model)
}

func TestEnvOverridesDefaults(t *testing.T) {
	data.ResetSettings()
	t.Setenv("SIMD_SYNC_QUOTA_THRESHOLD", "120")
	t.Setenv("SIMD_GITHUB_TOKEN", "ghp_env")
	t.Setenv("SIMD_SYNC_INCLUDE_ALL_OPEN", "true")

	v, err := NewViper("")
	require.NoError(t, err)
	cfg := Load(v, nil)
	assert.Equal(t, 120, cfg.Sync.QuotaThreshold)
	assert.Equal(t, "ghp_env", cfg.GitHub.Token)
	assert.True(t, cfg.Sync.IncludeAllOpen)
}

func TestSettingsTableWins(t *testing.T) {
	dsn := fmt.Sprintf("file:config_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := data.ConnectSQLite(dsn, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, data.Migrate(db))
	t.Cleanup(data.ResetSettings)

	require.NoError(t, db.Create(&[]simd.Setting{
		{ID: 1, Name: "sync_quota_threshold", Value: "75", Active: 1},
		{ID: 2, Name: "bot_authors", Value: "a[bot], b[bot]", Active: 1},
		{ID: 3, Name: "github_token", Value: "ignored", Active: 0},
	}).Error)

	t.Setenv("SIMD_SYNC_QUOTA_THRESHOLD", "120")
	v, err := NewViper("")
	require.NoError(t, err)

	cfg := Load(v, db)
	assert.Equal(t, 75, cfg.Sync.QuotaThreshold)
	assert.Equal(t, []string{"a[bot]", "b[bot]"}, cfg.BotAuthors)
	assert.Empty(t, cfg.GitHub.Token)
}

func TestParseBoolDefault(t *testing.T) {
	assert.True(t, parseBoolDefault("YES", false))
	assert.False(t, parseBoolDefault("off", true))
	assert.True(t, parseBoolDefault("maybe", true))
}
