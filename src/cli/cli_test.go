package cli

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func useSQLite(t *testing.T) {
	t.Helper()
	t.Setenv("SIMD_DATABASE_DRIVER", "sqlite")
	t.Setenv("SIMD_DATABASE_DSN", filepath.Join(t.TempDir(), "tracker.db"))
	t.Setenv("SIMD_LOG_LEVEL", "error")
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2026-09-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDate("2026-09-01T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC), d)

	_, err = parseDate("last week")
	assert.Error(t, err)
}

func TestSyncRejectsBadSinceBeforeConnecting(t *testing.T) {
	t.Cleanup(func() { syncSince = "" })
	_, err := execute(t, "sync", "prs", "--since", "soon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date")
}

func TestMissingDSNFails(t *testing.T) {
	t.Setenv("SIMD_DATABASE_DSN", "")
	_, err := execute(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.dsn")
}

func TestMigrateThenDigest(t *testing.T) {
	useSQLite(t)

	_, err := execute(t, "migrate")
	require.NoError(t, err)

	out, err := execute(t, "digest", "--days", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "# SIMD Digest")
	assert.Contains(t, out, "- **Total Activity Items:** 0")
	assert.Contains(t, out, "https://github.com/solana-foundation/solana-improvement-documents")
}

func TestDigestRejectsNonPositiveDays(t *testing.T) {
	t.Cleanup(func() { digestDays = 7 })
	_, err := execute(t, "digest", "--days", "0")
	assert.Error(t, err)
}
