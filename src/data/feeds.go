package data

import (
	"context"
	"fmt"
	"time"

	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

// PRFeedItem is a PR with its current summary, when one exists.
type PRFeedItem struct {
	simd.PullRequest
	Summary *simd.PRSummary `json:"summary,omitempty"`
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}

// MergedPRs returns recently merged PRs.
func (s *Store) MergedPRs(ctx context.Context, limit int) ([]simd.PullRequest, error) {
	var out []simd.PullRequest
	err := s.db.WithContext(ctx).Where("state = ?", simd.PRStateMerged).
		Order("merged_at DESC").Limit(clampLimit(limit)).Find(&out).Error
	return out, err
}

// OpenPRs returns open PRs, most recently discussed first, with summaries attached.
func (s *Store) OpenPRs(ctx context.Context, limit int) ([]PRFeedItem, error) {
	var prs []simd.PullRequest
	err := s.db.WithContext(ctx).Where("state = ?", simd.PRStateOpen).
		Order("last_message_at IS NULL, last_message_at DESC").
		Order("github_updated_at DESC").
		Limit(clampLimit(limit)).Find(&prs).Error
	if err != nil {
		return nil, err
	}
	return s.attachSummaries(ctx, prs)
}

func (s *Store) attachSummaries(ctx context.Context, prs []simd.PullRequest) ([]PRFeedItem, error) {
	items := make([]PRFeedItem, len(prs))
	if len(prs) == 0 {
		return items, nil
	}
	ids := make([]string, 0, len(prs))
	seen := map[string]bool{}
	for i, pr := range prs {
		items[i].PullRequest = pr
		if !seen[pr.SIMDID] {
			seen[pr.SIMDID] = true
			ids = append(ids, pr.SIMDID)
		}
	}
	var sums []simd.PRSummary
	if err := s.db.WithContext(ctx).Where("simd_id IN ?", ids).Find(&sums).Error; err != nil {
		return nil, err
	}
	byKey := make(map[string]*simd.PRSummary, len(sums))
	for i := range sums {
		byKey[summaryKey(sums[i].SIMDID, sums[i].PRNumber)] = &sums[i]
	}
	for i := range items {
		items[i].Summary = byKey[summaryKey(items[i].SIMDID, items[i].PRNumber)]
	}
	return items, nil
}

func summaryKey(simdID string, number int) string {
	return fmt.Sprintf("%s#%d", simdID, number)
}

// RecentDiscussions returns the most recently updated discussions.
func (s *Store) RecentDiscussions(ctx context.Context, limit int) ([]simd.Discussion, error) {
	var out []simd.Discussion
	err := s.db.WithContext(ctx).Order("github_updated_at DESC").
		Limit(clampLimit(limit)).Find(&out).Error
	return out, err
}

// Activity is everything that changed in a time window.
type Activity struct {
	NewSIMDs        []simd.SIMD
	MergedProposals []simd.SIMD
	MergedPRs       []simd.PullRequest
	OpenedPRs       []simd.PullRequest
	ActiveOpenPRs   []simd.PullRequest
	Messages        []simd.Message
	Discussions     []simd.Discussion
}

// ActivitySince gathers activity newer than since. Messages written by any of
// excludeAuthors are left out.
func (s *Store) ActivitySince(ctx context.Context, since time.Time, excludeAuthors []string) (Activity, error) {
	since = since.UTC()
	db := s.db.WithContext(ctx)
	var a Activity
	if err := db.Omit("proposal_content").Where("created_at > ?", since).
		Order("id").Find(&a.NewSIMDs).Error; err != nil {
		return a, fmt.Errorf("new simds: %w", err)
	}
	if err := db.Omit("proposal_content").
		Where("source_stage = ? AND proposal_updated_at >= ?", simd.StageMain, since).
		Order("proposal_updated_at DESC").Find(&a.MergedProposals).Error; err != nil {
		return a, fmt.Errorf("merged proposals: %w", err)
	}
	if err := db.Where("state = ? AND merged_at > ?", simd.PRStateMerged, since).
		Order("merged_at DESC").Find(&a.MergedPRs).Error; err != nil {
		return a, fmt.Errorf("merged prs: %w", err)
	}
	if err := db.Where("github_created_at > ?", since).
		Order("github_created_at DESC").Find(&a.OpenedPRs).Error; err != nil {
		return a, fmt.Errorf("opened prs: %w", err)
	}
	if err := db.Where("state = ? AND last_commit_at >= ?", simd.PRStateOpen, since).
		Order("last_commit_at DESC").Find(&a.ActiveOpenPRs).Error; err != nil {
		return a, fmt.Errorf("active open prs: %w", err)
	}
	mq := db.Where("created_at > ?", since)
	if len(excludeAuthors) > 0 {
		mq = mq.Where("author NOT IN ?", excludeAuthors)
	}
	if err := mq.Order("created_at ASC").Find(&a.Messages).Error; err != nil {
		return a, fmt.Errorf("messages: %w", err)
	}
	if err := db.Where("github_updated_at > ?", since).
		Order("github_updated_at DESC").Find(&a.Discussions).Error; err != nil {
		return a, fmt.Errorf("discussions: %w", err)
	}
	return a, nil
}

// SummariesForSIMD returns the stored PR summaries of a SIMD.
func (s *Store) SummariesForSIMD(ctx context.Context, simdID string) ([]simd.PRSummary, error) {
	var out []simd.PRSummary
	err := s.db.WithContext(ctx).Where("simd_id = ?", simdID).Order("pr_number DESC").Find(&out).Error
	return out, err
}

// RecentMessages returns a SIMD's newest PR messages, leaving out excludeAuthors.
func (s *Store) RecentMessages(ctx context.Context, simdID string, limit int, excludeAuthors []string) ([]simd.Message, error) {
	q := s.db.WithContext(ctx).Where("simd_id = ?", simdID)
	if len(excludeAuthors) > 0 {
		q = q.Where("author NOT IN ?", excludeAuthors)
	}
	var out []simd.Message
	err := q.Order("created_at DESC").Limit(clampLimit(limit)).Find(&out).Error
	return out, err
}

// MessageCounts returns the stored PR message count per SIMD id.
func (s *Store) MessageCounts(ctx context.Context, ids []string) (map[string]int, error) {
	out := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		SIMDID string `gorm:"column:simd_id"`
		Total  int
	}
	err := s.db.WithContext(ctx).Model(&simd.PullRequest{}).
		Select("simd_id, SUM(total_message_count) AS total").
		Where("simd_id IN ?", ids).Group("simd_id").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.SIMDID] = r.Total
	}
	return out, nil
}
