package syncer

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stake-plus/simd-tracker/src/data"
	"github.com/stake-plus/simd-tracker/src/github"
	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

// fakeSource is an in-memory github.Source.
type fakeSource struct {
	mu sync.Mutex

	// quota returns the remaining budget for the nth Quota call (0-based).
	quota      func(call int) int
	quotaCalls int

	dir        []github.File
	dirErr     error
	docs       map[string]github.Document // keyed by path or path@ref
	docCalls   int
	commitDate map[string]time.Time

	prs          []github.PullRequest
	prFiles      map[int][]github.PRFile
	issue        map[int][]github.Comment
	review       map[int][]github.Comment
	details      map[int]github.PRDetail
	detailErr    error
	filesErr     map[int]error
	prListCalls  int
	discussions  []github.Discussion
	discComments map[int][]github.Comment
	discErr      map[int]error
}

var _ github.Source = (*fakeSource)(nil)

func newFakeSource() *fakeSource {
	return &fakeSource{
		docs:         map[string]github.Document{},
		commitDate:   map[string]time.Time{},
		prFiles:      map[int][]github.PRFile{},
		issue:        map[int][]github.Comment{},
		review:       map[int][]github.Comment{},
		details:      map[int]github.PRDetail{},
		filesErr:     map[int]error{},
		discComments: map[int][]github.Comment{},
		discErr:      map[int]error{},
	}
}

func (f *fakeSource) Quota(context.Context) (github.Quota, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	remaining := 5000
	if f.quota != nil {
		remaining = f.quota(f.quotaCalls)
	}
	f.quotaCalls++
	return github.Quota{Limit: 5000, Remaining: remaining, ResetAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeSource) ListDirectory(context.Context, string) ([]github.File, error) {
	return f.dir, f.dirErr
}

func (f *fakeSource) GetDocument(_ context.Context, path, ref string) (github.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docCalls++
	if ref != "" {
		if d, ok := f.docs[path+"@"+ref]; ok {
			return d, nil
		}
	}
	if d, ok := f.docs[path]; ok {
		return d, nil
	}
	return github.Document{}, fmt.Errorf("get %s: %w", path, github.ErrNotFound)
}

func (f *fakeSource) LastCommitDate(_ context.Context, path string) (time.Time, error) {
	if t, ok := f.commitDate[path]; ok {
		return t, nil
	}
	return time.Time{}, github.ErrNotFound
}

func (f *fakeSource) ListPullRequests(_ context.Context, state string, page, perPage int) ([]github.PullRequest, bool, error) {
	f.mu.Lock()
	f.prListCalls++
	f.mu.Unlock()

	var matched []github.PullRequest
	for _, pr := range f.prs {
		if state == "all" || pr.State == state {
			matched = append(matched, pr)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].UpdatedAt.After(matched[j].UpdatedAt) })
	start := (page - 1) * perPage
	if start >= len(matched) {
		return nil, false, nil
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], end < len(matched), nil
}

func (f *fakeSource) ListPullRequestFiles(_ context.Context, number int) ([]github.PRFile, error) {
	if err := f.filesErr[number]; err != nil {
		return nil, err
	}
	return f.prFiles[number], nil
}

func capComments(in []github.Comment, max int) []github.Comment {
	if max > 0 && len(in) > max {
		return in[:max]
	}
	return in
}

func (f *fakeSource) ListIssueComments(_ context.Context, number, max int) ([]github.Comment, error) {
	return capComments(f.issue[number], max), nil
}

func (f *fakeSource) ListReviewComments(_ context.Context, number, max int) ([]github.Comment, error) {
	return capComments(f.review[number], max), nil
}

func (f *fakeSource) PullRequestDetail(_ context.Context, number int) (github.PRDetail, error) {
	if f.detailErr != nil {
		return github.PRDetail{}, f.detailErr
	}
	return f.details[number], nil
}

func (f *fakeSource) ListDiscussions(_ context.Context, after string, first int) (github.DiscussionPage, error) {
	sorted := append([]github.Discussion(nil), f.discussions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt) })
	start := 0
	if after != "" {
		n, err := strconv.Atoi(after)
		if err != nil {
			return github.DiscussionPage{}, err
		}
		start = n
	}
	if start >= len(sorted) {
		return github.DiscussionPage{}, nil
	}
	end := start + first
	if end > len(sorted) {
		end = len(sorted)
	}
	return github.DiscussionPage{
		Discussions: sorted[start:end],
		EndCursor:   strconv.Itoa(end),
		HasNextPage: end < len(sorted),
	}, nil
}

func (f *fakeSource) ListDiscussionComments(_ context.Context, number, last int) ([]github.Comment, error) {
	if err := f.discErr[number]; err != nil {
		return nil, err
	}
	all := f.discComments[number]
	if last > 0 && len(all) > last {
		return all[len(all)-last:], nil
	}
	return all, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []string
	failed  []string
}

func (n *recordingNotifier) SIMDCreated(_ context.Context, rec simd.SIMD) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, rec.ID)
}

func (n *recordingNotifier) RunFailed(_ context.Context, jobType string, _ error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, jobType)
}

var dbSeq atomic.Int64

var testNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newTestDeps(t *testing.T) (*Deps, *recordingNotifier) {
	t.Helper()
	dsn := fmt.Sprintf("file:syncer_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := data.ConnectSQLite(dsn, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, data.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	n := &recordingNotifier{}
	return &Deps{
		Store:    data.NewStore(db, zap.NewNop()),
		Notifier: n,
		Log:      zap.NewNop(),
		Now:      func() time.Time { return testNow },
	}, n
}

func testSettings() Settings {
	s := DefaultSettings()
	s.PRPageSize = 2
	s.QuotaCheckEvery = 1
	return s
}

func at(days int) time.Time {
	return testNow.AddDate(0, 0, -days)
}

func jobsOfType(t *testing.T, d *Deps, jobType string) []simd.SyncJob {
	t.Helper()
	all, err := d.Store.RecentJobs(context.Background(), 100)
	require.NoError(t, err)
	var out []simd.SyncJob
	for _, j := range all {
		if j.JobType == jobType {
			out = append(out, j)
		}
	}
	return out
}
