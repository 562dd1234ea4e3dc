package github

import (
	"context"
	"time"
)

// QuotaSource reports the remaining request budget.
type QuotaSource interface {
	Quota(ctx context.Context) (Quota, error)
}

// ProposalSource reads merged proposal documents.
type ProposalSource interface {
	QuotaSource
	ListDirectory(ctx context.Context, dir string) ([]File, error)
	GetDocument(ctx context.Context, path, ref string) (Document, error)
	LastCommitDate(ctx context.Context, path string) (time.Time, error)
}

// PullRequestSource reads pull requests and their conversation.
type PullRequestSource interface {
	QuotaSource
	// ListPullRequests pages through PRs in state ("all", "open"), most recently updated first.
	ListPullRequests(ctx context.Context, state string, page, perPage int) (prs []PullRequest, hasNext bool, err error)
	ListPullRequestFiles(ctx context.Context, number int) ([]PRFile, error)
	ListIssueComments(ctx context.Context, number, max int) ([]Comment, error)
	ListReviewComments(ctx context.Context, number, max int) ([]Comment, error)
	PullRequestDetail(ctx context.Context, number int) (PRDetail, error)
	GetDocument(ctx context.Context, path, ref string) (Document, error)
}

// DiscussionSource reads repository discussions.
type DiscussionSource interface {
	QuotaSource
	ListDiscussions(ctx context.Context, after string, first int) (DiscussionPage, error)
	ListDiscussionComments(ctx context.Context, number, last int) ([]Comment, error)
}

// Source is everything the sync engines read from upstream.
type Source interface {
	ProposalSource
	PullRequestSource
	DiscussionSource
}
