package github

import "time"

// Quota is the remaining hourly request budget.
type Quota struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// File is a directory entry in the repository.
type File struct {
	Name string
	Path string
	SHA  string
	Type string
}

// Document is a file's decoded content at a ref.
type Document struct {
	Path    string
	SHA     string
	Content string
}

// PullRequest is the subset of PR metadata the tracker stores.
type PullRequest struct {
	Number         int
	Title          string
	State          string
	Author         string
	HTMLURL        string
	HeadSHA        string
	HeadRef        string
	BaseRef        string
	Comments       int
	ReviewComments int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	MergedAt       *time.Time
	ClosedAt       *time.Time
}

// PRFile is one file touched by a pull request.
type PRFile struct {
	Filename string
	Status   string
	SHA      string
}

// Comment is a PR issue comment, review comment or discussion comment.
type Comment struct {
	ID        int64
	NodeID    string
	Author    string
	Body      string
	URL       string
	CreatedAt time.Time
}

// PRDetail holds PR aggregates that are only cheaply available over GraphQL.
type PRDetail struct {
	LastCommitSHA string
	LastCommitAt  *time.Time
	ReviewCount   int
	Reviewers     []string
}

// Discussion is a repository discussion.
type Discussion struct {
	NodeID       string
	Number       int
	Title        string
	Body         string
	Author       string
	Category     string
	URL          string
	CommentCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DiscussionPage is one page of discussions ordered by last update, newest first.
type DiscussionPage struct {
	Discussions []Discussion
	EndCursor   string
	HasNextPage bool
}
