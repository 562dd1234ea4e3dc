package simd

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Status is the lifecycle status of a SIMD proposal.
type Status string

const (
	StatusIdea        Status = "Idea"
	StatusDraft       Status = "Draft"
	StatusReview      Status = "Review"
	StatusAccepted    Status = "Accepted"
	StatusImplemented Status = "Implemented"
	StatusActivated   Status = "Activated"
	StatusLiving      Status = "Living"
	StatusStagnant    Status = "Stagnant"
	StatusWithdrawn   Status = "Withdrawn"
)

var statuses = []Status{
	StatusIdea, StatusDraft, StatusReview, StatusAccepted, StatusImplemented,
	StatusActivated, StatusLiving, StatusStagnant, StatusWithdrawn,
}

// ParseStatus maps a free-form status onto the known set, case-insensitively.
func ParseStatus(raw string) (Status, bool) {
	for _, s := range statuses {
		if strings.EqualFold(string(s), strings.TrimSpace(raw)) {
			return s, true
		}
	}
	return "", false
}

// Stage records where a SIMD's canonical content was last taken from.
type Stage string

const (
	StageDiscussion Stage = "discussion"
	StagePR         Stage = "pr"
	StageMain       Stage = "main"
)

// Rank orders stages so that main always wins over pr, and pr over discussion.
func (s Stage) Rank() int {
	switch s {
	case StageMain:
		return 3
	case StagePR:
		return 2
	case StageDiscussion:
		return 1
	}
	return 0
}

// PR states mirrored from GitHub plus the derived merged state.
const (
	PRStateOpen   = "open"
	PRStateClosed = "closed"
	PRStateMerged = "merged"
)

// Message kinds.
const (
	MessageComment = "comment"
	MessageReview  = "review"
	MessageCommit  = "commit"
)

// SIMD is the canonical record for a proposal, keyed by its zero-padded number.
type SIMD struct {
	ID                string         `gorm:"primaryKey;size:8" json:"id"`
	Title             string         `gorm:"size:512;not null" json:"title"`
	Status            Status         `gorm:"size:32;not null;index" json:"status"`
	Summary           string         `gorm:"type:text" json:"summary"`
	Topics            datatypes.JSON `json:"topics"`
	Conclusion        *string        `gorm:"type:text" json:"conclusion"`
	ProposalContent   string         `gorm:"type:longtext" json:"proposal_content,omitempty"`
	ProposalSHA       string         `gorm:"size:64" json:"proposal_sha"`
	SourceStage       Stage          `gorm:"size:16;not null" json:"source_stage"`
	MainProposalPath  string         `gorm:"size:512" json:"main_proposal_path"`
	PRProposalPath    string         `gorm:"size:512" json:"pr_proposal_path"`
	ProposalUpdatedAt *time.Time     `json:"proposal_updated_at"`
	LastActivityAt    *time.Time     `gorm:"index" json:"last_activity_at"`
	LastPRActivityAt  *time.Time     `json:"last_pr_activity_at"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (SIMD) TableName() string { return "simds" }

// PullRequest is one GitHub pull request resolved to a SIMD.
type PullRequest struct {
	ID                 uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	SIMDID             string         `gorm:"column:simd_id;size:8;not null;uniqueIndex:idx_simd_pr" json:"simd_id"`
	PRNumber           int            `gorm:"not null;uniqueIndex:idx_simd_pr" json:"pr_number"`
	Title              string         `gorm:"size:512" json:"title"`
	State              string         `gorm:"size:16;not null;index" json:"state"`
	Author             string         `gorm:"size:128" json:"author"`
	HTMLURL            string         `gorm:"column:html_url;size:512" json:"html_url"`
	HeadSHA            string         `gorm:"size:64" json:"head_sha"`
	HeadRef            string         `gorm:"size:256" json:"head_ref"`
	BaseRef            string         `gorm:"size:256" json:"base_ref"`
	LastCommitSHA      string         `gorm:"size:64" json:"last_commit_sha"`
	LastCommitAt       *time.Time     `json:"last_commit_at"`
	ProposalPath       string         `gorm:"size:512" json:"proposal_path"`
	ReviewCount        int            `json:"review_count"`
	Reviewers          datatypes.JSON `json:"reviewers"`
	IssueCommentCount  int            `json:"issue_comment_count"`
	ReviewCommentCount int            `json:"review_comment_count"`
	ParticipantCount   int            `json:"participant_count"`
	TotalMessageCount  int            `json:"total_message_count"`
	LastMessageAt      *time.Time     `json:"last_message_at"`
	GitHubCreatedAt    time.Time      `gorm:"column:github_created_at" json:"github_created_at"`
	GitHubUpdatedAt    time.Time      `gorm:"column:github_updated_at;index" json:"github_updated_at"`
	MergedAt           *time.Time     `json:"merged_at"`
	ClosedAt           *time.Time     `json:"closed_at"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (PullRequest) TableName() string { return "simd_prs" }

// Message is a comment or review comment attached to a pull request.
type Message struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SIMDID     string    `gorm:"column:simd_id;size:8;not null;uniqueIndex:idx_simd_pr_msg" json:"simd_id"`
	PRNumber   int       `gorm:"not null;uniqueIndex:idx_simd_pr_msg" json:"pr_number"`
	Type       string    `gorm:"size:16;not null;uniqueIndex:idx_simd_pr_msg" json:"type"`
	ExternalID int64     `gorm:"not null;uniqueIndex:idx_simd_pr_msg" json:"external_id"`
	Author     string    `gorm:"size:128" json:"author"`
	Body       string    `gorm:"type:text" json:"body"`
	URL        string    `gorm:"size:512" json:"url"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (Message) TableName() string { return "simd_messages" }

// Discussion mirrors a GitHub discussion, optionally linked to a SIMD.
type Discussion struct {
	ID                 uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	GitHubDiscussionID string    `gorm:"column:github_discussion_id;size:64;not null;uniqueIndex" json:"github_discussion_id"`
	Number             int       `gorm:"not null" json:"number"`
	SIMDID             *string   `gorm:"column:simd_id;size:8;index" json:"simd_id"`
	Title              string    `gorm:"size:512" json:"title"`
	Body               string    `gorm:"type:text" json:"body"`
	Author             string    `gorm:"size:128" json:"author"`
	Category           string    `gorm:"size:64" json:"category"`
	URL                string    `gorm:"size:512" json:"url"`
	CommentCount       int       `json:"comment_count"`
	GitHubCreatedAt    time.Time `gorm:"column:github_created_at" json:"github_created_at"`
	GitHubUpdatedAt    time.Time `gorm:"column:github_updated_at;index" json:"github_updated_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (Discussion) TableName() string { return "simd_discussions" }

// DiscussionComment is a top-level comment on a Discussion.
type DiscussionComment struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	DiscussionID    uint64    `gorm:"not null;index" json:"discussion_id"`
	GitHubCommentID string    `gorm:"column:github_comment_id;size:64;not null;uniqueIndex" json:"github_comment_id"`
	Author          string    `gorm:"size:128" json:"author"`
	Body            string    `gorm:"type:text" json:"body"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

func (DiscussionComment) TableName() string { return "simd_discussion_comments" }

// PRSummary is the generated summary for a pull request and the snapshot it was built from.
type PRSummary struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SIMDID        string     `gorm:"column:simd_id;size:8;not null;uniqueIndex:idx_simd_pr_summary" json:"simd_id"`
	PRNumber      int        `gorm:"not null;uniqueIndex:idx_simd_pr_summary" json:"pr_number"`
	Summary       string     `gorm:"type:text;not null" json:"summary"`
	MessageCount  int        `json:"message_count"`
	LastMessageAt *time.Time `json:"last_message_at"`
	GeneratedAt   time.Time  `json:"generated_at"`
	Model         string     `gorm:"size:64" json:"model"`
}

func (PRSummary) TableName() string { return "simd_pr_summaries" }

// Job statuses and types for the sync audit log.
const (
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"

	JobProposals   = "proposals"
	JobPRs         = "prs"
	JobDiscussions = "discussions"
	JobSummaries   = "summaries"
)

// SyncJob is one audited engine run.
type SyncJob struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	JobType          string     `gorm:"size:32;not null;index" json:"job_type"`
	Status           string     `gorm:"size:16;not null" json:"status"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	RecordsProcessed int        `json:"records_processed"`
	StoppedEarly     bool       `json:"stopped_early"`
	ErrorMessage     *string    `gorm:"type:text" json:"error_message"`
}

func (SyncJob) TableName() string { return "sync_jobs" }

// SyncState stores per-scope watermarks between runs.
type SyncState struct {
	Scope         string         `gorm:"primaryKey;size:64" json:"scope"`
	WatermarkTS   *time.Time     `json:"watermark_ts"`
	LastSuccessAt *time.Time     `json:"last_success_at"`
	LastAttemptAt *time.Time     `json:"last_attempt_at"`
	LastError     *string        `gorm:"type:text" json:"last_error"`
	StatsJSON     datatypes.JSON `json:"stats"`
}

func (SyncState) TableName() string { return "sync_state" }

// Setting represents a configuration setting stored in the database
type Setting struct {
	ID     uint8  `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"size:64;not null;uniqueIndex" json:"name"`
	Value  string `gorm:"type:text;not null" json:"value"`
	Active uint8  `gorm:"not null" json:"active"`
}
