package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v68/github"
	"github.com/shurcooL/githubv4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/stake-plus/simd-tracker/src/logging"
	"github.com/stake-plus/simd-tracker/src/webclient"
)

const pageSize = 100

// Options configures a Client.
type Options struct {
	Token string
	Owner string
	Repo  string
	// APIURL and GraphQLURL override the public endpoints (GHES, tests).
	APIURL     string
	GraphQLURL string
	HTTPClient *http.Client
	Log        *zap.Logger
}

// Client reads one repository through the REST and GraphQL APIs.
type Client struct {
	rest  *gh.Client
	gql   *githubv4.Client
	owner string
	repo  string
	log   *zap.Logger
}

var _ Source = (*Client)(nil)

// New returns a Client for opts.Owner/opts.Repo.
func New(opts Options) (*Client, error) {
	if opts.Owner == "" || opts.Repo == "" {
		return nil, fmt.Errorf("github: owner and repo are required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = webclient.NewDefault(30 * time.Second)
	}
	if opts.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}))
	}

	rest := gh.NewClient(httpClient)
	if opts.APIURL != "" {
		base, err := url.Parse(strings.TrimSuffix(opts.APIURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("github: api url: %w", err)
		}
		rest.BaseURL = base
	}

	gql := githubv4.NewClient(httpClient)
	if opts.GraphQLURL != "" {
		gql = githubv4.NewEnterpriseClient(opts.GraphQLURL, httpClient)
	}

	return &Client{
		rest:  rest,
		gql:   gql,
		owner: opts.Owner,
		repo:  opts.Repo,
		log:   logging.OrNop(opts.Log).Named("github"),
	}, nil
}

// Quota returns the core REST budget, which GraphQL calls in this client also draw from.
func (c *Client) Quota(ctx context.Context) (Quota, error) {
	limits, _, err := c.rest.RateLimit.Get(ctx)
	if err != nil {
		return Quota{}, classify("rate limit", err)
	}
	core := limits.GetCore()
	if core == nil {
		return Quota{}, fmt.Errorf("rate limit: missing core bucket")
	}
	return Quota{Limit: core.Limit, Remaining: core.Remaining, ResetAt: core.Reset.Time}, nil
}

// ListDirectory lists the entries of dir on the default branch.
func (c *Client) ListDirectory(ctx context.Context, dir string) ([]File, error) {
	_, entries, _, err := c.rest.Repositories.GetContents(ctx, c.owner, c.repo, dir, nil)
	if err != nil {
		return nil, classify("list "+dir, err)
	}
	out := make([]File, 0, len(entries))
	for _, e := range entries {
		out = append(out, File{Name: e.GetName(), Path: e.GetPath(), SHA: e.GetSHA(), Type: e.GetType()})
	}
	return out, nil
}

// GetDocument fetches and decodes path at ref. An empty ref reads the default branch.
func (c *Client) GetDocument(ctx context.Context, path, ref string) (Document, error) {
	var opts *gh.RepositoryContentGetOptions
	if ref != "" {
		opts = &gh.RepositoryContentGetOptions{Ref: ref}
	}
	file, _, _, err := c.rest.Repositories.GetContents(ctx, c.owner, c.repo, path, opts)
	if err != nil {
		return Document{}, classify("get "+path, err)
	}
	if file == nil {
		return Document{}, fmt.Errorf("get %s: %w", path, ErrNotFound)
	}
	content, err := file.GetContent()
	if err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return Document{Path: file.GetPath(), SHA: file.GetSHA(), Content: content}, nil
}

// LastCommitDate returns the committer date of the newest commit touching path.
func (c *Client) LastCommitDate(ctx context.Context, path string) (time.Time, error) {
	commits, _, err := c.rest.Repositories.ListCommits(ctx, c.owner, c.repo, &gh.CommitsListOptions{
		Path:        path,
		ListOptions: gh.ListOptions{PerPage: 1},
	})
	if err != nil {
		return time.Time{}, classify("commits "+path, err)
	}
	if len(commits) == 0 {
		return time.Time{}, fmt.Errorf("commits %s: %w", path, ErrNotFound)
	}
	commit := commits[0].GetCommit()
	if date := commit.GetCommitter().GetDate(); !date.IsZero() {
		return date.Time.UTC(), nil
	}
	return commit.GetAuthor().GetDate().Time.UTC(), nil
}

// ListPullRequests returns one page of PRs sorted by last update, newest first.
func (c *Client) ListPullRequests(ctx context.Context, state string, page, perPage int) ([]PullRequest, bool, error) {
	if perPage <= 0 {
		perPage = 30
	}
	prs, resp, err := c.rest.PullRequests.List(ctx, c.owner, c.repo, &gh.PullRequestListOptions{
		State:       state,
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
	})
	if err != nil {
		return nil, false, classify("list pulls", err)
	}
	out := make([]PullRequest, 0, len(prs))
	for _, pr := range prs {
		out = append(out, convertPR(pr))
	}
	return out, resp != nil && resp.NextPage != 0, nil
}

func convertPR(pr *gh.PullRequest) PullRequest {
	out := PullRequest{
		Number:         pr.GetNumber(),
		Title:          pr.GetTitle(),
		State:          pr.GetState(),
		Author:         pr.GetUser().GetLogin(),
		HTMLURL:        pr.GetHTMLURL(),
		HeadSHA:        pr.GetHead().GetSHA(),
		HeadRef:        pr.GetHead().GetRef(),
		BaseRef:        pr.GetBase().GetRef(),
		Comments:       pr.GetComments(),
		ReviewComments: pr.GetReviewComments(),
		CreatedAt:      pr.GetCreatedAt().Time.UTC(),
		UpdatedAt:      pr.GetUpdatedAt().Time.UTC(),
	}
	if pr.MergedAt != nil {
		t := pr.MergedAt.Time.UTC()
		out.MergedAt = &t
	}
	if pr.ClosedAt != nil {
		t := pr.ClosedAt.Time.UTC()
		out.ClosedAt = &t
	}
	return out
}

// ListPullRequestFiles returns every file a PR touches.
func (c *Client) ListPullRequestFiles(ctx context.Context, number int) ([]PRFile, error) {
	var out []PRFile
	opts := &gh.ListOptions{PerPage: pageSize}
	for {
		files, resp, err := c.rest.PullRequests.ListFiles(ctx, c.owner, c.repo, number, opts)
		if err != nil {
			return nil, classify(fmt.Sprintf("files #%d", number), err)
		}
		for _, f := range files {
			out = append(out, PRFile{Filename: f.GetFilename(), Status: f.GetStatus(), SHA: f.GetSHA()})
		}
		if resp == nil || resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListIssueComments returns up to max conversation comments on a PR, oldest first.
func (c *Client) ListIssueComments(ctx context.Context, number, max int) ([]Comment, error) {
	var out []Comment
	opts := &gh.IssueListCommentsOptions{ListOptions: gh.ListOptions{PerPage: pageSize}}
	for {
		comments, resp, err := c.rest.Issues.ListComments(ctx, c.owner, c.repo, number, opts)
		if err != nil {
			return nil, classify(fmt.Sprintf("comments #%d", number), err)
		}
		for _, cm := range comments {
			out = append(out, Comment{
				ID:        cm.GetID(),
				NodeID:    cm.GetNodeID(),
				Author:    cm.GetUser().GetLogin(),
				Body:      cm.GetBody(),
				URL:       cm.GetHTMLURL(),
				CreatedAt: cm.GetCreatedAt().Time.UTC(),
			})
			if max > 0 && len(out) >= max {
				return out, nil
			}
		}
		if resp == nil || resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListReviewComments returns up to max inline review comments on a PR, oldest first.
func (c *Client) ListReviewComments(ctx context.Context, number, max int) ([]Comment, error) {
	var out []Comment
	opts := &gh.PullRequestListCommentsOptions{ListOptions: gh.ListOptions{PerPage: pageSize}}
	for {
		comments, resp, err := c.rest.PullRequests.ListComments(ctx, c.owner, c.repo, number, opts)
		if err != nil {
			return nil, classify(fmt.Sprintf("review comments #%d", number), err)
		}
		for _, cm := range comments {
			out = append(out, Comment{
				ID:        cm.GetID(),
				NodeID:    cm.GetNodeID(),
				Author:    cm.GetUser().GetLogin(),
				Body:      cm.GetBody(),
				URL:       cm.GetHTMLURL(),
				CreatedAt: cm.GetCreatedAt().Time.UTC(),
			})
			if max > 0 && len(out) >= max {
				return out, nil
			}
		}
		if resp == nil || resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}
