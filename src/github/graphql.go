package github

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shurcooL/githubv4"

	"github.com/stake-plus/simd-tracker/src/logging"
)

func (c *Client) gqlError(op string, err error) error {
	if logging.IsRateLimit(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrRateLimited, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// PullRequestDetail returns the head commit and review aggregates of a PR.
func (c *Client) PullRequestDetail(ctx context.Context, number int) (PRDetail, error) {
	var q struct {
		Repository struct {
			PullRequest struct {
				Commits struct {
					Nodes []struct {
						Commit struct {
							OID           string `graphql:"oid"`
							CommittedDate time.Time
						}
					}
				} `graphql:"commits(last: 1)"`
				Reviews struct {
					TotalCount int
					Nodes      []struct {
						Author struct {
							Login string
						}
					}
				} `graphql:"reviews(first: 100)"`
			} `graphql:"pullRequest(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner":  githubv4.String(c.owner),
		"name":   githubv4.String(c.repo),
		"number": githubv4.Int(number),
	}
	if err := c.gql.Query(ctx, &q, vars); err != nil {
		return PRDetail{}, c.gqlError(fmt.Sprintf("pr detail #%d", number), err)
	}

	pr := q.Repository.PullRequest
	detail := PRDetail{ReviewCount: pr.Reviews.TotalCount}
	if n := len(pr.Commits.Nodes); n > 0 {
		last := pr.Commits.Nodes[n-1].Commit
		detail.LastCommitSHA = last.OID
		if !last.CommittedDate.IsZero() {
			t := last.CommittedDate.UTC()
			detail.LastCommitAt = &t
		}
	}
	seen := map[string]bool{}
	for _, r := range pr.Reviews.Nodes {
		if login := r.Author.Login; login != "" && !seen[login] {
			seen[login] = true
			detail.Reviewers = append(detail.Reviewers, login)
		}
	}
	sort.Strings(detail.Reviewers)
	return detail, nil
}

// ListDiscussions returns a page of discussions ordered by last update, newest first.
func (c *Client) ListDiscussions(ctx context.Context, after string, first int) (DiscussionPage, error) {
	if first <= 0 || first > 100 {
		first = 50
	}
	var q struct {
		Repository struct {
			Discussions struct {
				Nodes []struct {
					ID        string
					Number    int
					Title     string
					Body      string
					URL       string `graphql:"url"`
					CreatedAt time.Time
					UpdatedAt time.Time
					Author    struct {
						Login string
					}
					Category struct {
						Slug string
					}
					Comments struct {
						TotalCount int
					}
				}
				PageInfo struct {
					EndCursor   githubv4.String
					HasNextPage bool
				}
			} `graphql:"discussions(first: $first, after: $cursor, orderBy: $orderBy)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner":  githubv4.String(c.owner),
		"name":   githubv4.String(c.repo),
		"first":  githubv4.Int(first),
		"cursor": (*githubv4.String)(nil),
		"orderBy": githubv4.DiscussionOrder{
			Field:     githubv4.DiscussionOrderFieldUpdatedAt,
			Direction: githubv4.OrderDirectionDesc,
		},
	}
	if after != "" {
		vars["cursor"] = githubv4.NewString(githubv4.String(after))
	}
	if err := c.gql.Query(ctx, &q, vars); err != nil {
		return DiscussionPage{}, c.gqlError("list discussions", err)
	}

	conn := q.Repository.Discussions
	page := DiscussionPage{
		EndCursor:   string(conn.PageInfo.EndCursor),
		HasNextPage: conn.PageInfo.HasNextPage,
	}
	for _, n := range conn.Nodes {
		page.Discussions = append(page.Discussions, Discussion{
			NodeID:       n.ID,
			Number:       n.Number,
			Title:        n.Title,
			Body:         n.Body,
			Author:       n.Author.Login,
			Category:     n.Category.Slug,
			URL:          n.URL,
			CommentCount: n.Comments.TotalCount,
			CreatedAt:    n.CreatedAt.UTC(),
			UpdatedAt:    n.UpdatedAt.UTC(),
		})
	}
	return page, nil
}

// ListDiscussionComments returns the last top-level comments of a discussion, oldest first.
func (c *Client) ListDiscussionComments(ctx context.Context, number, last int) ([]Comment, error) {
	if last <= 0 || last > 100 {
		last = 10
	}
	var q struct {
		Repository struct {
			Discussion struct {
				Comments struct {
					Nodes []struct {
						ID         string
						DatabaseID int64 `graphql:"databaseId"`
						Body       string
						URL        string `graphql:"url"`
						CreatedAt  time.Time
						Author     struct {
							Login string
						}
					}
				} `graphql:"comments(last: $last)"`
			} `graphql:"discussion(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	vars := map[string]interface{}{
		"owner":  githubv4.String(c.owner),
		"name":   githubv4.String(c.repo),
		"number": githubv4.Int(number),
		"last":   githubv4.Int(last),
	}
	if err := c.gql.Query(ctx, &q, vars); err != nil {
		return nil, c.gqlError(fmt.Sprintf("discussion comments #%d", number), err)
	}
	nodes := q.Repository.Discussion.Comments.Nodes
	out := make([]Comment, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Comment{
			ID:        n.DatabaseID,
			NodeID:    n.ID,
			Author:    n.Author.Login,
			Body:      n.Body,
			URL:       n.URL,
			CreatedAt: n.CreatedAt.UTC(),
		})
	}
	return out, nil
}
