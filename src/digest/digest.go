// Package digest renders the weekly activity report as markdown.
package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stake-plus/simd-tracker/src/data"
	"github.com/stake-plus/simd-tracker/src/logging"
	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

const (
	messagesPerSIMD = 5
	bodyPreview     = 300
	dateLayout      = "2006-01-02"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Builder renders digests from the store.
type Builder struct {
	store *data.Store
	bots  []string
	repo  string
	now   func() time.Time
	log   *zap.Logger
}

// NewBuilder returns a Builder linking into github.com/<owner>/<repo>.
// Messages by any of bots are left out.
func NewBuilder(store *data.Store, owner, repo string, bots []string, log *zap.Logger) *Builder {
	return &Builder{
		store: store,
		bots:  bots,
		repo:  "https://github.com/" + owner + "/" + repo,
		now:   func() time.Time { return time.Now().UTC() },
		log:   logging.OrNop(log).Named("digest"),
	}
}

// Build renders every change newer than since.
func (b *Builder) Build(ctx context.Context, since time.Time) (string, error) {
	a, err := b.store.ActivitySince(ctx, since, b.bots)
	if err != nil {
		return "", fmt.Errorf("activity: %w", err)
	}
	titles, err := b.store.SIMDTitles(ctx, referencedIDs(a))
	if err != nil {
		return "", fmt.Errorf("titles: %w", err)
	}
	now := b.now()

	var sb strings.Builder
	sb.WriteString("# SIMD Digest\n\n")
	fmt.Fprintf(&sb, "**Report Period:** %s - %s\n\n---\n\n", since.UTC().Format(dateLayout), now.Format(dateLayout))

	b.writeProposals(&sb, a.MergedProposals)
	b.writePRs(&sb, a.ActiveOpenPRs, titles)
	b.writeMessages(&sb, a.Messages, titles)
	b.writeDiscussions(&sb, a.Discussions)

	total := len(a.MergedProposals) + len(a.ActiveOpenPRs) + len(a.Messages) + len(a.Discussions)
	sb.WriteString("## Summary Statistics\n\n")
	fmt.Fprintf(&sb, "- **New Proposals Merged:** %d\n", len(a.MergedProposals))
	fmt.Fprintf(&sb, "- **Active PRs with Updates:** %d\n", len(a.ActiveOpenPRs))
	fmt.Fprintf(&sb, "- **Discussion Messages:** %d\n", len(a.Messages))
	fmt.Fprintf(&sb, "- **GitHub Discussions:** %d\n", len(a.Discussions))
	fmt.Fprintf(&sb, "- **Total Activity Items:** %d\n\n---\n\n", total)
	fmt.Fprintf(&sb, "*Generated on %s*\n", now.Format(time.RFC3339))
	fmt.Fprintf(&sb, "*Data sourced from: %s*\n", b.repo)

	b.log.Debug("digest built", zap.Time("since", since), zap.Int("items", total))
	return sb.String(), nil
}

func referencedIDs(a data.Activity) []string {
	seen := map[string]bool{}
	var ids []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, pr := range a.ActiveOpenPRs {
		add(pr.SIMDID)
	}
	for _, m := range a.Messages {
		add(m.SIMDID)
	}
	return ids
}

func (b *Builder) writeProposals(sb *strings.Builder, proposals []simd.SIMD) {
	fmt.Fprintf(sb, "## New Proposals Merged (%d)\n\n", len(proposals))
	if len(proposals) == 0 {
		sb.WriteString("*No new proposals were merged in this period.*\n\n")
	}
	for _, p := range proposals {
		fmt.Fprintf(sb, "### SIMD-%s: %s\n\n", p.ID, p.Title)
		fmt.Fprintf(sb, "- **Status:** %s\n", p.Status)
		if p.ProposalUpdatedAt != nil {
			fmt.Fprintf(sb, "- **Updated:** %s\n", p.ProposalUpdatedAt.UTC().Format(dateLayout))
		}
		var topics []string
		if len(p.Topics) > 0 && json.Unmarshal(p.Topics, &topics) == nil && len(topics) > 0 {
			fmt.Fprintf(sb, "- **Topics:** %s\n", strings.Join(topics, ", "))
		}
		if p.Summary != "" {
			fmt.Fprintf(sb, "- **Summary:** %s\n", p.Summary)
		}
		fmt.Fprintf(sb, "- **Link:** [View SIMD-%s](%s/blob/main/%s)\n\n", p.ID, b.repo, p.MainProposalPath)
	}
	sb.WriteString("---\n\n")
}

func (b *Builder) writePRs(sb *strings.Builder, prs []simd.PullRequest, titles map[string]string) {
	fmt.Fprintf(sb, "## Active Proposal PRs (%d)\n\n", len(prs))
	if len(prs) == 0 {
		sb.WriteString("*No PR activity in this period.*\n\n")
	}
	for _, pr := range prs {
		title := titles[pr.SIMDID]
		if title == "" {
			title = pr.Title
		}
		fmt.Fprintf(sb, "### SIMD-%s: %s\n\n", pr.SIMDID, title)
		fmt.Fprintf(sb, "- **PR #%d:** %s\n", pr.PRNumber, pr.Title)
		if pr.LastCommitAt != nil {
			fmt.Fprintf(sb, "- **Last Commit:** %s\n", pr.LastCommitAt.UTC().Format(dateLayout))
		}
		fmt.Fprintf(sb, "- **Comments:** %d\n", pr.TotalMessageCount)
		fmt.Fprintf(sb, "- **Link:** [View PR #%d](%s/pull/%d)\n\n", pr.PRNumber, b.repo, pr.PRNumber)
	}
	sb.WriteString("---\n\n")
}

func (b *Builder) writeMessages(sb *strings.Builder, msgs []simd.Message, titles map[string]string) {
	sb.WriteString("## Recent Discussion Messages\n\n")
	if len(msgs) == 0 {
		sb.WriteString("*No discussion messages in this period.*\n\n")
		return
	}
	var order []string
	bySIMD := map[string][]simd.Message{}
	// Newest first within each SIMD.
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if _, ok := bySIMD[m.SIMDID]; !ok {
			order = append(order, m.SIMDID)
		}
		bySIMD[m.SIMDID] = append(bySIMD[m.SIMDID], m)
	}
	for _, id := range order {
		group := bySIMD[id]
		title := titles[id]
		if title == "" {
			title = "SIMD-" + id
		}
		fmt.Fprintf(sb, "### SIMD-%s: %s\n\n", id, title)
		for i, m := range group {
			if i == messagesPerSIMD {
				fmt.Fprintf(sb, "*... and %d more messages*\n\n", len(group)-messagesPerSIMD)
				break
			}
			fmt.Fprintf(sb, "**%s** (%s):\n", m.Author, m.CreatedAt.UTC().Format(dateLayout))
			fmt.Fprintf(sb, "> %s\n\n", strings.ReplaceAll(preview(m.Body), "\n", "\n> "))
			if m.URL != "" {
				fmt.Fprintf(sb, "[View on GitHub](%s)\n\n", m.URL)
			}
		}
		sb.WriteString("---\n\n")
	}
}

func preview(body string) string {
	if r := []rune(body); len(r) > bodyPreview {
		body = strings.TrimSpace(string(r[:bodyPreview])) + "..."
	}
	return strings.TrimSpace(blankRuns.ReplaceAllString(body, "\n\n"))
}

func (b *Builder) writeDiscussions(sb *strings.Builder, discussions []simd.Discussion) {
	fmt.Fprintf(sb, "## GitHub Discussions Activity (%d)\n\n", len(discussions))
	if len(discussions) == 0 {
		sb.WriteString("*No discussion activity in this period.*\n\n")
	}
	for _, d := range discussions {
		fmt.Fprintf(sb, "### %s\n\n", d.Title)
		if d.SIMDID != nil {
			fmt.Fprintf(sb, "- **Related SIMD:** SIMD-%s\n", *d.SIMDID)
		}
		fmt.Fprintf(sb, "- **Discussion #%d**\n", d.Number)
		fmt.Fprintf(sb, "- **Author:** %s\n", d.Author)
		fmt.Fprintf(sb, "- **Updated:** %s\n", d.GitHubUpdatedAt.UTC().Format(dateLayout))
		fmt.Fprintf(sb, "- **Comments:** %d\n", d.CommentCount)
		fmt.Fprintf(sb, "- **Link:** [View Discussion](%s)\n\n", d.URL)
	}
	sb.WriteString("---\n\n")
}
