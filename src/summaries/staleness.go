// Package summaries decides which pull request discussions need a fresh
// summary and produces them incrementally.
package summaries

import (
	"sort"
	"time"

	"github.com/stake-plus/simd-tracker/src/data"
)

// State classifies a PR's summary against its live message aggregates.
type State string

const (
	StateNoSummary           State = "no_summary"
	StateNewMessages         State = "new_messages"
	StateMessageCountChanged State = "message_count_changed"
	StateUpToDate            State = "up_to_date"
)

// Classify compares the PR's aggregates with the snapshot of its stored summary.
func Classify(s data.SummarySnapshot) State {
	if !s.HasSummary() {
		return StateNoSummary
	}
	if s.LastMessageAt != nil &&
		(s.SummaryLastMessageAt == nil || s.LastMessageAt.After(*s.SummaryLastMessageAt)) {
		return StateNewMessages
	}
	if s.SummaryMessageCount == nil || *s.SummaryMessageCount != s.TotalMessageCount {
		return StateMessageCountChanged
	}
	return StateUpToDate
}

// Candidate is a PR selected for summarisation.
type Candidate struct {
	data.SummarySnapshot
	State State
}

// Select picks the PRs to summarise this run: every stale PR, plus up-to-date
// ones whose summary is older than refresh while the PR itself saw a message
// within refresh. Newest activity comes first and at most limit are returned.
func Select(snaps []data.SummarySnapshot, now time.Time, refresh time.Duration, limit int) []Candidate {
	cutoff := now.Add(-refresh)
	var out []Candidate
	for _, s := range snaps {
		state := Classify(s)
		if state == StateUpToDate {
			if refresh <= 0 || s.SummaryGeneratedAt == nil || s.LastMessageAt == nil {
				continue
			}
			if !s.SummaryGeneratedAt.Before(cutoff) || !s.LastMessageAt.After(cutoff) {
				continue
			}
		}
		out = append(out, Candidate{SummarySnapshot: s, State: state})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].LastMessageAt, out[j].LastMessageAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.After(*b)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
