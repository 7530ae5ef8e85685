package github

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rsd-team/rsd-service/internal/service"
	"github.com/rsd-team/rsd-service/internal/week"
	"github.com/rsd-team/rsd-service/pkg/logger/sl"
)

const maxIssuePages = 10

// milestoneRef addresses one repository milestone.
type milestoneRef struct {
	Owner  string
	Repo   string
	Number int
}

// parseMilestoneURL accepts URLs like
// "https://github.com/owner/repo/milestone/3".
func parseMilestoneURL(raw string) (milestoneRef, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return milestoneRef{}, fmt.Errorf("empty milestone url")
	}

	parts := strings.Split(trimmed, "/")
	if len(parts) < 4 || parts[len(parts)-2] != "milestone" {
		return milestoneRef{}, fmt.Errorf("invalid milestone url %q", raw)
	}

	number, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return milestoneRef{}, fmt.Errorf("invalid milestone url %q", raw)
	}

	return milestoneRef{
		Owner:  parts[len(parts)-4],
		Repo:   parts[len(parts)-3],
		Number: number,
	}, nil
}

type restMilestone struct {
	Title        string `json:"title"`
	ClosedIssues int    `json:"closed_issues"`
	OpenIssues   int    `json:"open_issues"`
}

type restIssue struct {
	State    string  `json:"state"`
	ClosedAt *string `json:"closed_at"`
	Labels   []struct {
		Name string `json:"name"`
	} `json:"labels"`
}

func (i restIssue) labelNames() []string {
	names := make([]string, 0, len(i.Labels))
	for _, label := range i.Labels {
		if name := strings.ToLower(strings.TrimSpace(label.Name)); name != "" {
			names = append(names, name)
		}
	}

	return names
}

// MilestoneSection fetches the configured milestones and assembles the
// completion donuts, the weekly closed-issue table and the aggregated
// status counts. Returns nil when no milestone resolves.
func (b *Builder) milestoneSection(ctx context.Context, projectSlug, weekID string) *service.MilestoneSection {
	urls, month := b.milestoneURLs.Resolve(projectSlug, "")
	if len(urls) == 0 {
		return nil
	}

	weekStart, weekEnd, err := week.Range(weekID)
	if err != nil {
		return nil
	}

	prevEnd := weekStart.AddDate(0, 0, -1)
	prevStart := prevEnd.AddDate(0, 0, -6)

	var rows []service.MilestoneRow

	for _, raw := range urls {
		ref, err := parseMilestoneURL(raw)
		if err != nil {
			b.log.Warn("skipping invalid milestone url", sl.Err(err))
			continue
		}

		var ms restMilestone
		path := fmt.Sprintf("/repos/%s/%s/milestones/%d", ref.Owner, ref.Repo, ref.Number)
		if err := b.client.getJSON(ctx, path, nil, &ms); err != nil {
			b.log.Warn("failed to fetch milestone", sl.Err(err))
			continue
		}

		name := strings.TrimSpace(ms.Title)
		if name == "" {
			name = ref.Owner + "/" + ref.Repo
		}

		closedWeek, _ := b.closedIssueCount(ctx, ref, weekStart, weekEnd)
		closedPrevious, _ := b.closedIssueCount(ctx, ref, prevStart, prevEnd)

		rows = append(rows, service.MilestoneRow{
			Name:           name,
			ClosedWeek:     closedWeek,
			ClosedPrevious: closedPrevious,
			TotalClosed:    ms.ClosedIssues,
			TotalIssues:    ms.ClosedIssues + ms.OpenIssues,
		})
	}

	if len(rows) == 0 {
		return nil
	}

	// Milestones tracked across repositories share a name; their donut
	// aggregates the per-repository counts.
	type aggregated struct {
		name   string
		closed int
		total  int
	}

	var order []string
	byName := map[string]*aggregated{}

	for _, row := range rows {
		key := strings.ToLower(strings.TrimSpace(row.Name))
		agg, ok := byName[key]
		if !ok {
			agg = &aggregated{name: row.Name}
			byName[key] = agg
			order = append(order, key)
		}

		agg.closed += row.TotalClosed
		agg.total += row.TotalIssues
	}

	cards := make([]service.MilestoneCard, 0, len(order))
	for _, key := range order {
		agg := byName[key]

		cards = append(cards, service.MilestoneCard{
			Name:    agg.name,
			Percent: percent(float64(agg.closed), float64(agg.total)),
		})
	}

	return &service.MilestoneSection{
		Month:  month,
		Cards:  cards,
		Rows:   rows,
		Status: b.milestoneStatusTable(ctx, urls),
	}
}

// closedIssueCount counts the milestone's issues closed inside [start, end].
func (b *Builder) closedIssueCount(ctx context.Context, ref milestoneRef, start, end time.Time) (int, error) {
	if start.After(end) {
		return 0, nil
	}

	endOfDay := end.AddDate(0, 0, 1)
	count := 0

	for page := 1; page <= maxIssuePages; page++ {
		var issues []restIssue
		err := b.client.getJSON(ctx,
			fmt.Sprintf("/repos/%s/%s/issues", ref.Owner, ref.Repo),
			url.Values{
				"milestone": {strconv.Itoa(ref.Number)},
				"state":     {"closed"},
				"per_page":  {"100"},
				"page":      {strconv.Itoa(page)},
			},
			&issues,
		)
		if err != nil {
			return count, err
		}

		if len(issues) == 0 {
			break
		}

		for _, issue := range issues {
			if issue.ClosedAt == nil {
				continue
			}

			closedAt, err := time.Parse(time.RFC3339, *issue.ClosedAt)
			if err != nil {
				continue
			}

			if !closedAt.Before(start) && closedAt.Before(endOfDay) {
				count++
			}
		}
	}

	return count, nil
}

// milestoneStatusTable classifies every milestone issue into a status bucket
// based on its state and labels.
func (b *Builder) milestoneStatusTable(ctx context.Context, urls []string) service.StatusTable {
	var table service.StatusTable
	total := 0

	for _, raw := range urls {
		ref, err := parseMilestoneURL(raw)
		if err != nil {
			continue
		}

		for page := 1; page <= maxIssuePages; page++ {
			var issues []restIssue
			err := b.client.getJSON(ctx,
				fmt.Sprintf("/repos/%s/%s/issues", ref.Owner, ref.Repo),
				url.Values{
					"milestone": {strconv.Itoa(ref.Number)},
					"state":     {"all"},
					"per_page":  {"100"},
					"page":      {strconv.Itoa(page)},
				},
				&issues,
			)
			if err != nil {
				b.log.Warn("failed to list milestone issues", sl.Err(err))
				break
			}

			if len(issues) == 0 {
				break
			}

			for _, issue := range issues {
				total++

				switch classifyIssue(issue.labelNames(), issue.State) {
				case StatusDone:
					table.Done++
				case StatusReview:
					table.Review++
				case StatusProgress:
					table.Progress++
				case StatusBlocked:
					table.Blocked++
				default:
					table.Backlog++
				}
			}
		}
	}

	table.DonePercent = percent(float64(table.Done), float64(total))
	table.DoneReviewPercent = percent(float64(table.Done+table.Review), float64(total))

	return table
}

// classifyIssue maps an issue to a status bucket. Closed issues are done;
// open ones are classified by label keywords.
func classifyIssue(labels []string, state string) string {
	if strings.EqualFold(state, "closed") {
		return StatusDone
	}

	matches := func(keywords ...string) bool {
		for _, label := range labels {
			for _, key := range keywords {
				if strings.Contains(label, key) {
					return true
				}
			}
		}

		return false
	}

	switch {
	case matches("review", "code review", "in review", "pr review"):
		return StatusReview
	case matches("progress", "in progress", "doing", "wip"):
		return StatusProgress
	case matches("blocked", "blocker", "imped", "impedimento"):
		return StatusBlocked
	default:
		return StatusBacklog
	}
}

func percent(value, total float64) int {
	if total <= 0 {
		return 0
	}

	return int(value/total*100 + 0.5)
}
