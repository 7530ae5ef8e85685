package github

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/rsd-team/rsd-service/internal/chart"
	"github.com/rsd-team/rsd-service/internal/config"
	"github.com/rsd-team/rsd-service/internal/service"
	"github.com/rsd-team/rsd-service/internal/week"
)

// burnupWindowMonths bounds the burn-up series so long-lived boards still
// render a readable chart.
const burnupWindowMonths = 5

// Builder assembles the GitHub-derived report sections for a project. It
// satisfies service.InsightsBuilder.
type Builder struct {
	log           *slog.Logger
	client        *Client
	projects      config.ProjectSet
	milestoneURLs config.MilestoneURLs
	now           func() time.Time
}

var _ service.InsightsBuilder = (*Builder)(nil)

func NewBuilder(log *slog.Logger, client *Client, projects config.ProjectSet, milestoneURLs config.MilestoneURLs) *Builder {
	return &Builder{
		log:           log,
		client:        client,
		projects:      projects,
		milestoneURLs: milestoneURLs,
		now:           time.Now,
	}
}

// Build returns the insights for a project and week, or (nil, nil) when the
// project has no board and no milestone URLs configured.
func (b *Builder) Build(ctx context.Context, projectSlug, weekID string) (*service.Insights, error) {
	if b.client.token == "" {
		return nil, nil
	}

	_, project, err := b.projects.Project(projectSlug)
	if err != nil {
		return nil, err
	}

	insights := &service.Insights{}

	if project.GitHubProjectID != "" {
		if err := b.buildBoardSections(ctx, project.GitHubProjectID, weekID, insights); err != nil {
			return nil, err
		}
	}

	if b.milestoneURLs.Configured(projectSlug) {
		insights.Milestones = b.milestoneSection(ctx, projectSlug, weekID)
	}

	if insights.Burnup == nil && insights.WeeklyChart == nil && insights.Milestones == nil {
		return nil, nil
	}

	return insights, nil
}

func (b *Builder) buildBoardSections(ctx context.Context, projectID, weekID string, insights *service.Insights) error {
	allItems, err := b.client.FetchProjectItems(ctx, projectID)
	if err != nil {
		return err
	}

	items := allItems
	if target := latestMilestone(allItems); target != "" {
		filtered := make([]ProjectItem, 0, len(items))
		for _, item := range items {
			if milestoneMatches(item.Milestone, target) {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	// The reference date trails the reported week so late status updates
	// still land inside the burn-up window.
	var refDate time.Time
	if _, weekEnd, err := week.Range(weekID); err == nil {
		refDate = weekEnd.AddDate(0, 0, 6)

		filtered := make([]ProjectItem, 0, len(items))
		for _, item := range items {
			if !dateOnly(item.CreatedAt).After(dateOnly(refDate)) {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	if len(items) == 0 {
		return nil
	}

	insights.Burnup = burnupChart(items, refDate)
	insights.Weekly, insights.WeeklyChart = weeklyProgress(items, weekID)
	insights.LabelsChart = labelsChart(items)
	insights.Total = effortTable(items)
	insights.CurrentIteration = currentIteration(allItems, b.now())

	return nil
}

// latestMilestone picks the milestone whose items reach furthest into the
// future, using the iteration end or creation date of each item.
func latestMilestone(items []ProjectItem) string {
	latestDates := map[string]time.Time{}

	for _, item := range items {
		if item.Milestone == "" {
			continue
		}

		itemDate := item.CreatedAt
		if item.IterationEnd != nil {
			itemDate = *item.IterationEnd
		}

		if existing, ok := latestDates[item.Milestone]; !ok || itemDate.After(existing) {
			latestDates[item.Milestone] = itemDate
		}
	}

	var name string
	var latest time.Time
	for milestone, d := range latestDates {
		if d.After(latest) || (d.Equal(latest) && milestone < name) {
			name = milestone
			latest = d
		}
	}

	return name
}

// burnupChart accumulates difficulty-weighted scope, completion and
// duplicates per day over the trailing window.
func burnupChart(items []ProjectItem, refDate time.Time) *service.LineChart {
	windowEnd := refDate
	if windowEnd.IsZero() {
		for _, item := range items {
			d := item.CreatedAt
			if item.IterationEnd != nil {
				d = *item.IterationEnd
			}
			if d.After(windowEnd) {
				windowEnd = d
			}
		}
	}

	windowStart := subtractMonths(windowEnd, burnupWindowMonths)

	inWindow := func(d time.Time) bool {
		day := dateOnly(d)
		return !day.Before(dateOnly(windowStart)) && !day.After(dateOnly(windowEnd))
	}

	scope := map[string]float64{}
	done := map[string]float64{}
	duplicate := map[string]float64{}

	for _, item := range items {
		if BucketStatus(item.Status) == StatusCancelled {
			continue
		}

		if inWindow(item.CreatedAt) {
			scope[dayKey(item.CreatedAt)] += item.Difficulty
		}

		if BucketStatus(item.Status) == StatusDone && item.StatusUpdatedAt != nil && inWindow(*item.StatusUpdatedAt) {
			done[dayKey(*item.StatusUpdatedAt)] += item.Difficulty
		}
	}

	for _, item := range items {
		if !item.isDuplicate() {
			continue
		}

		d := item.CreatedAt
		if item.StatusUpdatedAt != nil {
			d = *item.StatusUpdatedAt
		}

		if inWindow(d) {
			duplicate[dayKey(d)] += item.Difficulty
		}
	}

	daySet := map[string]struct{}{}
	for day := range scope {
		daySet[day] = struct{}{}
	}
	for day := range done {
		daySet[day] = struct{}{}
	}
	for day := range duplicate {
		daySet[day] = struct{}{}
	}

	days := make([]string, 0, len(daySet))
	for day := range daySet {
		days = append(days, day)
	}
	sort.Strings(days)

	if len(days) == 0 {
		return nil
	}

	var scopeTotal, doneTotal, duplicateTotal float64
	cumScope := make([]float64, 0, len(days))
	cumDone := make([]float64, 0, len(days))
	cumDuplicate := make([]float64, 0, len(days))

	for _, day := range days {
		scopeTotal += scope[day]
		doneTotal += done[day]
		duplicateTotal += duplicate[day]
		cumScope = append(cumScope, scopeTotal)
		cumDone = append(cumDone, doneTotal)
		cumDuplicate = append(cumDuplicate, duplicateTotal)
	}

	return &service.LineChart{
		Title:  "Milestone burn-up",
		Points: len(days),
		Series: []service.LineSeries{
			{Name: "Open", Color: "#4ade80", Values: cumScope},
			{Name: "Completed", Color: "#a855f7", Values: cumDone},
			{Name: "Duplicate", Color: "#64748b", Values: cumDuplicate},
		},
	}
}

// weeklyProgress counts items whose last status change happened by the end
// of the requested week, bucketed by status.
func weeklyProgress(items []ProjectItem, weekID string) (*service.StatusTable, *service.BarChart) {
	_, weekEnd, err := week.Range(weekID)
	if err != nil {
		return nil, nil
	}

	endOfWeek := dateOnly(weekEnd)
	table := &service.StatusTable{}
	total := 0

	for _, item := range items {
		updated := item.CreatedAt
		if item.StatusUpdatedAt != nil {
			updated = *item.StatusUpdatedAt
		}

		if dateOnly(updated).After(endOfWeek) {
			continue
		}

		bucket := BucketStatus(item.Status)
		if bucket == StatusCancelled || bucket == StatusDuplicate {
			continue
		}

		total++

		switch bucket {
		case StatusBlocked:
			table.Blocked++
		case StatusProgress:
			table.Progress++
		case StatusReview:
			table.Review++
		case StatusDone:
			table.Done++
		default:
			table.Backlog++
		}
	}

	table.DonePercent = percent(float64(table.Done), float64(total))
	table.DoneReviewPercent = percent(float64(table.Done+table.Review), float64(total))

	barChart := &service.BarChart{
		Title:      "Weekly progress",
		Categories: []string{"Backlog", "Blocked", "In Progress", "In Review", "Done"},
		Values: []float64{
			float64(table.Backlog),
			float64(table.Blocked),
			float64(table.Progress),
			float64(table.Review),
			float64(table.Done),
		},
		Colors: []string{
			chart.StatusColors[StatusBacklog],
			chart.StatusColors[StatusBlocked],
			chart.StatusColors[StatusProgress],
			chart.StatusColors[StatusReview],
			chart.StatusColors[StatusDone],
		},
	}

	return table, barChart
}

// labelsChart stacks the board's most frequent labels by status.
func labelsChart(items []ProjectItem) *service.StackedBarChart {
	type counts struct {
		backlog, progress, review, done float64
	}

	byLabel := map[string]*counts{}
	var order []string

	for _, item := range items {
		bucket := BucketStatus(item.Status)
		if bucket == StatusCancelled || bucket == StatusDuplicate {
			continue
		}

		for _, label := range item.Labels {
			c, ok := byLabel[label]
			if !ok {
				c = &counts{}
				byLabel[label] = c
				order = append(order, label)
			}

			switch bucket {
			case StatusProgress:
				c.progress++
			case StatusReview:
				c.review++
			case StatusDone:
				c.done++
			default:
				c.backlog++
			}
		}
	}

	if len(order) == 0 {
		return nil
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := byLabel[order[i]], byLabel[order[j]]
		return a.backlog+a.progress+a.review+a.done > b.backlog+b.progress+b.review+b.done
	})

	if len(order) > 15 {
		order = order[:15]
	}

	pluck := func(get func(*counts) float64) []float64 {
		values := make([]float64, len(order))
		for i, label := range order {
			values[i] = get(byLabel[label])
		}
		return values
	}

	return &service.StackedBarChart{
		Title:  "Milestone labels",
		Labels: order,
		Stacks: []service.StackSeries{
			{Name: "Backlog", Color: chart.StatusColors[StatusBacklog], Values: pluck(func(c *counts) float64 { return c.backlog })},
			{Name: "In progress", Color: chart.StatusColors[StatusProgress], Values: pluck(func(c *counts) float64 { return c.progress })},
			{Name: "In review", Color: chart.StatusColors[StatusReview], Values: pluck(func(c *counts) float64 { return c.review })},
			{Name: "Done", Color: chart.StatusColors[StatusDone], Values: pluck(func(c *counts) float64 { return c.done })},
		},
	}
}

// effortTable summarizes counts and difficulty-weighted effort, excluding
// cancelled and duplicate items.
func effortTable(items []ProjectItem) *service.EffortTable {
	table := &service.EffortTable{}

	for _, item := range items {
		bucket := BucketStatus(item.Status)
		if bucket == StatusCancelled || bucket == StatusDuplicate {
			continue
		}

		table.CountTotal++
		table.DifficultyTotal += item.Difficulty

		switch bucket {
		case StatusReview:
			table.CountReview++
			table.DifficultyReview += item.Difficulty
		case StatusDone:
			table.CountDone++
			table.DifficultyDone += item.Difficulty
		}
	}

	table.DoneCountPercent = percent(float64(table.CountDone), float64(table.CountTotal))
	table.DoneDifficultyPercent = percent(table.DifficultyDone, table.DifficultyTotal)
	table.DoneReviewCountPercent = percent(float64(table.CountDone+table.CountReview), float64(table.CountTotal))
	table.DoneReviewDifficultyPercent = percent(table.DifficultyDone+table.DifficultyReview, table.DifficultyTotal)

	return table
}

// currentIteration picks the iteration ending soonest on or after today, or
// the most recently started one when all have ended.
func currentIteration(items []ProjectItem, now time.Time) string {
	today := dateOnly(now)

	var upcoming, latest *ProjectItem

	for i := range items {
		item := &items[i]
		if item.IterationStart == nil {
			continue
		}

		if item.IterationEnd != nil && !dateOnly(*item.IterationEnd).Before(today) {
			if upcoming == nil || item.IterationEnd.Before(*upcoming.IterationEnd) {
				upcoming = item
			}
		}

		if latest == nil || item.IterationStart.After(*latest.IterationStart) {
			latest = item
		}
	}

	if upcoming != nil {
		return upcoming.IterationTitle
	}

	if latest != nil {
		return latest.IterationTitle
	}

	return ""
}

func dayKey(t time.Time) string { return t.Format("2006-01-02") }

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// subtractMonths steps back whole months, clamping the day to the target
// month's length (AddDate would roll an overflow into the next month).
func subtractMonths(t time.Time, months int) time.Time {
	year, month := t.Year(), int(t.Month())-months
	for month <= 0 {
		month += 12
		year--
	}

	day := t.Day()
	if last := daysInMonth(year, time.Month(month)); day > last {
		day = last
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
