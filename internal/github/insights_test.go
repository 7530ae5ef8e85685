package github

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func TestLatestMilestone(t *testing.T) {
	items := []ProjectItem{
		{Milestone: "v1", CreatedAt: day(2026, 1, 10)},
		{Milestone: "v2", CreatedAt: day(2026, 1, 5), IterationEnd: ptr(day(2026, 3, 1))},
		{Milestone: "v1", CreatedAt: day(2026, 2, 1)},
	}

	assert.Equal(t, "v2", latestMilestone(items))
	assert.Empty(t, latestMilestone(nil))
}

func TestSubtractMonths(t *testing.T) {
	assert.Equal(t, day(2025, 8, 30), subtractMonths(day(2026, 1, 30), 5))
	// Day clamps to the target month's length.
	assert.Equal(t, day(2026, 2, 28), subtractMonths(day(2026, 3, 31), 1))
	assert.Equal(t, day(2025, 11, 15), subtractMonths(day(2026, 4, 15), 5))
}

func TestCurrentIteration(t *testing.T) {
	now := day(2026, 1, 28)

	t.Run("prefers the iteration ending soonest", func(t *testing.T) {
		items := []ProjectItem{
			{IterationTitle: "Sprint 3", IterationStart: ptr(day(2026, 1, 19)), IterationEnd: ptr(day(2026, 2, 2))},
			{IterationTitle: "Sprint 4", IterationStart: ptr(day(2026, 2, 2)), IterationEnd: ptr(day(2026, 2, 16))},
		}

		assert.Equal(t, "Sprint 3", currentIteration(items, now))
	})

	t.Run("falls back to the most recent past iteration", func(t *testing.T) {
		items := []ProjectItem{
			{IterationTitle: "Sprint 1", IterationStart: ptr(day(2026, 1, 1)), IterationEnd: ptr(day(2026, 1, 10))},
			{IterationTitle: "Sprint 2", IterationStart: ptr(day(2026, 1, 12)), IterationEnd: ptr(day(2026, 1, 26))},
		}

		assert.Equal(t, "Sprint 2", currentIteration(items, now))
	})

	t.Run("empty when no iterations", func(t *testing.T) {
		assert.Empty(t, currentIteration([]ProjectItem{{Status: "Done"}}, now))
	})
}

func TestWeeklyProgress(t *testing.T) {
	items := []ProjectItem{
		{Status: "Done", CreatedAt: day(2026, 1, 20), StatusUpdatedAt: ptr(day(2026, 1, 27))},
		{Status: "In Review", CreatedAt: day(2026, 1, 26)},
		{Status: "Backlog", CreatedAt: day(2026, 1, 20)},
		{Status: "Cancelled", CreatedAt: day(2026, 1, 20)},
		// Updated after the requested week, not counted.
		{Status: "Done", CreatedAt: day(2026, 1, 20), StatusUpdatedAt: ptr(day(2026, 2, 10))},
	}

	table, barChart := weeklyProgress(items, "2026-W05")
	require.NotNil(t, table)
	assert.Equal(t, 1, table.Done)
	assert.Equal(t, 1, table.Review)
	assert.Equal(t, 1, table.Backlog)
	assert.Equal(t, 33, table.DonePercent)
	assert.Equal(t, 67, table.DoneReviewPercent)

	require.NotNil(t, barChart)
	assert.Equal(t, []float64{1, 0, 0, 1, 1}, barChart.Values)
}

func TestEffortTable(t *testing.T) {
	items := []ProjectItem{
		{Status: "Done", Difficulty: 3},
		{Status: "In Review", Difficulty: 2},
		{Status: "Backlog", Difficulty: 5},
		{Status: "Duplicate", Difficulty: 4},
	}

	table := effortTable(items)
	assert.Equal(t, 3, table.CountTotal)
	assert.Equal(t, 1, table.CountDone)
	assert.Equal(t, 1, table.CountReview)
	assert.Equal(t, 10.0, table.DifficultyTotal)
	assert.Equal(t, 3.0, table.DifficultyDone)
	assert.Equal(t, 30, table.DoneDifficultyPercent)
	assert.Equal(t, 67, table.DoneReviewCountPercent)
	assert.Equal(t, 50, table.DoneReviewDifficultyPercent)
}

func TestBurnupChart(t *testing.T) {
	items := []ProjectItem{
		{Status: "Backlog", CreatedAt: day(2026, 1, 5), Difficulty: 2},
		{Status: "Done", CreatedAt: day(2026, 1, 10), Difficulty: 3, StatusUpdatedAt: ptr(day(2026, 1, 20))},
		{Status: "Cancelled", CreatedAt: day(2026, 1, 12), Difficulty: 5},
	}

	burnup := burnupChart(items, day(2026, 1, 31))
	require.NotNil(t, burnup)
	require.Len(t, burnup.Series, 3)

	// Three plotted days: creation of the two counted items, completion of one.
	assert.Equal(t, 3, burnup.Points)
	assert.Equal(t, "Open", burnup.Series[0].Name)
	assert.Equal(t, []float64{2, 5, 5}, burnup.Series[0].Values)
	assert.Equal(t, []float64{0, 0, 3}, burnup.Series[1].Values)
}

func TestBurnupChartIgnoresUpdatesPastWindow(t *testing.T) {
	items := []ProjectItem{
		{Status: "Done", CreatedAt: day(2026, 1, 10), Difficulty: 3, StatusUpdatedAt: ptr(day(2026, 2, 20))},
	}

	burnup := burnupChart(items, day(2026, 1, 31))
	require.NotNil(t, burnup)
	assert.Equal(t, []float64{0}, burnup.Series[1].Values)
}
