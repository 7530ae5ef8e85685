// package service holds the business logic between the HTTP transport and
// the persistence layer. Services validate input, resolve project and team
// configuration, and orchestrate report generation.
package service

import (
	"context"
	"time"

	"github.com/rsd-team/rsd-service/internal/domain"
)

// nowFunc is injected into services so tests can pin the clock.
type nowFunc func() time.Time

// LineSeries is one named line of a line chart. Colors are "#rrggbb".
type LineSeries struct {
	Name   string
	Color  string
	Values []float64
}

// LineChart is a multi-series line chart; every series has Points values.
type LineChart struct {
	Title  string
	Points int
	Series []LineSeries
}

// BarChart is a vertical bar chart with one color per category.
type BarChart struct {
	Title      string
	Categories []string
	Values     []float64
	Colors     []string
}

// StackSeries is one layer of a stacked bar chart.
type StackSeries struct {
	Name   string
	Color  string
	Values []float64
}

// StackedBarChart is a horizontal stacked bar chart, one row per label.
type StackedBarChart struct {
	Title  string
	Labels []string
	Stacks []StackSeries
}

// StatusTable counts tasks per status bucket with derived completion
// percentages.
type StatusTable struct {
	Backlog           int
	Blocked           int
	Progress          int
	Review            int
	Done              int
	DonePercent       int
	DoneReviewPercent int
}

// EffortTable summarizes task counts and difficulty-weighted effort for a
// project board.
type EffortTable struct {
	CountTotal                  int
	CountReview                 int
	CountDone                   int
	DifficultyTotal             float64
	DifficultyReview            float64
	DifficultyDone              float64
	DoneCountPercent            int
	DoneDifficultyPercent       int
	DoneReviewCountPercent      int
	DoneReviewDifficultyPercent int
}

// MilestoneCard is one milestone completion donut.
type MilestoneCard struct {
	Name    string
	Percent int
}

// MilestoneRow is one milestone's issue counts for the report table.
type MilestoneRow struct {
	Name           string
	ClosedWeek     int
	ClosedPrevious int
	TotalClosed    int
	TotalIssues    int
}

// MilestoneSection groups the milestone cards, the per-milestone table and
// the aggregated status counts. Present only when at least one configured
// milestone URL resolves.
type MilestoneSection struct {
	Month  string
	Cards  []MilestoneCard
	Rows   []MilestoneRow
	Status StatusTable
}

// Insights is the GitHub-derived chart and milestone data attached to a
// generated report. A nil value omits the whole section.
type Insights struct {
	Burnup           *LineChart
	WeeklyChart      *BarChart
	LabelsChart      *StackedBarChart
	CurrentIteration string
	Weekly           *StatusTable
	Total            *EffortTable
	Milestones       *MilestoneSection
}

// InsightsBuilder produces GitHub-derived sections for a project and week.
// Implementations return (nil, nil) when the project has no GitHub
// configuration; errors are treated as non-fatal by callers.
type InsightsBuilder interface {
	Build(ctx context.Context, projectSlug, weekID string) (*Insights, error)
}

// TitleResolver looks up display titles for task reference URLs, e.g.
// GitHub issue titles. Lookups are best-effort; failures leave the
// submitted title in place.
type TitleResolver interface {
	IssueTitle(ctx context.Context, url string) (string, error)
}

// Summarizer produces the executive summary text for a consolidated week.
type Summarizer interface {
	Summarize(ctx context.Context, cons domain.Consolidation) (string, error)
}

// Renderer writes a consolidated week to a PDF file and returns its path.
type Renderer interface {
	Render(cons domain.Consolidation, insights *Insights, summary string, fileName string) (string, error)
}
