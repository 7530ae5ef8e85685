package domain

import (
	"time"
)

// Report is one developer's weekly submission, unique per
// (week_id, project_slug, team_slug, developer_name).
type Report struct {
	ID                      int64     `db:"id"`
	WeekID                  string    `db:"week_id"`
	ProjectSlug             string    `db:"project_slug"`
	ProjectName             string    `db:"project_name"`
	TeamSlug                string    `db:"team_slug"`
	TeamName                string    `db:"team_name"`
	DeveloperName           string    `db:"developer_name"`
	Summary                 string    `db:"summary"`
	Progress                string    `db:"progress"`
	HadDifficulties         bool      `db:"had_difficulties"`
	DifficultiesDescription string    `db:"difficulties_description"`
	NextSteps               string    `db:"next_steps"`
	HadDeliveries           bool      `db:"had_deliveries"`
	DeliveriesNotes         string    `db:"deliveries_notes"`
	DeliveriesLinks         []string  `db:"-"`
	SelfAssessment          int       `db:"self_assessment"`
	NextWeekExpectation     int       `db:"next_week_expectation"`
	CreatedAt               time.Time `db:"created_at"`
	Tasks                   []Task    `db:"-"`
}

// Task is one line item of a report.
type Task struct {
	ID         int64      `db:"id"`
	ReportID   int64      `db:"report_id"`
	TaskURL    string     `db:"task_url"`
	Title      string     `db:"title"`
	StartDate  time.Time  `db:"start_date"`
	EndDate    *time.Time `db:"end_date"`
	DaysSpent  int        `db:"days_spent"`
	Difficulty *float64   `db:"difficulty"`
	CreatedAt  time.Time  `db:"created_at"`
}

// Aggregates are the per-scope summary statistics shown on report covers.
type Aggregates struct {
	ReportCount         int     `json:"report_count"`
	TaskCount           int     `json:"task_count"`
	DeliveryCount       int     `json:"delivery_count"`
	DifficultyCount     int     `json:"difficulty_count"`
	AvgSelfAssessment   float64 `json:"avg_self_assessment"`
	AvgNextWeek         float64 `json:"avg_next_week_expectation"`
	DeliveriesPercent   int     `json:"deliveries_percent"`
	DifficultiesPercent int     `json:"difficulties_percent"`
}

// TeamGroup is one team's reports within a consolidated week.
type TeamGroup struct {
	TeamSlug string     `json:"team_slug"`
	TeamName string     `json:"team_name"`
	Reports  []Report   `json:"reports"`
	Stats    Aggregates `json:"stats"`
}

// ProjectGroup is one project's consolidated teams.
type ProjectGroup struct {
	ProjectSlug string      `json:"project_slug"`
	ProjectName string      `json:"project_name"`
	Teams       []TeamGroup `json:"teams"`
	Stats       Aggregates  `json:"stats"`
}

// Consolidation is the full grouped view of a week's reports for a scope:
// projects ordered alphabetically, teams alphabetical within each project.
type Consolidation struct {
	WeekID      string         `json:"week_id"`
	PeriodLabel string         `json:"period_label"`
	Projects    []ProjectGroup `json:"projects"`
	Stats       Aggregates     `json:"stats"`
}

// Reports returns every report in the consolidation, in group order.
func (c Consolidation) Reports() []Report {
	var out []Report
	for _, project := range c.Projects {
		for _, team := range project.Teams {
			out = append(out, team.Reports...)
		}
	}

	return out
}
