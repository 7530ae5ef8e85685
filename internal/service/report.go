package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rsd-team/rsd-service/internal/apperrors"
	"github.com/rsd-team/rsd-service/internal/config"
	"github.com/rsd-team/rsd-service/internal/domain"
	"github.com/rsd-team/rsd-service/internal/repository"
	"github.com/rsd-team/rsd-service/internal/validation"
	"github.com/rsd-team/rsd-service/internal/week"
)

// TaskInput is one task line item as submitted through the form.
type TaskInput struct {
	TaskURL    string   `json:"task_url" validate:"omitempty,url"`
	Title      string   `json:"title" validate:"required"`
	StartDate  string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Difficulty *float64 `json:"difficulty" validate:"omitempty,min=1,max=5"`
}

// SubmitReportInput is a raw weekly report submission.
type SubmitReportInput struct {
	WeekID                  string `validate:"week_id"`
	ProjectSlug             string `validate:"omitempty,slug"`
	TeamSlug                string `validate:"omitempty,slug"`
	DeveloperName           string `validate:"required"`
	Summary                 string `validate:"required"`
	Progress                string
	HadDifficulties         bool
	DifficultiesDescription string
	NextSteps               string
	HadDeliveries           bool
	DeliveriesNotes         string
	DeliveriesLinks         []string    `validate:"dive,url"`
	SelfAssessment          int         `validate:"required,min=1,max=5"`
	NextWeekExpectation     int         `validate:"required,min=1,max=5"`
	Tasks                   []TaskInput `validate:"required,min=1,dive"`
	Overwrite               bool
}

type ReportService interface {
	Submit(ctx context.Context, input SubmitReportInput) (*domain.Report, error)
	List(ctx context.Context, weekID, projectSlug, teamSlug string) ([]domain.Report, error)
}

type ReportServiceImpl struct {
	log      *slog.Logger
	repo     repository.ReportRepository
	projects config.ProjectSet
	now      nowFunc
}

func NewReportService(log *slog.Logger, repo repository.ReportRepository, projects config.ProjectSet) *ReportServiceImpl {
	return &ReportServiceImpl{
		log:      log,
		repo:     repo,
		projects: projects,
		now:      time.Now,
	}
}

// Submit validates a submission, resolves its project and team, and stores
// the report with its tasks. Duplicate submissions for the same
// (week, project, team, developer) are rejected unless Overwrite is set.
func (s *ReportServiceImpl) Submit(ctx context.Context, input SubmitReportInput) (*domain.Report, error) {
	const op = "internal.service.report.Submit"
	log := s.log.With(
		slog.String("op", op),
		slog.String("project_slug", input.ProjectSlug),
		slog.String("developer", input.DeveloperName),
	)

	if err := validation.ValidateStruct(input); err != nil {
		return nil, err
	}

	projectSlug, project, err := s.projects.Project(input.ProjectSlug)
	if err != nil {
		return nil, err
	}

	teamSlug, team, err := s.projects.Team(projectSlug, input.TeamSlug)
	if err != nil {
		return nil, err
	}

	if !team.HasMember(input.DeveloperName) {
		return nil, fmt.Errorf("%w: %q is not on team %q", apperrors.ErrUnknownMember, input.DeveloperName, team.Name)
	}

	weekID := input.WeekID
	if weekID == "" {
		weekID = week.CurrentID(s.now())
	}

	tasks, err := buildTasks(input.Tasks)
	if err != nil {
		return nil, err
	}

	report := &domain.Report{
		WeekID:                  weekID,
		ProjectSlug:             projectSlug,
		ProjectName:             project.Name,
		TeamSlug:                teamSlug,
		TeamName:                team.Name,
		DeveloperName:           input.DeveloperName,
		Summary:                 input.Summary,
		Progress:                input.Progress,
		HadDifficulties:         input.HadDifficulties,
		DifficultiesDescription: input.DifficultiesDescription,
		NextSteps:               input.NextSteps,
		HadDeliveries:           input.HadDeliveries,
		DeliveriesNotes:         input.DeliveriesNotes,
		DeliveriesLinks:         input.DeliveriesLinks,
		SelfAssessment:          input.SelfAssessment,
		NextWeekExpectation:     input.NextWeekExpectation,
		Tasks:                   tasks,
	}

	id, err := s.repo.CreateReport(ctx, report, input.Overwrite)
	if err != nil {
		return nil, err
	}

	report.ID = id

	log.Info("report stored",
		slog.String("week_id", weekID),
		slog.String("team_slug", teamSlug),
		slog.Bool("overwrite", input.Overwrite),
	)

	return report, nil
}

// List returns the stored reports for a week, scoped to a project and
// optionally a team. The week defaults to the current ISO week.
func (s *ReportServiceImpl) List(ctx context.Context, weekID, projectSlug, teamSlug string) ([]domain.Report, error) {
	const op = "internal.service.report.List"

	if weekID == "" {
		weekID = week.CurrentID(s.now())
	} else if _, _, err := week.Parse(weekID); err != nil {
		return nil, &validation.ValidationError{Errors: []string{err.Error()}}
	}

	projectSlug, _, err := s.projects.Project(projectSlug)
	if err != nil {
		return nil, err
	}

	if teamSlug != "" {
		if teamSlug, _, err = s.projects.Team(projectSlug, teamSlug); err != nil {
			return nil, err
		}
	}

	reports, err := s.repo.ListReports(ctx, weekID, projectSlug, teamSlug)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list reports: %w", op, err)
	}

	return reports, nil
}

// buildTasks parses the submitted date strings and derives days spent as the
// inclusive day span, clamped at zero for inverted ranges. Tasks without an
// end date count as zero days.
func buildTasks(inputs []TaskInput) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0, len(inputs))

	for i, in := range inputs {
		start, err := time.Parse("2006-01-02", in.StartDate)
		if err != nil {
			return nil, &validation.ValidationError{
				Errors: []string{fmt.Sprintf("task %d: invalid start_date %q", i+1, in.StartDate)},
			}
		}

		task := domain.Task{
			TaskURL:    in.TaskURL,
			Title:      in.Title,
			StartDate:  start,
			Difficulty: in.Difficulty,
		}

		if in.EndDate != "" {
			end, err := time.Parse("2006-01-02", in.EndDate)
			if err != nil {
				return nil, &validation.ValidationError{
					Errors: []string{fmt.Sprintf("task %d: invalid end_date %q", i+1, in.EndDate)},
				}
			}

			task.EndDate = &end
			task.DaysSpent = daysSpent(start, end)
		}

		tasks = append(tasks, task)
	}

	return tasks, nil
}

func daysSpent(start, end time.Time) int {
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 0 {
		return 0
	}

	return days
}
