package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rsd-team/rsd-service/internal/apperrors"
	"github.com/rsd-team/rsd-service/internal/domain"
	"github.com/rsd-team/rsd-service/pkg/logger/sl"
)

const pgUniqueViolation = "23505"

// ReportRepository persists weekly reports and their tasks in Postgres.
type ReportRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewReportRepository(db *sqlx.DB, log *slog.Logger) *ReportRepository {
	return &ReportRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// reportRow mirrors the reports table; deliveries_links is stored as JSONB.
type reportRow struct {
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
	DeliveriesLinks         []byte    `db:"deliveries_links"`
	SelfAssessment          int       `db:"self_assessment"`
	NextWeekExpectation     int       `db:"next_week_expectation"`
	CreatedAt               time.Time `db:"created_at"`
}

func (r reportRow) toDomain() (domain.Report, error) {
	report := domain.Report{
		ID:                      r.ID,
		WeekID:                  r.WeekID,
		ProjectSlug:             r.ProjectSlug,
		ProjectName:             r.ProjectName,
		TeamSlug:                r.TeamSlug,
		TeamName:                r.TeamName,
		DeveloperName:           r.DeveloperName,
		Summary:                 r.Summary,
		Progress:                r.Progress,
		HadDifficulties:         r.HadDifficulties,
		DifficultiesDescription: r.DifficultiesDescription,
		NextSteps:               r.NextSteps,
		HadDeliveries:           r.HadDeliveries,
		DeliveriesNotes:         r.DeliveriesNotes,
		SelfAssessment:          r.SelfAssessment,
		NextWeekExpectation:     r.NextWeekExpectation,
		CreatedAt:               r.CreatedAt,
	}

	if len(r.DeliveriesLinks) > 0 {
		if err := json.Unmarshal(r.DeliveriesLinks, &report.DeliveriesLinks); err != nil {
			return domain.Report{}, fmt.Errorf("failed to decode deliveries_links: %w", err)
		}
	}

	return report, nil
}

func (rr *ReportRepository) CreateReport(ctx context.Context, report *domain.Report, overwrite bool) (int64, error) {
	const op = "internal.repository.postgres.CreateReport"

	log := rr.log.With(
		slog.String("op", op),
		slog.String("week_id", report.WeekID),
		slog.String("project_slug", report.ProjectSlug),
		slog.String("developer", report.DeveloperName),
	)
	log.Info("storing report", slog.Bool("overwrite", overwrite))

	tx, err := rr.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Error("failed to rollback transaction", sl.Err(err))
		}
	}()

	existingID, err := rr.findExistingID(ctx, tx, report)
	if err != nil {
		return 0, err
	}

	if existingID != 0 && !overwrite {
		return 0, &apperrors.DuplicateReportError{
			WeekID:        report.WeekID,
			ProjectSlug:   report.ProjectSlug,
			TeamSlug:      report.TeamSlug,
			DeveloperName: report.DeveloperName,
		}
	}

	var reportID int64
	if existingID != 0 {
		reportID, err = rr.replaceReport(ctx, tx, existingID, report)
	} else {
		reportID, err = rr.insertReport(ctx, tx, report)
	}

	if err != nil {
		return 0, err
	}

	if err := rr.insertTasks(ctx, tx, reportID, report.Tasks); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info("report stored", slog.Int64("report_id", reportID))

	return reportID, nil
}

// findExistingID locks the existing row for the tuple, if any, so that a
// concurrent overwrite of the same report serializes on it.
func (rr *ReportRepository) findExistingID(ctx context.Context, tx *sqlx.Tx, report *domain.Report) (int64, error) {
	query, args, err := rr.sq.Select("id").
		From("reports").
		Where(sq.Eq{
			"week_id":        report.WeekID,
			"project_slug":   report.ProjectSlug,
			"team_slug":      report.TeamSlug,
			"developer_name": report.DeveloperName,
		}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build select existing query: %w", err)
	}

	var id int64
	if err := tx.GetContext(ctx, &id, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}

		return 0, fmt.Errorf("failed to check existing report: %w", err)
	}

	return id, nil
}

func (rr *ReportRepository) reportValues(report *domain.Report) (map[string]interface{}, error) {
	links := report.DeliveriesLinks
	if links == nil {
		links = []string{}
	}

	linksJSON, err := json.Marshal(links)
	if err != nil {
		return nil, fmt.Errorf("failed to encode deliveries_links: %w", err)
	}

	return map[string]interface{}{
		"week_id":                  report.WeekID,
		"project_slug":             report.ProjectSlug,
		"project_name":             report.ProjectName,
		"team_slug":                report.TeamSlug,
		"team_name":                report.TeamName,
		"developer_name":           report.DeveloperName,
		"summary":                  report.Summary,
		"progress":                 report.Progress,
		"had_difficulties":         report.HadDifficulties,
		"difficulties_description": report.DifficultiesDescription,
		"next_steps":               report.NextSteps,
		"had_deliveries":           report.HadDeliveries,
		"deliveries_notes":         report.DeliveriesNotes,
		"deliveries_links":         linksJSON,
		"self_assessment":          report.SelfAssessment,
		"next_week_expectation":    report.NextWeekExpectation,
	}, nil
}

func (rr *ReportRepository) insertReport(ctx context.Context, tx *sqlx.Tx, report *domain.Report) (int64, error) {
	values, err := rr.reportValues(report)
	if err != nil {
		return 0, err
	}

	query, args, err := rr.sq.Insert("reports").
		SetMap(values).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build report insert query: %w", err)
	}

	var id int64
	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pgUniqueViolation {
			return 0, &apperrors.DuplicateReportError{
				WeekID:        report.WeekID,
				ProjectSlug:   report.ProjectSlug,
				TeamSlug:      report.TeamSlug,
				DeveloperName: report.DeveloperName,
			}
		}

		return 0, fmt.Errorf("failed to execute report insert: %w", err)
	}

	return id, nil
}

// replaceReport overwrites the existing row in place and drops its tasks;
// the caller reinserts the new task set.
func (rr *ReportRepository) replaceReport(ctx context.Context, tx *sqlx.Tx, existingID int64, report *domain.Report) (int64, error) {
	values, err := rr.reportValues(report)
	if err != nil {
		return 0, err
	}

	query, args, err := rr.sq.Update("reports").
		SetMap(values).
		Set("created_at", sq.Expr("now()")).
		Where(sq.Eq{"id": existingID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build report update query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("failed to execute report update: %w", err)
	}

	deleteQuery, deleteArgs, err := rr.sq.Delete("tasks").
		Where(sq.Eq{"report_id": existingID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build tasks delete query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return 0, fmt.Errorf("failed to delete previous tasks: %w", err)
	}

	return existingID, nil
}

func (rr *ReportRepository) insertTasks(ctx context.Context, tx *sqlx.Tx, reportID int64, tasks []domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	insertBuilder := rr.sq.Insert("tasks").
		Columns("report_id", "task_url", "title", "start_date", "end_date", "days_spent", "difficulty")

	for _, task := range tasks {
		insertBuilder = insertBuilder.Values(
			reportID,
			task.TaskURL,
			task.Title,
			task.StartDate,
			task.EndDate,
			task.DaysSpent,
			task.Difficulty,
		)
	}

	query, args, err := insertBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build bulk tasks insert query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to execute bulk tasks insert: %w", err)
	}

	return nil
}

func (rr *ReportRepository) ListReports(ctx context.Context, weekID, projectSlug, teamSlug string) ([]domain.Report, error) {
	const op = "internal.repository.postgres.ListReports"

	where := sq.Eq{"week_id": weekID}
	if projectSlug != "" {
		where["project_slug"] = projectSlug
	}

	if teamSlug != "" {
		where["team_slug"] = teamSlug
	}

	query, args, err := rr.sq.Select(
		"id", "week_id", "project_slug", "project_name", "team_slug", "team_name",
		"developer_name", "summary", "progress", "had_difficulties",
		"difficulties_description", "next_steps", "had_deliveries",
		"deliveries_notes", "deliveries_links", "self_assessment",
		"next_week_expectation", "created_at",
	).
		From("reports").
		Where(where).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	var rows []reportRow
	if err := rr.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select reports: %w", op, err)
	}

	reports := make([]domain.Report, 0, len(rows))
	ids := make([]int64, 0, len(rows))

	for _, row := range rows {
		report, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		reports = append(reports, report)
		ids = append(ids, row.ID)
	}

	if len(ids) == 0 {
		return reports, nil
	}

	tasksByReport, err := rr.tasksByReport(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := range reports {
		reports[i].Tasks = tasksByReport[reports[i].ID]
	}

	return reports, nil
}

func (rr *ReportRepository) tasksByReport(ctx context.Context, reportIDs []int64) (map[int64][]domain.Task, error) {
	query, args, err := rr.sq.Select(
		"id", "report_id", "task_url", "title", "start_date", "end_date",
		"days_spent", "difficulty", "created_at",
	).
		From("tasks").
		Where(sq.Eq{"report_id": reportIDs}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select tasks query: %w", err)
	}

	var tasks []domain.Task
	if err := rr.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select tasks: %w", err)
	}

	byReport := make(map[int64][]domain.Task, len(reportIDs))
	for _, task := range tasks {
		byReport[task.ReportID] = append(byReport[task.ReportID], task)
	}

	return byReport, nil
}

func (rr *ReportRepository) ListTeamSlugs(ctx context.Context, weekID, projectSlug string) ([]string, error) {
	const op = "internal.repository.postgres.ListTeamSlugs"

	query, args, err := rr.sq.Select("DISTINCT team_slug").
		From("reports").
		Where(sq.Eq{"week_id": weekID, "project_slug": projectSlug}).
		OrderBy("team_slug ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build select query: %w", op, err)
	}

	var slugs []string
	if err := rr.db.SelectContext(ctx, &slugs, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to select team slugs: %w", op, err)
	}

	return slugs, nil
}
