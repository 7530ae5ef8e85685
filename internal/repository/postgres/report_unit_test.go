package postgres

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsd-team/rsd-service/internal/apperrors"
	"github.com/rsd-team/rsd-service/internal/domain"
)

func newMockRepository(t *testing.T) (*ReportRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, smock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { mockDB.Close() })

	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewReportRepository(sqlxDB, log), smock
}

func testReport() *domain.Report {
	return &domain.Report{
		WeekID:              "2026-W05",
		ProjectSlug:         "agrosmart",
		ProjectName:         "AgroSmart",
		TeamSlug:            "backend",
		TeamName:            "Backend",
		DeveloperName:       "Ana Souza",
		Summary:             "Shipped the ingestion fixes.",
		SelfAssessment:      4,
		NextWeekExpectation: 5,
		Tasks: []domain.Task{
			{Title: "Fix ingestion", StartDate: time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC), DaysSpent: 1},
		},
	}
}

func TestCreateReportInsertsNew(t *testing.T) {
	repo, smock := newMockRepository(t)

	smock.ExpectBegin()
	smock.ExpectQuery("SELECT id FROM reports").
		WillReturnError(sql.ErrNoRows)
	smock.ExpectQuery("INSERT INTO reports").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	smock.ExpectExec("INSERT INTO tasks").
		WillReturnResult(sqlmock.NewResult(1, 1))
	smock.ExpectCommit()

	id, err := repo.CreateReport(context.Background(), testReport(), false)

	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, smock.ExpectationsWereMet())
}

func TestCreateReportDuplicateWithoutOverwrite(t *testing.T) {
	repo, smock := newMockRepository(t)

	smock.ExpectBegin()
	smock.ExpectQuery("SELECT id FROM reports").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	smock.ExpectRollback()

	_, err := repo.CreateReport(context.Background(), testReport(), false)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, smock.ExpectationsWereMet())
}

func TestCreateReportOverwriteReplacesInPlace(t *testing.T) {
	repo, smock := newMockRepository(t)

	smock.ExpectBegin()
	smock.ExpectQuery("SELECT id FROM reports").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	smock.ExpectExec("UPDATE reports").
		WillReturnResult(sqlmock.NewResult(0, 1))
	smock.ExpectExec("DELETE FROM tasks").
		WillReturnResult(sqlmock.NewResult(0, 2))
	smock.ExpectExec("INSERT INTO tasks").
		WillReturnResult(sqlmock.NewResult(1, 1))
	smock.ExpectCommit()

	id, err := repo.CreateReport(context.Background(), testReport(), true)

	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.NoError(t, smock.ExpectationsWereMet())
}

func TestListReportsDecodesDeliveriesLinks(t *testing.T) {
	repo, smock := newMockRepository(t)

	columns := []string{
		"id", "week_id", "project_slug", "project_name", "team_slug", "team_name",
		"developer_name", "summary", "progress", "had_difficulties",
		"difficulties_description", "next_steps", "had_deliveries",
		"deliveries_notes", "deliveries_links", "self_assessment",
		"next_week_expectation", "created_at",
	}

	createdAt := time.Date(2026, 1, 28, 12, 0, 0, 0, time.UTC)

	smock.ExpectQuery("SELECT id, week_id, .+ FROM reports").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			int64(1), "2026-W05", "agrosmart", "AgroSmart", "backend", "Backend",
			"Ana Souza", "Shipped fixes.", "", false, "", "", true,
			"", []byte(`["https://github.com/acme/pr/1"]`), 4, 5, createdAt,
		))
	smock.ExpectQuery("SELECT id, report_id, .+ FROM tasks").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "report_id", "task_url", "title", "start_date", "end_date",
			"days_spent", "difficulty", "created_at",
		}).AddRow(
			int64(10), int64(1), "", "Fix ingestion",
			time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC), nil, 1, nil, createdAt,
		))

	reports, err := repo.ListReports(context.Background(), "2026-W05", "agrosmart", "backend")

	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, []string{"https://github.com/acme/pr/1"}, reports[0].DeliveriesLinks)
	require.Len(t, reports[0].Tasks, 1)
	assert.Equal(t, "Fix ingestion", reports[0].Tasks[0].Title)
	assert.NoError(t, smock.ExpectationsWereMet())
}

func TestListReportsEmptyScope(t *testing.T) {
	repo, smock := newMockRepository(t)

	smock.ExpectQuery("SELECT id, week_id, .+ FROM reports").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	reports, err := repo.ListReports(context.Background(), "2026-W05", "", "")

	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.NoError(t, smock.ExpectationsWereMet())
}

func TestListTeamSlugs(t *testing.T) {
	repo, smock := newMockRepository(t)

	smock.ExpectQuery("SELECT DISTINCT team_slug FROM reports").
		WillReturnRows(sqlmock.NewRows([]string{"team_slug"}).
			AddRow("backend").
			AddRow("frontend"))

	slugs, err := repo.ListTeamSlugs(context.Background(), "2026-W05", "agrosmart")

	require.NoError(t, err)
	assert.Equal(t, []string{"backend", "frontend"}, slugs)
	assert.NoError(t, smock.ExpectationsWereMet())
}
