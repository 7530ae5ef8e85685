//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsd-team/rsd-service/internal/apperrors"
	"github.com/rsd-team/rsd-service/internal/domain"
)

func newTestReport() *domain.Report {
	end := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	diff := 3.0

	return &domain.Report{
		WeekID:                  "2026-W05",
		ProjectSlug:             "agrosmart",
		ProjectName:             "Agrosmart",
		TeamSlug:                "backend",
		TeamName:                "Agrosmart Backend",
		DeveloperName:           "Alice",
		Summary:                 "Implemented the ingest pipeline",
		Progress:                "on_track",
		HadDifficulties:         true,
		DifficultiesDescription: "Flaky broker in staging",
		NextSteps:               "Wire the alerting rules",
		HadDeliveries:           true,
		DeliveriesNotes:         "Ingest service v0.3",
		DeliveriesLinks:         []string{"https://github.com/org/repo/pull/42"},
		SelfAssessment:          4,
		NextWeekExpectation:     3,
		Tasks: []domain.Task{
			{
				TaskURL:    "https://github.com/org/repo/issues/7",
				Title:      "Ingest pipeline",
				StartDate:  time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC),
				EndDate:    &end,
				DaysSpent:  3,
				Difficulty: &diff,
			},
		},
	}
}

func TestReportRepository_CreateReport(t *testing.T) {
	repo := NewReportRepository(testDB, logger)
	ctx := context.Background()

	t.Run("creates report with tasks", func(t *testing.T) {
		truncateTables(t, testDB)

		id, err := repo.CreateReport(ctx, newTestReport(), false)
		require.NoError(t, err)
		assert.Greater(t, id, int64(0))

		reports, err := repo.ListReports(ctx, "2026-W05", "agrosmart", "backend")
		require.NoError(t, err)
		require.Len(t, reports, 1)
		assert.Equal(t, "Alice", reports[0].DeveloperName)
		require.Len(t, reports[0].Tasks, 1)
		assert.Equal(t, "Ingest pipeline", reports[0].Tasks[0].Title)
		assert.Equal(t, []string{"https://github.com/org/repo/pull/42"}, reports[0].DeliveriesLinks)
	})

	t.Run("duplicate without overwrite returns conflict", func(t *testing.T) {
		truncateTables(t, testDB)

		_, err := repo.CreateReport(ctx, newTestReport(), false)
		require.NoError(t, err)

		_, err = repo.CreateReport(ctx, newTestReport(), false)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

		var dup *apperrors.DuplicateReportError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "Alice", dup.DeveloperName)
	})

	t.Run("overwrite replaces report and tasks", func(t *testing.T) {
		truncateTables(t, testDB)

		firstID, err := repo.CreateReport(ctx, newTestReport(), false)
		require.NoError(t, err)

		updated := newTestReport()
		updated.Summary = "Rewrote the ingest pipeline"
		updated.Tasks = nil

		secondID, err := repo.CreateReport(ctx, updated, true)
		require.NoError(t, err)
		assert.Equal(t, firstID, secondID)

		reports, err := repo.ListReports(ctx, "2026-W05", "agrosmart", "backend")
		require.NoError(t, err)
		require.Len(t, reports, 1)
		assert.Equal(t, "Rewrote the ingest pipeline", reports[0].Summary)
		assert.Empty(t, reports[0].Tasks)
	})

	t.Run("same developer in another team is not a duplicate", func(t *testing.T) {
		truncateTables(t, testDB)

		_, err := repo.CreateReport(ctx, newTestReport(), false)
		require.NoError(t, err)

		other := newTestReport()
		other.TeamSlug = "frontend"

		_, err = repo.CreateReport(ctx, other, false)
		require.NoError(t, err)
	})
}

func TestReportRepository_ListReports(t *testing.T) {
	repo := NewReportRepository(testDB, logger)
	ctx := context.Background()

	t.Run("filters by team slug", func(t *testing.T) {
		truncateTables(t, testDB)

		backend := newTestReport()
		frontend := newTestReport()
		frontend.TeamSlug = "frontend"
		frontend.DeveloperName = "Bob"

		_, err := repo.CreateReport(ctx, backend, false)
		require.NoError(t, err)
		_, err = repo.CreateReport(ctx, frontend, false)
		require.NoError(t, err)

		reports, err := repo.ListReports(ctx, "2026-W05", "agrosmart", "frontend")
		require.NoError(t, err)
		require.Len(t, reports, 1)
		assert.Equal(t, "Bob", reports[0].DeveloperName)

		all, err := repo.ListReports(ctx, "2026-W05", "agrosmart", "")
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("empty week returns no reports", func(t *testing.T) {
		truncateTables(t, testDB)

		reports, err := repo.ListReports(ctx, "2026-W01", "agrosmart", "")
		require.NoError(t, err)
		assert.Empty(t, reports)
	})
}

func TestReportRepository_ListTeamSlugs(t *testing.T) {
	repo := NewReportRepository(testDB, logger)
	ctx := context.Background()

	truncateTables(t, testDB)

	for _, team := range []string{"backend", "frontend", "backend"} {
		r := newTestReport()
		r.TeamSlug = team
		r.DeveloperName = r.DeveloperName + "-" + team
		_, err := repo.CreateReport(ctx, r, true)
		require.NoError(t, err)
	}

	slugs, err := repo.ListTeamSlugs(ctx, "2026-W05", "agrosmart")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"backend", "frontend"}, slugs)
}
