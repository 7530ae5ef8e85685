// package repository defines the interfaces for the data persistence layer.
// These interfaces abstract the underlying database implementation from the service layer.
package repository

import (
	"context"

	"github.com/rsd-team/rsd-service/internal/domain"
)

// ReportRepository defines the contract for storing and querying weekly reports.
type ReportRepository interface {
	// CreateReport inserts a report together with its tasks in one transaction.
	// When a report for the same (week, project, team, developer) already
	// exists it returns *apperrors.DuplicateReportError unless overwrite is
	// set, in which case the existing report and its tasks are fully replaced.
	// Returns the stored report id.
	CreateReport(ctx context.Context, report *domain.Report, overwrite bool) (int64, error)

	// ListReports returns reports for a week, hydrated with their tasks and
	// ordered by creation time. Empty projectSlug/teamSlug leave that
	// dimension unfiltered. An empty scope yields an empty slice, not an error.
	ListReports(ctx context.Context, weekID, projectSlug, teamSlug string) ([]domain.Report, error)

	// ListTeamSlugs returns the distinct team slugs holding reports for a
	// week and project, sorted alphabetically.
	ListTeamSlugs(ctx context.Context, weekID, projectSlug string) ([]string, error)
}
