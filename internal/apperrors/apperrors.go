package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")

	ErrInvalidRequest = errors.New("invalid request body")

	ErrUnknownProject = errors.New("unknown project")
	ErrUnknownTeam    = errors.New("unknown team")
	ErrAmbiguousTeam  = errors.New("team not provided for project with multiple teams")
	ErrUnknownMember  = errors.New("developer does not belong to the selected team")

	ErrNoReports      = errors.New("no reports found for the requested scope")
	ErrMissingWebhook = errors.New("webhook not configured: provide webhook_url or configure PROJECT_TEAMS_CONFIG")
)

// DuplicateReportError signals that a report for the same
// (week, project, team, developer) tuple already exists and the
// submission did not request an overwrite.
type DuplicateReportError struct {
	WeekID        string
	ProjectSlug   string
	TeamSlug      string
	DeveloperName string
}

func (e *DuplicateReportError) Error() string {
	return fmt.Sprintf("report for %s by '%s' (%s/%s) already exists",
		e.WeekID, e.DeveloperName, e.ProjectSlug, e.TeamSlug)
}

func (e *DuplicateReportError) Is(target error) bool { return target == ErrAlreadyExists }
