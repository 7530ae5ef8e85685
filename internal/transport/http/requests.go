package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rsd-team/rsd-service/internal/apperrors"
	"github.com/rsd-team/rsd-service/internal/service"
)

// parseFormBool accepts the values HTML checkboxes and curl users actually
// send.
func parseFormBool(value string) bool {
	switch value {
	case "1", "on", "true", "yes":
		return true
	default:
		return false
	}
}

// parseSubmitForm decodes a form-encoded report submission. Tasks and
// delivery links arrive as JSON-valued form fields so the form can edit
// them dynamically.
func parseSubmitForm(r *http.Request, projectSlug string) (service.SubmitReportInput, error) {
	var input service.SubmitReportInput

	if err := r.ParseForm(); err != nil {
		return input, fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, err)
	}

	form := r.PostForm

	selfAssessment, err := strconv.Atoi(form.Get("self_assessment"))
	if err != nil {
		return input, fmt.Errorf("%w: self_assessment must be a number", apperrors.ErrInvalidRequest)
	}

	nextWeek, err := strconv.Atoi(form.Get("next_week_expectation"))
	if err != nil {
		return input, fmt.Errorf("%w: next_week_expectation must be a number", apperrors.ErrInvalidRequest)
	}

	var tasks []service.TaskInput
	if raw := form.Get("tasks_json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
			return input, fmt.Errorf("%w: invalid tasks format: %w", apperrors.ErrInvalidRequest, err)
		}
	}

	var links []string
	if raw := form.Get("deliveries_links_json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &links); err != nil {
			return input, fmt.Errorf("%w: invalid deliveries links: %w", apperrors.ErrInvalidRequest, err)
		}
	}
	if len(links) == 0 && form.Get("deliveries_link") != "" {
		links = []string{form.Get("deliveries_link")}
	}

	input = service.SubmitReportInput{
		WeekID:                  form.Get("week_id"),
		ProjectSlug:             projectSlug,
		TeamSlug:                form.Get("team_slug"),
		DeveloperName:           form.Get("developer_name"),
		Summary:                 form.Get("summary"),
		Progress:                form.Get("progress"),
		HadDifficulties:         parseFormBool(form.Get("had_difficulties")),
		DifficultiesDescription: form.Get("difficulties_description"),
		NextSteps:               form.Get("next_steps"),
		HadDeliveries:           parseFormBool(form.Get("had_deliveries")),
		DeliveriesNotes:         form.Get("deliveries_notes"),
		DeliveriesLinks:         links,
		SelfAssessment:          selfAssessment,
		NextWeekExpectation:     nextWeek,
		Tasks:                   tasks,
		Overwrite:               parseFormBool(form.Get("overwrite")),
	}

	return input, nil
}

// notifyParams are the query parameters shared by the collect and publish
// notification endpoints.
type notifyParams struct {
	Week        string
	ProjectSlug string
	TeamSlug    string
	Title       string
	Text        string
	WebhookURL  string
}

func parseNotifyParams(r *http.Request) notifyParams {
	q := r.URL.Query()

	return notifyParams{
		Week:        q.Get("week"),
		ProjectSlug: q.Get("project_slug"),
		TeamSlug:    q.Get("team"),
		Title:       q.Get("title"),
		Text:        q.Get("text"),
		WebhookURL:  q.Get("webhook_url"),
	}
}
