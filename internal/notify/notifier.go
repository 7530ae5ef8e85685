package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rsd-team/rsd-service/internal/apperrors"
	"github.com/rsd-team/rsd-service/internal/config"
	"github.com/rsd-team/rsd-service/internal/service"
	"github.com/rsd-team/rsd-service/internal/week"
	"github.com/rsd-team/rsd-service/pkg/logger/sl"
)

// MessageOverrides customizes the title and text of a collect message;
// empty fields keep the defaults.
type MessageOverrides struct {
	Title string
	Text  string
}

// Notifier builds and sends the collect and publish announcements. Publish
// regenerates the PDF before announcing it so the linked file is current.
type Notifier struct {
	log       *slog.Logger
	sender    *Sender
	projects  config.ProjectSet
	channels  config.ChannelSet
	generator service.GenerateService
	baseURL   string
	now       func() time.Time
}

func NewNotifier(
	log *slog.Logger,
	sender *Sender,
	projects config.ProjectSet,
	channels config.ChannelSet,
	generator service.GenerateService,
	baseURL string,
) *Notifier {
	return &Notifier{
		log:       log,
		sender:    sender,
		projects:  projects,
		channels:  channels,
		generator: generator,
		baseURL:   strings.TrimRight(baseURL, "/"),
		now:       time.Now,
	}
}

// resolveScope validates the project/team pair and fills in the webhook
// and week defaults.
func (n *Notifier) resolveScope(projectSlug, teamSlug, weekID, webhookURL string) (string, string, string, string, error) {
	projectSlug, _, err := n.projects.Project(projectSlug)
	if err != nil {
		return "", "", "", "", err
	}

	if teamSlug != "" {
		if teamSlug, _, err = n.projects.Team(projectSlug, teamSlug); err != nil {
			return "", "", "", "", err
		}
	}

	if weekID == "" {
		weekID = week.CurrentID(n.now())
	} else if _, _, err := week.Parse(weekID); err != nil {
		return "", "", "", "", err
	}

	if webhookURL == "" {
		webhookURL = n.channels.ResolveWebhook(projectSlug, teamSlug)
	}
	if webhookURL == "" {
		return "", "", "", "", apperrors.ErrMissingWebhook
	}

	return projectSlug, teamSlug, weekID, webhookURL, nil
}

// SendCollect announces the report form for a week, linking straight to it.
func (n *Notifier) SendCollect(ctx context.Context, projectSlug, teamSlug, weekID, webhookURL string, overrides MessageOverrides) error {
	const op = "internal.notify.Notifier.SendCollect"

	projectSlug, teamSlug, weekID, webhookURL, err := n.resolveScope(projectSlug, teamSlug, weekID, webhookURL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	formLink := fmt.Sprintf("%s/%s/form?week=%s", n.baseURL, projectSlug, weekID)
	if teamSlug != "" {
		formLink += "&team=" + teamSlug
	}

	title := overrides.Title
	if title == "" {
		title = "Reminder: weekly status report"
	}

	text := overrides.Text
	if text == "" {
		text = fmt.Sprintf("Please fill in the status report for week %s. "+
			"Click the button below to open the form.", weekID)
	}

	if err := n.sender.Send(ctx, webhookURL, title, text, formLink, "Open form"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n.log.Info("collect notification sent",
		slog.String("op", op),
		slog.String("project_slug", projectSlug),
		slog.String("team_slug", teamSlug),
		slog.String("week_id", weekID),
	)

	return nil
}

// SendPublish regenerates the weekly PDF and announces the download link.
func (n *Notifier) SendPublish(ctx context.Context, projectSlug, teamSlug, weekID, webhookURL string, overrides MessageOverrides) error {
	const op = "internal.notify.Notifier.SendPublish"

	projectSlug, teamSlug, weekID, webhookURL, err := n.resolveScope(projectSlug, teamSlug, weekID, webhookURL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := n.generator.Generate(ctx, weekID, projectSlug, teamSlug); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	linkURL := fmt.Sprintf("%s/rsd/%s/%s.pdf", n.baseURL, projectSlug, weekID)
	if teamSlug != "" {
		linkURL = fmt.Sprintf("%s/rsd/%s/%s/%s.pdf", n.baseURL, projectSlug, teamSlug, weekID)
	}

	scope := projectSlug
	if teamSlug != "" {
		scope = teamSlug
	}

	title := overrides.Title
	if title == "" {
		title = "Report published - " + projectSlug
	}

	text := overrides.Text
	if text == "" {
		text = fmt.Sprintf("The status report PDF for week %s (%s) is available. "+
			"Click the button below to open it.", weekID, scope)
	}

	if err := n.sender.Send(ctx, webhookURL, title, text, linkURL, "Open PDF"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n.log.Info("publish notification sent",
		slog.String("op", op),
		slog.String("project_slug", projectSlug),
		slog.String("team_slug", teamSlug),
		slog.String("week_id", weekID),
	)

	return nil
}

// logSendError keeps scheduler jobs quiet on failure; the webhook sender
// already retried.
func (n *Notifier) logSendError(kind string, err error) {
	n.log.Error("scheduled notification failed", slog.String("kind", kind), sl.Err(err))
}
