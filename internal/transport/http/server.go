// package http implements the HTTP transport layer for the service: form
// pages, the report API, PDF generation and downloads, and the manual
// notification endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rsd-team/rsd-service/internal/apperrors"
	"github.com/rsd-team/rsd-service/internal/config"
	"github.com/rsd-team/rsd-service/internal/domain"
	"github.com/rsd-team/rsd-service/internal/notify"
	"github.com/rsd-team/rsd-service/internal/service"
	"github.com/rsd-team/rsd-service/internal/validation"
	"github.com/rsd-team/rsd-service/internal/week"
	"github.com/rsd-team/rsd-service/pkg/logger/sl"
)

// Notifier sends the collect/publish announcements. Satisfied by
// notify.Notifier.
type Notifier interface {
	SendCollect(ctx context.Context, projectSlug, teamSlug, weekID, webhookURL string, overrides notify.MessageOverrides) error
	SendPublish(ctx context.Context, projectSlug, teamSlug, weekID, webhookURL string, overrides notify.MessageOverrides) error
}

// Pinger reports database liveness for the health endpoint.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	log       *slog.Logger
	reports   service.ReportService
	generator service.GenerateService
	notifier  Notifier
	projects  config.ProjectSet
	db        Pinger
	baseURL   string
	dataDir   string
	startedAt time.Time
}

func NewServer(
	log *slog.Logger,
	reports service.ReportService,
	generator service.GenerateService,
	notifier Notifier,
	projects config.ProjectSet,
	db Pinger,
	baseURL string,
	dataDir string,
) *Server {
	return &Server{
		log:       log,
		reports:   reports,
		generator: generator,
		notifier:  notifier,
		projects:  projects,
		db:        db,
		baseURL:   baseURL,
		dataDir:   dataDir,
		startedAt: time.Now(),
	}
}

// Routes sets up the router with all middleware and endpoints. Static
// prefixes (rsd, teams, form) are matched before the project slug routes.
func (s *Server) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(s.requestID)
	mux.Use(s.logRequest)
	mux.Use(s.metricsMiddleware)

	mux.Handle("/metrics", promhttp.Handler())
	mux.Get("/health", s.getHealth)

	mux.Get("/form", s.getFormsLanding)

	mux.Post("/rsd/generate", s.postGenerate)
	mux.Get("/rsd/{week}.pdf", s.getPDFDefault)
	mux.Get("/rsd/{projectSlug}/{week}.pdf", s.getPDFProject)
	mux.Get("/rsd/{projectSlug}/{teamSlug}/{week}.pdf", s.getPDFTeam)

	mux.Post("/teams/notify/collect", s.postNotifyCollect)
	mux.Post("/teams/notify/publish", s.postNotifyPublish)

	mux.Get("/{projectSlug}/form", s.getProjectForm)
	mux.Get("/{projectSlug}/reports", s.getReports)
	mux.Post("/{projectSlug}/reports", s.postReport)

	return mux
}

type taskResponse struct {
	TaskURL    string   `json:"task_url,omitempty"`
	Title      string   `json:"title"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date,omitempty"`
	DaysSpent  int      `json:"days_spent"`
	Difficulty *float64 `json:"difficulty,omitempty"`
}

type reportResponse struct {
	ID                      int64          `json:"id"`
	WeekID                  string         `json:"week_id"`
	ProjectSlug             string         `json:"project_slug"`
	ProjectName             string         `json:"project_name"`
	TeamSlug                string         `json:"team_slug"`
	TeamName                string         `json:"team_name"`
	DeveloperName           string         `json:"developer_name"`
	Summary                 string         `json:"summary"`
	Progress                string         `json:"progress,omitempty"`
	HadDifficulties         bool           `json:"had_difficulties"`
	DifficultiesDescription string         `json:"difficulties_description,omitempty"`
	NextSteps               string         `json:"next_steps,omitempty"`
	HadDeliveries           bool           `json:"had_deliveries"`
	DeliveriesNotes         string         `json:"deliveries_notes,omitempty"`
	DeliveriesLinks         []string       `json:"deliveries_links,omitempty"`
	SelfAssessment          int            `json:"self_assessment"`
	NextWeekExpectation     int            `json:"next_week_expectation"`
	CreatedAt               time.Time      `json:"created_at"`
	Tasks                   []taskResponse `json:"tasks"`
}

func toReportResponse(report domain.Report) reportResponse {
	tasks := make([]taskResponse, len(report.Tasks))
	for i, task := range report.Tasks {
		tasks[i] = taskResponse{
			TaskURL:    task.TaskURL,
			Title:      task.Title,
			StartDate:  task.StartDate.Format("2006-01-02"),
			DaysSpent:  task.DaysSpent,
			Difficulty: task.Difficulty,
		}
		if task.EndDate != nil {
			tasks[i].EndDate = task.EndDate.Format("2006-01-02")
		}
	}

	return reportResponse{
		ID:                      report.ID,
		WeekID:                  report.WeekID,
		ProjectSlug:             report.ProjectSlug,
		ProjectName:             report.ProjectName,
		TeamSlug:                report.TeamSlug,
		TeamName:                report.TeamName,
		DeveloperName:           report.DeveloperName,
		Summary:                 report.Summary,
		Progress:                report.Progress,
		HadDifficulties:         report.HadDifficulties,
		DifficultiesDescription: report.DifficultiesDescription,
		NextSteps:               report.NextSteps,
		HadDeliveries:           report.HadDeliveries,
		DeliveriesNotes:         report.DeliveriesNotes,
		DeliveriesLinks:         report.DeliveriesLinks,
		SelfAssessment:          report.SelfAssessment,
		NextWeekExpectation:     report.NextWeekExpectation,
		CreatedAt:               report.CreatedAt,
		Tasks:                   tasks,
	}
}

func (s *Server) postReport(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.postReport"

	input, err := parseSubmitForm(r, chi.URLParam(r, "projectSlug"))
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	report, err := s.reports.Submit(r.Context(), input)
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	reportsSubmittedTotal.WithLabelValues(report.ProjectSlug).Inc()

	s.respond(w, http.StatusCreated, toReportResponse(*report))
}

func (s *Server) getReports(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.getReports"

	reports, err := s.reports.List(
		r.Context(),
		r.URL.Query().Get("week"),
		chi.URLParam(r, "projectSlug"),
		r.URL.Query().Get("team"),
	)
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	out := make([]reportResponse, len(reports))
	for i, report := range reports {
		out[i] = toReportResponse(report)
	}

	s.respond(w, http.StatusOK, out)
}

func (s *Server) postGenerate(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.postGenerate"

	q := r.URL.Query()
	requestID := uuid.NewString()

	files, err := s.generator.Generate(r.Context(), q.Get("week"), q.Get("project_slug"), q.Get("team"))
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	for _, file := range files {
		pdfGeneratedTotal.WithLabelValues(file.ProjectSlug).Inc()
	}

	s.respond(w, http.StatusOK, map[string]any{
		"status":     "generated",
		"pdf":        files[0].FileName,
		"files":      files,
		"request_id": requestID,
	})
}

func (s *Server) getPDFDefault(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.getPDFDefault"

	projectSlug, _, err := s.projects.Project("")
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.servePDF(w, r, op, chi.URLParam(r, "week"), projectSlug, "")
}

func (s *Server) getPDFProject(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.getPDFProject"

	s.servePDF(w, r, op, chi.URLParam(r, "week"), chi.URLParam(r, "projectSlug"), "")
}

func (s *Server) getPDFTeam(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.getPDFTeam"

	s.servePDF(w, r, op, chi.URLParam(r, "week"), chi.URLParam(r, "projectSlug"), chi.URLParam(r, "teamSlug"))
}

func (s *Server) servePDF(w http.ResponseWriter, r *http.Request, op, weekID, projectSlug, teamSlug string) {
	_, fileName, err := week.FileName(weekID, projectSlug, teamSlug)
	if err != nil {
		s.handleServiceError(w, op, fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, err))
		return
	}

	path := filepath.Join(s.dataDir, "rsd", fileName)
	if _, err := os.Stat(path); err != nil {
		s.respondError(w, http.StatusNotFound, "PDF not found")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+fileName+`"`)
	http.ServeFile(w, r, path)
}

func (s *Server) postNotifyCollect(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.postNotifyCollect"

	params := parseNotifyParams(r)
	overrides := notify.MessageOverrides{Title: params.Title, Text: params.Text}

	if err := s.notifier.SendCollect(r.Context(), params.ProjectSlug, params.TeamSlug, params.Week, params.WebhookURL, overrides); err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]string{"status": "sent", "type": "collect"})
}

func (s *Server) postNotifyPublish(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.postNotifyPublish"

	params := parseNotifyParams(r)
	overrides := notify.MessageOverrides{Title: params.Title, Text: params.Text}

	if err := s.notifier.SendPublish(r.Context(), params.ProjectSlug, params.TeamSlug, params.Week, params.WebhookURL, overrides); err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]string{"status": "sent", "type": "publish"})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			dbStatus = "unreachable"
		}
	}

	projects := map[string]any{}
	for _, slug := range s.projects.Slugs() {
		_, project, err := s.projects.Project(slug)
		if err != nil {
			continue
		}

		teams := make([]string, 0, len(project.ResolvedTeams()))
		for teamSlug := range project.ResolvedTeams() {
			teams = append(teams, teamSlug)
		}

		projects[slug] = map[string]any{"name": project.Name, "teams": teams}
	}

	s.respond(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"base_url":       s.baseURL,
		"started_at":     s.startedAt.UTC().Format(time.RFC3339),
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"db":             map[string]string{"status": dbStatus},
		"projects":       projects,
	})
}

// respond encodes data as JSON, centralizing the Content-Type header and
// status code.
func (s *Server) respond(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.log.Error("failed to encode response", sl.Err(err))
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, code int, message string) {
	s.respond(w, code, map[string]string{"error": message})
}

// handleServiceError provides centralized error handling for all HTTP
// handlers, logging the internal error and mapping it to a response.
func (s *Server) handleServiceError(w http.ResponseWriter, op string, err error) {
	log := s.log.With(slog.String("op", op))
	log.Error("service error occurred", sl.Err(err))

	var validationErr *validation.ValidationError

	switch {
	case errors.As(err, &validationErr):
		s.respondError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, apperrors.ErrAlreadyExists):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, apperrors.ErrNoReports):
		s.respondError(w, http.StatusNotFound, apperrors.ErrNoReports.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		s.respondError(w, http.StatusNotFound, apperrors.ErrNotFound.Error())
	case errors.Is(err, apperrors.ErrInvalidRequest),
		errors.Is(err, apperrors.ErrUnknownProject),
		errors.Is(err, apperrors.ErrUnknownTeam),
		errors.Is(err, apperrors.ErrAmbiguousTeam),
		errors.Is(err, apperrors.ErrUnknownMember),
		errors.Is(err, apperrors.ErrMissingWebhook):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
