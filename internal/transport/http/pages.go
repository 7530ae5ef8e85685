package http

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rsd-team/rsd-service/internal/week"
	"github.com/rsd-team/rsd-service/pkg/logger/sl"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type landingProject struct {
	Slug string
	Name string
}

type formTeam struct {
	Slug    string   `json:"slug"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type formPage struct {
	ProjectSlug  string
	ProjectName  string
	Week         string
	SelectedTeam string
	Teams        []formTeam
	TeamsJSON    template.JS
}

func (s *Server) getFormsLanding(w http.ResponseWriter, r *http.Request) {
	projects := make([]landingProject, 0, s.projects.Len())

	for _, slug := range s.projects.Slugs() {
		_, project, err := s.projects.Project(slug)
		if err != nil {
			continue
		}

		projects = append(projects, landingProject{Slug: slug, Name: project.Name})
	}

	s.renderPage(w, "landing.html", map[string]any{"Projects": projects})
}

func (s *Server) getProjectForm(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.getProjectForm"

	slug, project, err := s.projects.Project(chi.URLParam(r, "projectSlug"))
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	weekID := r.URL.Query().Get("week")
	if weekID == "" {
		weekID = week.CurrentID(time.Now())
	}

	teams := make([]formTeam, 0)
	for teamSlug, team := range project.ResolvedTeams() {
		teams = append(teams, formTeam{Slug: teamSlug, Name: team.Name, Members: team.Members})
	}

	sort.Slice(teams, func(i, j int) bool { return teams[i].Slug < teams[j].Slug })

	// Pre-marshaled so the roster can be used by the form script without a
	// second request.
	teamsJSON, err := json.Marshal(teams)
	if err != nil {
		s.handleServiceError(w, op, err)
		return
	}

	s.renderPage(w, "form.html", formPage{
		ProjectSlug:  slug,
		ProjectName:  project.Name,
		Week:         weekID,
		SelectedTeam: r.URL.Query().Get("team"),
		Teams:        teams,
		TeamsJSON:    template.JS(teamsJSON),
	})
}

func (s *Server) renderPage(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("failed to render page", sl.Err(err))
	}
}
