package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rsd-team/rsd-service/internal/apperrors"
	"github.com/rsd-team/rsd-service/internal/config"
	"github.com/rsd-team/rsd-service/internal/domain"
	"github.com/rsd-team/rsd-service/internal/repository"
	"github.com/rsd-team/rsd-service/internal/validation"
	"github.com/rsd-team/rsd-service/internal/week"
	"github.com/rsd-team/rsd-service/pkg/logger/sl"
)

// GeneratedFile is one PDF produced by a generation run.
type GeneratedFile struct {
	WeekID      string `json:"week_id"`
	ProjectSlug string `json:"project_slug"`
	TeamSlug    string `json:"team_slug,omitempty"`
	FileName    string `json:"file_name"`
	Path        string `json:"-"`
}

type GenerateService interface {
	// Generate builds the weekly PDFs. An empty projectSlug covers every
	// configured project; a non-empty teamSlug narrows to one team.
	Generate(ctx context.Context, weekID, projectSlug, teamSlug string) ([]GeneratedFile, error)
}

type GenerateServiceImpl struct {
	log        *slog.Logger
	repo       repository.ReportRepository
	projects   config.ProjectSet
	insights   InsightsBuilder
	summarizer Summarizer
	renderer   Renderer
	titles     TitleResolver
	now        nowFunc
}

func NewGenerateService(
	log *slog.Logger,
	repo repository.ReportRepository,
	projects config.ProjectSet,
	insights InsightsBuilder,
	summarizer Summarizer,
	renderer Renderer,
	titles TitleResolver,
) *GenerateServiceImpl {
	return &GenerateServiceImpl{
		log:        log,
		repo:       repo,
		projects:   projects,
		insights:   insights,
		summarizer: summarizer,
		renderer:   renderer,
		titles:     titles,
		now:        time.Now,
	}
}

func (s *GenerateServiceImpl) Generate(ctx context.Context, weekID, projectSlug, teamSlug string) ([]GeneratedFile, error) {
	const op = "internal.service.generate.Generate"

	if weekID == "" {
		weekID = week.CurrentID(s.now())
	} else if _, _, err := week.Parse(weekID); err != nil {
		return nil, &validation.ValidationError{Errors: []string{err.Error()}}
	}

	slugs := s.projects.Slugs()
	explicit := projectSlug != ""

	if explicit {
		resolved, _, err := s.projects.Project(projectSlug)
		if err != nil {
			return nil, err
		}

		slugs = []string{resolved}
	}

	if teamSlug != "" {
		if !explicit {
			return nil, &validation.ValidationError{Errors: []string{"team requires a project"}}
		}

		if _, _, err := s.projects.Team(slugs[0], teamSlug); err != nil {
			return nil, err
		}
	}

	var files []GeneratedFile

	for _, slug := range slugs {
		file, err := s.generateOne(ctx, weekID, slug, teamSlug)
		if err != nil {
			if errors.Is(err, apperrors.ErrNoReports) && !explicit {
				continue
			}

			return nil, err
		}

		files = append(files, *file)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: week %s", apperrors.ErrNoReports, weekID)
	}

	return files, nil
}

func (s *GenerateServiceImpl) generateOne(ctx context.Context, weekID, projectSlug, teamSlug string) (*GeneratedFile, error) {
	const op = "internal.service.generate.generateOne"
	log := s.log.With(
		slog.String("op", op),
		slog.String("week_id", weekID),
		slog.String("project_slug", projectSlug),
	)

	reports, err := s.repo.ListReports(ctx, weekID, projectSlug, teamSlug)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list reports: %w", op, err)
	}

	if len(reports) == 0 {
		return nil, fmt.Errorf("%w: %s week %s", apperrors.ErrNoReports, projectSlug, weekID)
	}

	cons := Consolidate(weekID, reports)

	if s.titles != nil {
		s.resolveTaskTitles(ctx, log, cons)
	}

	// GitHub and LLM sections are best-effort; a failing integration drops
	// its section instead of failing the whole generation.
	var insights *Insights
	if s.insights != nil {
		if insights, err = s.insights.Build(ctx, projectSlug, weekID); err != nil {
			log.Warn("skipping project charts", sl.Err(err))
			insights = nil
		}
	}

	var summary string
	if s.summarizer != nil {
		if summary, err = s.summarizer.Summarize(ctx, cons); err != nil {
			log.Warn("skipping executive summary", sl.Err(err))
			summary = ""
		}
	}

	_, fileName, err := week.FileName(weekID, projectSlug, teamSlug)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	path, err := s.renderer.Render(cons, insights, summary, fileName)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to render pdf: %w", op, err)
	}

	log.Info("pdf generated", slog.String("file", fileName))

	return &GeneratedFile{
		WeekID:      weekID,
		ProjectSlug: projectSlug,
		TeamSlug:    teamSlug,
		FileName:    fileName,
		Path:        path,
	}, nil
}

// resolveTaskTitles replaces submitted task titles with the titles of the
// issues behind their reference URLs. Lookups are best-effort and cached
// per URL within one generation; a failed lookup keeps the submitted title.
func (s *GenerateServiceImpl) resolveTaskTitles(ctx context.Context, log *slog.Logger, cons domain.Consolidation) {
	resolved := map[string]string{}

	for _, project := range cons.Projects {
		for _, team := range project.Teams {
			for _, report := range team.Reports {
				for i := range report.Tasks {
					url := report.Tasks[i].TaskURL
					if url == "" {
						continue
					}

					title, ok := resolved[url]
					if !ok {
						var err error
						if title, err = s.titles.IssueTitle(ctx, url); err != nil {
							log.Debug("issue title lookup failed",
								slog.String("task_url", url), sl.Err(err))
							title = ""
						}

						resolved[url] = title
					}

					if title != "" {
						report.Tasks[i].Title = title
					}
				}
			}
		}
	}
}
