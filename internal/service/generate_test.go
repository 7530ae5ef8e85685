package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rsd-team/rsd-service/internal/apperrors"
	"github.com/rsd-team/rsd-service/internal/domain"
)

func TestGenerateService_Generate(t *testing.T) {
	ctx := context.Background()

	newService := func(repo *ReportRepositoryMock, insights *InsightsBuilderMock, summarizer *SummarizerMock, renderer *RendererMock) *GenerateServiceImpl {
		svc := NewGenerateService(discardLogger(), repo, testProjects(t), nil, nil, renderer, nil)
		if insights != nil {
			svc.insights = insights
		}
		if summarizer != nil {
			svc.summarizer = summarizer
		}

		return svc
	}

	t.Run("generates one project pdf", func(t *testing.T) {
		repo := new(ReportRepositoryMock)
		insights := new(InsightsBuilderMock)
		summarizer := new(SummarizerMock)
		renderer := new(RendererMock)
		svc := newService(repo, insights, summarizer, renderer)

		reports := []domain.Report{report("agrosmart", "backend", "Ana")}
		built := &Insights{Burnup: &LineChart{Title: "Milestone burn-up"}}

		repo.On("ListReports", ctx, "2026-W05", "agrosmart", "").Return(reports, nil)
		insights.On("Build", ctx, "agrosmart", "2026-W05").Return(built, nil)
		summarizer.On("Summarize", ctx, mock.AnythingOfType("domain.Consolidation")).Return("A calm week.", nil)
		renderer.On("Render", mock.AnythingOfType("domain.Consolidation"), built, "A calm week.", "2026_01_30-w05-agrosmart.pdf").
			Return("/data/rsd/2026_01_30-w05-agrosmart.pdf", nil)

		files, err := svc.Generate(ctx, "2026-W05", "agrosmart", "")
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "2026_01_30-w05-agrosmart.pdf", files[0].FileName)
		assert.Equal(t, "/data/rsd/2026_01_30-w05-agrosmart.pdf", files[0].Path)

		renderer.AssertExpectations(t)
	})

	t.Run("team scope produces team file name", func(t *testing.T) {
		repo := new(ReportRepositoryMock)
		renderer := new(RendererMock)
		svc := newService(repo, nil, nil, renderer)

		repo.On("ListReports", ctx, "2026-W05", "agrosmart", "backend").
			Return([]domain.Report{report("agrosmart", "backend", "Ana")}, nil)
		renderer.On("Render", mock.AnythingOfType("domain.Consolidation"), (*Insights)(nil), "", "2026_01_30-w05-agrosmart-backend.pdf").
			Return("/data/rsd/2026_01_30-w05-agrosmart-backend.pdf", nil)

		files, err := svc.Generate(ctx, "2026-W05", "agrosmart", "backend")
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "backend", files[0].TeamSlug)
	})

	t.Run("failing integrations drop their sections", func(t *testing.T) {
		repo := new(ReportRepositoryMock)
		insights := new(InsightsBuilderMock)
		summarizer := new(SummarizerMock)
		renderer := new(RendererMock)
		svc := newService(repo, insights, summarizer, renderer)

		repo.On("ListReports", ctx, "2026-W05", "agrosmart", "").
			Return([]domain.Report{report("agrosmart", "backend", "Ana")}, nil)
		insights.On("Build", ctx, "agrosmart", "2026-W05").Return(nil, errors.New("github down"))
		summarizer.On("Summarize", ctx, mock.AnythingOfType("domain.Consolidation")).Return("", errors.New("llm down"))
		renderer.On("Render", mock.AnythingOfType("domain.Consolidation"), (*Insights)(nil), "", "2026_01_30-w05-agrosmart.pdf").
			Return("/data/rsd/2026_01_30-w05-agrosmart.pdf", nil)

		files, err := svc.Generate(ctx, "2026-W05", "agrosmart", "")
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("resolves task titles from their issue urls", func(t *testing.T) {
		repo := new(ReportRepositoryMock)
		renderer := new(RendererMock)
		titles := new(TitleResolverMock)
		svc := newService(repo, nil, nil, renderer)
		svc.titles = titles

		withTasks := func(r *domain.Report) {
			r.Tasks = []domain.Task{
				{TaskURL: "https://github.com/acme/farm/issues/42", Title: "submitted"},
				{TaskURL: "https://github.com/acme/farm/issues/42", Title: "submitted again"},
				{TaskURL: "https://github.com/acme/farm/issues/9", Title: "kept"},
				{Title: "no url"},
			}
		}

		repo.On("ListReports", ctx, "2026-W05", "agrosmart", "").
			Return([]domain.Report{report("agrosmart", "backend", "Ana", withTasks)}, nil)
		titles.On("IssueTitle", ctx, "https://github.com/acme/farm/issues/42").
			Return("Fix irrigation schedule", nil).Once()
		titles.On("IssueTitle", ctx, "https://github.com/acme/farm/issues/9").
			Return("", errors.New("not found")).Once()

		renderer.On("Render", mock.MatchedBy(func(cons domain.Consolidation) bool {
			tasks := cons.Projects[0].Teams[0].Reports[0].Tasks
			return tasks[0].Title == "Fix irrigation schedule" &&
				tasks[1].Title == "Fix irrigation schedule" &&
				tasks[2].Title == "kept" &&
				tasks[3].Title == "no url"
		}), (*Insights)(nil), "", "2026_01_30-w05-agrosmart.pdf").
			Return("/data/rsd/2026_01_30-w05-agrosmart.pdf", nil)

		_, err := svc.Generate(ctx, "2026-W05", "agrosmart", "")
		require.NoError(t, err)

		titles.AssertExpectations(t)
		renderer.AssertExpectations(t)
	})

	t.Run("explicit scope with no reports fails", func(t *testing.T) {
		repo := new(ReportRepositoryMock)
		svc := newService(repo, nil, nil, new(RendererMock))

		repo.On("ListReports", ctx, "2026-W05", "agrosmart", "").Return([]domain.Report{}, nil)

		_, err := svc.Generate(ctx, "2026-W05", "agrosmart", "")
		assert.ErrorIs(t, err, apperrors.ErrNoReports)
	})

	t.Run("all-projects run skips empty projects", func(t *testing.T) {
		repo := new(ReportRepositoryMock)
		renderer := new(RendererMock)
		svc := newService(repo, nil, nil, renderer)

		repo.On("ListReports", ctx, "2026-W05", "agrosmart", "").
			Return([]domain.Report{report("agrosmart", "backend", "Ana")}, nil)
		repo.On("ListReports", ctx, "2026-W05", "solo", "").Return([]domain.Report{}, nil)
		renderer.On("Render", mock.AnythingOfType("domain.Consolidation"), (*Insights)(nil), "", "2026_01_30-w05-agrosmart.pdf").
			Return("/data/rsd/2026_01_30-w05-agrosmart.pdf", nil)

		files, err := svc.Generate(ctx, "2026-W05", "", "")
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "agrosmart", files[0].ProjectSlug)
	})

	t.Run("unknown project is rejected", func(t *testing.T) {
		svc := newService(new(ReportRepositoryMock), nil, nil, new(RendererMock))

		_, err := svc.Generate(ctx, "2026-W05", "nope", "")
		assert.ErrorIs(t, err, apperrors.ErrUnknownProject)
	})

	t.Run("team without project is rejected", func(t *testing.T) {
		svc := newService(new(ReportRepositoryMock), nil, nil, new(RendererMock))

		_, err := svc.Generate(ctx, "2026-W05", "", "backend")
		assert.Error(t, err)
	})
}
