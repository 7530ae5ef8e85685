package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rsd-team/rsd-service/internal/domain"
	"github.com/rsd-team/rsd-service/internal/repository"
)

type ReportRepositoryMock struct {
	mock.Mock
}

var _ repository.ReportRepository = (*ReportRepositoryMock)(nil)

func (m *ReportRepositoryMock) CreateReport(ctx context.Context, report *domain.Report, overwrite bool) (int64, error) {
	args := m.Called(ctx, report, overwrite)

	return args.Get(0).(int64), args.Error(1)
}

func (m *ReportRepositoryMock) ListReports(ctx context.Context, weekID, projectSlug, teamSlug string) ([]domain.Report, error) {
	args := m.Called(ctx, weekID, projectSlug, teamSlug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Report), args.Error(1)
}

func (m *ReportRepositoryMock) ListTeamSlugs(ctx context.Context, weekID, projectSlug string) ([]string, error) {
	args := m.Called(ctx, weekID, projectSlug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

type InsightsBuilderMock struct {
	mock.Mock
}

var _ InsightsBuilder = (*InsightsBuilderMock)(nil)

func (m *InsightsBuilderMock) Build(ctx context.Context, projectSlug, weekID string) (*Insights, error) {
	args := m.Called(ctx, projectSlug, weekID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*Insights), args.Error(1)
}

type TitleResolverMock struct {
	mock.Mock
}

var _ TitleResolver = (*TitleResolverMock)(nil)

func (m *TitleResolverMock) IssueTitle(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)

	return args.String(0), args.Error(1)
}

type SummarizerMock struct {
	mock.Mock
}

var _ Summarizer = (*SummarizerMock)(nil)

func (m *SummarizerMock) Summarize(ctx context.Context, cons domain.Consolidation) (string, error) {
	args := m.Called(ctx, cons)

	return args.String(0), args.Error(1)
}

type RendererMock struct {
	mock.Mock
}

var _ Renderer = (*RendererMock)(nil)

func (m *RendererMock) Render(cons domain.Consolidation, insights *Insights, summary string, fileName string) (string, error) {
	args := m.Called(cons, insights, summary, fileName)

	return args.String(0), args.Error(1)
}
