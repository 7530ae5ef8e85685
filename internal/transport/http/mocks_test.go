package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rsd-team/rsd-service/internal/domain"
	"github.com/rsd-team/rsd-service/internal/notify"
	"github.com/rsd-team/rsd-service/internal/service"
)

type ReportServiceMock struct {
	mock.Mock
}

var _ service.ReportService = (*ReportServiceMock)(nil)

func (m *ReportServiceMock) Submit(ctx context.Context, input service.SubmitReportInput) (*domain.Report, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Report), args.Error(1)
}

func (m *ReportServiceMock) List(ctx context.Context, weekID, projectSlug, teamSlug string) ([]domain.Report, error) {
	args := m.Called(ctx, weekID, projectSlug, teamSlug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Report), args.Error(1)
}

type GenerateServiceMock struct {
	mock.Mock
}

var _ service.GenerateService = (*GenerateServiceMock)(nil)

func (m *GenerateServiceMock) Generate(ctx context.Context, weekID, projectSlug, teamSlug string) ([]service.GeneratedFile, error) {
	args := m.Called(ctx, weekID, projectSlug, teamSlug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]service.GeneratedFile), args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

var _ Notifier = (*NotifierMock)(nil)

func (m *NotifierMock) SendCollect(ctx context.Context, projectSlug, teamSlug, weekID, webhookURL string, overrides notify.MessageOverrides) error {
	args := m.Called(ctx, projectSlug, teamSlug, weekID, webhookURL, overrides)

	return args.Error(0)
}

func (m *NotifierMock) SendPublish(ctx context.Context, projectSlug, teamSlug, weekID, webhookURL string, overrides notify.MessageOverrides) error {
	args := m.Called(ctx, projectSlug, teamSlug, weekID, webhookURL, overrides)

	return args.Error(0)
}
