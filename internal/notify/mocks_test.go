package notify

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rsd-team/rsd-service/internal/service"
)

type GenerateServiceMock struct {
	mock.Mock
}

var _ service.GenerateService = (*GenerateServiceMock)(nil)

func (m *GenerateServiceMock) Generate(ctx context.Context, weekID, projectSlug, teamSlug string) ([]service.GeneratedFile, error) {
	args := m.Called(ctx, weekID, projectSlug, teamSlug)

	files, _ := args.Get(0).([]service.GeneratedFile)

	return files, args.Error(1)
}
