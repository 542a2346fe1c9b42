package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/reachforge/puppet/internal/dto"
	"github.com/reachforge/puppet/internal/models"
)

type GateServiceMock struct {
	mock.Mock
}

func (m *GateServiceMock) Submit(ctx context.Context, req *dto.SubmitRequest) (*dto.SubmitResponse, error) {
	args := m.Called(ctx, req)

	resp, _ := args.Get(0).(*dto.SubmitResponse)
	return resp, args.Error(1)
}

func (m *GateServiceMock) Approve(ctx context.Context, req *dto.ApproveRequest) (*dto.ApproveResponse, error) {
	args := m.Called(ctx, req)

	resp, _ := args.Get(0).(*dto.ApproveResponse)
	return resp, args.Error(1)
}

func (m *GateServiceMock) UpdateConsent(ctx context.Context, req *dto.ConsentUpdateRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *GateServiceMock) CheckDispatch(ctx context.Context, userID string) (*models.UserAutomationSettings, error) {
	args := m.Called(ctx, userID)

	s, _ := args.Get(0).(*models.UserAutomationSettings)
	return s, args.Error(1)
}
