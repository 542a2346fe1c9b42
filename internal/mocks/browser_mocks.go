package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/reachforge/puppet/internal/browser"
	"github.com/reachforge/puppet/internal/dto"
)

type SessionMock struct {
	mock.Mock
}

func (m *SessionMock) Navigate(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *SessionMock) CurrentURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *SessionMock) ElementVisible(ctx context.Context, selector string) (bool, error) {
	args := m.Called(ctx, selector)
	return args.Bool(0), args.Error(1)
}

func (m *SessionMock) VisibleText(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *SessionMock) Screenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)

	img, _ := args.Get(0).([]byte)
	return img, args.Error(1)
}

func (m *SessionMock) ClickConnect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *SessionMock) SendNote(ctx context.Context, message string) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *SessionMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

type FactoryMock struct {
	mock.Mock
}

func (m *FactoryMock) NewSession(ctx context.Context, opts browser.SessionOptions) (browser.Session, error) {
	args := m.Called(ctx, opts)

	s, _ := args.Get(0).(browser.Session)
	return s, args.Error(1)
}

type BlobStoreMock struct {
	mock.Mock
}

func (m *BlobStoreMock) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.String(0), args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) Publish(ctx context.Context, payload dto.NotificationPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}
