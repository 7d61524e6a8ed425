// Package changelogtest содержит мок фасада журнала для тестов обработчиков.
package changelogtest

import (
	"context"
	"time"

	"changelog/internal/domain/changelog"
	"changelog/internal/domain/record"
	"changelog/internal/infrastructure/storage"

	"github.com/stretchr/testify/mock"
)

type MockService struct {
	mock.Mock
}

var _ changelog.Servicer = (*MockService)(nil)

func (m *MockService) Add(ctx context.Context, content, author, category string) (record.Record, error) {
	args := m.Called(ctx, content, author, category)
	return args.Get(0).(record.Record), args.Error(1)
}

func (m *MockService) Edit(ctx context.Context, id, content string) (bool, error) {
	args := m.Called(ctx, id, content)
	return args.Bool(0), args.Error(1)
}

func (m *MockService) Update(ctx context.Context, id, content string) (record.Record, bool, error) {
	args := m.Called(ctx, id, content)
	return args.Get(0).(record.Record), args.Bool(1), args.Error(2)
}

func (m *MockService) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockService) ListActive() []record.Record {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]record.Record)
}

func (m *MockService) FindActive(id string) (record.Record, bool) {
	args := m.Called(id)
	return args.Get(0).(record.Record), args.Bool(1)
}

func (m *MockService) OrdinalOf(id string) string {
	args := m.Called(id)
	return args.String(0)
}

func (m *MockService) RecordVisit(ctx context.Context, playerID string) error {
	args := m.Called(ctx, playerID)
	return args.Error(0)
}

func (m *MockService) LastSeen(playerID string) (time.Time, bool) {
	args := m.Called(playerID)
	return args.Get(0).(time.Time), args.Bool(1)
}

func (m *MockService) NewSinceLastSeen(playerID string) int {
	args := m.Called(playerID)
	return args.Int(0)
}

func (m *MockService) Reload(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockService) Mode() storage.Mode {
	args := m.Called()
	return args.Get(0).(storage.Mode)
}
