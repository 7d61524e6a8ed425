// Package storagetest содержит мок хранилища для тестов доменных сервисов.
package storagetest

import (
	"context"
	"time"

	"changelog/internal/domain/record"
	"changelog/internal/infrastructure/storage"

	"github.com/stretchr/testify/mock"
)

// MockBackend is a testify mock of storage.Backend.
type MockBackend struct {
	mock.Mock
	mode storage.Mode
}

var _ storage.Backend = (*MockBackend)(nil)

func NewMockBackend(mode storage.Mode) *MockBackend {
	return &MockBackend{mode: mode}
}

func (m *MockBackend) Mode() storage.Mode {
	return m.mode
}

func (m *MockBackend) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockBackend) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockBackend) LoadAll(ctx context.Context) (storage.Snapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(storage.Snapshot), args.Error(1)
}

func (m *MockBackend) Insert(ctx context.Context, rec record.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockBackend) Update(ctx context.Context, id, content string, at time.Time) error {
	args := m.Called(ctx, id, content, at)
	return args.Error(0)
}

func (m *MockBackend) SoftDelete(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockBackend) PruneDeleted(ctx context.Context, retention time.Duration) (int, error) {
	args := m.Called(ctx, retention)
	return args.Int(0), args.Error(1)
}

func (m *MockBackend) UpsertVisit(ctx context.Context, playerID string, at time.Time) error {
	args := m.Called(ctx, playerID, at)
	return args.Error(0)
}

func (m *MockBackend) GetVisit(ctx context.Context, playerID string) (time.Time, bool, error) {
	args := m.Called(ctx, playerID)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

func (m *MockBackend) UpsertCooldown(ctx context.Context, playerID, rewardType string, at time.Time) error {
	args := m.Called(ctx, playerID, rewardType, at)
	return args.Error(0)
}

func (m *MockBackend) LoadAllCooldowns(ctx context.Context) (storage.Cooldowns, error) {
	args := m.Called(ctx)
	return args.Get(0).(storage.Cooldowns), args.Error(1)
}
