// Package rewardtest содержит мок сервиса наград.
package rewardtest

import (
	"changelog/internal/domain/reward"

	"github.com/stretchr/testify/mock"
)

type MockService struct {
	mock.Mock
}

var _ reward.Servicer = (*MockService)(nil)

func (m *MockService) Enabled(rewardType string) bool {
	return m.Called(rewardType).Bool(0)
}

func (m *MockService) CanClaim(playerID, rewardType string) bool {
	return m.Called(playerID, rewardType).Bool(0)
}

func (m *MockService) Claim(playerID, rewardType string) (reward.Grant, bool, error) {
	args := m.Called(playerID, rewardType)
	return args.Get(0).(reward.Grant), args.Bool(1), args.Error(2)
}

func (m *MockService) RemainingHours(playerID, rewardType string) int64 {
	return m.Called(playerID, rewardType).Get(0).(int64)
}

func (m *MockService) Roll(playerID string) (reward.Grant, bool) {
	args := m.Called(playerID)
	return args.Get(0).(reward.Grant), args.Bool(1)
}

func (m *MockService) Types() []string {
	return m.Called().Get(0).([]string)
}
