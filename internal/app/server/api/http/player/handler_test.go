package player

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"changelog/internal/domain/changelog/changelogtest"
	"changelog/internal/domain/reward"
	"changelog/internal/domain/reward/rewardtest"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.ErrorAs(t, err, &se)
	return se.GetStatus()
}

func TestHandler_Visit(t *testing.T) {
	ctx := context.Background()

	t.Run("WithReward", func(t *testing.T) {
		cl := new(changelogtest.MockService)
		rw := new(rewardtest.MockService)
		cl.On("NewSinceLastSeen", "steve").Return(4).Once()
		cl.On("RecordVisit", mock.Anything, "steve").Return(nil)
		grant := reward.Grant{Player: "steve", Type: "daily", Command: "give steve diamond 1"}
		rw.On("Roll", "steve").Return(grant, true)
		h := NewHandler(cl, rw, slog.Default(), nil)

		out, err := h.visit(ctx, &playerInput{Player: "steve"})
		require.NoError(t, err)
		assert.Equal(t, 4, out.Body.NewCount)
		require.NotNil(t, out.Body.Reward)
		assert.Equal(t, grant, *out.Body.Reward)
		cl.AssertExpectations(t)
	})

	t.Run("NoReward", func(t *testing.T) {
		cl := new(changelogtest.MockService)
		rw := new(rewardtest.MockService)
		cl.On("NewSinceLastSeen", "alex").Return(0)
		cl.On("RecordVisit", mock.Anything, "alex").Return(nil)
		rw.On("Roll", "alex").Return(reward.Grant{}, false)
		h := NewHandler(cl, rw, slog.Default(), nil)

		out, err := h.visit(ctx, &playerInput{Player: "alex"})
		require.NoError(t, err)
		assert.Nil(t, out.Body.Reward)
	})

	t.Run("LoopStopped", func(t *testing.T) {
		cl := new(changelogtest.MockService)
		rw := new(rewardtest.MockService)
		cl.On("NewSinceLastSeen", "alex").Return(0)
		cl.On("RecordVisit", mock.Anything, "alex").Return(fmt.Errorf("record visit: stopped"))
		h := NewHandler(cl, rw, slog.Default(), nil)

		_, err := h.visit(ctx, &playerInput{Player: "alex"})
		assert.Equal(t, http.StatusServiceUnavailable, statusOf(t, err))
		rw.AssertNotCalled(t, "Roll", mock.Anything)
	})
}

func TestHandler_Summary(t *testing.T) {
	seen := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cl := new(changelogtest.MockService)
	rw := new(rewardtest.MockService)
	cl.On("NewSinceLastSeen", "steve").Return(2)
	cl.On("LastSeen", "steve").Return(seen, true)
	rw.On("Types").Return([]string{"daily", "weekly"})
	rw.On("RemainingHours", "steve", "daily").Return(int64(3))
	rw.On("RemainingHours", "steve", "weekly").Return(int64(0))
	rw.On("Enabled", "daily").Return(true)
	rw.On("Enabled", "weekly").Return(false)
	h := NewHandler(cl, rw, slog.Default(), nil)

	out, err := h.summary(context.Background(), &playerInput{Player: "steve"})
	require.NoError(t, err)
	require.NotNil(t, out.Body.LastSeen)
	assert.Equal(t, seen, *out.Body.LastSeen)
	assert.Equal(t, 2, out.Body.NewCount)
	assert.Equal(t, []rewardStatus{
		{Type: "daily", Enabled: true, Available: false, RemainingHours: 3},
		{Type: "weekly", Enabled: false, Available: true, RemainingHours: 0},
	}, out.Body.Rewards)
}

func TestHandler_Claim(t *testing.T) {
	ctx := context.Background()
	grant := reward.Grant{Player: "steve", Type: "daily", Command: "give steve diamond 1"}

	rw := new(rewardtest.MockService)
	rw.On("Claim", "steve", "daily").Return(grant, true, nil).Once()
	rw.On("Claim", "steve", "daily").Return(reward.Grant{}, false, nil).Once()
	rw.On("Enabled", "daily").Return(true)
	rw.On("RemainingHours", "steve", "daily").Return(int64(6))
	rw.On("Claim", "steve", "monthly").Return(reward.Grant{}, false, fmt.Errorf("claim: %w", reward.ErrUnknownType))
	h := NewHandler(new(changelogtest.MockService), rw, slog.Default(), nil)

	out, err := h.claim(ctx, &claimInput{Player: "steve", Type: "daily"})
	require.NoError(t, err)
	assert.Equal(t, grant, out.Body)

	_, err = h.claim(ctx, &claimInput{Player: "steve", Type: "daily"})
	assert.Equal(t, http.StatusConflict, statusOf(t, err))
	assert.Contains(t, err.Error(), "6 more hour")

	_, err = h.claim(ctx, &claimInput{Player: "steve", Type: "monthly"})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}
