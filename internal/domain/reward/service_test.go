package reward

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"changelog/internal/infrastructure/storage"
	"changelog/internal/infrastructure/storage/storagetest"
	"changelog/internal/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func newTestService(t *testing.T, backend storage.Backend, policies map[string]Policy) (*Service, *scheduler.Pool) {
	t.Helper()
	loop := scheduler.NewLoop(16, slog.Default())
	go func() { _ = loop.Run(context.Background()) }()
	pool := scheduler.NewPool(2, 64, time.Second, loop, slog.Default())
	pool.Start(context.Background())
	t.Cleanup(func() {
		pool.Stop()
		loop.Stop()
		<-loop.Done()
	})

	s := NewService(NewCache(0, 0), policies, backend, pool, slog.Default())
	s.now = func() time.Time { return t0 }
	return s, pool
}

func defaultPolicies() map[string]Policy {
	return map[string]Policy{
		"daily":  {Enabled: true, Chance: 10, Command: "give %player% diamond 1"},
		"weekly": {Enabled: true, Chance: 100, Cooldown: 168 * time.Hour, Command: "give %player% emerald %player%"},
		"off":    {Enabled: false, Chance: 100},
	}
}

func TestService_ConcurrentClaim(t *testing.T) {
	backend := storagetest.NewMockBackend(storage.ModeFile)
	backend.On("UpsertCooldown", mock.Anything, "steve", "daily", t0).Return(nil)
	s, pool := newTestService(t, backend, defaultPolicies())

	var (
		wg      sync.WaitGroup
		granted atomic.Int32
		start   = make(chan struct{})
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, ok, err := s.Claim("steve", "daily")
			assert.NoError(t, err)
			if ok {
				granted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), granted.Load())
	require.NoError(t, pool.Wait(context.Background()))
	backend.AssertNumberOfCalls(t, "UpsertCooldown", 1)
}

func TestService_ClaimRendersCommand(t *testing.T) {
	backend := storagetest.NewMockBackend(storage.ModeFile)
	backend.On("UpsertCooldown", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s, _ := newTestService(t, backend, defaultPolicies())

	g, ok, err := s.Claim("alex", "weekly")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Grant{Player: "alex", Type: "weekly", Command: "give alex emerald alex"}, g)

	_, ok, err = s.Claim("alex", "off")
	require.NoError(t, err)
	assert.False(t, ok, "disabled type is never granted")

	_, _, err = s.Claim("alex", "monthly")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestService_RemainingHours(t *testing.T) {
	backend := storagetest.NewMockBackend(storage.ModeFile)
	backend.On("UpsertCooldown", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s, _ := newTestService(t, backend, defaultPolicies())

	assert.Equal(t, int64(0), s.RemainingHours("steve", "daily"))
	_, ok, err := s.Claim("steve", "daily")
	require.NoError(t, err)
	require.True(t, ok)

	cases := []struct {
		elapsed time.Duration
		want    int64
	}{
		{0, 7},
		{90 * time.Minute, 5},
		{5*time.Hour + 59*time.Minute, 1},
		{6 * time.Hour, 0},
		{10 * time.Hour, 0},
	}
	for _, tc := range cases {
		s.now = func() time.Time { return t0.Add(tc.elapsed) }
		assert.Equal(t, tc.want, s.RemainingHours("steve", "daily"), "elapsed %s", tc.elapsed)
	}

	s.now = func() time.Time { return t0.Add(6 * time.Hour) }
	assert.True(t, s.CanClaim("steve", "daily"))
}

func TestService_Roll(t *testing.T) {
	backend := storagetest.NewMockBackend(storage.ModeFile)
	backend.On("UpsertCooldown", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s, _ := newTestService(t, backend, defaultPolicies())

	// бросок 50: daily (10%) промахивается, weekly (100%) попадает
	s.intn = func(int) int { return 50 }
	g, ok := s.Roll("steve")
	require.True(t, ok)
	assert.Equal(t, "weekly", g.Type)

	// weekly на кулдауне, daily попадает
	s.intn = func(int) int { return 3 }
	g, ok = s.Roll("steve")
	require.True(t, ok)
	assert.Equal(t, "daily", g.Type)
	assert.Equal(t, "give steve diamond 1", g.Command)

	_, ok = s.Roll("steve")
	assert.False(t, ok, "everything on cooldown")

	assert.Equal(t, []string{"daily", "off", "weekly"}, s.Types())
}

func TestService_Hydrate(t *testing.T) {
	backend := storagetest.NewMockBackend(storage.ModePostgres)
	backend.On("LoadAllCooldowns", mock.Anything).Return(storage.Cooldowns{
		"steve": {"daily": t0.Add(-2 * time.Hour)},
	}, nil).Once()
	backend.On("LoadAllCooldowns", mock.Anything).Return(storage.Cooldowns(nil), storage.ErrUnavailable).Once()
	s, _ := newTestService(t, backend, defaultPolicies())

	require.NoError(t, s.Hydrate(context.Background()))
	assert.False(t, s.CanClaim("steve", "daily"))
	assert.Equal(t, int64(5), s.RemainingHours("steve", "daily"))

	err := s.Hydrate(context.Background())
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.False(t, s.CanClaim("steve", "daily"), "failed hydrate keeps the cache")
}
