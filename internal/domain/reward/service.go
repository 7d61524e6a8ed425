package reward

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"changelog/internal/infrastructure/storage"
	"changelog/internal/scheduler"

	"golang.org/x/exp/slog"
)

const (
	DefaultCooldown   = 6 * time.Hour
	PlayerPlaceholder = "%player%"

	cooldownKeyPrefix = "cooldown:"
	hydrateKey        = "cooldowns"
)

var ErrUnknownType = errors.New("unknown reward type")

// Policy - настройки одного типа награды
type Policy struct {
	Enabled  bool
	Chance   int // 0..100, шанс в процентах при просмотре журнала
	Cooldown time.Duration
	Command  string
}

// Grant - выданная награда; команду исполняет вызывающая сторона
type Grant struct {
	Player  string `json:"player"`
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
}

type Servicer interface {
	Enabled(rewardType string) bool
	CanClaim(playerID, rewardType string) bool
	Claim(playerID, rewardType string) (Grant, bool, error)
	RemainingHours(playerID, rewardType string) int64
	Roll(playerID string) (Grant, bool)
	Types() []string
}

type Service struct {
	cache    *Cache
	policies map[string]Policy
	names    []string
	backend  storage.Backend
	pool     *scheduler.Pool
	log      *slog.Logger
	now      func() time.Time
	intn     func(n int) int
}

var _ Servicer = (*Service)(nil)

func NewService(
	cache *Cache,
	policies map[string]Policy,
	backend storage.Backend,
	pool *scheduler.Pool,
	log *slog.Logger,
) *Service {
	names := make([]string, 0, len(policies))
	normalized := make(map[string]Policy, len(policies))
	for name, p := range policies {
		if p.Cooldown <= 0 {
			p.Cooldown = DefaultCooldown
		}
		normalized[name] = p
		names = append(names, name)
	}
	slices.Sort(names)

	return &Service{
		cache:    cache,
		policies: normalized,
		names:    names,
		backend:  backend,
		pool:     pool,
		log:      log.With(slog.String("component", "reward_service")),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		intn:     rand.IntN,
	}
}

// Types returns configured reward types in name order.
func (s *Service) Types() []string {
	return slices.Clone(s.names)
}

func (s *Service) Enabled(rewardType string) bool {
	return s.policies[rewardType].Enabled
}

func (s *Service) cooldown(rewardType string) time.Duration {
	if p, ok := s.policies[rewardType]; ok {
		return p.Cooldown
	}
	return DefaultCooldown
}

func (s *Service) CanClaim(playerID, rewardType string) bool {
	return s.cache.CanClaim(playerID, rewardType, s.cooldown(rewardType), s.now())
}

// Claim выдает награду, если тип включен и кулдаун прошел.
// Сохранение выполняется асинхронно; при ошибке записи награда остается выданной.
func (s *Service) Claim(playerID, rewardType string) (Grant, bool, error) {
	p, ok := s.policies[rewardType]
	if !ok {
		return Grant{}, false, fmt.Errorf("claim %q: %w", rewardType, ErrUnknownType)
	}
	if !p.Enabled {
		return Grant{}, false, nil
	}
	if !s.claim(playerID, rewardType, p) {
		return Grant{}, false, nil
	}
	return s.grant(playerID, rewardType, p), true, nil
}

// RemainingHours округляет вверх до целого часа, 0 - награда доступна
func (s *Service) RemainingHours(playerID, rewardType string) int64 {
	rem := s.cache.Remaining(playerID, rewardType, s.cooldown(rewardType), s.now())
	if rem <= 0 {
		return 0
	}
	return int64(rem/time.Hour) + 1
}

// Roll бросает шанс по каждому включенному типу в порядке имен и выдает первую доступную награду.
func (s *Service) Roll(playerID string) (Grant, bool) {
	for _, name := range s.names {
		p := s.policies[name]
		if !p.Enabled {
			continue
		}
		if s.intn(100) >= p.Chance {
			continue
		}
		if s.claim(playerID, name, p) {
			return s.grant(playerID, name, p), true
		}
	}
	return Grant{}, false
}

// Hydrate загружает кулдауны из хранилища
func (s *Service) Hydrate(ctx context.Context) error {
	cooldowns, err := scheduler.Await(ctx, s.pool, hydrateKey, s.backend.LoadAllCooldowns)
	if err != nil {
		return fmt.Errorf("hydrate cooldowns: %w", err)
	}
	s.cache.Hydrate(cooldowns, s.now())

	s.log.Info("cooldowns loaded", slog.Int("players", len(cooldowns)))
	return nil
}

func (s *Service) claim(playerID, rewardType string, p Policy) bool {
	at := s.now()
	if !s.cache.Claim(playerID, rewardType, p.Cooldown, at) {
		s.log.Debug("reward on cooldown",
			slog.String("player", playerID),
			slog.String("type", rewardType),
		)
		return false
	}

	err := s.pool.Submit(cooldownKeyPrefix+playerID, func(ctx context.Context) func() {
		if err := s.backend.UpsertCooldown(ctx, playerID, rewardType, at); err != nil {
			s.log.Error("failed to save cooldown",
				slog.String("player", playerID),
				slog.String("type", rewardType),
				slog.String("kind", storage.Kind(err)),
				slog.String("error", err.Error()),
			)
		}
		return nil
	})
	if err != nil {
		s.log.Error("failed to schedule cooldown save", slog.String("error", err.Error()))
	}
	return true
}

func (s *Service) grant(playerID, rewardType string, p Policy) Grant {
	s.log.Info("reward granted",
		slog.String("player", playerID),
		slog.String("type", rewardType),
	)
	return Grant{
		Player:  playerID,
		Type:    rewardType,
		Command: strings.ReplaceAll(p.Command, PlayerPlaceholder, playerID),
	}
}
