// Package server собирает журнал изменений в один процесс: хранилище, главный цикл,
// пул воркеров, доменные сервисы, сборщик мусора и HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"changelog/internal/app/server/api"
	"changelog/internal/config"
	"changelog/internal/domain/changelog"
	"changelog/internal/domain/record"
	"changelog/internal/domain/reward"
	"changelog/internal/infrastructure/storage"
	"changelog/internal/infrastructure/storage/open"
	"changelog/internal/scheduler"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg *config.Config
	log *slog.Logger

	backend   storage.Backend
	loop      *scheduler.Loop
	pool      *scheduler.Pool
	changelog *changelog.Service
	rewards   *reward.Service
	sweeper   *changelog.Sweeper
	saver     *changelog.Saver
	http      *http.Server
}

// New подключает хранилище и собирает сервисы. Горутины запускает Start.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	backend, err := open.Backend(ctx, cfg, log, true)
	if err != nil {
		return nil, err
	}

	loop := scheduler.NewLoop(cfg.Worker.LoopQueueSize, log)
	pool := scheduler.NewPool(cfg.Worker.Size, cfg.Worker.QueueSize, cfg.Worker.JobTimeout, loop, log)

	validator := record.NewValidator(cfg.Limits.MinContentLength, cfg.Limits.MaxContentLength)
	cl := changelog.NewService(backend, validator, loop, pool, log)

	rewards := reward.NewService(
		reward.NewCache(cfg.Cooldowns.MaxPlayers, cfg.Cooldowns.ExpireAfter),
		Policies(cfg.Rewards),
		backend, pool, log,
	)

	sweeper := changelog.NewSweeper(backend, pool, changelog.SweeperConfig{
		RetentionDays: cfg.GC.RetentionDays,
		Interval:      cfg.GC.Interval,
		StartupSweep:  cfg.GC.StartupSweep,
		StartupDelay:  cfg.GC.StartupDelay,
	}, cl.Invalidate, log)

	a := &App{
		cfg:       cfg,
		log:       log,
		backend:   backend,
		loop:      loop,
		pool:      pool,
		changelog: cl,
		rewards:   rewards,
		sweeper:   sweeper,
	}
	if f, ok := backend.(storage.Flusher); ok {
		a.saver = changelog.NewSaver(f, pool, cfg.File.SaveInterval, log)
	}

	a.http = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      a.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return a, nil
}

// Policies переводит настройки наград из конфига в доменные
func Policies(rewards map[string]config.Reward) map[string]reward.Policy {
	out := make(map[string]reward.Policy, len(rewards))
	for name, r := range rewards {
		out[name] = reward.Policy{
			Enabled:  r.Enabled,
			Chance:   r.Chance,
			Cooldown: time.Duration(r.CooldownHours) * time.Hour,
			Command:  r.Command,
		}
	}
	return out
}

func (a *App) Handler() http.Handler {
	return api.New(api.Deps{
		Changelog:     a.changelog,
		Rewards:       a.rewards,
		Sweeper:       a.sweeper,
		Inspector:     open.Inspector(a.backend),
		RetentionDays: a.cfg.GC.RetentionDays,
		APIToken:      a.cfg.Server.APIToken,
		Storage:       storage.Mode(a.cfg.Storage.Type),
	}, a.log)
}

func (a *App) Changelog() *changelog.Service {
	return a.changelog
}

func (a *App) Rewards() *reward.Service {
	return a.rewards
}

// Start запускает главный цикл и воркеров и загружает состояние из хранилища.
// Недоступные кулдауны не мешают старту.
func (a *App) Start(ctx context.Context) error {
	go func() { _ = a.loop.Run(context.Background()) }()
	a.pool.Start(context.Background())

	if err := a.changelog.Reload(ctx); err != nil {
		return fmt.Errorf("load changelog: %w", err)
	}
	if err := a.rewards.Hydrate(ctx); err != nil {
		a.log.Warn("starting without persisted cooldowns",
			slog.String("kind", storage.Kind(err)),
			slog.String("error", err.Error()),
		)
	}

	a.log.Info("changelog started",
		slog.String("storage", string(a.backend.Mode())),
		slog.Int("workers", a.cfg.Worker.Size),
	)
	return nil
}

// Run работает до отмены ctx или ошибки HTTP сервера, затем корректно останавливается
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return errors.Join(err, a.Shutdown())
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("starting HTTP server", slog.String("address", a.cfg.Server.Address))
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.cfg.GC.Enabled {
		g.Go(func() error {
			return a.sweeper.Run(gctx)
		})
	}

	if a.saver != nil {
		g.Go(func() error {
			return a.saver.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown: HTTP, затем пул (дожидается поставленных записей), затем цикл, затем хранилище
func (a *App) Shutdown() error {
	var errs []error

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http: %w", err))
	}

	a.pool.Stop()
	a.loop.Stop()
	select {
	case <-a.loop.Done():
	case <-ctx.Done():
		errs = append(errs, errors.New("main loop did not stop in time"))
	}

	if err := a.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}

	a.log.Info("changelog stopped")
	return errors.Join(errs...)
}
