package changelog

import (
	"context"
	"fmt"
	"time"

	"changelog/internal/infrastructure/storage"
	"changelog/internal/scheduler"

	"golang.org/x/exp/slog"
)

const gcKey = "gc"

// SweeperConfig - параметры фоновой очистки удаленных записей
type SweeperConfig struct {
	RetentionDays int
	Interval      time.Duration
	StartupSweep  bool
	StartupDelay  time.Duration
}

// Sweeper физически удаляет записи, помеченные удаленными дольше срока хранения.
type Sweeper struct {
	backend    storage.Backend
	pool       *scheduler.Pool
	cfg        SweeperConfig
	invalidate func()
	log        *slog.Logger
}

// NewSweeper. invalidate вызывается с воркера, если что-то было удалено.
func NewSweeper(
	backend storage.Backend,
	pool *scheduler.Pool,
	cfg SweeperConfig,
	invalidate func(),
	log *slog.Logger,
) *Sweeper {
	if invalidate == nil {
		invalidate = func() {}
	}
	return &Sweeper{
		backend:    backend,
		pool:       pool,
		cfg:        cfg,
		invalidate: invalidate,
		log:        log.With(slog.String("component", "gc_sweeper")),
	}
}

func retention(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

// Sweep удаляет записи напрямую, без пула
func (w *Sweeper) Sweep(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("sweep: retention must be positive, got %d days", retentionDays)
	}

	n, err := w.backend.PruneDeleted(ctx, retention(retentionDays))
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}
	if n > 0 {
		w.invalidate()
	}

	w.log.Info("gc sweep finished",
		slog.Int("removed", n),
		slog.Int("retention_days", retentionDays),
	)
	return n, nil
}

// SweepNow выполняет очистку на воркере и ждет результата
func (w *Sweeper) SweepNow(ctx context.Context, retentionDays int) (int, error) {
	return scheduler.Await(ctx, w.pool, gcKey, func(ctx context.Context) (int, error) {
		return w.Sweep(ctx, retentionDays)
	})
}

// Run запускает одноразовую очистку после задержки и периодическую по тикеру.
// Возвращается после отмены ctx.
func (w *Sweeper) Run(ctx context.Context) error {
	var startup <-chan time.Time
	if w.cfg.StartupSweep {
		timer := time.NewTimer(w.cfg.StartupDelay)
		defer timer.Stop()
		startup = timer.C
	}

	var tick <-chan time.Time
	if w.cfg.Interval > 0 {
		ticker := time.NewTicker(w.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	w.log.Debug("gc sweeper started",
		slog.Bool("startup_sweep", w.cfg.StartupSweep),
		slog.Duration("interval", w.cfg.Interval),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-startup:
			startup = nil
			w.schedule()
		case <-tick:
			w.schedule()
		}
	}
}

func (w *Sweeper) schedule() {
	err := w.pool.Submit(gcKey, func(ctx context.Context) func() {
		if _, err := w.Sweep(ctx, w.cfg.RetentionDays); err != nil {
			w.log.Error("gc sweep failed",
				slog.String("kind", storage.Kind(err)),
				slog.String("error", err.Error()),
			)
		}
		return nil
	})
	if err != nil {
		w.log.Warn("failed to schedule gc sweep", slog.String("error", err.Error()))
	}
}
