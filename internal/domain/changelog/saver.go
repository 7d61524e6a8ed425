package changelog

import (
	"context"
	"time"

	"changelog/internal/infrastructure/storage"
	"changelog/internal/scheduler"

	"golang.org/x/exp/slog"
)

const saveKey = "save"

// Saver - цикл сохранения для файлового хранилища.
// Если запись документа не удалась, следующий тик повторит ее, не дожидаясь новой мутации.
type Saver struct {
	flusher  storage.Flusher
	pool     *scheduler.Pool
	interval time.Duration
	log      *slog.Logger
}

func NewSaver(flusher storage.Flusher, pool *scheduler.Pool, interval time.Duration, log *slog.Logger) *Saver {
	return &Saver{
		flusher:  flusher,
		pool:     pool,
		interval: interval,
		log:      log.With(slog.String("component", "file_saver")),
	}
}

// Run возвращается после отмены ctx
func (s *Saver) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.schedule()
		}
	}
}

func (s *Saver) schedule() {
	if !s.flusher.Dirty() {
		return
	}
	err := s.pool.Submit(saveKey, func(context.Context) func() {
		if err := s.flusher.Flush(); err != nil {
			s.log.Error("retry of data file save failed",
				slog.String("kind", storage.Kind(err)),
				slog.String("error", err.Error()),
			)
			return nil
		}
		s.log.Info("data file saved after earlier failure")
		return nil
	})
	if err != nil {
		s.log.Warn("failed to schedule save", slog.String("error", err.Error()))
	}
}
