// Package open выбирает и подключает хранилище по конфигурации.
package open

import (
	"context"
	"fmt"

	"changelog/internal/config"
	"changelog/internal/infrastructure/storage"
	"changelog/internal/infrastructure/storage/file"
	"changelog/internal/infrastructure/storage/postgres"

	"golang.org/x/exp/slog"
)

// Backend подключает хранилище из cfg.Storage.Type.
// При fallback недоступный PostgreSQL заменяется файловым хранилищем.
func Backend(ctx context.Context, cfg *config.Config, log *slog.Logger, fallback bool) (storage.Backend, error) {
	if cfg.Storage.Type == config.StoragePostgres {
		pg := postgres.New(cfg.Database, log)
		err := pg.Connect(ctx)
		if err == nil {
			return pg, nil
		}
		if !fallback {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		log.Warn("postgres unavailable, falling back to file storage",
			slog.String("kind", storage.Kind(err)),
			slog.String("error", err.Error()),
			slog.String("path", cfg.File.Path),
		)
	}

	fb := file.New(cfg.File.Path, log)
	if err := fb.Connect(ctx); err != nil {
		return nil, fmt.Errorf("open file storage: %w", err)
	}
	return fb, nil
}

// Inspector возвращает backend как storage.Inspector, если он это умеет
func Inspector(b storage.Backend) storage.Inspector {
	ins, _ := b.(storage.Inspector)
	return ins
}
