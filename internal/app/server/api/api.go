// GET    /health                                    # Состояние (публичный)
// GET    /api/records                               # Активные записи (auth)
// POST   /api/records                               # Добавить запись (auth)
// GET    /api/records/{id}                          # Получить запись (auth)
// PUT    /api/records/{id}                          # Изменить запись (auth)
// DELETE /api/records/{id}                          # Удалить запись (auth)
// POST   /api/players/{player}/visit                # Просмотр журнала + шанс награды (auth)
// GET    /api/players/{player}/summary              # Новые записи и кулдауны (auth)
// POST   /api/players/{player}/rewards/{type}/claim # Выдать награду (auth)
// POST   /api/admin/reload                          # Перечитать хранилище (auth)
// POST   /api/admin/gc                              # Сборка мусора (auth)
// GET    /api/admin/stats                           # Статистика хранилища (auth)

package api

import (
	adminAPI "changelog/internal/app/server/api/http/admin"
	healthAPI "changelog/internal/app/server/api/http/health"
	"changelog/internal/app/server/api/http/middleware"
	"changelog/internal/app/server/api/http/middleware/auth"
	"changelog/internal/app/server/api/http/middleware/logger"
	playerAPI "changelog/internal/app/server/api/http/player"
	recordAPI "changelog/internal/app/server/api/http/record"
	"changelog/internal/domain/changelog"
	"changelog/internal/domain/reward"
	"changelog/internal/infrastructure/storage"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

// Deps - сервисы, которые обслуживает HTTP слой
type Deps struct {
	Changelog     changelog.Servicer
	Rewards       *reward.Service
	Sweeper       adminAPI.Sweeper
	Inspector     storage.Inspector
	RetentionDays int
	APIToken      string
	// Storage - режим из конфигурации; отличается от активного после перехода на файл
	Storage storage.Mode
}

type Handlers struct {
	Health *healthAPI.Handler
	Record *recordAPI.Handler
	Player *playerAPI.Handler
	Admin  *adminAPI.Handler
}

// New создает *chi.Mux со всеми операциями через huma.Register
func New(deps Deps, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("Changelog API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)

	h := handlers(deps, log)
	h.Health.SetupRoutes(API)
	h.Record.SetupRoutes(API)
	h.Player.SetupRoutes(API)
	h.Admin.SetupRoutes(API)

	return mux
}

func handlers(deps Deps, log *slog.Logger) *Handlers {
	authMW := auth.New(deps.APIToken, log)
	loggerMW := logger.New(log, healthAPI.Path)
	middlewares := middleware.NewContainer()

	if deps.APIToken == "" {
		log.Warn("server.api_token is empty, only /health is served")
	}

	healthHandler := healthAPI.NewHandler(deps.Changelog, deps.Storage, log,
		middlewares.Add(loggerMW.Middleware()).GetAllAndClear())

	recordHandler := recordAPI.NewHandler(deps.Changelog, log,
		middlewares.Add(loggerMW.Middleware(), authMW.Middleware()).GetAllAndClear())

	playerHandler := playerAPI.NewHandler(deps.Changelog, deps.Rewards, log,
		middlewares.Add(loggerMW.Middleware(), authMW.Middleware()).GetAllAndClear())

	adminHandler := adminAPI.NewHandler(deps.Changelog, deps.Rewards, deps.Sweeper, deps.Inspector,
		deps.RetentionDays, log,
		middlewares.Add(loggerMW.Middleware(), authMW.Middleware()).GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		Record: recordHandler,
		Player: playerHandler,
		Admin:  adminHandler,
	}
}
