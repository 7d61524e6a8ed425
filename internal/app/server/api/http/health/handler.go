package health

import (
	"context"

	"changelog/internal/domain/changelog"
	"changelog/internal/infrastructure/storage"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	service    changelog.Servicer
	requested  storage.Mode
	log        *slog.Logger
	middleware huma.Middlewares
}

// NewHandler: requested - режим хранилища из конфигурации, пустой означает "как активный"
func NewHandler(service changelog.Servicer, requested storage.Mode, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		requested:  requested,
		log:        log.With(slog.String("component", "health_handler")),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

func (h *Handler) healthCheck(_ context.Context, _ *Input) (*Output, error) {
	active := h.service.Mode()
	requested := h.requested
	if requested == "" {
		requested = active
	}

	status := StatusOK
	if active != requested {
		status = StatusDegraded
		h.log.Debug("serving from fallback storage",
			slog.String("requested", string(requested)),
			slog.String("active", string(active)),
		)
	}

	return &Output{
		Body: Response{
			Status:    status,
			Storage:   string(active),
			Requested: string(requested),
			Records:   len(h.service.ListActive()),
		},
	}, nil
}
