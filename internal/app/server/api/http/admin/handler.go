package admin

import (
	"context"

	"changelog/internal/domain/changelog"
	"changelog/internal/infrastructure/storage"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Hydrator interface {
	Hydrate(ctx context.Context) error
}

type Sweeper interface {
	SweepNow(ctx context.Context, retentionDays int) (int, error)
}

type Handler struct {
	changelog     changelog.Servicer
	cooldowns     Hydrator
	sweeper       Sweeper
	inspector     storage.Inspector
	retentionDays int
	log           *slog.Logger
	middleware    huma.Middlewares
}

// NewHandler. inspector может быть nil, тогда статистика недоступна.
func NewHandler(
	cl changelog.Servicer,
	cooldowns Hydrator,
	sweeper Sweeper,
	inspector storage.Inspector,
	retentionDays int,
	log *slog.Logger,
	mws huma.Middlewares,
) *Handler {
	return &Handler{
		changelog:     cl,
		cooldowns:     cooldowns,
		sweeper:       sweeper,
		inspector:     inspector,
		retentionDays: retentionDays,
		log:           log,
		middleware:    mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.reloadOp(), h.reload)
	huma.Register(api, h.gcOp(), h.gc)
	huma.Register(api, h.statsOp(), h.stats)
}

func (h *Handler) reload(ctx context.Context, _ *struct{}) (*reloadOutput, error) {
	if err := h.changelog.Reload(ctx); err != nil {
		return nil, huma.Error503ServiceUnavailable("reload failed: "+storage.Kind(err), err)
	}
	if err := h.cooldowns.Hydrate(ctx); err != nil {
		return nil, huma.Error503ServiceUnavailable("cooldown reload failed: "+storage.Kind(err), err)
	}

	h.log.Info("reloaded by admin request")
	return &reloadOutput{Body: reloadResponse{
		Status:  "Ok",
		Storage: string(h.changelog.Mode()),
		Records: len(h.changelog.ListActive()),
	}}, nil
}

func (h *Handler) gc(ctx context.Context, input *gcInput) (*gcOutput, error) {
	days := input.Body.RetentionDays
	if days == 0 {
		days = h.retentionDays
	}

	n, err := h.sweeper.SweepNow(ctx, days)
	if err != nil {
		return nil, huma.Error503ServiceUnavailable("gc failed: "+storage.Kind(err), err)
	}
	return &gcOutput{Body: gcResponse{Removed: n, RetentionDays: days}}, nil
}

func (h *Handler) stats(ctx context.Context, _ *struct{}) (*statsOutput, error) {
	if h.inspector == nil {
		return nil, huma.Error501NotImplemented("storage does not support stats")
	}
	st, err := h.inspector.Stats(ctx)
	if err != nil {
		return nil, huma.Error503ServiceUnavailable("stats failed: "+storage.Kind(err), err)
	}
	return &statsOutput{Body: st}, nil
}
