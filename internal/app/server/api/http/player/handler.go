package player

import (
	"context"
	"errors"
	"fmt"

	"changelog/internal/domain/changelog"
	"changelog/internal/domain/reward"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	changelog  changelog.Servicer
	rewards    reward.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(cl changelog.Servicer, rewards reward.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		changelog:  cl,
		rewards:    rewards,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.visitOp(), h.visit)
	huma.Register(api, h.summaryOp(), h.summary)
	huma.Register(api, h.claimOp(), h.claim)
}

// visit: счетчик новых записей берется до обновления времени просмотра
func (h *Handler) visit(ctx context.Context, input *playerInput) (*visitOutput, error) {
	newCount := h.changelog.NewSinceLastSeen(input.Player)

	if err := h.changelog.RecordVisit(ctx, input.Player); err != nil {
		h.log.Error("failed to record visit",
			slog.String("player", input.Player),
			slog.String("error", err.Error()),
		)
		return nil, huma.Error503ServiceUnavailable("failed to record visit")
	}

	resp := visitResponse{Player: input.Player, NewCount: newCount}
	if g, ok := h.rewards.Roll(input.Player); ok {
		resp.Reward = &g
	}
	return &visitOutput{Body: resp}, nil
}

func (h *Handler) summary(_ context.Context, input *playerInput) (*summaryOutput, error) {
	resp := summaryResponse{
		Player:   input.Player,
		NewCount: h.changelog.NewSinceLastSeen(input.Player),
		Rewards:  make([]rewardStatus, 0),
	}
	if at, ok := h.changelog.LastSeen(input.Player); ok {
		resp.LastSeen = &at
	}

	for _, typ := range h.rewards.Types() {
		remaining := h.rewards.RemainingHours(input.Player, typ)
		resp.Rewards = append(resp.Rewards, rewardStatus{
			Type:           typ,
			Enabled:        h.rewards.Enabled(typ),
			Available:      remaining == 0,
			RemainingHours: remaining,
		})
	}
	return &summaryOutput{Body: resp}, nil
}

func (h *Handler) claim(_ context.Context, input *claimInput) (*claimOutput, error) {
	g, ok, err := h.rewards.Claim(input.Player, input.Type)
	if err != nil {
		if errors.Is(err, reward.ErrUnknownType) {
			return nil, huma.Error404NotFound(err.Error())
		}
		return nil, huma.Error500InternalServerError("claim failed", err)
	}
	if !ok {
		if !h.rewards.Enabled(input.Type) {
			return nil, huma.Error409Conflict(fmt.Sprintf("reward %q is disabled", input.Type))
		}
		return nil, huma.Error409Conflict(fmt.Sprintf(
			"reward %q is on cooldown for %d more hour(s)",
			input.Type, h.rewards.RemainingHours(input.Player, input.Type),
		))
	}
	return &claimOutput{Body: g}, nil
}
