package player

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

var bearer = []map[string][]string{{"bearer": {}}}

func (h *Handler) visitOp() huma.Operation {
	return huma.Operation{
		OperationID: "player-visit",
		Method:      http.MethodPost,
		Path:        "/api/players/{player}/visit",
		Summary:     "Отметить просмотр журнала",
		Description: "Считает новые записи, запоминает время просмотра и бросает шанс награды.",
		Tags:        []string{"players"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) summaryOp() huma.Operation {
	return huma.Operation{
		OperationID: "player-summary",
		Method:      http.MethodGet,
		Path:        "/api/players/{player}/summary",
		Summary:     "Новые записи и состояние наград игрока",
		Tags:        []string{"players"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) claimOp() huma.Operation {
	return huma.Operation{
		OperationID: "player-claim",
		Method:      http.MethodPost,
		Path:        "/api/players/{player}/rewards/{type}/claim",
		Summary:     "Выдать награду вручную",
		Description: "409, если кулдаун не прошел.",
		Tags:        []string{"players", "rewards"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}
