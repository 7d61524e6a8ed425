package admin

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

var bearer = []map[string][]string{{"bearer": {}}}

func (h *Handler) reloadOp() huma.Operation {
	return huma.Operation{
		OperationID: "admin-reload",
		Method:      http.MethodPost,
		Path:        "/api/admin/reload",
		Summary:     "Перечитать записи, посещения и кулдауны из хранилища",
		Tags:        []string{"admin"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) gcOp() huma.Operation {
	return huma.Operation{
		OperationID: "admin-gc",
		Method:      http.MethodPost,
		Path:        "/api/admin/gc",
		Summary:     "Удалить записи, помеченные удаленными дольше срока хранения",
		Tags:        []string{"admin"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) statsOp() huma.Operation {
	return huma.Operation{
		OperationID: "admin-stats",
		Method:      http.MethodGet,
		Path:        "/api/admin/stats",
		Summary:     "Агрегаты по хранилищу",
		Tags:        []string{"admin"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}
