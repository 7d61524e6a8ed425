package health

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

const Path = "/health"

func (h *Handler) healthCheckOp() huma.Operation {
	return huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        Path,
		Summary:     "Storage and cache status",
		Description: "Public endpoint. Reports the active storage backend, whether it is a fallback, and the cached record count",
		Tags:        []string{"health"},
		Middlewares: h.middleware,
	}
}
