package health

import (
	"context"
	"net/http"
	"testing"

	"changelog/internal/domain/changelog/changelogtest"
	"changelog/internal/domain/record"
	"changelog/internal/infrastructure/storage"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestHandler_healthCheck(t *testing.T) {
	tests := []struct {
		name       string
		requested  storage.Mode
		active     storage.Mode
		records    []record.Record
		wantStatus string
	}{
		{
			name:       "file storage as configured",
			requested:  storage.ModeFile,
			active:     storage.ModeFile,
			wantStatus: StatusOK,
		},
		{
			name:       "postgres with records",
			requested:  storage.ModePostgres,
			active:     storage.ModePostgres,
			records:    []record.Record{{ID: "a"}, {ID: "b"}},
			wantStatus: StatusOK,
		},
		{
			name:       "postgres fell back to file",
			requested:  storage.ModePostgres,
			active:     storage.ModeFile,
			records:    []record.Record{{ID: "a"}},
			wantStatus: StatusDegraded,
		},
		{
			name:       "requested unknown",
			active:     storage.ModePostgres,
			wantStatus: StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			svc := new(changelogtest.MockService)
			svc.On("Mode").Return(tt.active)
			svc.On("ListActive").Return(tt.records)
			handler := NewHandler(svc, tt.requested, slog.Default(), huma.Middlewares{})

			// Act
			output, err := handler.healthCheck(context.Background(), &Input{})

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, output.Body.Status)
			assert.Equal(t, string(tt.active), output.Body.Storage)
			assert.Len(t, tt.records, output.Body.Records)
			assert.NotEmpty(t, output.Body.Requested)
		})
	}
}

func TestHandler_Route(t *testing.T) {
	svc := new(changelogtest.MockService)
	svc.On("Mode").Return(storage.ModeFile)
	svc.On("ListActive").Return([]record.Record{})

	_, api := humatest.New(t)
	NewHandler(svc, storage.ModePostgres, slog.Default(), nil).SetupRoutes(api)

	resp := api.Get(Path)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"DEGRADED"`)
	assert.Contains(t, resp.Body.String(), `"requested_storage":"postgres"`)
}
