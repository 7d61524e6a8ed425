package record

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"changelog/internal/domain/changelog/changelogtest"
	"changelog/internal/domain/record"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.ErrorAs(t, err, &se)
	return se.GetStatus()
}

func sample() []record.Record {
	return []record.Record{
		record.New("third", "bob", "fix", 3, base.Add(2*time.Minute)),
		record.New("second", "alice", "", 2, base.Add(time.Minute)),
		record.New("first", "alice", "feature", 1, base),
	}
}

func TestHandler_List(t *testing.T) {
	recs := sample()

	tests := []struct {
		name      string
		input     listInput
		wantTotal int
		wantIDs   []string
	}{
		{"all", listInput{Limit: 20}, 3, []string{recs[0].ID, recs[1].ID, recs[2].ID}},
		{"page", listInput{Offset: 1, Limit: 1}, 3, []string{recs[1].ID}},
		{"offset past end", listInput{Offset: 10, Limit: 5}, 3, []string{}},
		{"by author", listInput{Limit: 20, Author: "alice"}, 2, []string{recs[1].ID, recs[2].ID}},
		{"by category", listInput{Limit: 20, Category: "fix"}, 1, []string{recs[0].ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(changelogtest.MockService)
			svc.On("ListActive").Return(recs)
			svc.On("OrdinalOf", mock.Anything).Return("#1")
			h := NewHandler(svc, slog.Default(), nil)

			input := tt.input
			out, err := h.list(context.Background(), &input)
			require.NoError(t, err)

			assert.Equal(t, tt.wantTotal, out.Body.Total)
			got := make([]string, 0, len(out.Body.Items))
			for _, it := range out.Body.Items {
				got = append(got, it.ID)
				assert.Equal(t, "#1", it.Ordinal)
			}
			assert.Equal(t, tt.wantIDs, got)
		})
	}
}

func TestHandler_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc := new(changelogtest.MockService)
		rec := record.New("new feature", "alice", "feature", 1, base)
		svc.On("Add", mock.Anything, "new feature", "alice", "feature").Return(rec, nil)
		svc.On("OrdinalOf", rec.ID).Return("#1")
		h := NewHandler(svc, slog.Default(), nil)

		input := &createInput{Body: createRequest{Content: "new feature", Author: "alice", Category: "feature"}}
		out, err := h.create(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, out.Body.ID)
		assert.Equal(t, "#1", out.Body.Ordinal)
		svc.AssertExpectations(t)
	})

	t.Run("ValidationError", func(t *testing.T) {
		svc := new(changelogtest.MockService)
		svc.On("Add", mock.Anything, "ab", "alice", "").Return(record.Record{}, record.ErrContentTooShort)
		h := NewHandler(svc, slog.Default(), nil)

		_, err := h.create(ctx, &createInput{Body: createRequest{Content: "ab", Author: "alice"}})
		assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
	})

	t.Run("Stopped", func(t *testing.T) {
		svc := new(changelogtest.MockService)
		svc.On("Add", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(record.Record{}, errors.New("add record: scheduler stopped"))
		h := NewHandler(svc, slog.Default(), nil)

		_, err := h.create(ctx, &createInput{Body: createRequest{Content: "abc", Author: "alice"}})
		assert.Equal(t, http.StatusServiceUnavailable, statusOf(t, err))
	})
}

func TestHandler_FindUpdateDelete(t *testing.T) {
	ctx := context.Background()
	rec := record.New("original", "alice", "", 1, base)
	edited := rec.WithContent("edited", base.Add(time.Hour))

	svc := new(changelogtest.MockService)
	svc.On("FindActive", "missing").Return(record.Record{}, false)
	svc.On("Update", mock.Anything, rec.ID, "edited").Return(edited, true, nil)
	svc.On("Update", mock.Anything, "missing", mock.Anything).Return(record.Record{}, false, nil)
	// кэш еще держит старую версию, изменение не подтверждено
	svc.On("FindActive", rec.ID).Return(rec, true)
	svc.On("OrdinalOf", rec.ID).Return("#1")
	svc.On("Delete", mock.Anything, rec.ID).Return(true, nil)
	svc.On("Delete", mock.Anything, "missing").Return(false, nil)
	h := NewHandler(svc, slog.Default(), nil)

	_, err := h.find(ctx, &findInput{ID: "missing"})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	out, err := h.update(ctx, &updateInput{ID: rec.ID, Body: updateRequest{Content: "edited"}})
	require.NoError(t, err)
	assert.Equal(t, "edited", out.Body.Content, "response carries the submitted version")
	assert.Equal(t, edited.ModifiedAt, out.Body.ModifiedAt)
	assert.Equal(t, "#1", out.Body.Ordinal)

	found, err := h.find(ctx, &findInput{ID: rec.ID})
	require.NoError(t, err)
	assert.Equal(t, "original", found.Body.Content)

	_, err = h.update(ctx, &updateInput{ID: "missing", Body: updateRequest{Content: "edited"}})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	del, err := h.delete(ctx, &findInput{ID: rec.ID})
	require.NoError(t, err)
	assert.Equal(t, "Ok", del.Body.Status)

	_, err = h.delete(ctx, &findInput{ID: "missing"})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestHandler_Routes(t *testing.T) {
	svc := new(changelogtest.MockService)
	rec := record.New("via http", "alice", "", 1, base)
	svc.On("Add", mock.Anything, "via http", "alice", "").Return(rec, nil)
	svc.On("OrdinalOf", rec.ID).Return("#1")
	svc.On("ListActive").Return([]record.Record{rec})

	_, api := humatest.New(t)
	NewHandler(svc, slog.Default(), nil).SetupRoutes(api)

	resp := api.Post("/api/records", map[string]any{"content": "via http", "author": "alice"})
	assert.Equal(t, http.StatusCreated, resp.Code)

	resp = api.Get("/api/records?limit=5")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"ordinal":"#1"`)

	resp = api.Post("/api/records", map[string]any{"author": "alice"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code, "content is required")
}
