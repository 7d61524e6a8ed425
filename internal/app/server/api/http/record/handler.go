package record

import (
	"context"
	"errors"

	"changelog/internal/domain/changelog"
	"changelog/internal/domain/record"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	service    changelog.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service changelog.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.findOp(), h.find)
	huma.Register(api, h.updateOp(), h.update)
	huma.Register(api, h.deleteOp(), h.delete)
}

func (h *Handler) list(_ context.Context, input *listInput) (*listOutput, error) {
	matched := make([]item, 0)
	for _, r := range h.service.ListActive() {
		if input.Author != "" && r.Author != input.Author {
			continue
		}
		if input.Category != "" && r.Category != input.Category {
			continue
		}
		matched = append(matched, item{Record: r})
	}

	total := len(matched)
	start := min(input.Offset, total)
	end := total
	if input.Limit > 0 {
		end = min(start+input.Limit, total)
	}

	page := matched[start:end]
	for i := range page {
		page[i].Ordinal = h.service.OrdinalOf(page[i].ID)
	}

	return &listOutput{
		Body: listResponse{Total: total, Items: page},
	}, nil
}

func (h *Handler) create(ctx context.Context, input *createInput) (*output, error) {
	rec, err := h.service.Add(ctx, input.Body.Content, input.Body.Author, input.Body.Category)
	if err != nil {
		return nil, h.mapError("add", err)
	}

	// в реляционном режиме запись появится в списке после фиксации в БД
	return &output{
		Body: item{Record: rec, Ordinal: h.service.OrdinalOf(rec.ID)},
	}, nil
}

func (h *Handler) find(_ context.Context, input *findInput) (*output, error) {
	rec, ok := h.service.FindActive(input.ID)
	if !ok {
		return nil, huma.Error404NotFound(record.ErrNotFound.Error())
	}
	return &output{
		Body: item{Record: rec, Ordinal: h.service.OrdinalOf(rec.ID)},
	}, nil
}

func (h *Handler) update(ctx context.Context, input *updateInput) (*output, error) {
	// в ответе отправленная версия: в реляционном режиме кэш еще может держать старую
	rec, ok, err := h.service.Update(ctx, input.ID, input.Body.Content)
	if err != nil {
		return nil, h.mapError("edit", err)
	}
	if !ok {
		return nil, huma.Error404NotFound(record.ErrNotFound.Error())
	}

	return &output{
		Body: item{Record: rec, Ordinal: h.service.OrdinalOf(input.ID)},
	}, nil
}

func (h *Handler) delete(ctx context.Context, input *findInput) (*deleteOutput, error) {
	ok, err := h.service.Delete(ctx, input.ID)
	if err != nil {
		return nil, h.mapError("delete", err)
	}
	if !ok {
		return nil, huma.Error404NotFound(record.ErrNotFound.Error())
	}
	return &deleteOutput{
		Body: response{ID: input.ID, Status: "Ok"},
	}, nil
}

func (h *Handler) mapError(op string, err error) error {
	switch {
	case errors.Is(err, record.ErrEmptyContent),
		errors.Is(err, record.ErrContentTooShort),
		errors.Is(err, record.ErrContentTooLong),
		errors.Is(err, record.ErrInvalidCategory):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return huma.Error503ServiceUnavailable("request cancelled", err)
	default:
		h.log.Error("record operation failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return huma.Error503ServiceUnavailable("service is shutting down")
	}
}
