package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"changelog/internal/infrastructure/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// classify приводит ошибки pgx к ошибкам storage, сохраняя исходную причину.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505": // unique_violation
			return fmt.Errorf("%w: %w", storage.ErrAlreadyExists, err)
		case strings.HasPrefix(pgErr.Code, "28"): // invalid_authorization_specification, invalid_password
			return fmt.Errorf("%w: %w", storage.ErrAuth, err)
		case strings.HasPrefix(pgErr.Code, "08"), // connection_exception
			pgErr.Code == "53300", // too_many_connections
			pgErr.Code == "57P01", pgErr.Code == "57P02", pgErr.Code == "57P03":
			return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
		case pgErr.Code == "57014": // query_canceled (statement_timeout)
			return fmt.Errorf("%w: %w", storage.ErrTimeout, err)
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", storage.ErrTimeout, err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}

	return err
}

// classifyAcquire отличает исчерпание пула от прочих ошибок получения соединения.
// Дедлайн при занятых всех соединениях означает, что пул мал для нагрузки.
func classifyAcquire(err error, acquired, maxConns int32) error {
	if errors.Is(err, context.DeadlineExceeded) && maxConns > 0 && acquired >= maxConns {
		return fmt.Errorf("%w (%d/%d connections in use, raise database.max_conns): %w",
			storage.ErrPoolExhausted, acquired, maxConns, err)
	}
	return classify(err)
}
