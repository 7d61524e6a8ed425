package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	// ErrPoolExhausted: every connection was checked out for the whole acquire timeout.
	// Retryable; raise database.max_conns if it keeps happening.
	ErrPoolExhausted = errors.New("connection pool exhausted")
	ErrAuth          = errors.New("database authentication failed")
	ErrUnavailable   = errors.New("database unavailable")
	ErrTimeout       = errors.New("storage operation timed out")
	ErrClosed        = errors.New("storage closed")
)

// Kind возвращает короткую метку класса ошибки для логов
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrPoolExhausted):
		return "pool_exhausted"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrClosed):
		return "closed"
	default:
		return "internal"
	}
}

// Retryable reports whether the same operation may succeed later without intervention.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrPoolExhausted),
		errors.Is(err, ErrUnavailable),
		errors.Is(err, ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return true
	default:
		return false
	}
}
