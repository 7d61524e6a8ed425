package record

import (
	"errors"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrEmptyContent    = errors.New("record content is empty")
	ErrContentTooShort = errors.New("record content is too short")
	ErrContentTooLong  = errors.New("record content is too long")
	ErrInvalidCategory = errors.New("invalid record category")
)
