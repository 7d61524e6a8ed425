package record

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	DefaultMinContentLen = 3
	DefaultMaxContentLen = 5000
	MaxCategoryLen       = 20
)

// Validator проверяет и нормализует пользовательский ввод до любых изменений состояния
type Validator struct {
	minLen int
	maxLen int
}

// NewValidator создает валидатор, нулевые границы заменяются значениями по умолчанию
func NewValidator(minLen, maxLen int) *Validator {
	if minLen <= 0 {
		minLen = DefaultMinContentLen
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxContentLen
	}
	return &Validator{minLen: minLen, maxLen: maxLen}
}

// Content обрезает пробелы и проверяет длину текста записи.
func (v *Validator) Content(content string) (string, error) {
	content = strings.TrimSpace(content)
	n := utf8.RuneCountInString(content)

	switch {
	case n == 0:
		return "", ErrEmptyContent
	case n < v.minLen:
		return "", fmt.Errorf("%w: minimum %d characters", ErrContentTooShort, v.minLen)
	case n > v.maxLen:
		return "", fmt.Errorf("%w: maximum %d characters", ErrContentTooLong, v.maxLen)
	}

	return content, nil
}

// Category проверяет необязательную категорию
func (v *Validator) Category(category string) (string, error) {
	category = strings.TrimSpace(category)
	if utf8.RuneCountInString(category) > MaxCategoryLen {
		return "", fmt.Errorf("%w: maximum %d characters", ErrInvalidCategory, MaxCategoryLen)
	}
	return category, nil
}
