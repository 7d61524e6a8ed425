package record

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Record - одна запись журнала изменений.
// ID, Author и CreatedAt не меняются после создания, Deleted переходит только false -> true.
type Record struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Author     string    `json:"author"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Deleted    bool      `json:"deleted"`
	Category   string    `json:"category,omitempty"`
	Seq        int64     `json:"seq"`
}

// Visit - последний просмотр журнала игроком
type Visit struct {
	PlayerID   string    `json:"player_id"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// New создает активную запись с новым идентификатором.
func New(content, author, category string, seq int64, now time.Time) Record {
	return Record{
		ID:         uuid.NewString(),
		Content:    content,
		Author:     author,
		CreatedAt:  now,
		ModifiedAt: now,
		Category:   category,
		Seq:        seq,
	}
}

// WithContent returns a copy with new content and a bumped modification time.
func (r Record) WithContent(content string, at time.Time) Record {
	r.Content = content
	r.ModifiedAt = r.clamp(at)
	return r
}

// MarkDeleted returns a soft-deleted copy.
func (r Record) MarkDeleted(at time.Time) Record {
	r.Deleted = true
	r.ModifiedAt = r.clamp(at)
	return r
}

func (r Record) IsActive() bool {
	return !r.Deleted
}

// clamp keeps ModifiedAt from ever preceding CreatedAt when the wall clock steps back.
func (r Record) clamp(at time.Time) time.Time {
	if at.Before(r.CreatedAt) {
		return r.CreatedAt
	}
	return at
}

// Before reports whether r is older than o in display order.
// Equal creation times fall back to the insertion sequence.
func (r Record) Before(o Record) bool {
	if !r.CreatedAt.Equal(o.CreatedAt) {
		return r.CreatedAt.Before(o.CreatedAt)
	}
	return r.Seq < o.Seq
}

// SortNewestFirst orders records by (CreatedAt, Seq) descending.
func SortNewestFirst(records []Record) {
	slices.SortFunc(records, func(a, b Record) int {
		switch {
		case b.Before(a):
			return -1
		case a.Before(b):
			return 1
		default:
			return 0
		}
	})
}
