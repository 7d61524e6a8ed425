package storage

import (
	"context"
	"time"

	"changelog/internal/domain/record"
)

// Mode - тип активного хранилища
type Mode string

const (
	ModeFile     Mode = "file"
	ModePostgres Mode = "postgres"
)

// Snapshot - содержимое хранилища при загрузке.
// Records содержит только активные записи, от новых к старым.
type Snapshot struct {
	Records []record.Record
	Visits  map[string]time.Time
}

// Cooldowns: player -> reward type -> last claim
type Cooldowns map[string]map[string]time.Time

// Backend - общий контракт файлового и реляционного хранилищ.
// Любая ошибка означает, что операция не выполнена; вызывающая сторона решает, что с ней делать.
type Backend interface {
	Connect(ctx context.Context) error
	Close() error

	// === ЗАПИСИ ===
	LoadAll(ctx context.Context) (Snapshot, error)
	Insert(ctx context.Context, rec record.Record) error
	Update(ctx context.Context, id, content string, at time.Time) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	PruneDeleted(ctx context.Context, retention time.Duration) (int, error)

	// === ПОСЕЩЕНИЯ ===
	UpsertVisit(ctx context.Context, playerID string, at time.Time) error
	GetVisit(ctx context.Context, playerID string) (time.Time, bool, error)

	// === КУЛДАУНЫ ===
	UpsertCooldown(ctx context.Context, playerID, rewardType string, at time.Time) error
	LoadAllCooldowns(ctx context.Context) (Cooldowns, error)

	Mode() Mode
}

// Stats - агрегаты по таблице записей
type Stats struct {
	Active     int            `json:"active"`
	Deleted    int            `json:"deleted"`
	ByAuthor   map[string]int `json:"by_author"`
	ByCategory map[string]int `json:"by_category"`
}

// Inspector is implemented by backends that can answer filtered read-only queries.
type Inspector interface {
	ListByAuthor(ctx context.Context, author string, limit int) ([]record.Record, error)
	ListByCategory(ctx context.Context, category string, limit int) ([]record.Record, error)
	Stats(ctx context.Context) (Stats, error)
}

// Flusher is implemented by write-behind backends that can retry a failed save.
type Flusher interface {
	Dirty() bool
	Flush() error
}
