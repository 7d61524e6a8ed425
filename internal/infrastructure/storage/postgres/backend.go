package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"changelog/internal/config"
	"changelog/internal/domain/record"
	"changelog/internal/infrastructure/migration"
	"changelog/internal/infrastructure/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"
)

const (
	tableEntries   = "changelog_entries"
	tableLastSeen  = "changelog_lastseen"
	tableCooldowns = "changelog_cooldowns"
)

// Backend - реляционное хранилище журнала поверх пула pgx
type Backend struct {
	cfg config.Database
	log *slog.Logger
	now func() time.Time

	// migrate запускается при Connect, подменяется в тестах
	migrate func(dsn string) error

	pool *pgxpool.Pool
	db   Querier
	// stat сообщает занятые и максимальные соединения для классификации ошибок acquire
	stat func() (acquired, maxConns int32)
}

var _ storage.Backend = (*Backend)(nil)
var _ storage.Inspector = (*Backend)(nil)

func New(cfg config.Database, log *slog.Logger) *Backend {
	b := &Backend{
		cfg: cfg,
		log: log.With(slog.String("component", "postgres_storage")),
		now: time.Now,
	}
	b.migrate = func(dsn string) error {
		_, err := migration.NewMigration(dsn, migration.DefaultEngine, log).Up()
		return err
	}
	return b
}

// NewWithQuerier работает поверх готового Querier (пул снаружи, pgxmock в тестах).
// Connect в этом случае ничего не открывает.
func NewWithQuerier(q Querier, log *slog.Logger) *Backend {
	return &Backend{
		log: log.With(slog.String("component", "postgres_storage")),
		now: time.Now,
		db:  q,
	}
}

func (b *Backend) Mode() storage.Mode {
	return storage.ModePostgres
}

// Connect открывает пул и создает схему, если ее нет
func (b *Backend) Connect(ctx context.Context) error {
	if b.db != nil {
		return nil
	}

	pool, err := NewPool(ctx, b.cfg)
	if err != nil {
		return err
	}

	if b.cfg.RunMigrations {
		if err := b.migrate(b.cfg.DSN); err != nil {
			pool.Close()
			return fmt.Errorf("migrate schema: %w", err)
		}
	}

	b.pool = pool
	b.db = pool
	b.stat = func() (int32, int32) {
		s := pool.Stat()
		return s.AcquiredConns(), s.MaxConns()
	}

	b.log.Info("connected to database",
		slog.Int("max_conns", int(b.cfg.MaxConns)),
		slog.Int("min_conns", int(b.cfg.MinConns)),
	)
	return nil
}

func (b *Backend) Close() error {
	if b.pool != nil {
		b.pool.Close()
		b.pool = nil
	}
	b.db = nil
	return nil
}

// withConn выполняет fn на одном соединении из пула.
// Ожидание соединения ограничено database.acquire_timeout.
func (b *Backend) withConn(ctx context.Context, fn func(q Querier) error) error {
	if b.pool == nil {
		if b.db == nil {
			return storage.ErrClosed
		}
		return fn(b.db)
	}

	acquireCtx := ctx
	if b.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, b.cfg.AcquireTimeout)
		defer cancel()
	}

	conn, err := b.pool.Acquire(acquireCtx)
	if err != nil {
		acquired, maxConns := b.stat()
		err = classifyAcquire(err, acquired, maxConns)
		b.log.Warn("failed to acquire connection",
			slog.String("kind", storage.Kind(err)),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer conn.Release()

	return fn(conn)
}

// === ЗАПИСИ ===

const selectEntries = `
	SELECT id, content, author, created_at, modified_at, deleted, COALESCE(category, ''), seq
	FROM changelog_entries`

// "timestamp" всегда равен created_at; сортировка идет по нему, чтобы попасть
// в индекс idx_changelog_entries_active_order (deleted, "timestamp" DESC, seq DESC)
var orderNewestFirst = []string{`"timestamp" DESC`, "seq DESC"}

func (b *Backend) LoadAll(ctx context.Context) (storage.Snapshot, error) {
	snap := storage.Snapshot{Visits: make(map[string]time.Time)}

	err := b.withConn(ctx, func(q Querier) error {
		rows, err := q.Query(ctx, selectEntries+`
	WHERE deleted = FALSE
	ORDER BY `+strings.Join(orderNewestFirst, ", "))
		if err != nil {
			return fmt.Errorf("load records: %w", classify(err))
		}
		snap.Records, err = scanRecords(rows)
		if err != nil {
			return fmt.Errorf("scan records: %w", classify(err))
		}

		const visitsQuery = `SELECT player_id, "timestamp" FROM changelog_lastseen`
		vrows, err := q.Query(ctx, visitsQuery)
		if err != nil {
			return fmt.Errorf("load visits: %w", classify(err))
		}
		defer vrows.Close()

		for vrows.Next() {
			var (
				player string
				seen   time.Time
			)
			if err := vrows.Scan(&player, &seen); err != nil {
				return fmt.Errorf("scan visit: %w", err)
			}
			snap.Visits[player] = seen.UTC()
		}
		if err := vrows.Err(); err != nil {
			return fmt.Errorf("load visits: %w", classify(err))
		}
		return nil
	})
	if err != nil {
		return storage.Snapshot{}, err
	}

	return snap, nil
}

func (b *Backend) Insert(ctx context.Context, rec record.Record) error {
	const query = `
		INSERT INTO changelog_entries (id, content, author, "timestamp", deleted, created_at, modified_at, category, seq)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	return b.withConn(ctx, func(q Querier) error {
		_, err := q.Exec(ctx, query,
			rec.ID,
			rec.Content,
			rec.Author,
			rec.CreatedAt.UTC(),
			rec.Deleted,
			rec.CreatedAt.UTC(),
			rec.ModifiedAt.UTC(),
			nullString(rec.Category),
			rec.Seq,
		)
		if err != nil {
			return fmt.Errorf("insert record %s: %w", rec.ID, classify(err))
		}
		return nil
	})
}

func (b *Backend) Update(ctx context.Context, id, content string, at time.Time) error {
	const query = `
		UPDATE changelog_entries
		SET content = $1, modified_at = GREATEST($2, created_at)
		WHERE id = $3 AND deleted = FALSE`

	return b.withConn(ctx, func(q Querier) error {
		tag, err := q.Exec(ctx, query, content, at.UTC(), id)
		if err != nil {
			return fmt.Errorf("update record %s: %w", id, classify(err))
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("update record %s: %w", id, storage.ErrNotFound)
		}
		return nil
	})
}

func (b *Backend) SoftDelete(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE changelog_entries
		SET deleted = TRUE, modified_at = GREATEST($1, created_at)
		WHERE id = $2 AND deleted = FALSE`

	return b.withConn(ctx, func(q Querier) error {
		tag, err := q.Exec(ctx, query, at.UTC(), id)
		if err != nil {
			return fmt.Errorf("delete record %s: %w", id, classify(err))
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("delete record %s: %w", id, storage.ErrNotFound)
		}
		return nil
	})
}

func (b *Backend) PruneDeleted(ctx context.Context, retention time.Duration) (int, error) {
	const query = `DELETE FROM changelog_entries WHERE deleted = TRUE AND modified_at < $1`

	cutoff := b.now().Add(-retention).UTC()
	var removed int

	err := b.withConn(ctx, func(q Querier) error {
		tag, err := q.Exec(ctx, query, cutoff)
		if err != nil {
			return fmt.Errorf("prune deleted records: %w", classify(err))
		}
		removed = int(tag.RowsAffected())
		return nil
	})

	return removed, err
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type scanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

func scanRecords(rows scanner) ([]record.Record, error) {
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		var r record.Record
		if err := rows.Scan(
			&r.ID,
			&r.Content,
			&r.Author,
			&r.CreatedAt,
			&r.ModifiedAt,
			&r.Deleted,
			&r.Category,
			&r.Seq,
		); err != nil {
			return nil, err
		}
		r.CreatedAt = r.CreatedAt.UTC()
		r.ModifiedAt = r.ModifiedAt.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
