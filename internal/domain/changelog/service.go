package changelog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"changelog/internal/domain/record"
	"changelog/internal/infrastructure/storage"
	"changelog/internal/scheduler"

	"golang.org/x/exp/slog"
)

const (
	visitKeyPrefix = "visit:"
	reloadKey      = "reload"
)

// Servicer - фасад журнала для транспортного слоя
type Servicer interface {
	Add(ctx context.Context, content, author, category string) (record.Record, error)
	Edit(ctx context.Context, id, content string) (bool, error)
	Update(ctx context.Context, id, content string) (record.Record, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	ListActive() []record.Record
	FindActive(id string) (record.Record, bool)
	OrdinalOf(id string) string
	RecordVisit(ctx context.Context, playerID string) error
	LastSeen(playerID string) (time.Time, bool)
	NewSinceLastSeen(playerID string) int
	Reload(ctx context.Context) error
	Mode() storage.Mode
}

// Service держит кэш записей и посещений поверх хранилища.
// Все изменения состояния выполняются на главном цикле, ввод-вывод - на пуле.
type Service struct {
	backend   storage.Backend
	cache     *Cache
	validator *record.Validator
	loop      *scheduler.Loop
	pool      *scheduler.Pool
	log       *slog.Logger
	now       func() time.Time

	// seq и deleting меняются только на цикле
	seq int64
	// deleting - удаления, отправленные в реляционное хранилище и еще не подтвержденные
	deleting map[string]struct{}

	visitsMu sync.RWMutex
	visits   map[string]time.Time
}

var _ Servicer = (*Service)(nil)

func NewService(
	backend storage.Backend,
	validator *record.Validator,
	loop *scheduler.Loop,
	pool *scheduler.Pool,
	log *slog.Logger,
) *Service {
	return &Service{
		backend:   backend,
		cache:     NewCache(),
		validator: validator,
		loop:      loop,
		pool:      pool,
		log:       log.With(slog.String("component", "changelog_service")),
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		visits:    make(map[string]time.Time),
		deleting:  make(map[string]struct{}),
	}
}

func (s *Service) Mode() storage.Mode {
	return s.backend.Mode()
}

func (s *Service) relational() bool {
	return s.backend.Mode() != storage.ModeFile
}

// Add создает запись. Ошибка возвращается только при невалидном вводе или остановленном цикле;
// ошибки сохранения логируются.
func (s *Service) Add(ctx context.Context, content, author, category string) (record.Record, error) {
	content, err := s.validator.Content(content)
	if err != nil {
		return record.Record{}, err
	}
	category, err = s.validator.Category(category)
	if err != nil {
		return record.Record{}, err
	}

	var rec record.Record
	err = s.loop.Call(ctx, func() {
		s.seq++
		rec = record.New(content, author, category, s.seq, s.now())

		if !s.relational() {
			s.cache.Insert(rec)
			s.persist(rec.ID, "insert record", func(ctx context.Context) error {
				return s.backend.Insert(ctx, rec)
			}, nil)
			return
		}

		s.persist(rec.ID, "insert record", func(ctx context.Context) error {
			return s.backend.Insert(ctx, rec)
		}, func(err error) {
			if err == nil {
				s.cache.Insert(rec)
			}
		})
	})
	if err != nil {
		return record.Record{}, fmt.Errorf("add record: %w", err)
	}

	s.log.Debug("record added",
		slog.String("id", rec.ID),
		slog.String("author", author),
	)
	return rec, nil
}

// Edit меняет текст активной записи. false - записи нет среди активных.
func (s *Service) Edit(ctx context.Context, id, content string) (bool, error) {
	_, ok, err := s.Update(ctx, id, content)
	return ok, err
}

// Update как Edit, но возвращает отправленную версию записи.
// В реляционном режиме кэш получит ее только после подтверждения записи.
func (s *Service) Update(ctx context.Context, id, content string) (record.Record, bool, error) {
	content, err := s.validator.Content(content)
	if err != nil {
		return record.Record{}, false, err
	}

	var (
		updated record.Record
		found   bool
	)
	err = s.loop.Call(ctx, func() {
		cur, ok := s.cache.Get(id)
		if !ok || s.isDeleting(id) {
			return
		}
		found = true
		updated = cur.WithContent(content, s.now())

		if !s.relational() {
			s.cache.Replace(updated)
			s.persist(id, "update record", func(ctx context.Context) error {
				return s.backend.Update(ctx, id, content, updated.ModifiedAt)
			}, nil)
			return
		}

		at := updated.ModifiedAt
		s.persist(id, "update record", func(ctx context.Context) error {
			return s.backend.Update(ctx, id, content, at)
		}, func(err error) {
			if err != nil {
				return
			}
			// запись могла измениться или исчезнуть, пока шел запрос
			if latest, ok := s.cache.Get(id); ok {
				s.cache.Replace(latest.WithContent(content, at))
			}
		})
	})
	if err != nil {
		return record.Record{}, false, fmt.Errorf("edit record: %w", err)
	}
	return updated, found, nil
}

// Delete мягко удаляет активную запись. false - записи нет среди активных.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	found := false
	err := s.loop.Call(ctx, func() {
		cur, ok := s.cache.Get(id)
		if !ok || s.isDeleting(id) {
			return
		}
		found = true
		at := cur.MarkDeleted(s.now()).ModifiedAt

		if !s.relational() {
			s.cache.Remove(id)
			s.persist(id, "delete record", func(ctx context.Context) error {
				return s.backend.SoftDelete(ctx, id, at)
			}, nil)
			return
		}

		s.deleting[id] = struct{}{}
		s.persist(id, "delete record", func(ctx context.Context) error {
			return s.backend.SoftDelete(ctx, id, at)
		}, func(err error) {
			delete(s.deleting, id)
			if err == nil {
				s.cache.Remove(id)
			}
		})
	})
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	return found, nil
}

func (s *Service) ListActive() []record.Record {
	return s.cache.List()
}

func (s *Service) FindActive(id string) (record.Record, bool) {
	return s.cache.Get(id)
}

func (s *Service) OrdinalOf(id string) string {
	return s.cache.Ordinal(id)
}

// Sorts отдает счетчик пересчетов номеров
func (s *Service) Sorts() int64 {
	return s.cache.Sorts()
}

// RecordVisit запоминает момент просмотра журнала игроком
func (s *Service) RecordVisit(ctx context.Context, playerID string) error {
	err := s.loop.Call(ctx, func() {
		at := s.now()
		s.visitsMu.Lock()
		s.visits[playerID] = at
		s.visitsMu.Unlock()

		s.persist(visitKeyPrefix+playerID, "save visit", func(ctx context.Context) error {
			return s.backend.UpsertVisit(ctx, playerID, at)
		}, nil)
	})
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

func (s *Service) LastSeen(playerID string) (time.Time, bool) {
	s.visitsMu.RLock()
	defer s.visitsMu.RUnlock()
	at, ok := s.visits[playerID]
	return at, ok
}

// NewSinceLastSeen считает активные записи, созданные после последнего просмотра.
// Для игрока без просмотров это все активные записи.
func (s *Service) NewSinceLastSeen(playerID string) int {
	records := s.cache.current.Load().records
	seen, ok := s.LastSeen(playerID)
	if !ok {
		return len(records)
	}

	count := 0
	for _, r := range records {
		if !r.CreatedAt.After(seen) {
			// дальше только более старые
			break
		}
		count++
	}
	return count
}

// Reload перечитывает хранилище и атомарно подменяет кэш.
// Сначала дожидается уже поставленных операций записи.
func (s *Service) Reload(ctx context.Context) error {
	if err := s.pool.Wait(ctx); err != nil {
		return fmt.Errorf("reload: wait pending writes: %w", err)
	}

	snap, err := scheduler.Await(ctx, s.pool, reloadKey, s.backend.LoadAll)
	if err != nil {
		s.log.Error("failed to load records",
			slog.String("kind", storage.Kind(err)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("reload: %w", err)
	}

	if err := s.loop.Call(ctx, func() { s.apply(snap) }); err != nil {
		return fmt.Errorf("reload: %w", err)
	}

	s.log.Info("changelog loaded",
		slog.Int("records", len(snap.Records)),
		slog.Int("visits", len(snap.Visits)),
		slog.String("mode", string(s.backend.Mode())),
	)
	return nil
}

// Invalidate сбрасывает мемо номеров. Можно вызывать из любой горутины.
func (s *Service) Invalidate() {
	if err := s.loop.Deliver(s.cache.InvalidateOrdinals); err != nil {
		s.log.Warn("failed to invalidate ordinals", slog.String("error", err.Error()))
	}
}

// apply выполняется на цикле
func (s *Service) apply(snap storage.Snapshot) {
	records := make([]record.Record, 0, len(snap.Records))
	var maxSeq int64
	for _, r := range snap.Records {
		if r.Seq > maxSeq {
			maxSeq = r.Seq
		}
		if r.IsActive() {
			records = append(records, r)
		}
	}
	record.SortNewestFirst(records)
	s.cache.Reset(records)

	if maxSeq > s.seq {
		s.seq = maxSeq
	}

	visits := make(map[string]time.Time, len(snap.Visits))
	for p, at := range snap.Visits {
		visits[p] = at
	}
	s.visitsMu.Lock()
	s.visits = visits
	s.visitsMu.Unlock()
}

// isDeleting выполняется на цикле
func (s *Service) isDeleting(id string) bool {
	_, ok := s.deleting[id]
	return ok
}

// persist ставит операцию записи на воркер по ключу. Вызывается только с цикла.
// done (если не nil) выполняется на цикле после попытки записи; err == nil - запись подтверждена.
func (s *Service) persist(key, op string, io func(ctx context.Context) error, done func(err error)) {
	err := s.pool.Submit(key, func(ctx context.Context) func() {
		err := io(ctx)
		if err != nil {
			s.log.Error("failed to "+op,
				slog.String("key", key),
				slog.String("kind", storage.Kind(err)),
				slog.String("error", err.Error()),
			)
		}
		if done == nil {
			return nil
		}
		return func() { done(err) }
	})
	if err != nil {
		s.log.Error("failed to schedule "+op,
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		if done != nil {
			done(err)
		}
	}
}
