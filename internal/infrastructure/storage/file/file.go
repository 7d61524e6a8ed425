package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"changelog/internal/domain/record"
	"changelog/internal/infrastructure/storage"

	"golang.org/x/exp/slog"
	"gopkg.in/yaml.v3"
)

// Backend хранит журнал в одном YAML документе.
// Каждая мутация применяется к документу в памяти и переписывает файл целиком.
// Если запись на диск не удалась, документ остается "грязным" и будет сохранен следующей записью или Flush (его периодически вызывает changelog.Saver).
type Backend struct {
	path string
	log  *slog.Logger
	now  func() time.Time

	// writeFile подменяется в тестах
	writeFile func(path string, data []byte) error

	mu     sync.Mutex
	doc    document
	dirty  bool
	closed bool
}

var _ storage.Backend = (*Backend)(nil)
var _ storage.Inspector = (*Backend)(nil)
var _ storage.Flusher = (*Backend)(nil)

func New(path string, log *slog.Logger) *Backend {
	return &Backend{
		path:      path,
		log:       log.With(slog.String("component", "file_storage")),
		now:       time.Now,
		writeFile: writeAtomic,
		doc:       newDocument(),
	}
}

func (b *Backend) Mode() storage.Mode {
	return storage.ModeFile
}

// Connect читает документ с диска, отсутствующий файл означает пустой журнал
func (b *Backend) Connect(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		b.doc = newDocument()
		b.closed = false
		b.log.Info("data file not found, starting empty", slog.String("path", b.path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("read data file: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse data file: %w", err)
	}
	doc.normalize()

	b.doc = doc
	b.dirty = false
	b.closed = false
	b.log.Info("data file loaded",
		slog.String("path", b.path),
		slog.Int("entries", len(doc.Entries)),
	)
	return nil
}

// Close сохраняет несохраненные изменения
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if !b.dirty {
		return nil
	}
	return b.saveLocked()
}

// Flush повторяет неудавшееся сохранение
func (b *Backend) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.dirty {
		return nil
	}
	return b.saveLocked()
}

// Dirty reports whether the in-memory document has changes not yet on disk.
func (b *Backend) Dirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirty
}

// === ЗАПИСИ ===

func (b *Backend) LoadAll(_ context.Context) (storage.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	records := make([]record.Record, 0, len(b.doc.Entries))
	for id, e := range b.doc.Entries {
		if e.Deleted {
			continue
		}
		records = append(records, e.toRecord(id))
	}
	record.SortNewestFirst(records)

	visits := make(map[string]time.Time, len(b.doc.LastSeen))
	for player, ms := range b.doc.LastSeen {
		visits[player] = fromMillis(ms)
	}

	return storage.Snapshot{Records: records, Visits: visits}, nil
}

func (b *Backend) Insert(_ context.Context, rec record.Record) error {
	return b.mutate(func(doc *document) error {
		if _, ok := doc.Entries[rec.ID]; ok {
			return fmt.Errorf("insert record %s: %w", rec.ID, storage.ErrAlreadyExists)
		}
		doc.Entries[rec.ID] = toEntry(rec)
		return nil
	})
}

func (b *Backend) Update(_ context.Context, id, content string, at time.Time) error {
	return b.mutate(func(doc *document) error {
		e, ok := doc.Entries[id]
		if !ok || e.Deleted {
			return fmt.Errorf("update record %s: %w", id, storage.ErrNotFound)
		}
		e.Content = content
		e.ModifiedAt = max(millis(at), e.CreatedAt)
		doc.Entries[id] = e
		return nil
	})
}

func (b *Backend) SoftDelete(_ context.Context, id string, at time.Time) error {
	return b.mutate(func(doc *document) error {
		e, ok := doc.Entries[id]
		if !ok || e.Deleted {
			return fmt.Errorf("delete record %s: %w", id, storage.ErrNotFound)
		}
		e.Deleted = true
		e.ModifiedAt = max(millis(at), e.CreatedAt)
		doc.Entries[id] = e
		return nil
	})
}

// PruneDeleted физически удаляет записи, помеченные удаленными дольше retention
func (b *Backend) PruneDeleted(_ context.Context, retention time.Duration) (int, error) {
	cutoff := millis(b.now().Add(-retention))
	removed := 0

	err := b.mutate(func(doc *document) error {
		for id, e := range doc.Entries {
			if e.Deleted && e.ModifiedAt < cutoff {
				delete(doc.Entries, id)
				removed++
			}
		}
		if removed == 0 {
			return errNoChange
		}
		return nil
	})
	if errors.Is(err, errNoChange) {
		return 0, nil
	}

	return removed, err
}

// === ПОСЕЩЕНИЯ ===

func (b *Backend) UpsertVisit(_ context.Context, playerID string, at time.Time) error {
	return b.mutate(func(doc *document) error {
		doc.LastSeen[playerID] = millis(at)
		return nil
	})
}

func (b *Backend) GetVisit(_ context.Context, playerID string) (time.Time, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ms, ok := b.doc.LastSeen[playerID]
	if !ok {
		return time.Time{}, false, nil
	}
	return fromMillis(ms), true, nil
}

// === КУЛДАУНЫ ===

func (b *Backend) UpsertCooldown(_ context.Context, playerID, rewardType string, at time.Time) error {
	return b.mutate(func(doc *document) error {
		types, ok := doc.Cooldowns[playerID]
		if !ok {
			types = make(map[string]int64)
			doc.Cooldowns[playerID] = types
		}
		types[rewardType] = millis(at)
		return nil
	})
}

func (b *Backend) LoadAllCooldowns(_ context.Context) (storage.Cooldowns, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(storage.Cooldowns, len(b.doc.Cooldowns))
	for player, types := range b.doc.Cooldowns {
		m := make(map[string]time.Time, len(types))
		for typ, ms := range types {
			m[typ] = fromMillis(ms)
		}
		out[player] = m
	}
	return out, nil
}

// === ВЫБОРКИ ===

func (b *Backend) ListByAuthor(_ context.Context, author string, limit int) ([]record.Record, error) {
	return b.filter(limit, func(e entry) bool {
		return e.Author == author
	}), nil
}

func (b *Backend) ListByCategory(_ context.Context, category string, limit int) ([]record.Record, error) {
	return b.filter(limit, func(e entry) bool {
		return e.Category == category
	}), nil
}

func (b *Backend) Stats(_ context.Context) (storage.Stats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := storage.Stats{
		ByAuthor:   make(map[string]int),
		ByCategory: make(map[string]int),
	}
	for _, e := range b.doc.Entries {
		if e.Deleted {
			st.Deleted++
			continue
		}
		st.Active++
		st.ByAuthor[e.Author]++
		if e.Category != "" {
			st.ByCategory[e.Category]++
		}
	}
	return st, nil
}

func (b *Backend) filter(limit int, match func(entry) bool) []record.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []record.Record
	for id, e := range b.doc.Entries {
		if !e.Deleted && match(e) {
			out = append(out, e.toRecord(id))
		}
	}
	record.SortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

var errNoChange = errors.New("no change")

// mutate применяет fn к документу и сохраняет его.
// Изменение остается в памяти даже если запись на диск не удалась.
func (b *Backend) mutate(fn func(doc *document) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return storage.ErrClosed
	}
	if err := fn(&b.doc); err != nil {
		return err
	}
	b.dirty = true
	return b.saveLocked()
}

func (b *Backend) saveLocked() error {
	data, err := yaml.Marshal(&b.doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := b.writeFile(b.path, data); err != nil {
		b.log.Warn("failed to save data file, will retry on next save",
			slog.String("path", b.path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("save document: %w", err)
	}
	b.dirty = false
	return nil
}

// writeAtomic пишет во временный файл в той же директории и переименовывает его
func writeAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
