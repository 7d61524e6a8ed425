package changelog

import (
	"slices"
	"sync/atomic"

	"changelog/internal/domain/record"
)

// snapshot неизменяем после публикации. records - только активные, от новых к старым.
type snapshot struct {
	records  []record.Record
	index    map[string]int
	ordinals *ordinals
}

// Cache - кэш активных записей. Читать можно из любой горутины,
// писать только с главного цикла.
type Cache struct {
	current atomic.Pointer[snapshot]
	sorts   atomic.Int64
}

func NewCache() *Cache {
	c := &Cache{}
	c.current.Store(c.build(nil, nil))
	return c
}

func (c *Cache) build(records []record.Record, ords *ordinals) *snapshot {
	index := make(map[string]int, len(records))
	for i, r := range records {
		index[r.ID] = i
	}
	if ords == nil {
		ords = newOrdinals(records, &c.sorts)
	}
	return &snapshot{records: records, index: index, ordinals: ords}
}

// List returns a copy of the active records, newest first.
func (c *Cache) List() []record.Record {
	return slices.Clone(c.current.Load().records)
}

func (c *Cache) Len() int {
	return len(c.current.Load().records)
}

func (c *Cache) Get(id string) (record.Record, bool) {
	s := c.current.Load()
	i, ok := s.index[id]
	if !ok {
		return record.Record{}, false
	}
	return s.records[i], true
}

// Ordinal возвращает "#N" для активной записи или "#?"
func (c *Cache) Ordinal(id string) string {
	return c.current.Load().ordinals.of(id)
}

// Sorts - сколько раз пересчитывались порядковые номера
func (c *Cache) Sorts() int64 {
	return c.sorts.Load()
}

// Insert вставляет запись на ее место по (CreatedAt, Seq).
// Обычно это начало списка, но колбэки разных воркеров могут прийти не по порядку.
func (c *Cache) Insert(r record.Record) {
	s := c.current.Load()
	if _, ok := s.index[r.ID]; ok {
		c.Replace(r)
		return
	}
	cur := s.records

	pos := len(cur)
	for i, existing := range cur {
		if existing.Before(r) {
			pos = i
			break
		}
	}

	next := make([]record.Record, 0, len(cur)+1)
	next = append(next, cur[:pos]...)
	next = append(next, r)
	next = append(next, cur[pos:]...)
	c.current.Store(c.build(next, nil))
}

// Replace подменяет содержимое записи. Порядок и номера не меняются.
func (c *Cache) Replace(r record.Record) {
	s := c.current.Load()
	i, ok := s.index[r.ID]
	if !ok {
		return
	}
	next := slices.Clone(s.records)
	next[i] = r
	c.current.Store(&snapshot{records: next, index: s.index, ordinals: s.ordinals})
}

// Remove убирает запись из активных; возвращает false, если ее не было
func (c *Cache) Remove(id string) bool {
	s := c.current.Load()
	i, ok := s.index[id]
	if !ok {
		return false
	}
	next := make([]record.Record, 0, len(s.records)-1)
	next = append(next, s.records[:i]...)
	next = append(next, s.records[i+1:]...)
	c.current.Store(c.build(next, nil))
	return true
}

// Reset заменяет все содержимое. records должны быть отсортированы от новых к старым.
func (c *Cache) Reset(records []record.Record) {
	c.current.Store(c.build(slices.Clone(records), nil))
}

// InvalidateOrdinals сбрасывает мемо номеров, сохраняя записи
func (c *Cache) InvalidateOrdinals() {
	s := c.current.Load()
	c.current.Store(c.build(s.records, nil))
}
