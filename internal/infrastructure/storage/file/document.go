package file

import (
	"time"

	"changelog/internal/domain/record"
)

// document - содержимое data.yml. Время хранится в unix-миллисекундах.
type document struct {
	Entries   map[string]entry            `yaml:"entries"`
	LastSeen  map[string]int64            `yaml:"last_seen"`
	Cooldowns map[string]map[string]int64 `yaml:"cooldowns"`
}

type entry struct {
	Content    string `yaml:"content"`
	Author     string `yaml:"author"`
	Timestamp  int64  `yaml:"timestamp"`
	CreatedAt  int64  `yaml:"created_at"`
	ModifiedAt int64  `yaml:"modified_at"`
	Deleted    bool   `yaml:"deleted"`
	Category   string `yaml:"category,omitempty"`
	Seq        int64  `yaml:"seq"`
}

func newDocument() document {
	return document{
		Entries:   make(map[string]entry),
		LastSeen:  make(map[string]int64),
		Cooldowns: make(map[string]map[string]int64),
	}
}

// normalize fills maps left nil by an empty or partial file.
func (d *document) normalize() {
	if d.Entries == nil {
		d.Entries = make(map[string]entry)
	}
	if d.LastSeen == nil {
		d.LastSeen = make(map[string]int64)
	}
	if d.Cooldowns == nil {
		d.Cooldowns = make(map[string]map[string]int64)
	}
}

func toEntry(r record.Record) entry {
	return entry{
		Content:    r.Content,
		Author:     r.Author,
		Timestamp:  millis(r.CreatedAt),
		CreatedAt:  millis(r.CreatedAt),
		ModifiedAt: millis(r.ModifiedAt),
		Deleted:    r.Deleted,
		Category:   r.Category,
		Seq:        r.Seq,
	}
}

func (e entry) toRecord(id string) record.Record {
	created := e.CreatedAt
	// старые файлы знали только timestamp
	if created == 0 {
		created = e.Timestamp
	}
	modified := e.ModifiedAt
	if modified < created {
		modified = created
	}

	return record.Record{
		ID:         id,
		Content:    e.Content,
		Author:     e.Author,
		CreatedAt:  fromMillis(created),
		ModifiedAt: fromMillis(modified),
		Deleted:    e.Deleted,
		Category:   e.Category,
		Seq:        e.Seq,
	}
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
