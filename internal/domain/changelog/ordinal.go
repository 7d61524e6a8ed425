package changelog

import (
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"changelog/internal/domain/record"
)

// UnknownOrdinal показывается для записей, которых нет среди активных
const UnknownOrdinal = "#?"

// ordinals лениво считает номера "#N" один раз на поколение снимка.
// Самая старая активная запись получает #1.
type ordinals struct {
	once    sync.Once
	records []record.Record
	labels  map[string]string
	sorts   *atomic.Int64
}

func newOrdinals(records []record.Record, sorts *atomic.Int64) *ordinals {
	return &ordinals{records: records, sorts: sorts}
}

func (o *ordinals) of(id string) string {
	o.once.Do(o.compute)
	if label, ok := o.labels[id]; ok {
		return label
	}
	return UnknownOrdinal
}

func (o *ordinals) compute() {
	oldest := slices.Clone(o.records)
	slices.SortFunc(oldest, func(a, b record.Record) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		default:
			return 0
		}
	})

	o.labels = make(map[string]string, len(oldest))
	for i, r := range oldest {
		o.labels[r.ID] = "#" + strconv.Itoa(i+1)
	}
	o.records = nil
	o.sorts.Add(1)
}
