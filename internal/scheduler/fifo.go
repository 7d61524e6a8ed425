package scheduler

import "sync"

// fifo - неограниченная очередь с одним потребителем.
// push никогда не блокируется; ready получает сигнал после каждой вставки и при закрытии.
type fifo[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	ready  chan struct{}
}

func newFIFO[T any]() *fifo[T] {
	return &fifo[T]{ready: make(chan struct{}, 1)}
}

// push возвращает длину очереди после вставки, false если очередь закрыта
func (q *fifo[T]) push(v T) (int, bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0, false
	}
	q.items = append(q.items, v)
	n := len(q.items)
	q.mu.Unlock()

	q.signal()
	return n, true
}

// pop не блокируется. После close остаток очереди еще можно забрать.
func (q *fifo[T]) pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return v, true
}

// next ждет следующий элемент; false - очередь закрыта и пуста
func (q *fifo[T]) next() (T, bool) {
	for {
		if v, ok := q.pop(); ok {
			return v, true
		}
		q.mu.Lock()
		done := q.closed && len(q.items) == 0
		q.mu.Unlock()
		if done {
			var zero T
			return zero, false
		}
		<-q.ready
	}
}

func (q *fifo[T]) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *fifo[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *fifo[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
