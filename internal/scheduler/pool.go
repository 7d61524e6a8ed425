package scheduler

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"golang.org/x/exp/slog"
)

var ErrPoolClosed = errors.New("worker pool closed")

// Job выполняет блокирующий ввод-вывод на воркере.
// Возвращенная функция (если не nil) выполняется после этого на главном цикле.
type Job func(ctx context.Context) func()

type task struct {
	key string
	job Job
}

// Pool - фиксированный набор воркеров, каждый со своей FIFO очередью.
// Задачи с одинаковым ключом всегда попадают к одному воркеру и выполняются по порядку.
// Очереди не ограничены: Submit вызывается с главного цикла и не должен блокироваться.
// backlog - порог длины очереди, после которого пишется предупреждение.
type Pool struct {
	queues  []*fifo[task]
	loop    *Loop
	timeout time.Duration
	backlog int
	log     *slog.Logger

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewPool(size, backlog int, timeout time.Duration, loop *Loop, log *slog.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	if backlog <= 0 {
		backlog = 1
	}

	queues := make([]*fifo[task], size)
	for i := range queues {
		queues[i] = newFIFO[task]()
	}

	return &Pool{
		queues:  queues,
		loop:    loop,
		timeout: timeout,
		backlog: backlog,
		log:     log.With(slog.String("component", "worker_pool")),
	}
}

// Start запускает воркеров. ctx - базовый контекст задач, его отмена не останавливает пул.
func (p *Pool) Start(ctx context.Context) {
	for i, q := range p.queues {
		p.wg.Add(1)
		go p.worker(ctx, i, q)
	}
	p.log.Debug("worker pool started", slog.Int("workers", len(p.queues)))
}

// Stop перестает принимать задачи и ждет выполнения уже поставленных
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, q := range p.queues {
		q.close()
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Debug("worker pool stopped")
}

// Submit ставит задачу в очередь воркера, выбранного по ключу. Не блокируется.
func (p *Pool) Submit(key string, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	i := p.index(key)
	n, ok := p.queues[i].push(task{key: key, job: job})
	if !ok {
		return ErrPoolClosed
	}
	if n == p.backlog+1 {
		p.log.Warn("worker queue backlog, storage is slower than the write rate",
			slog.Int("worker", i),
			slog.Int("queued", n),
		)
	}
	return nil
}

// Wait ждет, пока все задачи, поставленные до вызова, выполнятся и их колбэки пройдут через цикл.
func (p *Pool) Wait(ctx context.Context) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	barriers := make([]chan struct{}, len(p.queues))
	for i, q := range p.queues {
		ch := make(chan struct{})
		barriers[i] = ch
		q.push(task{key: "barrier", job: func(context.Context) func() {
			close(ch)
			return nil
		}})
	}
	p.mu.RUnlock()

	for _, ch := range barriers {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// колбэки уже в inbox цикла, а цикл выполняет inbox раньше следующего Call
	return p.loop.Call(ctx, func() {})
}

func (p *Pool) index(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(p.queues)))
}

func (p *Pool) worker(ctx context.Context, id int, q *fifo[task]) {
	defer p.wg.Done()
	for {
		t, ok := q.next()
		if !ok {
			return
		}
		p.run(ctx, id, t)
	}
}

func (p *Pool) run(ctx context.Context, id int, t task) {
	jobCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	callback := p.safe(jobCtx, id, t)
	if callback == nil {
		return
	}
	if err := p.loop.Deliver(callback); err != nil {
		p.log.Warn("dropped job completion",
			slog.String("key", t.key),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Pool) safe(ctx context.Context, id int, t task) (callback func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("panic in worker job",
				slog.Int("worker", id),
				slog.String("key", t.key),
				slog.String("panic", fmt.Sprint(r)),
			)
			callback = nil
		}
	}()
	return t.job(ctx)
}

// Await выполняет fn на воркере и возвращает результат вызывающей горутине
func Await[T any](ctx context.Context, p *Pool, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)

	err := p.Submit(key, func(jobCtx context.Context) func() {
		var r result
		defer func() {
			if rec := recover(); rec != nil {
				r.err = fmt.Errorf("job %s panicked: %v", key, rec)
			}
			ch <- r
		}()
		r.value, r.err = fn(jobCtx)
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
