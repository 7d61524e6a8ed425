package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/exp/slog"
)

var ErrStopped = errors.New("scheduler stopped")

// Loop - единственная горутина, владеющая изменяемым состоянием кэша.
// Функции выполняются строго по одной, в порядке постановки в очередь.
// Внешние вызовы идут через ограниченную очередь (Post, Call), завершения задач
// воркеров через неограниченный inbox (Deliver): цикл и воркеры никогда не ждут друг друга.
type Loop struct {
	queue    chan func()
	inbox    *fifo[func()]
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	log      *slog.Logger
}

func NewLoop(size int, log *slog.Logger) *Loop {
	if size <= 0 {
		size = 1
	}
	return &Loop{
		queue: make(chan func(), size),
		inbox: newFIFO[func()](),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
		log:   log.With(slog.String("component", "main_loop")),
	}
}

// Run обрабатывает очередь до отмены ctx или Stop.
// Перед выходом выполняет все, что уже стоит в очереди.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	l.log.Debug("main loop started")

	for {
		select {
		case fn := <-l.queue:
			// завершения, доставленные раньше, выполняются раньше
			l.runInbox()
			l.exec(fn)
		case <-l.inbox.ready:
			l.runInbox()
		case <-ctx.Done():
			l.drain()
			l.log.Debug("main loop stopped", slog.String("reason", "context"))
			return nil
		case <-l.stop:
			l.drain()
			l.log.Debug("main loop stopped", slog.String("reason", "stop"))
			return nil
		}
	}
}

// Stop просит цикл завершиться; Done закрывается после выхода из Run
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Post ставит fn в очередь. Блокируется только если очередь заполнена.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.stop:
		return ErrStopped
	case <-l.done:
		return ErrStopped
	default:
	}

	select {
	case l.queue <- fn:
		return nil
	case <-l.stop:
		return ErrStopped
	case <-l.done:
		return ErrStopped
	}
}

// Deliver ставит fn во внутреннюю очередь завершений и никогда не блокируется.
// Предназначен для воркеров и других горутин, которые сами не должны ждать цикл.
func (l *Loop) Deliver(fn func()) error {
	if _, ok := l.inbox.push(fn); !ok {
		return ErrStopped
	}
	return nil
}

// Call выполняет fn на цикле и ждет завершения.
// Нельзя вызывать из функции, которая сама выполняется на цикле.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	}
}

func (l *Loop) drain() {
	for {
		l.runInbox()
		select {
		case fn := <-l.queue:
			l.exec(fn)
			continue
		default:
		}
		if l.inbox.len() == 0 {
			break
		}
	}
	// после close Deliver возвращает ErrStopped, остаток выполняется здесь
	l.inbox.close()
	l.runInbox()
}

func (l *Loop) runInbox() {
	for {
		fn, ok := l.inbox.pop()
		if !ok {
			return
		}
		l.exec(fn)
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("panic in main loop task", slog.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}
