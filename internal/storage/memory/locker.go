package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
)

// keyedLocker сериализует операции по строковому ключу (клиент или заказ).
// Ожидание блокировки прерывается отменой контекста.
type keyedLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocker создаёт in-memory реализацию Locker.
func NewLocker() domain.Locker {
	return &keyedLocker{locks: make(map[string]chan struct{})}
}

// WithLock выполняет fn, удерживая эксклюзивную блокировку ключа.
func (l *keyedLocker) WithLock(ctx context.Context, key string, fn func() error) error {
	for {
		l.mu.Lock()
		ch, busy := l.locks[key]
		if !busy {
			l.locks[key] = make(chan struct{})
			l.mu.Unlock()
			break
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			// Держатель отпустил блокировку, пробуем снова.
		}
	}

	defer func() {
		l.mu.Lock()
		ch := l.locks[key]
		delete(l.locks, key)
		l.mu.Unlock()
		close(ch)
	}()

	return fn()
}

var _ domain.Locker = (*keyedLocker)(nil)
