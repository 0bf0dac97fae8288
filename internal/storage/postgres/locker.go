package postgres

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/vladislavdragonenkov/homeserve/internal/domain"
)

// advisoryLocker сериализует операции над заказом через advisory-блокировки
// PostgreSQL. Блокировка держится на выделенном соединении на всю
// последовательность шагов оформления или сверки, поэтому два процесса
// сервиса не могут одновременно менять один заказ.
type advisoryLocker struct {
	store *Store
}

// NewLocker создаёт PostgreSQL-реализацию Locker.
func NewLocker(store *Store) domain.Locker {
	return &advisoryLocker{store: store}
}

func (l *advisoryLocker) WithLock(ctx context.Context, key string, fn func() error) error {
	conn, err := l.store.DB().Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire db connection: %w", err)
	}
	defer conn.Close()

	lockKey := advisoryKey(key)
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", lockKey); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}
	defer func() {
		// Снимаем блокировку вне ctx: отмена контекста не должна оставить её висеть.
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", lockKey)
	}()

	return fn()
}

// advisoryKey сводит строковый ключ к int64-ключу advisory-блокировки.
func advisoryKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}

var _ domain.Locker = (*advisoryLocker)(nil)
