package storage

import (
	"context"

	"github.com/iudanet/puzzlesync/internal/models"
)

//go:generate go tool moq -out pending_mock.go . PendingStore

// PendingStore определяет интерфейс локального хранилища клиента:
// очередь локально примененных, но не подтвержденных сервером операций
// и последняя подтвержденная версия. Хранилище переживает рестарты клиента
// в пределах живой сессии.
type PendingStore interface {
	// SavePending добавляет операцию в конец очереди ожидающих
	SavePending(ctx context.Context, op models.Operation) error

	// ListPending возвращает очередь ожидающих операций в порядке добавления
	ListPending(ctx context.Context) ([]models.Operation, error)

	// ClearPending очищает очередь ожидающих
	ClearPending(ctx context.Context) error

	// SaveLastVersion сохраняет последнюю подтвержденную сервером версию
	SaveLastVersion(ctx context.Context, version int64) error

	// LastVersion возвращает последнюю подтвержденную версию (0, если не было)
	LastVersion(ctx context.Context) (int64, error)
}
