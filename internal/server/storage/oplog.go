package storage

import (
	"context"

	"github.com/iudanet/puzzlesync/internal/models"
)

//go:generate go tool moq -out oplog_mock.go . OperationLog

// Record представляет запись журнала операций: операция и версия,
// под которой она была принята в комнате
type Record struct {
	Op           models.Operation
	SupersededBy string // ID конфликтной группы, вытеснившей операцию
	Version      int64
}

// OperationLog определяет контракт durable-журнала операций: append-only
// последовательность с ключом (roomID, version). Это интерфейс, который
// обязан предоставить внешний storage-коллаборатор; sqlite-реализация
// в подпакете служит референсной.
type OperationLog interface {
	// Append добавляет принятую операцию под присвоенной версией
	Append(ctx context.Context, roomID string, version int64, op models.Operation) error

	// ListSince возвращает записи комнаты с версией строго больше version,
	// в порядке возрастания версий. Записи одной версии (батч резолюции)
	// возвращаются в порядке добавления: от этого зависит детерминизм
	// реконструкции после рестарта
	ListSince(ctx context.Context, roomID string, version int64) ([]Record, error)

	// MarkSuperseded помечает операции как вытесненные резолюцией groupID
	MarkSuperseded(ctx context.Context, roomID string, opIDs []string, groupID string) error
}
