package ot

import (
	"sync"

	"github.com/iudanet/puzzlesync/internal/models"
)

// Engine представляет клиентскую сторону движка трансформаций: проекцию сетки
// плюс очередь локально примененных, но еще не подтвержденных сервером операций.
// Версию движок не трогает — она продвигается только по подтверждению сервера.
type Engine struct {
	mu       sync.Mutex
	grid     *Grid
	applied  map[string]struct{}
	accepted []models.Operation
	pending  []models.Operation
}

// NewEngine создает движок с пустой проекцией
func NewEngine() *Engine {
	return &Engine{
		grid:    NewGrid(),
		applied: make(map[string]struct{}),
	}
}

// ApplyLocal оптимистично применяет операцию к проекции и добавляет ее
// в очередь ожидающих. Повторное применение операции с тем же ID — no-op:
// сетка меняется ровно один раз.
func (e *Engine) ApplyLocal(op models.Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.applied[op.ID]; ok {
		return nil
	}

	e.grid.Apply(op)
	e.applied[op.ID] = struct{}{}
	e.pending = append(e.pending, op.Clone())

	return nil
}

// Pending возвращает копию очереди неподтвержденных операций
func (e *Engine) Pending() []models.Operation {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.Operation, len(e.pending))
	copy(out, e.pending)
	return out
}

// PendingCount возвращает размер очереди неподтвержденных операций
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.pending)
}

// ResetTo замещает локальное состояние авторитетным списком операций сервера.
// Очередь ожидающих очищается, проекция перевыводится через Reconstruct.
// Ответ сервера полностью замещает локальную неопределенность.
func (e *Engine) ResetTo(accepted []models.Operation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.accepted = make([]models.Operation, len(accepted))
	copy(e.accepted, accepted)

	e.pending = nil
	e.applied = make(map[string]struct{}, len(accepted))
	for _, op := range accepted {
		e.applied[op.ID] = struct{}{}
	}

	e.grid = Reconstruct(e.accepted)
}

// Accepted возвращает копию авторитетного списка операций
func (e *Engine) Accepted() []models.Operation {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.Operation, len(e.accepted))
	copy(out, e.accepted)
	return out
}

// Grid возвращает снимок текущей проекции сетки
func (e *Engine) Grid() *Grid {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.grid.Clone()
}

// Reconstruct выполняет чистый fold последовательности операций с пустого
// состояния. Дубликаты по ID применяются ровно один раз (at-least-once доставка).
func Reconstruct(ops []models.Operation) *Grid {
	g := NewGrid()
	seen := make(map[string]struct{}, len(ops))

	for _, op := range ops {
		if _, ok := seen[op.ID]; ok {
			continue
		}
		seen[op.ID] = struct{}{}
		g.Apply(op)
	}

	return g
}
