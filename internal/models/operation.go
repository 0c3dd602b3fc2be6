package models

import (
	"errors"
	"fmt"
)

// ErrInvalidOperation возвращается, когда операция нарушает инварианты модели.
// Такая операция отклоняется до постановки в очередь и никогда не отправляется на сервер.
var ErrInvalidOperation = errors.New("invalid operation")

// OpType тип операции редактирования
type OpType string

// Типы операций
const (
	OpInsert  OpType = "insert"
	OpDelete  OpType = "delete"
	OpReplace OpType = "replace"
	OpMove    OpType = "move"
)

// Operation представляет атомарную, неизменяемую операцию редактирования сетки.
// После создания операция не мутируется: исправления выражаются новыми операциями.
// Равенство операций определяется по ID.
type Operation struct {
	ID        string `json:"id"`      // уникальный идентификатор (UUID, генерируется клиентом)
	UserID    string `json:"user_id"` // автор операции
	Type      OpType `json:"type"`
	Content   string `json:"content,omitempty"`   // полезная нагрузка для insert/replace
	Timestamp int64  `json:"timestamp"`           // unix millis клиентских часов; только эвристика порядка
	Position  int    `json:"position"`            // адрес ячейки
	Length    int    `json:"length,omitempty"`    // длина диапазона для delete/move/replace
	Target    int    `json:"target,omitempty"`    // адрес назначения для move
}

// Validate проверяет инварианты операции. Без побочных эффектов.
func (op Operation) Validate() error {
	if op.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidOperation)
	}
	if op.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidOperation)
	}
	if op.Position < 0 {
		return fmt.Errorf("%w: negative position", ErrInvalidOperation)
	}

	switch op.Type {
	case OpInsert:
		if op.Content == "" {
			return fmt.Errorf("%w: content required for insert", ErrInvalidOperation)
		}
	case OpDelete:
		if op.Length <= 0 {
			return fmt.Errorf("%w: length required for delete", ErrInvalidOperation)
		}
	case OpReplace:
		if op.Content == "" {
			return fmt.Errorf("%w: content required for replace", ErrInvalidOperation)
		}
		if op.Length <= 0 {
			return fmt.Errorf("%w: length required for replace", ErrInvalidOperation)
		}
	case OpMove:
		if op.Length <= 0 {
			return fmt.Errorf("%w: length required for move", ErrInvalidOperation)
		}
		if op.Target < 0 {
			return fmt.Errorf("%w: negative move target", ErrInvalidOperation)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidOperation, op.Type)
	}

	return nil
}

// InsertLen возвращает количество ячеек, которые вставляет операция insert.
// Каждая руна содержимого занимает одну ячейку сетки.
func (op Operation) InsertLen() int {
	if op.Type != OpInsert {
		return 0
	}
	return len([]rune(op.Content))
}

// Span возвращает затрагиваемый диапазон ячеек [start, end).
// Для move диапазон покрывает и источник, и назначение.
func (op Operation) Span() (start, end int) {
	switch op.Type {
	case OpInsert:
		return op.Position, op.Position + op.InsertLen()
	case OpDelete, OpReplace:
		return op.Position, op.Position + op.Length
	case OpMove:
		start = op.Position
		end = op.Position + op.Length
		if op.Target < start {
			start = op.Target
		}
		if op.Target+op.Length > end {
			end = op.Target + op.Length
		}
		return start, end
	}
	return op.Position, op.Position
}

// Before определяет детерминированный порядок двух операций
// по паре (timestamp, userID). Используется для tie-break конкурентных
// вставок в одну позицию: результат одинаков на всех репликах.
func (op Operation) Before(other Operation) bool {
	if op.Timestamp != other.Timestamp {
		return op.Timestamp < other.Timestamp
	}
	return op.UserID < other.UserID
}

// Same проверяет равенство операций. Равенство определяется по ID.
func (op Operation) Same(other Operation) bool {
	return op.ID == other.ID
}

// Clone создает копию операции
func (op Operation) Clone() Operation {
	// Operation содержит только value-типы, достаточно копии по значению
	return op
}
