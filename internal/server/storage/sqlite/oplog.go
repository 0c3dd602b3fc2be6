package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/puzzlesync/internal/models"
	"github.com/iudanet/puzzlesync/internal/server/storage"
)

// Append добавляет принятую операцию в журнал под присвоенной версией.
// Повтор по (room_id, op_id) возвращает ErrDuplicateOperation.
func (s *Storage) Append(ctx context.Context, roomID string, version int64, op models.Operation) error {
	query := `
		INSERT INTO operations (room_id, version, op_id, user_id, op_type,
		                        content, position, length, target, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		roomID,
		version,
		op.ID,
		op.UserID,
		string(op.Type),
		op.Content,
		op.Position,
		op.Length,
		op.Target,
		op.Timestamp,
		time.Now().Unix(),
	)
	if err != nil {
		// PRIMARY KEY (room_id, op_id) нарушение означает повторную запись
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return storage.ErrDuplicateOperation
		}
		return fmt.Errorf("failed to append operation: %w", err)
	}

	return nil
}

// ListSince возвращает записи комнаты с версией строго больше version.
// Внутри одной версии (батч резолюции) порядок добавления сохраняется
// через rowid: реконструкция после рестарта повторяет порядок применения.
func (s *Storage) ListSince(ctx context.Context, roomID string, version int64) ([]storage.Record, error) {
	query := `
		SELECT version, op_id, user_id, op_type, content, position, length, target, timestamp, superseded_by
		FROM operations
		WHERE room_id = ? AND version > ?
		ORDER BY version ASC, rowid ASC
	`

	rows, err := s.db.QueryContext(ctx, query, roomID, version)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	records := make([]storage.Record, 0)
	for rows.Next() {
		var rec storage.Record
		var opType string

		err := rows.Scan(
			&rec.Version,
			&rec.Op.ID,
			&rec.Op.UserID,
			&opType,
			&rec.Op.Content,
			&rec.Op.Position,
			&rec.Op.Length,
			&rec.Op.Target,
			&rec.Op.Timestamp,
			&rec.SupersededBy,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}

		rec.Op.Type = models.OpType(opType)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return records, nil
}

// MarkSuperseded помечает операции как вытесненные резолюцией groupID
func (s *Storage) MarkSuperseded(ctx context.Context, roomID string, opIDs []string, groupID string) error {
	if len(opIDs) == 0 {
		return nil
	}

	query := `UPDATE operations SET superseded_by = ? WHERE room_id = ? AND op_id = ?`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			_ = err
		}
	}()

	for _, id := range opIDs {
		if _, err := tx.ExecContext(ctx, query, groupID, roomID, id); err != nil {
			return fmt.Errorf("failed to mark operation %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
