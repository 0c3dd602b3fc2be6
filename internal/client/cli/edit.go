package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/puzzlesync/internal/client/sync"
	"github.com/iudanet/puzzlesync/internal/models"
)

// RunEdit применяет одну операцию редактирования локально и ставит ее
// в очередь на отправку. Отправка происходит при следующем sync.
func RunEdit(ctx context.Context, coordinator *sync.Coordinator, userID string, args []string) error {
	op, err := parseEditArgs(userID, args)
	if err != nil {
		return err
	}

	if err := coordinator.Apply(ctx, op); err != nil {
		return fmt.Errorf("failed to apply operation: %w", err)
	}

	fmt.Printf("Queued %s at position %d (op %s)\n", op.Type, op.Position, op.ID)
	fmt.Printf("Pending operations: %d\n", coordinator.PendingCount())

	return nil
}

// parseEditArgs строит операцию из аргументов команды edit
func parseEditArgs(userID string, args []string) (models.Operation, error) {
	if len(args) < 2 {
		return models.Operation{}, fmt.Errorf("usage: edit <insert|delete|replace|move> <position> ...")
	}

	position, err := strconv.Atoi(args[1])
	if err != nil {
		return models.Operation{}, fmt.Errorf("invalid position %q: %w", args[1], err)
	}

	op := models.Operation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Timestamp: time.Now().UnixMilli(),
		Position:  position,
	}

	switch args[0] {
	case "insert":
		if len(args) != 3 {
			return models.Operation{}, fmt.Errorf("usage: edit insert <position> <content>")
		}
		op.Type = models.OpInsert
		op.Content = args[2]

	case "delete":
		if len(args) != 3 {
			return models.Operation{}, fmt.Errorf("usage: edit delete <position> <length>")
		}
		length, err := strconv.Atoi(args[2])
		if err != nil {
			return models.Operation{}, fmt.Errorf("invalid length %q: %w", args[2], err)
		}
		op.Type = models.OpDelete
		op.Length = length

	case "replace":
		if len(args) != 4 {
			return models.Operation{}, fmt.Errorf("usage: edit replace <position> <length> <content>")
		}
		length, err := strconv.Atoi(args[2])
		if err != nil {
			return models.Operation{}, fmt.Errorf("invalid length %q: %w", args[2], err)
		}
		op.Type = models.OpReplace
		op.Length = length
		op.Content = args[3]

	case "move":
		if len(args) != 4 {
			return models.Operation{}, fmt.Errorf("usage: edit move <position> <length> <target>")
		}
		length, err := strconv.Atoi(args[2])
		if err != nil {
			return models.Operation{}, fmt.Errorf("invalid length %q: %w", args[2], err)
		}
		target, err := strconv.Atoi(args[3])
		if err != nil {
			return models.Operation{}, fmt.Errorf("invalid target %q: %w", args[3], err)
		}
		op.Type = models.OpMove
		op.Length = length
		op.Target = target

	default:
		return models.Operation{}, fmt.Errorf("unknown edit type: %s", args[0])
	}

	return op, nil
}
