package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/puzzlesync/internal/client/sync"
)

// RunStatus печатает текущее состояние клиента: проекцию сетки,
// подтвержденную версию, очередь и конфликты
func RunStatus(ctx context.Context, coordinator *sync.Coordinator) error {
	grid := coordinator.Grid()

	fmt.Printf("State:   %s\n", coordinator.State())
	fmt.Printf("Version: %d\n", coordinator.Version())
	fmt.Printf("Cells:   %d\n", grid.Len())
	fmt.Printf("Pending: %d\n", coordinator.PendingCount())

	if grid.Len() > 0 {
		fmt.Printf("Grid:    %q\n", grid.Text())
	}

	conflicts := coordinator.Conflicts()
	if len(conflicts) == 0 {
		return nil
	}

	fmt.Printf("\nUnresolved conflicts: %d\n", len(conflicts))
	for _, g := range conflicts {
		fmt.Printf("  group %s  cells [%d, %d)\n", g.ID, g.AffectedRange.Start, g.AffectedRange.End)
		for _, op := range g.Operations {
			fmt.Printf("    %s by %s: %s at %d", op.ID, op.UserID, op.Type, op.Position)
			if op.Content != "" {
				fmt.Printf(" %q", op.Content)
			}
			fmt.Println()
		}
	}

	return nil
}
