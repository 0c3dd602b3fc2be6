package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/puzzlesync/internal/client/sync"
)

// RunSync выполняет один шаг синхронизации: отправляет очередь ожидающих
// операций и применяет авторитетный ответ сервера
func RunSync(ctx context.Context, coordinator *sync.Coordinator) error {
	pending := coordinator.PendingCount()
	if pending == 0 {
		fmt.Println("Nothing to sync")
		fmt.Printf("Version: %d\n", coordinator.Version())
		return nil
	}

	fmt.Printf("Pushing %d pending operation(s)...\n", pending)

	if err := coordinator.Tick(ctx); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Printf("Version: %d\n", coordinator.Version())

	if held := coordinator.PendingCount(); held > 0 {
		fmt.Printf("Held by conflicts: %d operation(s)\n", held)
	}

	conflicts := coordinator.Conflicts()
	if len(conflicts) > 0 {
		fmt.Printf("\nUnresolved conflicts: %d\n", len(conflicts))
		for _, g := range conflicts {
			fmt.Printf("  group %s  cells [%d, %d)  participants %v\n",
				g.ID, g.AffectedRange.Start, g.AffectedRange.End, g.Participants)
		}
		fmt.Println("\nRun 'resolve <group-id> <strategy>' to resolve")
	}

	return nil
}
