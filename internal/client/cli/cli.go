package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/iudanet/puzzlesync/internal/client/sync"
)

// Cli связывает одноразовые команды клиента с координатором синхронизации
type Cli struct {
	coordinator *sync.Coordinator
	userID      string
}

// New создает CLI поверх координатора
func New(coordinator *sync.Coordinator, userID string) *Cli {
	return &Cli{
		coordinator: coordinator,
		userID:      userID,
	}
}

// Run выполняет одну команду и завершает процесс при ошибке
func (c *Cli) Run(ctx context.Context, command string, args []string) {
	switch command {
	case "edit":
		if err := RunEdit(ctx, c.coordinator, c.userID, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "sync":
		if err := RunSync(ctx, c.coordinator); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "status":
		if err := RunStatus(ctx, c.coordinator); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "resolve":
		if err := RunResolve(ctx, c.coordinator, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		PrintUsage()
		os.Exit(1)
	}
}

func PrintUsage() {
	fmt.Println("PuzzleSync Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  puzzlesync [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version            Show version information")
	fmt.Println("  --server URL         Server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH            Path to local database (default: puzzlesync-client.db)")
	fmt.Println("  --room ID            Room to join")
	fmt.Println("  --user ID            User identifier")
	fmt.Println("  --token TOKEN        Bearer token (or PUZZLESYNC_TOKEN env var)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  edit insert <pos> <content>          Insert content at cell position")
	fmt.Println("  edit delete <pos> <length>           Delete a range of cells")
	fmt.Println("  edit replace <pos> <length> <content> Replace a range of cells")
	fmt.Println("  edit move <pos> <length> <target>    Move a range of cells")
	fmt.Println("  sync                                 Push pending operations once")
	fmt.Println("  status                               Show grid, version and pending queue")
	fmt.Println("  resolve <group-id> <strategy> [args] Resolve a conflict group")
	fmt.Println()
	fmt.Println("Strategies:")
	fmt.Println("  last_write_wins | first_write_wins | auto_merge")
	fmt.Println("  manual --select <op-id>...           Keep the selected operations")
	fmt.Println("  manual --content <text>              Replace the range with custom content")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  puzzlesync --room weekly-42 --user alice edit insert 5 R")
	fmt.Println("  puzzlesync --room weekly-42 --user alice sync")
	fmt.Println("  puzzlesync --room weekly-42 --user alice resolve 1f3a... last_write_wins")
}
