package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/puzzlesync/internal/client/sync"
	"github.com/iudanet/puzzlesync/pkg/api"
)

// RunResolve отправляет резолюцию конфликтной группы.
// Для стратегии manual требуется либо --select с ID операций-победителей,
// либо --content с ручным содержимым диапазона.
func RunResolve(ctx context.Context, coordinator *sync.Coordinator, args []string) error {
	req, err := parseResolveArgs(args)
	if err != nil {
		return err
	}

	if err := coordinator.ResolveConflict(ctx, req); err != nil {
		return fmt.Errorf("failed to resolve conflict: %w", err)
	}

	fmt.Printf("Conflict %s resolved with %s\n", req.GroupID, req.Strategy)
	fmt.Printf("Version: %d\n", coordinator.Version())

	return nil
}

func parseResolveArgs(args []string) (api.ResolveRequest, error) {
	if len(args) < 2 {
		return api.ResolveRequest{}, fmt.Errorf("usage: resolve <group-id> <strategy> [--select <op-id>... | --content <text>]")
	}

	req := api.ResolveRequest{
		GroupID:  args[0],
		Strategy: args[1],
	}

	rest := args[2:]
	for len(rest) > 0 {
		switch rest[0] {
		case "--select":
			if len(rest) < 2 {
				return api.ResolveRequest{}, fmt.Errorf("--select requires at least one operation id")
			}
			req.SelectedOperations = append(req.SelectedOperations, rest[1:]...)
			rest = nil

		case "--content":
			if len(rest) != 2 {
				return api.ResolveRequest{}, fmt.Errorf("--content requires exactly one argument")
			}
			req.CustomResolution = rest[1]
			rest = nil

		default:
			return api.ResolveRequest{}, fmt.Errorf("unknown resolve argument: %s", rest[0])
		}
	}

	return req, nil
}
