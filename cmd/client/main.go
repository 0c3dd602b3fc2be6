package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/iudanet/puzzlesync/internal/client/api"
	"github.com/iudanet/puzzlesync/internal/client/cli"
	"github.com/iudanet/puzzlesync/internal/client/storage/boltdb"
	"github.com/iudanet/puzzlesync/internal/client/sync"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "puzzlesync-client.db", "Path to local database")
	roomID := flag.String("room", "", "Room to join")
	userID := flag.String("user", "", "User identifier")
	token := flag.String("token", os.Getenv("PUZZLESYNC_TOKEN"), "Bearer token")
	interval := flag.Duration("interval", time.Second, "Auto sync interval")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}

	if *roomID == "" || *userID == "" {
		fmt.Fprintln(os.Stderr, "Error: --room and --user are required")
		os.Exit(1)
	}

	command := args[0]

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	// Открываем BoltDB storage
	boltStorage, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	apiClient := api.NewClient(*serverURL, *token)
	scheduler := sync.NewIntervalScheduler(*interval)
	coordinator := sync.NewCoordinator(apiClient, boltStorage, scheduler, *roomID, *userID, logger)

	// edit и status работают офлайн: операции остаются в очереди до следующего sync
	if err := coordinator.Connect(ctx); err != nil {
		if command != "edit" && command != "status" {
			fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Warning: offline mode: %v\n", err)
	} else {
		defer coordinator.Disconnect()
	}

	cli.New(coordinator, *userID).Run(ctx, command, args[1:])
}

func printVersion() {
	fmt.Printf("PuzzleSync Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
