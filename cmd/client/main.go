package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/legacyvault/internal/client/api"
	"github.com/iudanet/legacyvault/internal/client/auth"
	"github.com/iudanet/legacyvault/internal/client/cli"
	"github.com/iudanet/legacyvault/internal/client/iocli"
	"github.com/iudanet/legacyvault/internal/client/storage/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "legacyvault-client.db", "Path to local database")
	masterPassword := flag.String("master-password", "", "Master password (not recommended)")
	masterPasswordFile := flag.String("master-password-file", "", "Path to file containing master password")
	verbose := flag.Bool("verbose", false, "Enable debug logging")

	flag.Parse()

	if *showVersion {
		printVersion()
		return 0
	}

	stdio := iocli.NewStdio()
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage(stdio)
		return 1
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	boltStorage, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		return 1
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	apiClient := api.NewClient(*serverURL)
	authService := auth.NewService(apiClient, boltStorage, boltStorage, logger)

	c := cli.New(stdio, authService, apiClient, boltStorage,
		cli.WithPasswords(cli.Passwords{
			FromFile: *masterPasswordFile,
			FromArgs: *masterPassword,
		}),
	)

	if err := c.Run(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", cli.DescribeError(err))
		return 1
	}
	return 0
}

func printVersion() {
	fmt.Printf("LegacyVault Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
