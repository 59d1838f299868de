package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alexjbarnes/xero-mcp/internal/auth"
	"github.com/alexjbarnes/xero-mcp/internal/config"
	"github.com/alexjbarnes/xero-mcp/internal/logging"
	"github.com/alexjbarnes/xero-mcp/internal/mcpserver"
	"github.com/alexjbarnes/xero-mcp/internal/profile"
	"github.com/alexjbarnes/xero-mcp/internal/secrets"
)

var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Stdout carries the MCP protocol; all logging goes to stderr.
	logger := logging.NewLogger(os.Stderr, cfg.Environment)

	registry, err := cfg.Profiles()
	if err != nil {
		return fmt.Errorf("loading profiles: %w", err)
	}

	backend := secrets.NewBackend()
	resolver := secrets.NewResolver(backend)

	stores, closeStores, err := buildStoreFactory(cfg, backend, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	srv := mcpserver.New(mcpserver.Options{
		Registry: registry,
		Resolver: resolver,
		Stores:   stores,
		Logger:   logger,
	})

	mcpServer := mcp.NewServer(
		&mcp.Implementation{Name: "xero-mcp", Version: Version},
		nil,
	)
	mcpserver.RegisterTools(mcpServer, srv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("xero-mcp starting",
		slog.String("version", Version),
		slog.String("active_profile", registry.Active().Name),
		slog.String("token_store", cfg.TokenStore),
	)

	if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// buildStoreFactory selects the token-store backing per configuration:
// the OS secret store when available (or forced), otherwise the
// encrypted file database.
func buildStoreFactory(cfg *config.Config, backend secrets.Backend, logger *slog.Logger) (mcpserver.StoreFactory, func(), error) {
	useKeychain := cfg.TokenStore == config.StoreKeychain ||
		(cfg.TokenStore == config.StoreAuto && backend.Available())

	if useKeychain {
		if !backend.Available() {
			return nil, nil, fmt.Errorf("token store set to keychain but no secret store is available")
		}

		logger.Info("using OS secret store for tokens")

		return func(p profile.Profile) auth.TokenStore {
			return auth.NewKeychainStore(backend, p.KeychainPrefix)
		}, func() {}, nil
	}

	path, err := cfg.TokenDBPath()
	if err != nil {
		return nil, nil, err
	}

	db, err := auth.OpenBolt(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening token store: %w", err)
	}

	logger.Info("using encrypted file store for tokens", slog.String("path", path))

	return func(p profile.Profile) auth.TokenStore {
		return db.ForProfile(p.Name)
	}, func() { _ = db.Close() }, nil
}
