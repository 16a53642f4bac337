package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"postboard/accounts"
	"postboard/config"
	"postboard/db"
	"postboard/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the postboard API",
		Description: `Starts the HTTP API used by the dashboard.

Opens the configured storage backend, running migrations for SQL
backends, and serves posts, media, profiles, accounts and platforms.
Prometheus metrics are exposed on /metrics.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "address",
				Aliases: []string{"a"},
				Usage:   "Address to listen on, overrides server.address",
				EnvVars: []string{"POSTBOARD_ADDRESS"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			address := cfg.Server.Address
			if ctx.IsSet("address") {
				address = ctx.String("address")
			}

			sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.WithFields(log.Fields{"backend": cfg.Storage.Backend}).Info("Opening store")
			store, err := db.OpenWithRetry(sigCtx, cfg.StoreOptions(), cfg.Server.StartupTimeout.Duration)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer store.Close()

			accts, closeAccounts, err := openAccounts(sigCtx, cfg)
			if err != nil {
				return err
			}
			defer closeAccounts()

			app := server.Server(&server.ServerConfig{
				Store:        store,
				Accounts:     accts,
				Platforms:    cfg.Platforms,
				AllowOrigins: cfg.Server.AllowOrigins,
			})

			errs := make(chan error, 1)
			go func() {
				log.WithFields(log.Fields{"address": address}).Info("Starting server")
				errs <- app.Listen(address)
			}()

			select {
			case err := <-errs:
				return err
			case <-sigCtx.Done():
			}

			log.Info("Gracefully shutting down...")
			if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
				return err
			}
			log.Info("Done!")
			return nil
		},
	}
}

// openAccounts builds the account store on the configured persister. The
// returned func releases the persister.
func openAccounts(ctx context.Context, cfg *config.TomlConfig) (*accounts.Store, func(), error) {
	var persister accounts.Persister
	closer := func() {}

	switch cfg.Accounts.Backend {
	case "redis":
		p, err := accounts.NewRedisPersister(ctx, cfg.Accounts.RedisURL, cfg.Accounts.Key)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		persister = p
		closer = func() {
			if err := p.Close(); err != nil {
				log.WithFields(log.Fields{"error": err}).Warn("Could not close redis client")
			}
		}
	default:
		persister = accounts.NewFilePersister(cfg.Accounts.Path)
	}

	store, err := accounts.Open(ctx, persister, cfg.Accounts.Defaults)
	if err != nil {
		closer()
		return nil, nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	return store, closer, nil
}
