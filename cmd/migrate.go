package cmd

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"postboard/db"
)

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:        "migrate",
		Usage:       "Run database migrations",
		Description: `Runs database migrations on the configured SQL backend. SQLite databases are created if they do not exist.`,
		Action: func(ctx *cli.Context) error {
			opts, err := sqlOptions(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Database configured: %s\n", opts.Backend)
			return db.Migrate(opts.Backend, opts.MigrationURL())
		},
	}
}

func rollbackCmd() *cli.Command {
	return &cli.Command{
		Name:        "rollback",
		Usage:       "Rollback database migrations",
		Description: `Rolls back the last database migrations`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "steps",
				Value: 1,
				Usage: "Number of migrations to roll back",
			},
		},
		Action: func(ctx *cli.Context) error {
			opts, err := sqlOptions(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Database configured: %s\n", opts.Backend)
			return db.Rollback(opts.Backend, opts.MigrationURL(), ctx.Int("steps"))
		},
	}
}

func sqlOptions(ctx *cli.Context) (db.Options, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return db.Options{}, err
	}
	opts := cfg.StoreOptions()
	if opts.Backend == db.BackendJSON {
		return db.Options{}, errors.New("the json backend has no migrations")
	}
	return opts, nil
}
