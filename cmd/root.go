package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"postboard/config"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "postboard",
		Usage: "Schedule and arrange social media posts",
		Description: `A dashboard backend for scheduling social media posts.

		Posts are kept in SQLite, PostgreSQL or plain JSON files and served
		over an HTTP API. The order of the feed is set by dragging posts
		around, either from the dashboard or with the posts move command.

		Flags can generally be set via environment variables, e.g.:

		--config => POSTBOARD_CONFIG=postboard.toml
		--log-level => POSTBOARD_LOG_LEVEL=debug
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the TOML configuration file",
				EnvVars: []string{"POSTBOARD_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (trace, debug, info, warn, error)",
				EnvVars: []string{"POSTBOARD_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "log-json",
				Usage:   "Log as JSON",
				EnvVars: []string{"POSTBOARD_LOG_JSON"},
			},
		},
		Before: func(ctx *cli.Context) error {
			level, err := log.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return err
			}
			log.SetLevel(level)
			log.SetOutput(os.Stderr)
			if ctx.Bool("log-json") {
				log.SetFormatter(&log.JSONFormatter{})
			}
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			postsCmd(),
			accountsCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

// loadConfig reads the --config file, or returns the defaults without one
func loadConfig(ctx *cli.Context) (*config.TomlConfig, error) {
	path := ctx.String("config")
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
