package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cqroot/prompt"
	"github.com/urfave/cli/v2"

	"postboard/accounts"
	"postboard/models"
)

// withAccounts opens the configured account store for one command
func withAccounts(action func(ctx *cli.Context, store *accounts.Store) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		store, closeStore, err := openAccounts(ctx.Context, cfg)
		if err != nil {
			return err
		}
		defer closeStore()
		return action(ctx, store)
	}
}

func accountsCmd() *cli.Command {
	return &cli.Command{
		Name:  "accounts",
		Usage: "Manage the accounts the dashboard switches between",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List accounts, the active one is marked",
				Action: withAccounts(func(ctx *cli.Context, store *accounts.Store) error {
					active, _ := store.Active()
					w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "\tID\tUSERNAME\tNAME")
					for _, a := range store.List() {
						marker := ""
						if a.ID == active.ID {
							marker = "*"
						}
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, a.ID, a.Username, a.DisplayName)
					}
					return w.Flush()
				}),
			},
			{
				Name:  "add",
				Usage: "Add an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Usage: "Handle, asked for when empty"},
					&cli.StringFlag{Name: "display-name", Usage: "Name shown in the switcher"},
					&cli.StringFlag{Name: "url", Usage: "Profile URL"},
				},
				Action: withAccounts(func(ctx *cli.Context, store *accounts.Store) error {
					username := ctx.String("username")
					if username == "" {
						var err error
						username, err = prompt.New().Ask("Username:").Input("")
						if err != nil {
							return err
						}
					}
					added, err := store.Add(ctx.Context, models.Account{
						Username:    username,
						DisplayName: ctx.String("display-name"),
						URL:         ctx.String("url"),
					})
					if err != nil {
						return err
					}
					fmt.Println("Added account", added.ID)
					return nil
				}),
			},
			{
				Name:      "use",
				Usage:     "Switch the active account",
				ArgsUsage: "<id>",
				Action: withAccounts(func(ctx *cli.Context, store *accounts.Store) error {
					id := ctx.Args().First()
					if id == "" {
						return errors.New("an account id is required")
					}
					if err := store.SetActive(ctx.Context, id); err != nil {
						return err
					}
					fmt.Println("Active account", id)
					return nil
				}),
			},
			{
				Name:      "remove",
				Usage:     "Remove an account",
				ArgsUsage: "<id>",
				Action: withAccounts(func(ctx *cli.Context, store *accounts.Store) error {
					id := ctx.Args().First()
					if id == "" {
						return errors.New("an account id is required")
					}
					return store.Delete(ctx.Context, id)
				}),
			},
			{
				Name:  "reset",
				Usage: "Restore the configured default accounts",
				Action: withAccounts(func(ctx *cli.Context, store *accounts.Store) error {
					return store.Reset(ctx.Context)
				}),
			},
		},
	}
}
