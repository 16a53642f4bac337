package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cqroot/prompt"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"postboard/client"
	"postboard/feed"
	"postboard/models"
	"postboard/persist"
)

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Value:   "http://localhost:3001",
			Usage:   "Base URL of a running postboard server",
			EnvVars: []string{"POSTBOARD_SERVER"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Value: 10 * time.Second,
			Usage: "HTTP timeout",
		},
	}
}

func newClient(ctx *cli.Context) *client.Client {
	return client.New(ctx.String("server"), ctx.Duration("timeout"))
}

func postsCmd() *cli.Command {
	return &cli.Command{
		Name:  "posts",
		Usage: "Manage posts on a running server",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List posts in feed order",
				Flags: append(serverFlags(),
					&cli.StringFlag{Name: "account", Usage: "Only posts for this account"},
					&cli.StringFlag{Name: "platform", Usage: "Only posts for this platform"},
					&cli.StringFlag{Name: "status", Usage: "Only posts with this status"},
				),
				Action: func(ctx *cli.Context) error {
					posts, err := newClient(ctx).ListPosts(ctx.Context, client.PostFilter{
						AccountID: ctx.String("account"),
						Platform:  ctx.String("platform"),
						Status:    ctx.String("status"),
					})
					if err != nil {
						return err
					}
					printPosts(posts)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create a draft post",
				Flags: append(serverFlags(),
					&cli.StringFlag{Name: "caption", Usage: "Post caption, asked for when empty"},
					&cli.StringFlag{Name: "platform", Value: "instagram", Usage: "Target platform"},
					&cli.StringFlag{Name: "status", Value: models.StatusDraft, Usage: "draft, scheduled or posted"},
					&cli.StringSliceFlag{Name: "image", Usage: "Image URL, may be repeated"},
					&cli.StringFlag{Name: "account", Usage: "Account the post belongs to"},
				),
				Action: func(ctx *cli.Context) error {
					caption := ctx.String("caption")
					if caption == "" {
						var err error
						caption, err = prompt.New().Ask("Caption:").Input("")
						if err != nil {
							return err
						}
					}

					post, err := newClient(ctx).CreatePost(ctx.Context, models.Post{
						AccountID: ctx.String("account"),
						Caption:   caption,
						Platform:  ctx.String("platform"),
						Status:    ctx.String("status"),
						Images:    ctx.StringSlice("image"),
					})
					if err != nil {
						return err
					}
					fmt.Println("Created post", post.ID)
					return nil
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a post",
				ArgsUsage: "<id>",
				Flags:     serverFlags(),
				Action: func(ctx *cli.Context) error {
					id := ctx.Args().First()
					if id == "" {
						return errors.New("a post id is required")
					}
					if err := newClient(ctx).DeletePost(ctx.Context, models.ID(id)); err != nil {
						if client.IsNotFound(err) {
							return fmt.Errorf("post %s does not exist", id)
						}
						return err
					}
					fmt.Println("Deleted post", id)
					return nil
				},
			},
			moveCmd(),
			imagesCmd(),
		},
	}
}

func moveCmd() *cli.Command {
	return &cli.Command{
		Name:  "move",
		Usage: "Drag a post onto another post's position",
		Description: `Loads the feed from the server and drags one post onto the position
of another, exactly like the dashboard does. The new order is shown right
away and saved in the background; a failed save is reported but the local
order is kept.`,
		Flags: append(serverFlags(),
			&cli.StringFlag{Name: "id", Required: true, Usage: "Post to move"},
			&cli.StringFlag{Name: "over", Required: true, Usage: "Post whose position it takes"},
			&cli.StringFlag{Name: "mode", Value: string(feed.ModeList), Usage: "Layout to drag in: list or grid"},
			&cli.BoolFlag{Name: "keyboard", Usage: "Drag with arrow keys instead of the pointer"},
			&cli.BoolFlag{Name: "strict", Usage: "Panic on drops that reference unknown posts"},
		),
		Action: func(ctx *cli.Context) error {
			mode, err := feed.ParseMode(ctx.String("mode"))
			if err != nil {
				return err
			}

			api := newClient(ctx)
			posts, err := api.ListPosts(ctx.Context, client.PostFilter{})
			if err != nil {
				return err
			}

			notifications := feed.NewBroadcaster()
			defer notifications.Shutdown()
			key, messages := notifications.Subscribe(4)
			defer notifications.RemoveClient(key)

			syncer := persist.NewSynchronizer(ctx.Context, api, notifications, ctx.Duration("timeout"))
			view, err := feed.NewView(posts, feed.DefaultLayout(mode), syncer, feed.Options{Strict: ctx.Bool("strict")})
			if err != nil {
				return err
			}

			active, over := models.ID(ctx.String("id")), models.ID(ctx.String("over"))
			var req *persist.Request
			if ctx.Bool("keyboard") {
				req, err = view.KeyboardDragTo(active, over)
			} else {
				req, err = view.DragTo(active, over)
			}
			if err != nil {
				return err
			}
			if req == nil {
				fmt.Println("Order unchanged")
				return nil
			}

			printPosts(view.Posts())
			syncer.Wait()

			for {
				select {
				case n := <-messages:
					if n.Seq != req.Seq {
						continue
					}
					if n.Level == persist.LevelError {
						log.WithFields(log.Fields{"seq": n.Seq, "error": n.Err}).Error(n.Title)
						return fmt.Errorf("%s: %s", n.Title, n.Message)
					}
					fmt.Println(n.Title)
					return nil
				default:
					// Notification dropped, fall back to the request itself
					if err := req.Err(); err != nil {
						return err
					}
					fmt.Println(req.Message())
					return nil
				}
			}
		},
	}
}

func imagesCmd() *cli.Command {
	return &cli.Command{
		Name:  "images",
		Usage: "Add, remove or reorder the images of a post",
		Description: `Removals run first, then additions, then the drag from --from to --to.
The first image after editing becomes the post's cover image.`,
		Flags: append(serverFlags(),
			&cli.StringFlag{Name: "id", Required: true, Usage: "Post to edit"},
			&cli.StringSliceFlag{Name: "add", Usage: "Image URL to append, may be repeated"},
			&cli.IntFlag{Name: "remove", Value: -1, Usage: "Index of an image to delete"},
			&cli.IntFlag{Name: "from", Value: -1, Usage: "Index of the image to drag"},
			&cli.IntFlag{Name: "to", Value: -1, Usage: "Index to drop it on"},
		),
		Action: func(ctx *cli.Context) error {
			api := newClient(ctx)
			id := models.ID(ctx.String("id"))
			post, err := api.GetPost(ctx.Context, id)
			if err != nil {
				if client.IsNotFound(err) {
					return fmt.Errorf("post %s does not exist", id)
				}
				return err
			}

			editor, err := feed.NewImageEditor(post)
			if err != nil {
				return err
			}
			if i := ctx.Int("remove"); i >= 0 {
				if err := editor.Remove(i); err != nil {
					return err
				}
			}
			for _, url := range ctx.StringSlice("add") {
				if err := editor.Add(url); err != nil {
					return err
				}
			}
			if ctx.IsSet("from") || ctx.IsSet("to") {
				if _, err := editor.DragTo(ctx.Int("from"), ctx.Int("to")); err != nil {
					return err
				}
			}

			saved, err := editor.Save(ctx.Context, api)
			if err != nil {
				return err
			}
			for i, url := range saved.Images {
				fmt.Printf("%d\t%s\n", i, url)
			}
			return nil
		},
	}
}

func printPosts(posts []models.Post) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tID\tSTATUS\tPLATFORM\tCAPTION")
	for _, p := range posts {
		rank := lo.TernaryF(p.DisplayOrder == nil,
			func() string { return "-" },
			func() string { return fmt.Sprint(*p.DisplayOrder) })
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", rank, p.ID, p.Status, p.Platform, lo.Ellipsis(p.Caption, 40))
	}
	w.Flush()
}
