package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/tasklist/internal/client"
	"github.com/starford/tasklist/internal/tui"
)

func newClient(cmd *cli.Command) *client.Client {
	return client.New(cmd.String("api-url"))
}

func tuiCommand() *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Open the interactive list",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs to this file while the UI owns the terminal",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var w io.Writer = io.Discard
			if path := cmd.String("log-file"); path != "" {
				f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				w = f
			}
			logger := newConsoleLogger(w, cmd.String("log-level"))
			return tui.Run(ctx, newClient(cmd), logger)
		},
	}
}

func lsCommand() *cli.Command {
	return &cli.Command{
		Name:    "ls",
		Aliases: []string{"list"},
		Usage:   "Print all items, newest first",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := newConsoleLogger(os.Stderr, cmd.String("log-level"))
			items, err := newClient(cmd).ListItems(ctx)
			if err != nil {
				logger.Error("list items failed", "error", err)
				return err
			}
			tui.PrintItems(os.Stdout, items)
			return nil
		},
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Create an item",
		ArgsUsage: "<title...>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			title := strings.Join(cmd.Args().Slice(), " ")
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("title is required")
			}
			it, err := newClient(cmd).CreateItem(ctx, title)
			if err != nil {
				return err
			}
			tui.OK(os.Stdout, "added")
			tui.PrintItem(os.Stdout, *it)
			return nil
		},
	}
}

func doneCommand() *cli.Command {
	return &cli.Command{
		Name:      "done",
		Usage:     "Mark an item as done (or pending with --undo)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "undo", Usage: "Mark as not done"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireID(cmd)
			if err != nil {
				return err
			}
			it, err := newClient(cmd).SetDone(ctx, id, !cmd.Bool("undo"))
			if err != nil {
				return err
			}
			tui.PrintItem(os.Stdout, *it)
			return nil
		},
	}
}

func renameCommand() *cli.Command {
	return &cli.Command{
		Name:      "rename",
		Usage:     "Change an item's title",
		ArgsUsage: "<id> <title...>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := requireID(cmd)
			if err != nil {
				return err
			}
			title := strings.Join(cmd.Args().Tail(), " ")
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("title is required")
			}
			it, err := newClient(cmd).Rename(ctx, id, title)
			if err != nil {
				return err
			}
			tui.PrintItem(os.Stdout, *it)
			return nil
		},
	}
}

func rmCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Aliases:   []string{"delete"},
		Usage:     "Delete one or more items",
		ArgsUsage: "<id...>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return fmt.Errorf("at least one id is required")
			}
			c := newClient(cmd)
			var failed int
			for _, id := range cmd.Args().Slice() {
				if err := c.DeleteItem(ctx, id); err != nil {
					tui.Fail(os.Stderr, id+": "+err.Error())
					failed++
					continue
				}
				tui.OK(os.Stdout, "deleted "+id)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d deletes failed", failed, cmd.NArg())
			}
			return nil
		},
	}
}

func requireID(cmd *cli.Command) (string, error) {
	id := strings.TrimSpace(cmd.Args().First())
	if id == "" {
		return "", fmt.Errorf("item id is required")
	}
	return id, nil
}
