package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/tasklist/internal/client"
)

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "tasklist",
		Usage:   "A small to-do list: HTTP API server, MCP tools and terminal client",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Base URL of the tasklist API (client commands)",
				Value:   client.DefaultBaseURL,
				Sources: cli.EnvVars("TASKLIST_API_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Console log level for client commands (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("TASKLIST_LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			tuiCommand(),
			lsCommand(),
			addCommand(),
			doneCommand(),
			renameCommand(),
			rmCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
