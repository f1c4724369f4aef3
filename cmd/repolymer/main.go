package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/CodeDiseaseDev/repolymer/internal/conn"
	"github.com/CodeDiseaseDev/repolymer/internal/debug"
	"github.com/CodeDiseaseDev/repolymer/internal/player"
	"github.com/CodeDiseaseDev/repolymer/internal/world"
)

func main() {
	app := &cli.App{
		Name:  "repolymer",
		Usage: "headless Minecraft protocol client",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server",
				Value: "127.0.0.1:25565",
				Usage: "server address (host:port)",
			},
			&cli.StringFlag{
				Name:  "username",
				Value: "repolymer",
				Usage: "login username (offline mode)",
			},
			&cli.IntFlag{
				Name:  "cache-side",
				Value: world.DefaultCacheSide,
				Usage: "chunk cache edge length",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "trace every skipped packet",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(c.Bool("trace")),
	}))
	slog.SetDefault(logger)

	if c.Bool("trace") {
		debug.Enable()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache := world.NewCache(c.Int("cache-side"), logger.With("component", "world"))
	st := &player.State{}

	connection, err := conn.Dial(ctx, conn.Config{
		Address:  c.String("server"),
		Username: c.String("username"),
	}, cache, st, logger.With("component", "conn"))
	if err != nil {
		return err
	}

	if err := connection.Login(); err != nil {
		return err
	}

	return connection.Run(ctx)
}

func logLevel(trace bool) slog.Level {
	if trace {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
