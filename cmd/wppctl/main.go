package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/wppbridge/internal/client"
	"github.com/matheus3301/wppbridge/internal/instance"
	"github.com/matheus3301/wppbridge/internal/logging"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

type contextKey int

const (
	contextKeyInstance contextKey = iota
	contextKeyClient
	contextKeyLogger
)

func getInstance(ctx *cli.Context) string {
	return ctx.Context.Value(contextKeyInstance).(string)
}

func getClient(ctx *cli.Context) *client.Client {
	return ctx.Context.Value(contextKeyClient).(*client.Client)
}

func getLogger(ctx *cli.Context) *zap.Logger {
	if l, ok := ctx.Context.Value(contextKeyLogger).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

func prepareApp(ctx *cli.Context) error {
	name, err := instance.ResolveValid(ctx.String("instance"))
	if err != nil {
		return err
	}
	logger := logging.NewConsole("wppctl", ctx.Bool("debug"))
	newCtx := context.WithValue(ctx.Context, contextKeyInstance, name)
	newCtx = context.WithValue(newCtx, contextKeyLogger, logger)
	ctx.Context = newCtx
	return nil
}

// requiresDaemon dials the instance daemon. Dialing is lazy, so a stopped
// daemon surfaces on the first call.
func requiresDaemon(ctx *cli.Context) error {
	name := getInstance(ctx)
	socketPath := instance.SocketPath(name)
	if _, err := os.Stat(socketPath); err != nil {
		return fmt.Errorf("daemon for instance %q is not running (start it with: wppd --instance %s)", name, name)
	}
	c, err := client.New(socketPath)
	if err != nil {
		return fmt.Errorf("cannot connect to daemon for instance %q: %w", name, err)
	}
	getLogger(ctx).Debug("dialed daemon", zap.String("socket", socketPath))
	ctx.Context = context.WithValue(ctx.Context, contextKeyClient, c)
	return nil
}

func closeClient(ctx *cli.Context) error {
	if c, ok := ctx.Context.Value(contextKeyClient).(*client.Client); ok {
		return c.Close()
	}
	return nil
}

// callContext bounds one daemon call by the --timeout flag.
func callContext(ctx *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Context, ctx.Duration("timeout"))
}

func main() {
	app := &cli.App{
		Name:  "wppctl",
		Usage: "Control a running wppd instance",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "instance",
				Usage:   "instance name (overrides config default)",
				EnvVars: []string{"WPPBRIDGE_INSTANCE"},
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "output in JSON format",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "verbose logging",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "timeout for one daemon call",
				Value: 30 * time.Second,
			},
		},
		Before: prepareApp,
		Commands: []*cli.Command{
			statusCommand,
			connectCommand,
			disconnectCommand,
			eventsCommand,
			chatsCommand,
			syncContactsCommand,
			nameCommand,
			renameCommand,
			messagesCommand,
			sendCommand,
			sendMediaCommand,
			outboxCommand,
			instancesCommand,
			initConfigCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
