package main

import (
	"fmt"
	"os"

	"github.com/matheus3301/wppbridge/internal/daemon"
	"github.com/matheus3301/wppbridge/internal/instance"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

func main() {
	app := &cli.App{
		Name:  "wppd",
		Usage: "Serve one gateway instance over a local socket",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "instance",
				Usage:   "instance name (overrides config default)",
				EnvVars: []string{"WPPBRIDGE_INSTANCE"},
			},
			&cli.StringFlag{
				Name:  "socket",
				Usage: "socket path (defaults to the instance directory)",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	name, err := instance.ResolveValid(ctx.String("instance"))
	if err != nil {
		return err
	}
	app := fx.New(
		daemon.Module(daemon.Params{Instance: name, SocketPath: ctx.String("socket")}),
	)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}
