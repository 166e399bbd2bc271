package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matheus3301/wppbridge/internal/config"
	"github.com/matheus3301/wppbridge/internal/gateway"
	"github.com/matheus3301/wppbridge/internal/instance"
	"github.com/matheus3301/wppbridge/internal/logging"
	"github.com/matheus3301/wppbridge/internal/relay"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

type contextKey int

const contextKeyConfig contextKey = iota

func getConfig(ctx *cli.Context) *config.Config {
	return ctx.Context.Value(contextKeyConfig).(*config.Config)
}

func prepareApp(ctx *cli.Context) error {
	cfg, err := config.LoadOrDefault(ctx.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	ctx.Context = context.WithValue(ctx.Context, contextKeyConfig, cfg)
	return nil
}

func main() {
	app := &cli.App{
		Name:  "wpprelay",
		Usage: "Forward gateway calls for clients that must not hold the API key",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to config file",
				Value: instance.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "verbose logging",
			},
		},
		Before: prepareApp,
		Commands: []*cli.Command{
			serveCommand,
			tokenCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Run the relay HTTP server",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "listen",
			Usage: "listen address (overrides relay_server.listen)",
		},
	},
	Action: cmdServe,
}

func cmdServe(ctx *cli.Context) error {
	cfg := getConfig(ctx)
	logger := logging.NewConsole("relay", ctx.Bool("debug"))
	defer func() { _ = logger.Sync() }()

	if cfg.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway.base_url is not configured")
	}
	addr := ctx.String("listen")
	if addr == "" {
		addr = cfg.RelayServer.Listen
	}

	upstream := gateway.NewDirect(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Timeout())
	srv := relay.New(relay.Config{Function: cfg.Relay.Function, JWTSecret: cfg.RelayServer.JWTSecret}, upstream, logger)

	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	return nil
}

var tokenCommand = &cli.Command{
	Name:  "token",
	Usage: "Mint a bearer token for relay clients",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "subject",
			Usage: "token subject",
			Value: "wppd",
		},
		&cli.StringFlag{
			Name:  "instance",
			Usage: "restrict the token to one instance",
		},
		&cli.DurationFlag{
			Name:  "ttl",
			Usage: "token lifetime",
			Value: 30 * 24 * time.Hour,
		},
	},
	Action: cmdToken,
}

func cmdToken(ctx *cli.Context) error {
	cfg := getConfig(ctx)
	if inst := ctx.String("instance"); inst != "" {
		if err := instance.ValidateName(inst); err != nil {
			return err
		}
	}
	token, expiresAt, err := relay.GenerateToken(ctx.String("subject"), ctx.String("instance"), cfg.RelayServer.JWTSecret, ctx.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
	return nil
}
