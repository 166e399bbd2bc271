package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matheus3301/wppbridge/internal/api"
	"github.com/urfave/cli/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var statusCommand = &cli.Command{
	Name:   "status",
	Usage:  "Show the instance connection state",
	Before: requiresDaemon,
	After:  closeClient,
	Action: cmdStatus,
}

func cmdStatus(ctx *cli.Context) error {
	cctx, cancel := callContext(ctx)
	defer cancel()
	resp, err := getClient(ctx).CheckStatus(cctx)
	if err != nil {
		return err
	}
	return printOrJSON(ctx, resp, func() {
		fmt.Printf("Instance: %s\n", resp.Instance)
		fmt.Printf("State:    %s\n", resp.State)
		if resp.GatewayError != "" {
			fmt.Printf("Gateway:  %s\n", resp.GatewayError)
		}
		fmt.Printf("Uptime:   %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
		fmt.Printf("Contacts: %d (%d learned aliases)\n", resp.Contacts, resp.LearnedAliases)
		if resp.ContactsSyncedAt > 0 {
			fmt.Printf("Synced:   %s\n", time.Unix(resp.ContactsSyncedAt, 0).Format(time.RFC3339))
		}
		if resp.Inbox.RefreshedAt > 0 {
			fmt.Printf("Inbox:    %d conversations, %d unread (%s)\n",
				resp.Inbox.Conversations, resp.Inbox.Unread, formatUnix(resp.Inbox.RefreshedAt))
		}
	})
}

var connectCommand = &cli.Command{
	Name:   "connect",
	Usage:  "Request pairing and print the QR code",
	Before: requiresDaemon,
	After:  closeClient,
	Action: cmdConnect,
}

func cmdConnect(ctx *cli.Context) error {
	cctx, cancel := callContext(ctx)
	defer cancel()
	resp, err := getClient(ctx).Connect(cctx)
	if err != nil {
		return err
	}
	return printOrJSON(ctx, resp, func() {
		fmt.Printf("State: %s\n", resp.State)
		if resp.QRCode.PairingCode != "" {
			fmt.Printf("Pairing code: %s\n", resp.QRCode.PairingCode)
		}
		if resp.QRCode.Code == "" {
			return
		}
		art, err := renderQR(resp.QRCode.Code)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot render QR code: %v\n", err)
			return
		}
		fmt.Printf("\nScan this QR code with WhatsApp:\n\n%s\n", art)
	})
}

var disconnectCommand = &cli.Command{
	Name:   "disconnect",
	Usage:  "Log the instance out of WhatsApp",
	Before: requiresDaemon,
	After:  closeClient,
	Action: cmdDisconnect,
}

func cmdDisconnect(ctx *cli.Context) error {
	cctx, cancel := callContext(ctx)
	defer cancel()
	resp, err := getClient(ctx).Disconnect(cctx)
	if err != nil {
		return err
	}
	return printOrJSON(ctx, resp, func() {
		fmt.Printf("State: %s\n", resp.State)
	})
}

var eventsCommand = &cli.Command{
	Name:      "events",
	Usage:     "Stream daemon events until interrupted",
	ArgsUsage: "[KIND_PREFIX]",
	Before:    requiresDaemon,
	After:     closeClient,
	Action:    cmdEvents,
}

func cmdEvents(ctx *cli.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := getClient(ctx).WatchEvents(sigCtx, ctx.Args().First(), func(env *api.EventEnvelope) error {
		return printOrJSON(ctx, env, func() {
			at := time.UnixMilli(env.OccurredAtUnixMs).Format("15:04:05")
			fmt.Printf("%s %-24s %s\n", at, env.Kind, string(env.Payload))
		})
	})
	if errors.Is(err, context.Canceled) || status.Code(err) == codes.Canceled {
		return nil
	}
	return err
}
