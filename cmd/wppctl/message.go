package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matheus3301/wppbridge/internal/api"
	"github.com/matheus3301/wppbridge/internal/wa"
	"github.com/urfave/cli/v2"
)

var messagesCommand = &cli.Command{
	Name:      "messages",
	Usage:     "Show the recent messages of a conversation",
	ArgsUsage: "CONVERSATION_ID",
	Before:    requiresDaemon,
	After:     closeClient,
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "count",
			Usage: "number of messages",
			Value: api.DefaultMessageCount,
		},
		&cli.BoolFlag{
			Name:  "mark-read",
			Usage: "mark the fetched messages as read",
		},
	},
	Action: cmdMessages,
}

func cmdMessages(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return fmt.Errorf("you must specify a conversation id")
	}
	cctx, cancel := callContext(ctx)
	defer cancel()
	resp, err := getClient(ctx).ListMessages(cctx, &api.ListMessagesRequest{
		ConversationID: ctx.Args().First(),
		Count:          ctx.Int("count"),
		MarkRead:       ctx.Bool("mark-read"),
	})
	if err != nil {
		return err
	}
	return printOrJSON(ctx, resp, func() {
		if len(resp.Messages) == 0 {
			fmt.Println("No messages.")
			return
		}
		// Newest first on the wire; print in reading order.
		for i := len(resp.Messages) - 1; i >= 0; i-- {
			m := resp.Messages[i]
			who := m.PushName
			if m.Key.FromMe {
				who = "me"
			} else if who == "" {
				who = m.Key.RemoteJID
			}
			fmt.Printf("%s  %-20s %s\n", formatUnix(m.Timestamp), truncate(who, 20), wa.Preview(m.Content))
		}
	})
}

var sendCommand = &cli.Command{
	Name:      "send",
	Usage:     "Send a text message",
	ArgsUsage: "TARGET TEXT",
	Before:    requiresDaemon,
	After:     closeClient,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "reply-to",
			Usage: "id of the message to quote",
		},
		&cli.BoolFlag{
			Name:  "reply-from-me",
			Usage: "the quoted message was sent by this instance",
		},
		&cli.StringFlag{
			Name:  "reply-text",
			Usage: "text of the quoted message",
		},
	},
	Action: cmdSend,
}

func cmdSend(ctx *cli.Context) error {
	if ctx.NArg() < 2 {
		return fmt.Errorf("usage: wppctl send TARGET TEXT")
	}
	target := ctx.Args().Get(0)
	req := &api.SendTextRequest{
		Target: target,
		Text:   strings.Join(ctx.Args().Slice()[1:], " "),
	}
	if id := ctx.String("reply-to"); id != "" {
		req.Quoted = &wa.Quoted{ID: id, RemoteJID: target, FromMe: ctx.Bool("reply-from-me"), Text: ctx.String("reply-text")}
	}
	cctx, cancel := callContext(ctx)
	defer cancel()
	resp, err := getClient(ctx).SendText(cctx, req)
	if err != nil {
		return err
	}
	return printReceipt(ctx, resp)
}

var sendMediaCommand = &cli.Command{
	Name:      "send-media",
	Usage:     "Send a file or a media URL",
	ArgsUsage: "TARGET FILE|URL",
	Before:    requiresDaemon,
	After:     closeClient,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "caption",
			Usage: "media caption",
		},
		&cli.StringFlag{
			Name:  "type",
			Usage: "image, video, audio or document (detected when empty)",
		},
	},
	Action: cmdSendMedia,
}

func cmdSendMedia(ctx *cli.Context) error {
	if ctx.NArg() < 2 {
		return fmt.Errorf("usage: wppctl send-media TARGET FILE|URL")
	}
	media, err := loadMedia(ctx.Args().Get(1))
	if err != nil {
		return err
	}
	media.Caption = ctx.String("caption")
	media.Type = ctx.String("type")

	cctx, cancel := callContext(ctx)
	defer cancel()
	resp, err := getClient(ctx).SendMedia(cctx, &api.SendMediaRequest{Target: ctx.Args().Get(0), Media: media})
	if err != nil {
		return err
	}
	return printReceipt(ctx, resp)
}

// loadMedia passes URLs through and inlines local files as base64. The
// daemon sniffs the mime type.
func loadMedia(src string) (wa.Media, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return wa.Media{Data: src, FileName: filepath.Base(src)}, nil
	}
	raw, err := os.ReadFile(src)
	if err != nil {
		return wa.Media{}, fmt.Errorf("read media: %w", err)
	}
	if len(raw) == 0 {
		return wa.Media{}, fmt.Errorf("read media: %s is empty", src)
	}
	return wa.Media{Data: base64.StdEncoding.EncodeToString(raw), FileName: filepath.Base(src)}, nil
}

func printReceipt(ctx *cli.Context, resp *api.SendResponse) error {
	return printOrJSON(ctx, resp, func() {
		r := resp.Receipt
		fmt.Printf("Sent %s to %s via %s\n", r.MessageID, r.Target, r.Strategy)
	})
}

var outboxCommand = &cli.Command{
	Name:   "outbox",
	Usage:  "Show the send journal, newest first",
	Before: requiresDaemon,
	After:  closeClient,
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "limit",
			Usage: "number of entries",
			Value: 20,
		},
	},
	Action: cmdOutbox,
}

func cmdOutbox(ctx *cli.Context) error {
	cctx, cancel := callContext(ctx)
	defer cancel()
	resp, err := getClient(ctx).ListOutbox(cctx, &api.ListOutboxRequest{Limit: ctx.Int("limit")})
	if err != nil {
		return err
	}
	return printOrJSON(ctx, resp, func() {
		if len(resp.Entries) == 0 {
			fmt.Println("Outbox is empty.")
			return
		}
		for _, e := range resp.Entries {
			at := time.UnixMilli(e.CreatedAt).Format("2006-01-02 15:04")
			target := e.Target
			if e.ResolvedTarget != "" && e.ResolvedTarget != e.Target {
				target += " -> " + e.ResolvedTarget
			}
			fmt.Printf("%s  %-7s %-5s %s  %s\n", at, e.Status, e.Kind, target, truncate(e.Body, 48))
			if e.ErrorMessage != "" {
				fmt.Printf("  error: %s\n", e.ErrorMessage)
			}
		}
	})
}
