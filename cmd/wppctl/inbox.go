package main

import (
	"fmt"

	"github.com/matheus3301/wppbridge/internal/api"
	"github.com/urfave/cli/v2"
)

var chatsCommand = &cli.Command{
	Name:   "chats",
	Usage:  "List conversations, newest first",
	Before: requiresDaemon,
	After:  closeClient,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "unread",
			Usage: "only conversations with unread messages",
		},
	},
	Action: cmdChats,
}

func cmdChats(ctx *cli.Context) error {
	cctx, cancel := callContext(ctx)
	defer cancel()
	resp, err := getClient(ctx).ListChats(cctx)
	if err != nil {
		return err
	}
	if ctx.Bool("unread") {
		kept := resp.Conversations[:0]
		for _, c := range resp.Conversations {
			if c.UnreadCount > 0 {
				kept = append(kept, c)
			}
		}
		resp.Conversations = kept
	}
	return printOrJSON(ctx, resp, func() {
		if len(resp.Conversations) == 0 {
			fmt.Println("No conversations.")
			return
		}
		for _, c := range resp.Conversations {
			unread := ""
			if c.UnreadCount > 0 {
				unread = fmt.Sprintf("(%d)", c.UnreadCount)
			}
			fmt.Printf("%-16s %-24s %-5s %s\n  %s\n",
				formatUnix(c.Timestamp), truncate(c.Name, 24), unread, c.ID, truncate(c.LastMessage, 72))
		}
	})
}

var syncContactsCommand = &cli.Command{
	Name:   "sync-contacts",
	Usage:  "Copy the gateway contact directory into the local store",
	Before: requiresDaemon,
	After:  closeClient,
	Action: cmdSyncContacts,
}

func cmdSyncContacts(ctx *cli.Context) error {
	cctx, cancel := callContext(ctx)
	defer cancel()
	resp, err := getClient(ctx).SyncContacts(cctx)
	if err != nil {
		return err
	}
	return printOrJSON(ctx, resp, func() {
		r := resp.Result
		fmt.Printf("Synced %d contacts: %d aliases learned, %d names\n", r.Contacts, r.Learned, r.Named)
	})
}

var nameCommand = &cli.Command{
	Name:      "name",
	Usage:     "Show the display name of a contact or conversation",
	ArgsUsage: "ID",
	Before:    requiresDaemon,
	After:     closeClient,
	Action:    cmdName,
}

func cmdName(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return fmt.Errorf("you must specify an id")
	}
	cctx, cancel := callContext(ctx)
	defer cancel()
	resp, err := getClient(ctx).ResolveName(cctx, &api.ResolveNameRequest{ID: ctx.Args().First()})
	if err != nil {
		return err
	}
	return printOrJSON(ctx, resp, func() {
		fmt.Println(resp.Name)
		if resp.Custom != "" {
			fmt.Printf("(custom name: %s)\n", resp.Custom)
		}
	})
}

var renameCommand = &cli.Command{
	Name:      "rename",
	Usage:     "Set a custom display name; an empty NAME removes it",
	ArgsUsage: "ID [NAME]",
	Before:    requiresDaemon,
	After:     closeClient,
	Action:    cmdRename,
}

func cmdRename(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return fmt.Errorf("you must specify an id")
	}
	id, name := ctx.Args().Get(0), ctx.Args().Get(1)
	cctx, cancel := callContext(ctx)
	defer cancel()
	if _, err := getClient(ctx).SetCustomName(cctx, &api.SetCustomNameRequest{ID: id, Name: name}); err != nil {
		return err
	}
	if name == "" {
		fmt.Printf("Custom name for %s removed\n", id)
	} else {
		fmt.Printf("%s is now shown as %q\n", id, name)
	}
	return nil
}
