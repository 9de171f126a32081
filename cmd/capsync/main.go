// Command capsync is the result consumer: it synchronizes with the
// automation server, surfaces new results, and manages workflows.
//
// Usage:
//
//	capsync status                     # one poll cycle, print the view
//	capsync watch                      # poll continuously, print interrupts
//	capsync result [show|email|copy|clear]
//	capsync workflow list
//	capsync workflow add <query|template>
//	capsync workflow toggle <id>
//	capsync set-email <address>
//	capsync mcp                        # serve the MCP tools over stdio
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/capsync/popup"
	"github.com/hazyhaar/capsync/serverapi"
	"github.com/hazyhaar/capsync/statestore"
)

func main() {
	server := flag.String("server", "http://localhost:8000", "automation server base URL")
	storePath := flag.String("store", "capsync.db", "path to the local state database")
	logLevel := flag.String("log-level", "warn", "log level: debug, info, warn, error")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *server, *storePath, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "capsync:", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func run(ctx context.Context, logger *slog.Logger, server, storePath string, args []string) error {
	store, err := statestore.Open(storePath, statestore.WithMkdirAll())
	if err != nil {
		return err
	}
	defer store.Close()

	api := serverapi.New(server, serverapi.WithLogger(logger))
	lc, err := popup.NewLifecycle(ctx, store, logger)
	if err != nil {
		return err
	}
	workflows := popup.NewWorkflows(api, store, logger)
	poller := popup.NewPoller(api, store, lc, workflows, logger)
	actions := popup.NewActions(api, store, lc, logger)

	cmd := "status"
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "status":
		poller.Tick(ctx)
		printView(poller.View(), lc)
		return nil

	case "watch":
		return watch(ctx, poller, lc)

	case "result":
		sub := "show"
		if len(args) > 1 {
			sub = args[1]
		}
		return resultCmd(ctx, poller, lc, actions, sub)

	case "workflow":
		if len(args) < 2 {
			return errors.New("usage: capsync workflow list|add|toggle")
		}
		return workflowCmd(ctx, poller, workflows, args[1:])

	case "set-email":
		if len(args) < 2 {
			return errors.New("usage: capsync set-email <address>")
		}
		return store.SetUserEmail(ctx, args[1])

	case "mcp":
		srv := mcp.NewServer(&mcp.Implementation{
			Name:    "capsync",
			Version: "1.0.0",
		}, nil)
		poller.RegisterMCP(srv)
		go poller.Run(ctx)
		return srv.Run(ctx, &mcp.StdioTransport{})

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func watch(ctx context.Context, poller *popup.Poller, lc *popup.Lifecycle) error {
	fmt.Println("watching for results (ctrl-c to stop)")
	seen := ""
	tick := func() {
		poller.Tick(ctx)
		if lc.State() != popup.StateUnseen {
			return
		}
		r, ok := lc.Current()
		if !ok || r.ID == seen {
			return
		}
		seen = r.ID
		fmt.Printf("\n[new result] %s\n", popup.Preview(r))
		fmt.Println("run `capsync result show` to read it")
	}

	ticker := time.NewTicker(popup.DefaultPollInterval)
	defer ticker.Stop()

	tick()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tick()
		}
	}
}

func resultCmd(ctx context.Context, poller *popup.Poller, lc *popup.Lifecycle, actions *popup.Actions, sub string) error {
	poller.Tick(ctx)

	switch sub {
	case "show":
		r, ok := lc.Present()
		if !ok {
			fmt.Println("no result available")
			return nil
		}
		fmt.Println(popup.Detail(r))
		return nil

	case "email":
		err := actions.Email(ctx)
		if errors.Is(err, popup.ErrEmailFallback) {
			fmt.Println("server unreachable; email content copied to clipboard")
			return nil
		}
		if err == nil {
			fmt.Println("email sent")
		}
		return err

	case "copy":
		if err := actions.Copy(ctx); err != nil {
			return err
		}
		fmt.Println("copied to clipboard")
		return nil

	case "clear":
		return lc.Clear(ctx)

	default:
		return fmt.Errorf("unknown result action %q", sub)
	}
}

func workflowCmd(ctx context.Context, poller *popup.Poller, workflows *popup.Workflows, args []string) error {
	switch args[0] {
	case "list":
		poller.Tick(ctx)
		list := workflows.ListAll()
		if len(list) == 0 {
			fmt.Println("no workflows")
			return nil
		}
		for _, wf := range list {
			state := "off"
			if wf.Active {
				state = "on"
			}
			fmt.Printf("%-6s [%s] %s\n", wf.ID, state, wf.Query)
		}
		return nil

	case "add":
		if len(args) < 2 {
			return errors.New("usage: capsync workflow add <query|template>")
		}
		entry, err := workflows.Add(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Printf("created %s: %s\n", entry.ID, entry.Query)
		return nil

	case "toggle":
		if len(args) < 2 {
			return errors.New("usage: capsync workflow toggle <id>")
		}
		active := workflows.Toggle(args[1])
		fmt.Printf("workflow %s active=%v (local only)\n", args[1], active)
		return nil

	default:
		return fmt.Errorf("unknown workflow action %q", args[0])
	}
}

func printView(v popup.View, lc *popup.Lifecycle) {
	online := "offline"
	if v.Online {
		online = "online"
	}
	fmt.Printf("server: %s\nevents: %d\nstate: %s\n", online, v.EventCount, v.State)

	if r, ok := lc.Current(); ok {
		fmt.Printf("result: %s\n", popup.Preview(r))
	}

	if len(v.Recent) > 0 {
		fmt.Println("recent:")
		for _, s := range v.Recent {
			fmt.Printf("  %s %s\n", popup.EventIcon(s.Type), s.Subject)
		}
	}
}
