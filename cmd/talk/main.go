package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/talk/internal/browser"
	"github.com/naveenspark/talk/internal/chat"
	"github.com/naveenspark/talk/internal/config"
	"github.com/naveenspark/talk/internal/hosted"
	"github.com/naveenspark/talk/internal/local"
	"github.com/naveenspark/talk/internal/tui"
	"github.com/naveenspark/talk/pkg/client"
)

var version = "dev"

var (
	copyToClipboard = clipboard.WriteAll
	openBrowser     = browser.Open
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "version", "--version", "-v":
			fmt.Fprintf(out, "talk %s\n", version)
			return nil
		case "help", "--help", "-h":
			printHelp(out)
			return nil
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if len(args) > 0 {
		switch args[0] {
		case "logout":
			return runLogout(cfg, out)
		case "invite":
			return runInvite(context.Background(), cfg, args[1:], out)
		case "console":
			return runConsole(cfg, out)
		default:
			return fmt.Errorf("unknown command %q (try 'talk help')", args[0])
		}
	}
	return runTUI(cfg)
}

func runTUI(cfg config.Config) error {
	logger, logCloser, err := cfg.OpenLogger()
	if err != nil {
		return err
	}
	defer logCloser.Close() //nolint:errcheck
	slog.SetDefault(logger)

	svc, closeBackend, err := openServices(cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend() //nolint:errcheck

	logger.Info("starting", "version", version, "backend", cfg.Backend)
	p := tea.NewProgram(tui.NewApp(svc), tea.WithAltScreen())
	final, err := p.Run()
	if app, ok := final.(tui.App); ok {
		app.Close()
	}
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// openServices wires the chat services over the configured backend. The
// returned func releases the backend.
func openServices(cfg config.Config, logger *slog.Logger) (tui.Services, func() error, error) {
	var (
		accounts chat.Accounts
		store    chat.Store
		closer   = func() error { return nil }
		session  *chat.Session
	)
	tokens := config.SessionFile{Path: cfg.SessionFile}

	switch cfg.Backend {
	case config.BackendLocal:
		b, err := local.Open(cfg.LocalDSN, local.Options{PollInterval: cfg.PollInterval, Logger: logger})
		if err != nil {
			return tui.Services{}, nil, fmt.Errorf("open local backend: %w", err)
		}
		accounts, store, closer = b, b, b.Close
	case config.BackendHosted:
		// The document client asks the session for a fresh ID token per
		// request, and goes anonymous while signed out. session is assigned
		// below, before any request is made.
		c := client.New(cfg.APIKey, cfg.ProjectID,
			client.WithEndpoints(cfg.AuthURL, cfg.TokenURL, cfg.DBURL),
			client.WithTimeout(cfg.RequestTimeout),
			client.WithTokenSource(func(ctx context.Context) (string, error) {
				return session.BearerToken(ctx)
			}),
		)
		accounts = hosted.NewAccounts(c, logger)
		store = hosted.NewStore(c, cfg.PollInterval, logger)
	default:
		return tui.Services{}, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	session = chat.NewSession(accounts, tokens, logger)
	return tui.Services{
		Session:   session,
		Registrar: chat.NewRegistrar(accounts, store, session, logger),
		Channels:  chat.NewChannelDirectory(store, logger),
		Messages:  chat.NewMessageStream(store, session, logger),
		Timeout:   cfg.RequestTimeout,
	}, closer, nil
}

func runLogout(cfg config.Config, out io.Writer) error {
	f := config.SessionFile{Path: cfg.SessionFile}
	if !f.Exists() {
		fmt.Fprintln(out, "Already logged out.")
		return nil
	}
	if err := f.Clear(); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	fmt.Fprintln(out, "Logged out.")
	return nil
}

// inviteArgs is a parsed "invite add CODE NAME..." command line.
type inviteArgs struct {
	code string
	name string
}

func parseInviteAdd(args []string) (inviteArgs, error) {
	if len(args) < 2 {
		return inviteArgs{}, errors.New("usage: talk invite add CODE NAME")
	}
	a := inviteArgs{
		code: strings.TrimSpace(args[0]),
		name: strings.TrimSpace(strings.Join(args[1:], " ")),
	}
	if a.code == "" || a.name == "" {
		return inviteArgs{}, errors.New("usage: talk invite add CODE NAME")
	}
	return a, nil
}

func runInvite(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	if cfg.Backend != config.BackendLocal {
		return errors.New("invites are managed in the provider console for the hosted backend (try 'talk console')")
	}
	if len(args) == 0 {
		return errors.New("usage: talk invite add CODE NAME | talk invite list")
	}

	b, err := local.Open(cfg.LocalDSN, local.Options{PollInterval: cfg.PollInterval})
	if err != nil {
		return fmt.Errorf("open local backend: %w", err)
	}
	defer b.Close() //nolint:errcheck

	switch args[0] {
	case "add":
		a, err := parseInviteAdd(args[1:])
		if err != nil {
			return err
		}
		inv, err := b.AddInvite(ctx, a.code, a.name)
		if err != nil {
			return fmt.Errorf("add invite: %w", err)
		}
		fmt.Fprintf(out, "Added invite %s for %s.\n", inv.Code, inv.DisplayName)
		if err := copyToClipboard(inv.Code); err == nil {
			fmt.Fprintln(out, "Code copied to clipboard.")
		}
		return nil
	case "list":
		invites, err := b.ListInvites(ctx)
		if err != nil {
			return fmt.Errorf("list invites: %w", err)
		}
		printInvites(out, invites)
		return nil
	default:
		return fmt.Errorf("unknown invite command %q", args[0])
	}
}

// consoleURL is the provider console page holding the invite collection.
func consoleURL(projectID string) string {
	return "https://console.firebase.google.com/project/" + url.PathEscape(projectID) + "/firestore/data/~2FinviteCodes"
}

func runConsole(cfg config.Config, out io.Writer) error {
	if cfg.Backend != config.BackendHosted {
		return errors.New("console is only available for the hosted backend (use 'talk invite')")
	}
	u := consoleURL(cfg.ProjectID)
	fmt.Fprintf(out, "Opening %s\n", u)
	if err := openBrowser(u); err != nil {
		fmt.Fprintln(out, "Could not open a browser. Visit the link above.")
	}
	return nil
}
