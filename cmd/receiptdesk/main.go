package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/jask/receiptdesk/internal/api"
	"github.com/jask/receiptdesk/internal/config"
	"github.com/jask/receiptdesk/internal/logging"
	"github.com/jask/receiptdesk/internal/metrics"
	"github.com/jask/receiptdesk/internal/secrets"
	"github.com/jask/receiptdesk/internal/session"
	"github.com/jask/receiptdesk/internal/storage"
)

const (
	exitOK           = 0
	exitError        = 1
	exitUnauthorized = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(exitCode(err, os.Stderr))
}

func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, api.ErrAuth):
		fmt.Fprintf(stderr, "Error: %s (run `receiptdesk login`)\n", api.Message(err))
		return exitUnauthorized
	default:
		fmt.Fprintf(stderr, "Error: %s\n", api.Message(err))
		return exitError
	}
}

// env is everything a subcommand needs.
type env struct {
	cfg     config.Config
	log     *zap.Logger
	session *session.Session
	client  *api.Client

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"tui":        {"interactive dashboard (default)", runTUI},
		"login":      {"sign in and keep the session", runLogin},
		"logout":     {"forget the stored session", runLogout},
		"whoami":     {"show the signed-in account", runWhoami},
		"receipts":   {"list one page of receipts", runReceipts},
		"show":       {"show one receipt: show <receipt-id>", runShow},
		"categorize": {"set a receipt's category: categorize <receipt-id> <category|none>", runCategorize},
		"categories": {"list categories, or add one: categories add <name>", runCategories},
		"imap":       {"mailboxes: imap list | imap test <id> | imap sync <id>", runImap},
		"export":     {"write the filtered receipts to an xlsx workbook", runExport},
		"configure":  {"update settings in the config file", runConfigure},
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	name := "tui"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name, args = args[0], args[1:]
	}
	if name == "help" {
		usage(stdout)
		return nil
	}
	cmd, ok := commands[name]
	if !ok {
		usage(stderr)
		return fmt.Errorf("unknown command %q", name)
	}

	e, closeEnv, err := setup(ctx, stdin, stdout, stderr)
	if err != nil {
		return err
	}
	defer closeEnv()
	return cmd.run(ctx, e, args)
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "Usage: receiptdesk <command> [flags]")
	fmt.Fprintln(w)
	for _, n := range names {
		fmt.Fprintf(w, "  %-11s %s\n", n, commands[n].summary)
	}
}

// setup wires config, logging, the local store, the session and the API
// client. The returned func releases them.
func setup(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) (*env, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	log, err := logging.New(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		_ = log.Sync()
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	sealer, err := secrets.NewSealer()
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	sess := session.New(&session.KVStore{KV: store, Sealer: sealer}, log)
	if err := sess.Init(ctx); err != nil {
		log.Warn("session.init_failed", zap.Error(err))
	}

	rec := metrics.New()
	metricsCtx, stopMetrics := context.WithCancel(ctx)
	if cfg.Metrics.Listen != "" {
		go func() {
			if err := rec.Serve(metricsCtx, cfg.Metrics.Listen); err != nil {
				log.Warn("metrics.serve_failed", zap.String("addr", cfg.Metrics.Listen), zap.Error(err))
			}
		}()
	}

	client, err := api.New(cfg.API.BaseURL, sess,
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(log),
		api.WithMetrics(rec),
	)
	if err != nil {
		stopMetrics()
		_ = store.Close()
		return nil, nil, fmt.Errorf("api client: %w", err)
	}

	cleanup := func() {
		stopMetrics()
		if err := store.Close(); err != nil {
			log.Warn("store.close_failed", zap.Error(err))
		}
		_ = log.Sync()
	}
	return &env{
		cfg:     cfg,
		log:     log,
		session: sess,
		client:  client,
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
	}, cleanup, nil
}

func (e *env) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}
