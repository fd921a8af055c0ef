package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/jask/receiptdesk/internal/api"
	"github.com/jask/receiptdesk/internal/catalog"
	"github.com/jask/receiptdesk/internal/config"
	"github.com/jask/receiptdesk/internal/export"
	"github.com/jask/receiptdesk/internal/listview"
	"github.com/jask/receiptdesk/internal/model"
	"github.com/jask/receiptdesk/internal/tui"
)

var errNotSignedIn = &api.AuthError{Op: "session", Detail: "not signed in"}

func runTUI(ctx context.Context, e *env, args []string) error {
	fs := e.flags("tui")
	daysBack := fs.Int("days-back", api.DefaultSyncDaysBack, "days of mail to scan on sync")
	limit := fs.Int("limit", api.DefaultSyncLimit, "maximum messages per sync")
	if err := fs.Parse(args); err != nil {
		return err
	}
	app := tui.New(ctx, e.client, tui.Options{
		Authenticated: e.session.Valid(),
		UI:            e.cfg.UI,
		Sync:          api.SyncOptions{DaysBack: *daysBack, Limit: *limit},
		Logger:        e.log,
	})
	_, err := tea.NewProgram(app, tea.WithAltScreen(), tea.WithInput(e.stdin), tea.WithOutput(e.stdout)).Run()
	return err
}

func runLogin(ctx context.Context, e *env, args []string) error {
	fs := e.flags("login")
	username := fs.String("u", "", "username")
	passwordFlag := fs.String("p", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := bufio.NewReader(e.stdin)
	user := strings.TrimSpace(*username)
	if user == "" {
		fmt.Fprint(e.stdout, "Username: ")
		line, err := readLine(in)
		if err != nil {
			return fmt.Errorf("read username: %w", err)
		}
		user = strings.TrimSpace(line)
	}
	password := *passwordFlag
	if password == "" {
		fmt.Fprint(e.stdout, "Password: ")
		var err error
		password, err = readPassword(e.stdin, in)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		fmt.Fprintln(e.stdout)
	}
	if user == "" || password == "" {
		return errors.New("username and password are required")
	}

	if _, err := e.client.Login(ctx, user, password); err != nil {
		return err
	}
	me, err := e.client.CurrentUser(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "Signed in as %s\n", me.Username)
	return nil
}

// readPassword reads without echo on a terminal and falls back to a plain
// line for pipes and tests.
func readPassword(stdin io.Reader, buffered *bufio.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return readLine(buffered)
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogout(ctx context.Context, e *env, args []string) error {
	if err := e.flags("logout").Parse(args); err != nil {
		return err
	}
	e.client.Logout(ctx)
	fmt.Fprintln(e.stdout, "Signed out")
	return nil
}

func runWhoami(ctx context.Context, e *env, args []string) error {
	if err := e.flags("whoami").Parse(args); err != nil {
		return err
	}
	if !e.session.Valid() {
		return errNotSignedIn
	}
	me, err := e.client.CurrentUser(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%s <%s>\n", me.Username, me.Email)
	if me.FullName != nil && *me.FullName != "" {
		fmt.Fprintf(e.stdout, "name:    %s\n", *me.FullName)
	}
	if c, ok := e.session.Claims(); ok && !c.ExpiresAt.IsZero() {
		fmt.Fprintf(e.stdout, "expires: %s\n", c.ExpiresAt.In(e.cfg.UI.Location()).Format(time.RFC1123))
	}
	return nil
}

// filterFlags are the list criteria shared by receipts and export.
type filterFlags struct {
	search   string
	category string
	from     string
	to       string
}

func (f *filterFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.search, "search", "", "match vendor or subject, case-insensitive")
	fs.StringVar(&f.category, "category", "", `category name or id, or "none" for uncategorized`)
	fs.StringVar(&f.from, "from", "", "earliest receipt date, YYYY-MM-DD")
	fs.StringVar(&f.to, "to", "", "latest receipt date, YYYY-MM-DD")
}

func (f *filterFlags) criteria(cats *catalog.Index) (listview.Criteria, error) {
	c := listview.Criteria{Search: f.search}
	var err error
	if c.From, err = listview.ParseDay(f.from); err != nil {
		return c, err
	}
	if c.To, err = listview.ParseDay(f.to); err != nil {
		return c, err
	}
	switch strings.ToLower(strings.TrimSpace(f.category)) {
	case "":
	case listview.UncategorizedToken:
		c.Category = listview.Uncategorized()
	default:
		cat, err := cats.Resolve(f.category)
		if err != nil {
			return c, fmt.Errorf("category %q: %w", f.category, err)
		}
		c.Category = listview.CategoryID(cat.ID)
	}
	return c, nil
}

// fetchList loads receipts and categories together.
func fetchList(ctx context.Context, c *api.Client) ([]model.Receipt, *catalog.Index, error) {
	var (
		receipts []model.Receipt
		cats     []model.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		receipts, err = c.Receipts(gctx)
		return err
	})
	g.Go(func() (err error) {
		cats, err = c.Categories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return receipts, catalog.New(cats), nil
}

func (e *env) filtered(ctx context.Context, f filterFlags) (*listview.Engine, *catalog.Index, error) {
	if !e.session.Valid() {
		return nil, nil, errNotSignedIn
	}
	receipts, cats, err := fetchList(ctx, e.client)
	if err != nil {
		return nil, nil, err
	}
	crit, err := f.criteria(cats)
	if err != nil {
		return nil, nil, err
	}
	eng := listview.NewEngine(receipts)
	eng.SetCriteria(crit)
	return eng, cats, nil
}

func runReceipts(ctx context.Context, e *env, args []string) error {
	fs := e.flags("receipts")
	var f filterFlags
	f.register(fs)
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	eng, cats, err := e.filtered(ctx, f)
	if err != nil {
		return err
	}
	eng.SetPage(*page)
	v := eng.Page()
	if v.Total == 0 {
		if len(eng.Items()) == 0 {
			fmt.Fprintln(e.stdout, "No receipts yet.")
		} else {
			fmt.Fprintln(e.stdout, "No receipts match the current filters.")
		}
		return nil
	}

	rows := make([][]string, 0, len(v.Items))
	for _, r := range v.Items {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.ReceiptDate.Format(e.cfg.UI.DateFormat),
			r.Vendor(),
			r.Subject(),
			cats.Name(r.CategoryID),
			r.FormatAmount(),
		})
	}
	fmt.Fprintln(e.stdout, plainTable([]string{"ID", "Date", "Vendor", "Subject", "Category", "Amount"}, rows))
	fmt.Fprintf(e.stdout, "Showing %d-%d of %d · page %d/%d\n", v.Start, v.End, v.Total, v.Page, v.TotalPages)
	return nil
}

func runShow(ctx context.Context, e *env, args []string) error {
	fs := e.flags("show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: show <receipt-id>")
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("receipt id %q: not a number", fs.Arg(0))
	}
	if !e.session.Valid() {
		return errNotSignedIn
	}

	var (
		r    model.Receipt
		cats []model.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		r, err = e.client.Receipt(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		cats, err = e.client.Categories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	rows := [][2]string{
		{"Vendor", r.Vendor()},
		{"Amount", r.FormatAmount()},
		{"Date", r.ReceiptDate.Format(e.cfg.UI.DateFormat)},
		{"Category", catalog.New(cats).Name(r.CategoryID)},
		{"Receipt no.", model.Or(r.ReceiptNumber)},
		{"Payment", model.Or(r.PaymentMethod)},
		{"Subject", r.Subject()},
		{"From", model.Or(r.EmailFrom)},
		{"Notes", model.Or(r.Notes)},
	}
	if r.ReceiptFilePath != nil {
		rows = append(rows, [2]string{"File", e.client.ReceiptFileURL(r.ID)})
	}
	for _, row := range rows {
		fmt.Fprintf(e.stdout, "%-12s %s\n", row[0], row[1])
	}
	return nil
}

func plainTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		String()
}

func runExport(ctx context.Context, e *env, args []string) error {
	fs := e.flags("export")
	var f filterFlags
	f.register(fs)
	out := fs.String("o", "", "output .xlsx path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("export: -o is required")
	}
	eng, cats, err := e.filtered(ctx, f)
	if err != nil {
		return err
	}
	rows := eng.Filtered()

	file, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := export.WriteXLSX(file, rows, cats); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Fprintf(e.stdout, "Wrote %d receipts to %s\n", len(rows), *out)
	return nil
}

func runCategorize(ctx context.Context, e *env, args []string) error {
	fs := e.flags("categorize")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: categorize <receipt-id> <category|none>")
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("receipt id %q: not a number", fs.Arg(0))
	}
	if !e.session.Valid() {
		return errNotSignedIn
	}
	cats, err := e.client.Categories(ctx)
	if err != nil {
		return err
	}
	idx := catalog.New(cats)

	var target *int64
	if !strings.EqualFold(strings.TrimSpace(fs.Arg(1)), listview.UncategorizedToken) {
		cat, err := idx.Resolve(fs.Arg(1))
		if err != nil {
			return fmt.Errorf("category %q: %w", fs.Arg(1), err)
		}
		target = &cat.ID
	}

	r, err := e.client.UpdateReceiptCategory(ctx, id, target)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "Receipt %d (%s) is now %s\n", r.ID, r.Vendor(), idx.Name(r.CategoryID))
	return nil
}

func runCategories(ctx context.Context, e *env, args []string) error {
	if !e.session.Valid() {
		return errNotSignedIn
	}
	if len(args) > 0 && args[0] == "add" {
		if len(args) < 2 {
			return errors.New("usage: categories add <name> [-color #rrggbb] [-icon name]")
		}
		fs := e.flags("categories add")
		color := fs.String("color", "", "hex color, assigned by the server when empty")
		icon := fs.String("icon", "", "icon name")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		in := api.CategoryInput{Name: strings.TrimSpace(args[1]), Color: *color}
		if *icon != "" {
			in.Icon = icon
		}
		c, err := e.client.CreateCategory(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Created category %d %s\n", c.ID, c.Name)
		return nil
	}
	if err := e.flags("categories").Parse(args); err != nil {
		return err
	}
	cats, err := e.client.Categories(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, []string{strconv.FormatInt(c.ID, 10), c.Name, c.Color})
	}
	fmt.Fprintln(e.stdout, plainTable([]string{"ID", "Name", "Color"}, rows))
	return nil
}

func runImap(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: imap list | imap test <id> | imap sync <id> [-days-back N] [-limit M]")
	}
	if !e.session.Valid() {
		return errNotSignedIn
	}
	sub, rest := args[0], args[1:]
	if sub == "list" {
		settings, err := e.client.ImapSettings(ctx)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(settings))
		for _, s := range settings {
			last := model.Placeholder
			if s.LastSync.Valid {
				last = s.LastSync.Time.In(e.cfg.UI.Location()).Format(e.cfg.UI.DateFormat + " 15:04")
			}
			rows = append(rows, []string{
				strconv.FormatInt(s.ID, 10), s.Email, fmt.Sprintf("%s:%d", s.Server, s.Port), s.Folder, last,
			})
		}
		fmt.Fprintln(e.stdout, plainTable([]string{"ID", "Email", "Server", "Folder", "Last sync"}, rows))
		return nil
	}

	if len(rest) == 0 {
		return fmt.Errorf("imap %s: missing mailbox id", sub)
	}
	id, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return fmt.Errorf("mailbox id %q: not a number", rest[0])
	}

	var res api.ActionResult
	switch sub {
	case "test":
		if err := e.flags("imap test").Parse(rest[1:]); err != nil {
			return err
		}
		res, err = e.client.TestImapConnection(ctx, id)
	case "sync":
		fs := e.flags("imap sync")
		daysBack := fs.Int("days-back", api.DefaultSyncDaysBack, "days of mail to scan")
		limit := fs.Int("limit", api.DefaultSyncLimit, "maximum messages to scan")
		if err := fs.Parse(rest[1:]); err != nil {
			return err
		}
		res, err = e.client.SyncEmails(ctx, id, api.SyncOptions{DaysBack: *daysBack, Limit: *limit})
	default:
		return fmt.Errorf("unknown imap command %q", sub)
	}
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("imap %s: %s", sub, res.Message)
	}
	fmt.Fprintln(e.stdout, res.Message)
	return nil
}

func runConfigure(_ context.Context, e *env, args []string) error {
	fs := e.flags("configure")
	baseURL := fs.String("base-url", e.cfg.API.BaseURL, "receipts service base URL")
	timeout := fs.Duration("timeout", e.cfg.API.Timeout, "request timeout")
	tz := fs.String("timezone", e.cfg.UI.Timezone, "IANA timezone for timestamps")
	dateFormat := fs.String("date-format", e.cfg.UI.DateFormat, "Go reference date layout")
	currency := fs.String("currency", e.cfg.UI.CurrencySymbol, "currency symbol for totals")
	level := fs.String("log-level", e.cfg.Log.Level, "debug, info, warn or error")
	listen := fs.String("metrics-listen", e.cfg.Metrics.Listen, "address for /metrics, empty to disable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tz != "" {
		if _, err := time.LoadLocation(*tz); err != nil {
			return fmt.Errorf("timezone %q: %w", *tz, err)
		}
	}
	if *timeout <= 0 {
		return errors.New("timeout must be positive")
	}

	cfg := e.cfg
	cfg.API.BaseURL = *baseURL
	cfg.API.Timeout = *timeout
	cfg.UI.Timezone = *tz
	cfg.UI.DateFormat = *dateFormat
	cfg.UI.CurrencySymbol = *currency
	cfg.Log.Level = *level
	cfg.Metrics.Listen = *listen
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "Saved %s\n", config.Path())
	return nil
}
