package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jask/receiptdesk/internal/api"
	"github.com/jask/receiptdesk/internal/catalog"
	"github.com/jask/receiptdesk/internal/config"
	"github.com/jask/receiptdesk/internal/listview"
	"github.com/jask/receiptdesk/internal/model"
)

// Backend is the part of the API client the views use.
type Backend interface {
	Login(ctx context.Context, username, password string) (api.TokenResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (model.User, error)
	Logout(ctx context.Context)
	CurrentUser(ctx context.Context) (model.User, error)

	Receipts(ctx context.Context) ([]model.Receipt, error)
	Receipt(ctx context.Context, id int64) (model.Receipt, error)
	UpdateReceiptCategory(ctx context.Context, id int64, categoryID *int64) (model.Receipt, error)
	ReceiptFileURL(id int64) string
	Categories(ctx context.Context) ([]model.Category, error)

	Summary(ctx context.Context) (model.Summary, error)
	MonthlyExpenses(ctx context.Context, q api.MonthlyQuery) ([]model.MonthlyExpense, error)
	CategoryExpenses(ctx context.Context) ([]model.CategoryExpense, error)
	VendorExpenses(ctx context.Context) ([]model.VendorExpense, error)

	ImapSettings(ctx context.Context) ([]model.ImapSetting, error)
	CreateImapSetting(ctx context.Context, in model.ImapSettingCreate) (model.ImapSetting, error)
	UpdateImapSetting(ctx context.Context, id int64, in model.ImapSettingUpdate) (model.ImapSetting, error)
	DeleteImapSetting(ctx context.Context, id int64) error
	TestImapConnection(ctx context.Context, id int64) (api.ActionResult, error)
	SyncEmails(ctx context.Context, id int64, opts api.SyncOptions) (api.ActionResult, error)

	Unauthorized() <-chan struct{}
}

// Options configures a new App.
type Options struct {
	// Authenticated starts on the dashboard instead of the login form.
	Authenticated bool
	UI            config.UIConfig
	Sync          api.SyncOptions
	Logger        *zap.Logger
}

type screen string

const (
	screenLogin     screen = "login"
	screenRegister  screen = "register"
	screenDashboard screen = "dashboard"
	screenReceipts  screen = "receipts"
	screenDetail    screen = "detail"
	screenImap      screen = "imap"
	screenImapForm  screen = "imapForm"
)

type filterField int

const (
	filterNone filterField = iota
	filterSearch
	filterFrom
	filterTo
)

type noticeKind int

const (
	noticeInfo noticeKind = iota
	noticeError
)

type notice struct {
	kind noticeKind
	text string
}

type dashboardData struct {
	summary    model.Summary
	monthly    []model.MonthlyExpense
	categories []model.CategoryExpense
	vendors    []model.VendorExpense
}

// App is the root Bubble Tea model.
//
// Two counters guard against late responses. gen changes whenever a view is
// entered or reloaded; a load result carrying another gen is dropped. epoch
// changes when the session ends; mutation results from an earlier epoch are
// dropped.
type App struct {
	ctx      context.Context
	backend  Backend
	log      *zap.Logger
	ui       config.UIConfig
	loc      *time.Location
	syncOpts api.SyncOptions
	keys     keyMap
	now      func() time.Time

	screen   screen
	gen      uint64
	epoch    uint64
	loading  bool
	loadErr  error
	notice   *notice
	inflight inflight

	user    *model.User
	catalog *catalog.Index

	login    form
	register form

	engine      *listview.Engine
	cursor      int
	filterIn    filterField
	filterInput textinput.Model

	detailID     int64
	detail       *model.Receipt
	picker       bool
	pickerCursor int

	dash *dashboardData

	imaps         []model.ImapSetting
	imapCursor    int
	imapForm      form
	editing       *model.ImapSetting
	confirmDelete bool
}

func New(ctx context.Context, backend Backend, opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.UI.DateFormat == "" {
		opts.UI.DateFormat = "02 Jan 2006"
	}
	fi := textinput.New()
	fi.Prompt = ""
	fi.CharLimit = 128

	a := &App{
		ctx:         ctx,
		backend:     backend,
		log:         log,
		ui:          opts.UI,
		loc:         opts.UI.Location(),
		syncOpts:    opts.Sync,
		keys:        defaultKeys(),
		now:         time.Now,
		screen:      screenLogin,
		inflight:    inflight{},
		catalog:     catalog.New(nil),
		login:       newLoginForm(),
		register:    newRegisterForm(),
		engine:      listview.NewEngine(nil),
		filterInput: fi,
		imapForm:    newImapForm(),
	}
	if opts.Authenticated {
		a.screen = screenDashboard
	}
	return a
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.watchUnauthorized(), a.enter(a.screen)}
	if a.screen != screenLogin {
		cmds = append(cmds, a.loadUser())
	}
	return tea.Batch(cmds...)
}

// enter switches to s and starts its load under a fresh generation.
func (a *App) enter(s screen) tea.Cmd {
	a.screen = s
	a.gen++
	a.loading = false
	a.loadErr = nil
	a.picker = false
	a.confirmDelete = false
	a.blurFilter()

	switch s {
	case screenLogin:
		a.login.clear()
		return a.login.focusAt(loginUsername)
	case screenRegister:
		a.register.clear()
		return a.register.focusAt(regUsername)
	case screenImapForm:
		fillImapForm(&a.imapForm, a.editing)
		return a.imapForm.focusAt(imapEmail)
	}
	return a.load()
}

// reload refetches the current view. Criteria and cursor are kept.
func (a *App) reload() tea.Cmd {
	a.gen++
	a.loadErr = nil
	return a.load()
}

func (a *App) load() tea.Cmd {
	gen := a.gen
	var cmd tea.Cmd
	switch a.screen {
	case screenDashboard:
		cmd = a.loadDashboard(gen)
	case screenReceipts:
		cmd = a.loadReceipts(gen)
	case screenDetail:
		cmd = a.loadDetail(gen, a.detailID)
	case screenImap:
		cmd = a.loadImap(gen)
	}
	a.loading = cmd != nil
	return cmd
}

// expire drops everything tied to the ended session and shows the login
// form. Pending responses from before are discarded by the epoch check.
func (a *App) expire(text string) tea.Cmd {
	a.epoch++
	a.inflight = inflight{}
	a.user = nil
	a.catalog = catalog.New(nil)
	a.engine = listview.NewEngine(nil)
	a.cursor = 0
	a.detail, a.detailID = nil, 0
	a.dash = nil
	a.imaps, a.imapCursor, a.editing = nil, 0, nil
	cmd := a.enter(screenLogin)
	if text != "" {
		a.notice = &notice{kind: noticeError, text: text}
	}
	return cmd
}

func (a *App) setError(err error) {
	a.notice = &notice{kind: noticeError, text: api.Message(err)}
}

func (a *App) setInfo(format string, args ...any) {
	a.notice = &notice{kind: noticeInfo, text: fmt.Sprintf(format, args...)}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(m)

	case unauthorizedMsg:
		a.log.Info("tui.session_expired", zap.String("screen", string(a.screen)))
		return a, tea.Batch(a.expire("Your session has expired. Please log in again."), a.watchUnauthorized())

	case loginDoneMsg:
		if m.epoch != a.epoch {
			return a, nil
		}
		a.inflight.done(m.key)
		if m.err != nil {
			a.setError(m.err)
			return a, nil
		}
		a.notice = nil
		return a, tea.Batch(a.enter(screenDashboard), a.loadUser())

	case registerDoneMsg:
		a.inflight.done(m.key)
		if m.err != nil {
			a.setError(m.err)
			return a, nil
		}
		cmd := a.enter(screenLogin)
		a.login.set(loginUsername, m.user.Username)
		a.setInfo("Account %s created. Please log in.", m.user.Username)
		return a, tea.Batch(cmd, a.login.focusAt(loginPassword))

	case userMsg:
		if m.epoch != a.epoch || m.err != nil {
			return a, nil
		}
		u := m.user
		a.user = &u

	case dashboardMsg:
		if !a.current(m.gen) {
			return a, nil
		}
		a.loading = false
		if m.err != nil {
			a.loadErr = m.err
			return a, nil
		}
		d := m.data
		a.dash = &d

	case receiptsMsg:
		if !a.current(m.gen) {
			return a, nil
		}
		a.loading = false
		if m.err != nil {
			a.loadErr = m.err
			return a, nil
		}
		a.catalog = catalog.New(m.categories)
		a.engine.SetItems(m.receipts)
		a.clampCursor()

	case detailMsg:
		if !a.current(m.gen) {
			return a, nil
		}
		a.loading = false
		if m.err != nil {
			a.loadErr = m.err
			return a, nil
		}
		r := m.receipt
		a.detail = &r
		if m.categories != nil {
			a.catalog = catalog.New(m.categories)
		}

	case categoryUpdatedMsg:
		if m.epoch != a.epoch {
			return a, nil
		}
		a.inflight.done(m.key)
		if m.err != nil {
			a.setError(m.err)
			return a, nil
		}
		a.applyReceipt(m.receipt)
		a.setInfo("Category set to %s", a.catalog.Name(m.receipt.CategoryID))

	case imapListMsg:
		if !a.current(m.gen) {
			return a, nil
		}
		a.loading = false
		if m.err != nil {
			a.loadErr = m.err
			return a, nil
		}
		a.imaps = m.settings
		if a.imapCursor >= len(a.imaps) {
			a.imapCursor = max(0, len(a.imaps)-1)
		}

	case imapSavedMsg:
		if m.epoch != a.epoch {
			return a, nil
		}
		a.inflight.done(m.key)
		if m.err != nil {
			a.setError(m.err)
			return a, nil
		}
		a.editing = nil
		a.setInfo("Saved %s", m.setting.Email)
		if a.screen == screenImapForm {
			return a, a.enter(screenImap)
		}

	case imapDeletedMsg:
		if m.epoch != a.epoch {
			return a, nil
		}
		a.inflight.done(m.key)
		if m.err != nil {
			a.setError(m.err)
			return a, nil
		}
		a.removeImap(m.id)
		a.setInfo("Mailbox removed")

	case imapActionMsg:
		if m.epoch != a.epoch {
			return a, nil
		}
		a.inflight.done(m.key)
		if m.err != nil {
			a.setError(m.err)
			return a, nil
		}
		if m.action == actionSync && m.result.OK() {
			a.markSynced(m.id)
		}
		text := m.result.Message
		if text == "" {
			text = m.result.Status
		}
		if m.result.OK() {
			a.notice = &notice{kind: noticeInfo, text: text}
		} else {
			a.notice = &notice{kind: noticeError, text: text}
		}
	}
	return a, nil
}

func (a *App) current(gen uint64) bool { return gen == a.gen }

func (a *App) clampCursor() {
	n := len(a.engine.Page().Items)
	if a.cursor >= n {
		a.cursor = max(0, n-1)
	}
}

// applyReceipt replaces the local copy of r in the list and detail views.
func (a *App) applyReceipt(r model.Receipt) {
	if a.detail != nil && a.detail.ID == r.ID {
		cp := r
		a.detail = &cp
	}
	items := a.engine.Items()
	next := make([]model.Receipt, len(items))
	copy(next, items)
	for i := range next {
		if next[i].ID == r.ID {
			next[i] = r
		}
	}
	a.engine.SetItems(next)
	a.clampCursor()
}

func (a *App) removeImap(id int64) {
	out := a.imaps[:0:0]
	for _, s := range a.imaps {
		if s.ID != id {
			out = append(out, s)
		}
	}
	a.imaps = out
	if a.imapCursor >= len(a.imaps) {
		a.imapCursor = max(0, len(a.imaps)-1)
	}
}

// markSynced records the sync locally; the backend ingests in the
// background and the list is not refetched.
func (a *App) markSynced(id int64) {
	for i := range a.imaps {
		if a.imaps[i].ID == id {
			a.imaps[i].LastSync = model.At(a.now())
		}
	}
}

func (a *App) selectedImap() (model.ImapSetting, bool) {
	if a.imapCursor < 0 || a.imapCursor >= len(a.imaps) {
		return model.ImapSetting{}, false
	}
	return a.imaps[a.imapCursor], true
}

func (a *App) selectedReceipt() (model.Receipt, bool) {
	items := a.engine.Page().Items
	if a.cursor < 0 || a.cursor >= len(items) {
		return model.Receipt{}, false
	}
	return items[a.cursor], true
}
