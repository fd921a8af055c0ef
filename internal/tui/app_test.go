package tui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/receiptdesk/internal/api"
	"github.com/jask/receiptdesk/internal/config"
	"github.com/jask/receiptdesk/internal/model"
	"github.com/jask/receiptdesk/internal/session"
)

type fakeBackend struct {
	mu          sync.Mutex
	calls       map[string]int
	receipts    []model.Receipt
	categories  []model.Category
	imaps       []model.ImapSetting
	receiptsErr error
	syncResult  api.ActionResult
	unauth      chan struct{}
}

func newFake() *fakeBackend {
	return &fakeBackend{
		calls: map[string]int{},
		receipts: []model.Receipt{
			rec(1, "Amazon", "Your order", nil, "2024-03-01"),
			rec(2, "Grab", "Trip receipt", i64(4), "2024-03-05"),
			rec(3, "amazon.co.jp", "Shipment", nil, "2024-02-10"),
		},
		categories: []model.Category{{ID: 4, Name: "Transport"}, {ID: 7, Name: "Shopping"}},
		imaps: []model.ImapSetting{
			{ID: 5, Email: "a@example.com", Server: "imap.example.com", Port: 993, Folder: "INBOX"},
			{ID: 6, Email: "b@example.com", Server: "imap.example.com", Port: 993, Folder: "INBOX"},
		},
		syncResult: api.ActionResult{Status: "success", Message: "Sync started"},
		unauth:     make(chan struct{}, 1),
	}
}

func rec(id int64, vendor, subject string, cat *int64, date string) model.Receipt {
	ts, _ := model.ParseTimestamp(date)
	return model.Receipt{
		ID: id, VendorName: &vendor, EmailSubject: &subject, CategoryID: cat,
		ReceiptDate: ts, Amount: decimal.NewFromInt(100), Currency: "THB",
	}
}

func i64(n int64) *int64 { return &n }

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) Login(_ context.Context, username, password string) (api.TokenResponse, error) {
	f.hit("login")
	if password != "hunter22" {
		return api.TokenResponse{}, &api.AuthError{Op: "auth.login", Status: 401, Detail: "Incorrect username or password"}
	}
	return api.TokenResponse{AccessToken: "tok", TokenType: "bearer"}, nil
}

func (f *fakeBackend) Register(_ context.Context, req api.RegisterRequest) (model.User, error) {
	f.hit("register")
	return model.User{ID: 2, Username: req.Username, Email: req.Email}, nil
}

func (f *fakeBackend) Logout(context.Context) { f.hit("logout") }

func (f *fakeBackend) CurrentUser(context.Context) (model.User, error) {
	f.hit("me")
	return model.User{ID: 1, Username: "somchai"}, nil
}

func (f *fakeBackend) Receipts(context.Context) ([]model.Receipt, error) {
	f.hit("receipts")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.receiptsErr != nil {
		return nil, f.receiptsErr
	}
	return append([]model.Receipt(nil), f.receipts...), nil
}

func (f *fakeBackend) Receipt(_ context.Context, id int64) (model.Receipt, error) {
	f.hit("receipt")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.receipts {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Receipt{}, &api.NotFoundError{Op: "receipts.get"}
}

func (f *fakeBackend) UpdateReceiptCategory(_ context.Context, id int64, cat *int64) (model.Receipt, error) {
	f.hit("update")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.receipts {
		if f.receipts[i].ID == id {
			f.receipts[i].CategoryID = cat
			return f.receipts[i], nil
		}
	}
	return model.Receipt{}, &api.NotFoundError{Op: "receipts.update"}
}

func (f *fakeBackend) ReceiptFileURL(id int64) string {
	return fmt.Sprintf("http://backend.test/api/v1/receipts/%d/file", id)
}

func (f *fakeBackend) Categories(context.Context) ([]model.Category, error) {
	f.hit("categories")
	return f.categories, nil
}

func (f *fakeBackend) Summary(context.Context) (model.Summary, error) {
	f.hit("summary")
	return model.Summary{TotalExpense: decimal.NewFromInt(300), ReceiptCount: 3}, nil
}

func (f *fakeBackend) MonthlyExpenses(context.Context, api.MonthlyQuery) ([]model.MonthlyExpense, error) {
	return []model.MonthlyExpense{{Year: 2024, Month: 3, Total: decimal.NewFromInt(200)}}, nil
}

func (f *fakeBackend) CategoryExpenses(context.Context) ([]model.CategoryExpense, error) {
	return []model.CategoryExpense{{CategoryName: "Transport", Total: decimal.NewFromInt(100), Percentage: 33.3}}, nil
}

func (f *fakeBackend) VendorExpenses(context.Context) ([]model.VendorExpense, error) {
	return []model.VendorExpense{{VendorName: "Amazon", Total: decimal.NewFromInt(100), ReceiptCount: 1}}, nil
}

func (f *fakeBackend) ImapSettings(context.Context) ([]model.ImapSetting, error) {
	f.hit("imaps")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ImapSetting(nil), f.imaps...), nil
}

func (f *fakeBackend) CreateImapSetting(_ context.Context, in model.ImapSettingCreate) (model.ImapSetting, error) {
	f.hit("create")
	return model.ImapSetting{ID: 9, Email: in.Email}, nil
}

func (f *fakeBackend) UpdateImapSetting(_ context.Context, id int64, _ model.ImapSettingUpdate) (model.ImapSetting, error) {
	f.hit("updateImap")
	return model.ImapSetting{ID: id}, nil
}

func (f *fakeBackend) DeleteImapSetting(context.Context, int64) error {
	f.hit("delete")
	return nil
}

func (f *fakeBackend) TestImapConnection(context.Context, int64) (api.ActionResult, error) {
	f.hit("test")
	return api.ActionResult{Status: "error", Message: "Login failed"}, nil
}

func (f *fakeBackend) SyncEmails(context.Context, int64, api.SyncOptions) (api.ActionResult, error) {
	f.hit("sync")
	return f.syncResult, nil
}

func (f *fakeBackend) Unauthorized() <-chan struct{} { return f.unauth }

func newTestApp(t *testing.T, fb *fakeBackend, authed bool) *App {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	a := New(ctx, fb, Options{Authenticated: authed, UI: config.UIConfig{DateFormat: "2006-01-02", CurrencySymbol: "฿"}})
	a.now = func() time.Time { return time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC) }
	return a
}

// drain runs cmd and every command produced by the resulting messages.
// Commands that do not finish quickly (cursor blink, the unauthorized
// watcher) are abandoned.
func drain(a *App, cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch m := runCmd(c).(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, m...)
		default:
			_, next := a.Update(m)
			queue = append(queue, next)
		}
	}
}

func runCmd(c tea.Cmd) tea.Msg {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- c() }()
	select {
	case m := <-ch:
		return m
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func press(a *App, keys ...string) tea.Cmd {
	var cmds []tea.Cmd
	for _, k := range keys {
		_, cmd := a.Update(keyMsg(k))
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func typeText(a *App, s string) {
	for _, r := range s {
		a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func TestLoginLandsOnDashboard(t *testing.T) {
	fb := newFake()
	a := newTestApp(t, fb, false)
	a.enter(screenLogin)

	typeText(a, "somchai")
	press(a, "tab")
	typeText(a, "hunter22")
	drain(a, press(a, "enter"))

	require.Equal(t, screenDashboard, a.screen)
	require.NotNil(t, a.dash)
	require.NotNil(t, a.user)
	require.Equal(t, 1, fb.count("login"))
	require.Contains(t, a.View(), "Dashboard")
}

func TestLoginFailureShowsBackendMessage(t *testing.T) {
	fb := newFake()
	a := newTestApp(t, fb, false)
	a.enter(screenLogin)

	typeText(a, "somchai")
	press(a, "tab")
	typeText(a, "wrong")
	drain(a, press(a, "enter"))

	require.Equal(t, screenLogin, a.screen)
	require.Contains(t, a.View(), "Incorrect username or password")
}

func TestRejectedLoginAgainstBackendKeepsMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Incorrect username or password"}`))
	}))
	t.Cleanup(srv.Close)
	client, err := api.New(srv.URL+"/api/v1", session.New(&session.MemoryStore{}, nil))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	a := New(ctx, client, Options{UI: config.UIConfig{DateFormat: "2006-01-02"}})
	a.enter(screenLogin)

	typeText(a, "somchai")
	press(a, "tab")
	typeText(a, "wrong")
	drain(a, press(a, "enter"))

	require.Empty(t, client.Unauthorized())
	require.Equal(t, screenLogin, a.screen)
	require.Equal(t, noticeError, a.notice.kind)
	require.Equal(t, "Incorrect username or password", a.notice.text)
	require.Equal(t, "somchai", a.login.value(loginUsername))
}

func TestLoginRequiresBothFields(t *testing.T) {
	fb := newFake()
	a := newTestApp(t, fb, false)
	a.enter(screenLogin)
	drain(a, press(a, "enter"))
	require.Equal(t, 0, fb.count("login"))
	require.NotNil(t, a.notice)
}

func TestRegisterValidatesBeforeSending(t *testing.T) {
	fb := newFake()
	a := newTestApp(t, fb, false)
	a.enter(screenLogin)
	a.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	require.Equal(t, screenRegister, a.screen)

	typeText(a, "newbie")
	press(a, "tab")
	typeText(a, "n@example.com")
	press(a, "tab", "tab")
	typeText(a, "longpassword")
	press(a, "tab")
	typeText(a, "different")
	drain(a, press(a, "enter"))
	require.Equal(t, 0, fb.count("register"))
	require.Contains(t, a.notice.text, "do not match")

	a.register.set(regConfirm, "longpassword")
	drain(a, press(a, "enter"))
	require.Equal(t, 1, fb.count("register"))
	require.Equal(t, screenLogin, a.screen)
	require.Equal(t, "newbie", a.login.value(loginUsername))
}

func TestFilteringNeverRefetches(t *testing.T) {
	fb := newFake()
	a := newTestApp(t, fb, true)
	drain(a, a.enter(screenReceipts))
	require.Equal(t, 1, fb.count("receipts"))
	require.Equal(t, 3, a.engine.Page().Total)

	press(a, "/")
	typeText(a, "AMAZON")
	press(a, "enter")
	require.Equal(t, 2, a.engine.Page().Total)

	press(a, "c") // Transport
	require.Equal(t, 0, a.engine.Page().Total)
	press(a, "c", "c") // Shopping, then Uncategorized
	require.True(t, a.engine.Criteria().Category.IsUncategorized())
	require.Equal(t, 2, a.engine.Page().Total)

	press(a, "f")
	typeText(a, "2024-03-01")
	press(a, "enter")
	require.Equal(t, 1, a.engine.Page().Total)

	press(a, "x")
	require.Equal(t, 3, a.engine.Page().Total)
	require.Equal(t, 1, fb.count("receipts"))

	drain(a, press(a, "r"))
	require.Equal(t, 2, fb.count("receipts"))
}

func TestBadDateKeepsInputOpen(t *testing.T) {
	fb := newFake()
	a := newTestApp(t, fb, true)
	drain(a, a.enter(screenReceipts))

	press(a, "t")
	typeText(a, "03/01/2024")
	press(a, "enter")
	require.Equal(t, filterTo, a.filterIn)
	require.Equal(t, noticeError, a.notice.kind)
	require.Nil(t, a.engine.Criteria().To)
}

func TestStaleLoadIsDropped(t *testing.T) {
	fb := newFake()
	a := newTestApp(t, fb, true)
	a.enter(screenReceipts)
	old := a.gen
	a.enter(screenImap)

	a.Update(receiptsMsg{gen: old, receipts: fb.receipts, categories: fb.categories})
	require.Empty(t, a.engine.Items())

	a.Update(imapListMsg{gen: a.gen, settings: fb.imaps})
	require.Len(t, a.imaps, 2)
}

func TestFailedLoadOffersRetry(t *testing.T) {
	fb := newFake()
	fb.receiptsErr = &api.NetworkError{Op: "receipts.list", Err: errors.New("connection refused")}
	a := newTestApp(t, fb, true)
	drain(a, a.enter(screenReceipts))
	require.Error(t, a.loadErr)
	require.Contains(t, a.View(), "press r to retry")

	fb.mu.Lock()
	fb.receiptsErr = nil
	fb.mu.Unlock()
	drain(a, press(a, "r"))
	require.NoError(t, a.loadErr)
	require.Equal(t, 3, a.engine.Page().Total)
}

func TestCategoryPickerUpdatesDetailAndList(t *testing.T) {
	fb := newFake()
	a := newTestApp(t, fb, true)
	drain(a, a.enter(screenReceipts))

	// newest first: 2 (Mar 5), 1 (Mar 1), 3 (Feb 10)
	drain(a, press(a, "down", "enter"))
	require.Equal(t, screenDetail, a.screen)
	require.Equal(t, int64(1), a.detail.ID)

	press(a, "c")
	require.True(t, a.picker)
	require.Equal(t, 0, a.pickerCursor)
	press(a, "s") // jump to Shopping
	require.Equal(t, 2, a.pickerCursor)

	cmd := press(a, "enter")
	require.True(t, a.inflight.busy("category:1"))
	press(a, "c")
	require.False(t, a.picker, "picker stays closed while saving")
	drain(a, cmd)

	require.False(t, a.inflight.busy("category:1"))
	require.Equal(t, int64(7), *a.detail.CategoryID)
	require.Contains(t, a.notice.text, "Shopping")

	press(a, "esc", "esc")
	require.Equal(t, screenReceipts, a.screen)
	for _, r := range a.engine.Items() {
		if r.ID == 1 {
			require.Equal(t, int64(7), *r.CategoryID)
		}
	}
	require.Equal(t, 1, fb.count("receipts"))
}

func TestRowActionsAreGatedPerEntity(t *testing.T) {
	fb := newFake()
	a := newTestApp(t, fb, true)
	drain(a, a.enter(screenImap))

	first := press(a, "s")
	require.True(t, a.inflight.busy("sync:5"))
	_, again := a.Update(keyMsg("s"))
	require.Nil(t, again)

	_, test := a.Update(keyMsg("t"))
	require.NotNil(t, test, "a different action on the same row is allowed")

	press(a, "down")
	_, other := a.Update(keyMsg("s"))
	require.NotNil(t, other, "the same action on another row is allowed")

	drain(a, first)
	require.False(t, a.inflight.busy("sync:5"))
	require.Equal(t, 1, fb.count("sync"))
	require.True(t, a.imaps[0].LastSync.Valid)
	require.Equal(t, a.now(), a.imaps[0].LastSync.Time)
	require.Equal(t, noticeInfo, a.notice.kind)

	drain(a, test)
	require.Equal(t, noticeError, a.notice.kind)
	require.Equal(t, "Login failed", a.notice.text)
}

func TestFailedSyncKeepsLastSync(t *testing.T) {
	fb := newFake()
	fb.syncResult = api.ActionResult{Status: "error", Message: "Mailbox unreachable"}
	a := newTestApp(t, fb, true)
	drain(a, a.enter(screenImap))
	before := a.imaps[0].LastSync

	drain(a, press(a, "s"))
	require.Equal(t, 1, fb.count("sync"))
	require.Equal(t, before, a.imaps[0].LastSync)
	require.Equal(t, noticeError, a.notice.kind)
	require.Equal(t, "Mailbox unreachable", a.notice.text)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	fb := newFake()
	a := newTestApp(t, fb, true)
	drain(a, a.enter(screenImap))

	press(a, "d")
	require.True(t, a.confirmDelete)
	press(a, "n")
	require.False(t, a.confirmDelete)
	require.Equal(t, 0, fb.count("delete"))

	drain(a, press(a, "d", "y"))
	require.Equal(t, 1, fb.count("delete"))
	require.Len(t, a.imaps, 1)
	require.Equal(t, int64(6), a.imaps[0].ID)
}

func TestAddMailboxReturnsToList(t *testing.T) {
	fb := newFake()
	a := newTestApp(t, fb, true)
	drain(a, a.enter(screenImap))

	press(a, "a")
	require.Equal(t, screenImapForm, a.screen)
	require.Equal(t, "993", a.imapForm.value(imapPort))
	a.imapForm.set(imapEmail, "c@example.com")
	a.imapForm.set(imapServer, "imap.example.com")
	a.imapForm.set(imapUsername, "c")
	a.imapForm.set(imapPassword, "secret")
	drain(a, press(a, "enter"))

	require.Equal(t, 1, fb.count("create"))
	require.Equal(t, screenImap, a.screen)
	require.Equal(t, 2, fb.count("imaps"))
}

func TestUnauthorizedResetsToLogin(t *testing.T) {
	fb := newFake()
	a := newTestApp(t, fb, true)
	drain(a, a.enter(screenImap))
	press(a, "s")
	staleEpoch, staleGen := a.epoch, a.gen

	a.Update(unauthorizedMsg{})
	require.Equal(t, screenLogin, a.screen)
	require.Empty(t, a.imaps)
	require.Empty(t, a.inflight)
	require.Nil(t, a.user)
	require.Equal(t, noticeError, a.notice.kind)

	a.Update(imapListMsg{gen: staleGen, settings: fb.imaps})
	a.Update(imapActionMsg{epoch: staleEpoch, key: "sync:5", action: actionSync, id: 5, result: fb.syncResult})
	require.Empty(t, a.imaps)
	require.Contains(t, a.notice.text, "expired")
	require.NotContains(t, a.View(), "Mailboxes")
}

func TestStaleActionResultKeepsNewGate(t *testing.T) {
	fb := newFake()
	a := newTestApp(t, fb, true)
	drain(a, a.enter(screenImap))
	press(a, "s")
	staleEpoch := a.epoch

	a.Update(unauthorizedMsg{})
	require.True(t, a.inflight.begin("sync:5"))

	a.Update(imapActionMsg{epoch: staleEpoch, key: "sync:5", action: actionSync, id: 5, result: fb.syncResult})
	require.True(t, a.inflight.busy("sync:5"))
}

func TestUnauthorizedWatcherDeliversEvent(t *testing.T) {
	fb := newFake()
	a := newTestApp(t, fb, true)
	fb.unauth <- struct{}{}
	require.Equal(t, unauthorizedMsg{}, a.watchUnauthorized()())
}

func TestLogoutClearsState(t *testing.T) {
	fb := newFake()
	a := newTestApp(t, fb, true)
	drain(a, a.enter(screenReceipts))

	press(a, "L")
	require.Equal(t, 1, fb.count("logout"))
	require.Equal(t, screenLogin, a.screen)
	require.Empty(t, a.engine.Items())
}

func TestDashboardRendersSummary(t *testing.T) {
	fb := newFake()
	a := newTestApp(t, fb, true)
	drain(a, a.enter(screenDashboard))

	out := a.View()
	require.Contains(t, out, "฿300.00")
	require.Contains(t, out, "Mar 2024")
	require.Contains(t, out, "Transport")
	require.Contains(t, out, "Amazon")
}

func TestEmptyListMessages(t *testing.T) {
	fb := newFake()
	fb.receipts = nil
	a := newTestApp(t, fb, true)
	drain(a, a.enter(screenReceipts))
	require.Contains(t, a.View(), "No receipts yet")
}

func TestDetailLinksReceiptFile(t *testing.T) {
	fb := newFake()
	path := "/data/receipts/1.pdf"
	fb.receipts[0].ReceiptFilePath = &path
	a := newTestApp(t, fb, true)
	drain(a, a.enter(screenReceipts))
	drain(a, press(a, "down", "enter"))

	require.Equal(t, int64(1), a.detail.ID)
	require.Contains(t, a.View(), "http://backend.test/api/v1/receipts/1/file")
}
