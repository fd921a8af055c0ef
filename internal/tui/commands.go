package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/jask/receiptdesk/internal/api"
	"github.com/jask/receiptdesk/internal/model"
)

const (
	actionLogin    = "login"
	actionRegister = "register"
	actionCategory = "category"
	actionSaveImap = "save"
	actionDelete   = "delete"
	actionTest     = "test"
	actionSync     = "sync"
)

type unauthorizedMsg struct{}

type loginDoneMsg struct {
	epoch uint64
	key   string
	err   error
}

type registerDoneMsg struct {
	key  string
	user model.User
	err  error
}

type userMsg struct {
	epoch uint64
	user  model.User
	err   error
}

type dashboardMsg struct {
	gen  uint64
	data dashboardData
	err  error
}

type receiptsMsg struct {
	gen        uint64
	receipts   []model.Receipt
	categories []model.Category
	err        error
}

type detailMsg struct {
	gen        uint64
	receipt    model.Receipt
	categories []model.Category
	err        error
}

type categoryUpdatedMsg struct {
	epoch   uint64
	key     string
	receipt model.Receipt
	err     error
}

type imapListMsg struct {
	gen      uint64
	settings []model.ImapSetting
	err      error
}

type imapSavedMsg struct {
	epoch   uint64
	key     string
	setting model.ImapSetting
	err     error
}

type imapDeletedMsg struct {
	epoch uint64
	key   string
	id    int64
	err   error
}

type imapActionMsg struct {
	epoch  uint64
	key    string
	action string
	id     int64
	result api.ActionResult
	err    error
}

// watchUnauthorized waits for the client to report a cleared session. It is
// re-armed after every event.
func (a *App) watchUnauthorized() tea.Cmd {
	ch := a.backend.Unauthorized()
	ctx := a.ctx
	return func() tea.Msg {
		select {
		case <-ch:
			return unauthorizedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (a *App) loginCmd(username, password string) tea.Cmd {
	epoch, key := a.epoch, actionLogin
	return func() tea.Msg {
		_, err := a.backend.Login(a.ctx, username, password)
		return loginDoneMsg{epoch: epoch, key: key, err: err}
	}
}

func (a *App) registerCmd(req api.RegisterRequest) tea.Cmd {
	return func() tea.Msg {
		u, err := a.backend.Register(a.ctx, req)
		return registerDoneMsg{key: actionRegister, user: u, err: err}
	}
}

func (a *App) loadUser() tea.Cmd {
	epoch := a.epoch
	return func() tea.Msg {
		u, err := a.backend.CurrentUser(a.ctx)
		return userMsg{epoch: epoch, user: u, err: err}
	}
}

func (a *App) loadDashboard(gen uint64) tea.Cmd {
	return func() tea.Msg {
		var d dashboardData
		g, ctx := errgroup.WithContext(a.ctx)
		g.Go(func() (err error) {
			d.summary, err = a.backend.Summary(ctx)
			return err
		})
		g.Go(func() (err error) {
			d.monthly, err = a.backend.MonthlyExpenses(ctx, api.MonthlyQuery{})
			return err
		})
		g.Go(func() (err error) {
			d.categories, err = a.backend.CategoryExpenses(ctx)
			return err
		})
		g.Go(func() (err error) {
			d.vendors, err = a.backend.VendorExpenses(ctx)
			return err
		})
		err := g.Wait()
		return dashboardMsg{gen: gen, data: d, err: err}
	}
}

func (a *App) loadReceipts(gen uint64) tea.Cmd {
	return func() tea.Msg {
		var (
			receipts []model.Receipt
			cats     []model.Category
		)
		g, ctx := errgroup.WithContext(a.ctx)
		g.Go(func() (err error) {
			receipts, err = a.backend.Receipts(ctx)
			return err
		})
		g.Go(func() (err error) {
			cats, err = a.backend.Categories(ctx)
			return err
		})
		err := g.Wait()
		return receiptsMsg{gen: gen, receipts: receipts, categories: cats, err: err}
	}
}

func (a *App) loadDetail(gen uint64, id int64) tea.Cmd {
	needCategories := a.catalog.Len() == 0
	return func() tea.Msg {
		var (
			rec  model.Receipt
			cats []model.Category
		)
		g, ctx := errgroup.WithContext(a.ctx)
		g.Go(func() (err error) {
			rec, err = a.backend.Receipt(ctx, id)
			return err
		})
		if needCategories {
			g.Go(func() (err error) {
				cats, err = a.backend.Categories(ctx)
				return err
			})
		}
		err := g.Wait()
		return detailMsg{gen: gen, receipt: rec, categories: cats, err: err}
	}
}

func (a *App) updateCategoryCmd(key string, id int64, categoryID *int64) tea.Cmd {
	epoch := a.epoch
	return func() tea.Msg {
		r, err := a.backend.UpdateReceiptCategory(a.ctx, id, categoryID)
		return categoryUpdatedMsg{epoch: epoch, key: key, receipt: r, err: err}
	}
}

func (a *App) loadImap(gen uint64) tea.Cmd {
	return func() tea.Msg {
		s, err := a.backend.ImapSettings(a.ctx)
		return imapListMsg{gen: gen, settings: s, err: err}
	}
}

func (a *App) createImapCmd(key string, in model.ImapSettingCreate) tea.Cmd {
	epoch := a.epoch
	return func() tea.Msg {
		s, err := a.backend.CreateImapSetting(a.ctx, in)
		return imapSavedMsg{epoch: epoch, key: key, setting: s, err: err}
	}
}

func (a *App) updateImapCmd(key string, id int64, in model.ImapSettingUpdate) tea.Cmd {
	epoch := a.epoch
	return func() tea.Msg {
		s, err := a.backend.UpdateImapSetting(a.ctx, id, in)
		return imapSavedMsg{epoch: epoch, key: key, setting: s, err: err}
	}
}

func (a *App) deleteImapCmd(key string, id int64) tea.Cmd {
	epoch := a.epoch
	return func() tea.Msg {
		err := a.backend.DeleteImapSetting(a.ctx, id)
		return imapDeletedMsg{epoch: epoch, key: key, id: id, err: err}
	}
}

func (a *App) imapActionCmd(action string, id int64) tea.Cmd {
	epoch, key, opts := a.epoch, inflightKey(action, id), a.syncOpts
	return func() tea.Msg {
		var (
			res api.ActionResult
			err error
		)
		switch action {
		case actionTest:
			res, err = a.backend.TestImapConnection(a.ctx, id)
		case actionSync:
			res, err = a.backend.SyncEmails(a.ctx, id, opts)
		}
		return imapActionMsg{epoch: epoch, key: key, action: action, id: id, result: res, err: err}
	}
}
