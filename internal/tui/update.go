package tui

import (
	"unicode"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/receiptdesk/internal/listview"
)

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(m, a.keys.ForceQuit) {
		return a, tea.Quit
	}
	switch a.screen {
	case screenLogin:
		return a.handleLoginKey(m)
	case screenRegister:
		return a.handleRegisterKey(m)
	case screenImapForm:
		return a.handleImapFormKey(m)
	}
	if a.filterIn != filterNone {
		return a.handleFilterKey(m)
	}
	if a.picker {
		return a.handlePickerKey(m)
	}
	if a.confirmDelete {
		return a.handleConfirmKey(m)
	}

	switch {
	case key.Matches(m, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(m, a.keys.Dismiss):
		if a.notice != nil {
			a.notice = nil
			return a, nil
		}
		if a.screen == screenDetail {
			return a, a.backToList()
		}
		return a, nil
	case key.Matches(m, a.keys.Dashboard):
		return a, a.enter(screenDashboard)
	case key.Matches(m, a.keys.Receipts):
		return a, a.enter(screenReceipts)
	case key.Matches(m, a.keys.Imap):
		return a, a.enter(screenImap)
	case key.Matches(m, a.keys.Logout):
		a.backend.Logout(a.ctx)
		cmd := a.expire("")
		a.setInfo("Logged out")
		return a, cmd
	case key.Matches(m, a.keys.Refresh):
		return a, a.reload()
	}

	switch a.screen {
	case screenReceipts:
		return a.handleReceiptsKey(m)
	case screenDetail:
		return a.handleDetailKey(m)
	case screenImap:
		return a.handleImapKey(m)
	}
	return a, nil
}

func (a *App) handleLoginKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.keys.Register):
		return a, a.enter(screenRegister)
	case key.Matches(m, a.keys.Dismiss):
		a.notice = nil
		return a, nil
	case key.Matches(m, a.keys.NextField):
		return a, a.login.move(1)
	case key.Matches(m, a.keys.PrevField):
		return a, a.login.move(-1)
	case key.Matches(m, a.keys.Submit):
		username, password := a.login.value(loginUsername), a.login.raw(loginPassword)
		if err := validateLogin(username, password); err != nil {
			a.setError(err)
			return a, nil
		}
		if !a.inflight.begin(actionLogin) {
			return a, nil
		}
		a.notice = nil
		return a, a.loginCmd(username, password)
	}
	return a, a.login.update(m)
}

func (a *App) handleRegisterKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.keys.Dismiss):
		if a.notice != nil {
			a.notice = nil
			return a, nil
		}
		return a, a.enter(screenLogin)
	case key.Matches(m, a.keys.NextField):
		return a, a.register.move(1)
	case key.Matches(m, a.keys.PrevField):
		return a, a.register.move(-1)
	case key.Matches(m, a.keys.Submit):
		req, err := registration(a.register)
		if err != nil {
			a.setError(err)
			return a, nil
		}
		if !a.inflight.begin(actionRegister) {
			return a, nil
		}
		a.notice = nil
		return a, a.registerCmd(req)
	}
	return a, a.register.update(m)
}

func (a *App) handleReceiptsKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	page := a.engine.Page()
	switch {
	case key.Matches(m, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(m, a.keys.Down):
		if a.cursor < len(page.Items)-1 {
			a.cursor++
		}
	case key.Matches(m, a.keys.Next):
		a.engine.NextPage()
		a.cursor = 0
	case key.Matches(m, a.keys.Prev):
		a.engine.PrevPage()
		a.cursor = 0
	case key.Matches(m, a.keys.Search):
		return a, a.focusFilter(filterSearch, a.engine.Criteria().Search)
	case key.Matches(m, a.keys.From):
		return a, a.focusFilter(filterFrom, dayString(a.engine.Criteria().From))
	case key.Matches(m, a.keys.To):
		return a, a.focusFilter(filterTo, dayString(a.engine.Criteria().To))
	case key.Matches(m, a.keys.Cycle):
		a.engine.SetCategory(a.catalog.Next(a.engine.Criteria().Category))
		a.cursor = 0
	case key.Matches(m, a.keys.Reset):
		a.engine.Reset()
		a.cursor = 0
	case key.Matches(m, a.keys.Open):
		if r, ok := a.selectedReceipt(); ok {
			a.detailID = r.ID
			cp := r
			a.detail = &cp
			return a, a.enter(screenDetail)
		}
	}
	return a, nil
}

func (a *App) focusFilter(f filterField, value string) tea.Cmd {
	a.filterIn = f
	a.filterInput.SetValue(value)
	a.filterInput.CursorEnd()
	switch f {
	case filterSearch:
		a.filterInput.Placeholder = "vendor or subject"
	default:
		a.filterInput.Placeholder = "YYYY-MM-DD"
	}
	return a.filterInput.Focus()
}

func (a *App) blurFilter() {
	a.filterIn = filterNone
	a.filterInput.Blur()
}

// handleFilterKey edits the focused filter input. Search applies on every
// keystroke; dates apply on enter once they parse.
func (a *App) handleFilterKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyEsc:
		a.blurFilter()
		return a, nil
	case tea.KeyEnter:
		if a.filterIn == filterSearch {
			a.blurFilter()
			return a, nil
		}
		day, err := listview.ParseDay(a.filterInput.Value())
		if err != nil {
			a.setError(err)
			return a, nil
		}
		if a.filterIn == filterFrom {
			a.engine.SetDateFrom(day)
		} else {
			a.engine.SetDateTo(day)
		}
		a.cursor = 0
		a.blurFilter()
		return a, nil
	}
	var cmd tea.Cmd
	a.filterInput, cmd = a.filterInput.Update(m)
	if a.filterIn == filterSearch {
		a.engine.SetSearch(a.filterInput.Value())
		a.cursor = 0
	}
	return a, cmd
}

func (a *App) backToList() tea.Cmd {
	a.detail = nil
	if len(a.engine.Items()) == 0 {
		return a.enter(screenReceipts)
	}
	// The list was loaded before and detail edits were applied to it, so
	// going back only switches views.
	a.gen++
	a.screen = screenReceipts
	a.loading, a.loadErr, a.picker = false, nil, false
	a.clampCursor()
	return nil
}

func (a *App) handleDetailKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.detail == nil {
		return a, nil
	}
	if key.Matches(m, a.keys.Category) {
		if a.inflight.busy(inflightKey(actionCategory, a.detail.ID)) {
			return a, nil
		}
		a.picker = true
		a.pickerCursor = a.pickerIndexFor(a.detail.CategoryID)
	}
	return a, nil
}

// Picker rows: 0 is Uncategorized, then the categories in order.
func (a *App) pickerIndexFor(id *int64) int {
	if id == nil {
		return 0
	}
	for i, c := range a.catalog.Categories() {
		if c.ID == *id {
			return i + 1
		}
	}
	return 0
}

func (a *App) handlePickerKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := a.catalog.Len() + 1
	switch {
	case key.Matches(m, a.keys.Dismiss):
		a.picker = false
	case key.Matches(m, a.keys.Up):
		if a.pickerCursor > 0 {
			a.pickerCursor--
		}
	case key.Matches(m, a.keys.Down):
		if a.pickerCursor < rows-1 {
			a.pickerCursor++
		}
	case key.Matches(m, a.keys.Open):
		a.picker = false
		if a.detail == nil {
			return a, nil
		}
		var target *int64
		if a.pickerCursor > 0 {
			id := a.catalog.Categories()[a.pickerCursor-1].ID
			target = &id
		}
		k := inflightKey(actionCategory, a.detail.ID)
		if !a.inflight.begin(k) {
			return a, nil
		}
		return a, a.updateCategoryCmd(k, a.detail.ID, target)
	default:
		if m.Type == tea.KeyRunes && len(m.Runes) > 0 {
			a.jumpPicker(m.Runes[0])
		}
	}
	return a, nil
}

// jumpPicker moves to the next category whose name starts with r.
func (a *App) jumpPicker(r rune) {
	cats := a.catalog.Categories()
	want := unicode.ToLower(r)
	for step := 1; step <= len(cats); step++ {
		i := (a.pickerCursor - 1 + step) % len(cats)
		if i < 0 {
			i += len(cats)
		}
		name := []rune(cats[i].Name)
		if len(name) > 0 && unicode.ToLower(name[0]) == want {
			a.pickerCursor = i + 1
			return
		}
	}
}

func (a *App) handleImapKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.keys.Up):
		if a.imapCursor > 0 {
			a.imapCursor--
		}
	case key.Matches(m, a.keys.Down):
		if a.imapCursor < len(a.imaps)-1 {
			a.imapCursor++
		}
	case key.Matches(m, a.keys.Add):
		a.editing = nil
		return a, a.enter(screenImapForm)
	case key.Matches(m, a.keys.Edit):
		if s, ok := a.selectedImap(); ok {
			a.editing = &s
			return a, a.enter(screenImapForm)
		}
	case key.Matches(m, a.keys.Delete):
		if s, ok := a.selectedImap(); ok && !a.inflight.busy(inflightKey(actionDelete, s.ID)) {
			a.confirmDelete = true
		}
	case key.Matches(m, a.keys.Test):
		return a, a.startImapAction(actionTest)
	case key.Matches(m, a.keys.Sync):
		return a, a.startImapAction(actionSync)
	}
	return a, nil
}

func (a *App) startImapAction(action string) tea.Cmd {
	s, ok := a.selectedImap()
	if !ok {
		return nil
	}
	if !a.inflight.begin(inflightKey(action, s.ID)) {
		return nil
	}
	return a.imapActionCmd(action, s.ID)
}

func (a *App) handleConfirmKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.keys.Yes):
		a.confirmDelete = false
		s, ok := a.selectedImap()
		if !ok {
			return a, nil
		}
		k := inflightKey(actionDelete, s.ID)
		if !a.inflight.begin(k) {
			return a, nil
		}
		return a, a.deleteImapCmd(k, s.ID)
	case key.Matches(m, a.keys.No):
		a.confirmDelete = false
	}
	return a, nil
}

func (a *App) handleImapFormKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.keys.Dismiss):
		if a.notice != nil {
			a.notice = nil
			return a, nil
		}
		a.editing = nil
		return a, a.enter(screenImap)
	case key.Matches(m, a.keys.NextField):
		return a, a.imapForm.move(1)
	case key.Matches(m, a.keys.PrevField):
		return a, a.imapForm.move(-1)
	case key.Matches(m, a.keys.Submit):
		return a, a.submitImapForm()
	}
	return a, a.imapForm.update(m)
}

func (a *App) submitImapForm() tea.Cmd {
	if a.editing == nil {
		in, err := imapCreate(a.imapForm)
		if err != nil {
			a.setError(err)
			return nil
		}
		k := inflightKey(actionSaveImap, 0)
		if !a.inflight.begin(k) {
			return nil
		}
		return a.createImapCmd(k, in)
	}
	up, err := imapUpdate(a.imapForm, *a.editing)
	if err != nil {
		a.setError(err)
		return nil
	}
	if up.Empty() {
		a.setInfo("Nothing changed")
		return nil
	}
	k := inflightKey(actionSaveImap, a.editing.ID)
	if !a.inflight.begin(k) {
		return nil
	}
	return a.updateImapCmd(k, a.editing.ID, up)
}

func (a *App) categoryLabel() string {
	return a.catalog.FilterLabel(a.engine.Criteria().Category)
}
