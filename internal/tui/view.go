package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/jask/receiptdesk/internal/api"
	"github.com/jask/receiptdesk/internal/model"
)

const barWidth = 30

func (a *App) View() string {
	var body string
	switch a.screen {
	case screenLogin:
		body = a.renderLogin()
	case screenRegister:
		body = a.renderRegister()
	case screenDashboard:
		body = a.renderDashboard()
	case screenReceipts:
		body = a.renderReceipts()
	case screenDetail:
		body = a.renderDetail()
	case screenImap:
		body = a.renderImap()
	case screenImapForm:
		body = a.renderImapForm()
	}

	var b strings.Builder
	if a.screen != screenLogin && a.screen != screenRegister {
		b.WriteString(a.renderTabs() + "\n\n")
	}
	b.WriteString(body)
	if n := a.renderNotice(); n != "" {
		b.WriteString("\n" + n + "\n")
	}
	return b.String()
}

func (a *App) renderTabs() string {
	tabs := []struct {
		label string
		on    bool
	}{
		{"1 Dashboard", a.screen == screenDashboard},
		{"2 Receipts", a.screen == screenReceipts || a.screen == screenDetail},
		{"3 Mailboxes", a.screen == screenImap || a.screen == screenImapForm},
	}
	parts := make([]string, 0, len(tabs)+1)
	for _, t := range tabs {
		if t.on {
			parts = append(parts, activeTabStyle.Render(t.label))
		} else {
			parts = append(parts, tabStyle.Render(t.label))
		}
	}
	if a.user != nil {
		parts = append(parts, labelStyle.Render("  signed in as "+a.user.Username))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (a *App) renderNotice() string {
	if a.notice == nil {
		return ""
	}
	if a.notice.kind == noticeError {
		return errorStyle.Render("✗ "+a.notice.text) + helpStyle.Render("  (esc)")
	}
	return successStyle.Render("✓ "+a.notice.text) + helpStyle.Render("  (esc)")
}

// renderLoadState covers the loading and failed states shared by every
// fetched view. ok is false when the caller has nothing else to draw.
func (a *App) renderLoadState() (string, bool) {
	if a.loadErr != nil {
		return errorStyle.Render("Could not load: "+api.Message(a.loadErr)) + "\n" +
			helpStyle.Render("press r to retry"), false
	}
	if a.loading {
		return busyStyle.Render("Loading..."), true
	}
	return "", true
}

func (a *App) renderLogin() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Receipt Desk") + "\n")
	b.WriteString(labelStyle.Render("Sign in to your account") + "\n\n")
	b.WriteString(a.login.view())
	if a.inflight.busy(actionLogin) {
		b.WriteString("\n" + busyStyle.Render("Signing in...") + "\n")
	}
	b.WriteString("\n" + helpLine(a.keys.Submit, a.keys.NextField, a.keys.Register, a.keys.ForceQuit))
	return b.String()
}

func (a *App) renderRegister() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Create account") + "\n\n")
	b.WriteString(a.register.view())
	if a.inflight.busy(actionRegister) {
		b.WriteString("\n" + busyStyle.Render("Creating account...") + "\n")
	}
	b.WriteString("\n" + helpLine(a.keys.Submit, a.keys.NextField, a.keys.Dismiss))
	return b.String()
}

func (a *App) renderDashboard() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Dashboard") + "\n\n")
	state, ok := a.renderLoadState()
	if state != "" {
		b.WriteString(state + "\n")
	}
	if !ok || a.dash == nil {
		return b.String()
	}
	d := a.dash

	cards := []string{
		card("Total spent", a.money(d.summary.TotalExpense)),
		card("Monthly average", a.money(d.summary.AverageMonthly)),
		card("Largest", a.money(d.summary.MaxExpense)),
		card("Receipts", fmt.Sprintf("%d", d.summary.ReceiptCount)),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...) + "\n\n")

	b.WriteString(headerStyle.Render("By month") + "\n")
	if len(d.monthly) == 0 {
		b.WriteString(labelStyle.Render("  no data") + "\n")
	}
	var peak decimal.Decimal
	for _, m := range d.monthly {
		peak = decimal.Max(peak, m.Total)
	}
	for _, m := range d.monthly {
		label := fmt.Sprintf("%s %d", shortMonth(m), m.Year)
		b.WriteString(fmt.Sprintf("  %-9s %s %s\n", label, bar(m.Total, peak), valueStyle.Render(a.money(m.Total))))
	}

	b.WriteString("\n" + headerStyle.Render("By category") + "\n")
	for _, c := range d.categories {
		b.WriteString(fmt.Sprintf("  %-18s %5.1f%%  %s\n", truncate(c.CategoryName, 18), c.Percentage, a.money(c.Total)))
	}
	b.WriteString("\n" + headerStyle.Render("Top vendors") + "\n")
	for i, v := range d.vendors {
		if i == 5 {
			break
		}
		b.WriteString(fmt.Sprintf("  %-18s %3d receipts  %s\n", truncate(v.VendorName, 18), v.ReceiptCount, a.money(v.Total)))
	}
	b.WriteString("\n" + helpLine(a.keys.Receipts, a.keys.Imap, a.keys.Refresh, a.keys.Logout, a.keys.Quit))
	return b.String()
}

func card(label, value string) string {
	return cardStyle.Render(labelStyle.Render(label) + "\n" + valueStyle.Bold(true).Render(value))
}

func bar(v, peak decimal.Decimal) string {
	if peak.Sign() <= 0 || v.Sign() <= 0 {
		return strings.Repeat(" ", barWidth)
	}
	n := int(v.Div(peak).Mul(decimal.NewFromInt(barWidth)).Round(0).IntPart())
	n = min(max(n, 1), barWidth)
	return barStyle.Render(strings.Repeat("█", n)) + strings.Repeat(" ", barWidth-n)
}

func shortMonth(m model.MonthlyExpense) string {
	if m.Month >= 1 && m.Month <= 12 {
		return time.Month(m.Month).String()[:3]
	}
	return truncate(m.MonthName, 3)
}

func (a *App) renderReceipts() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Receipts") + "\n\n")
	b.WriteString(a.renderFilterBar() + "\n\n")

	state, ok := a.renderLoadState()
	if state != "" {
		b.WriteString(state + "\n")
	}
	if !ok {
		return b.String()
	}

	page := a.engine.Page()
	if page.Total == 0 && !a.loading {
		if len(a.engine.Items()) == 0 {
			b.WriteString(labelStyle.Render("No receipts yet. Sync a mailbox to import some.") + "\n")
		} else {
			b.WriteString(labelStyle.Render("No receipts match the current filters.") + "\n")
		}
	}
	if page.Total > 0 {
		b.WriteString(headerStyle.Render(fmt.Sprintf("  %-12s %-20s %-28s %-16s %14s", "Date", "Vendor", "Subject", "Category", "Amount")) + "\n")
		for i, r := range page.Items {
			line := fmt.Sprintf("  %-12s %-20s %-28s %-16s %14s",
				r.ReceiptDate.Format(a.ui.DateFormat),
				truncate(r.Vendor(), 20),
				truncate(r.Subject(), 28),
				truncate(a.catalog.Name(r.CategoryID), 16),
				r.FormatAmount(),
			)
			if i == a.cursor {
				line = selectedStyle.Render(">" + line[1:])
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n" + labelStyle.Render(fmt.Sprintf("Showing %d-%d of %d · page %d/%d",
			page.Start, page.End, page.Total, page.Page, page.TotalPages)) + "\n")
	}
	b.WriteString("\n" + helpLine(a.keys.Open, a.keys.Search, a.keys.Cycle, a.keys.From, a.keys.To,
		a.keys.Reset, a.keys.Next, a.keys.Prev, a.keys.Refresh))
	return b.String()
}

func (a *App) renderFilterBar() string {
	c := a.engine.Criteria()
	field := func(label string, f filterField, value string) string {
		if a.filterIn == f {
			return selectedStyle.Render(label+": ") + a.filterInput.View()
		}
		if value == "" {
			value = "-"
		}
		return labelStyle.Render(label+": ") + valueStyle.Render(value)
	}
	parts := []string{
		field("Search", filterSearch, c.Search),
		labelStyle.Render("Category: ") + valueStyle.Render(a.categoryLabel()),
		field("From", filterFrom, dayString(c.From)),
		field("To", filterTo, dayString(c.To)),
	}
	return strings.Join(parts, "   ")
}

func (a *App) renderDetail() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Receipt") + "\n\n")
	state, ok := a.renderLoadState()
	if state != "" {
		b.WriteString(state + "\n")
	}
	if !ok || a.detail == nil {
		b.WriteString("\n" + helpLine(a.keys.Dismiss, a.keys.Refresh))
		return b.String()
	}
	r := a.detail
	rows := [][2]string{
		{"Vendor", r.Vendor()},
		{"Amount", r.FormatAmount()},
		{"Date", r.ReceiptDate.Format(a.ui.DateFormat)},
		{"Category", a.catalog.Name(r.CategoryID)},
		{"Receipt no.", model.Or(r.ReceiptNumber)},
		{"Payment", model.Or(r.PaymentMethod)},
		{"Subject", r.Subject()},
		{"From", model.Or(r.EmailFrom)},
		{"Email date", a.clock(r.EmailDate)},
		{"Notes", model.Or(r.Notes)},
	}
	if r.ReceiptFilePath != nil {
		rows = append(rows, [2]string{"File", a.backend.ReceiptFileURL(r.ID)})
	}
	for _, row := range rows {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-12s", row[0])) + " " + valueStyle.Render(row[1]) + "\n")
	}
	if a.inflight.busy(inflightKey(actionCategory, r.ID)) {
		b.WriteString("\n" + busyStyle.Render("Saving category...") + "\n")
	}
	if a.picker {
		b.WriteString("\n" + a.renderPicker())
	}
	b.WriteString("\n" + helpLine(a.keys.Category, a.keys.Dismiss, a.keys.Refresh))
	return b.String()
}

func (a *App) renderPicker() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Select category") + "\n")
	names := []string{"Uncategorized"}
	for _, c := range a.catalog.Categories() {
		names = append(names, c.Name)
	}
	for i, n := range names {
		if i == a.pickerCursor {
			b.WriteString(selectedStyle.Render("> "+n) + "\n")
			continue
		}
		b.WriteString("  " + n + "\n")
	}
	b.WriteString(helpLine(a.keys.Up, a.keys.Down, a.keys.Open, a.keys.Dismiss) + "\n")
	return b.String()
}

func (a *App) renderImap() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Mailboxes") + "\n\n")
	state, ok := a.renderLoadState()
	if state != "" {
		b.WriteString(state + "\n")
	}
	if !ok {
		return b.String()
	}
	if len(a.imaps) == 0 && !a.loading {
		b.WriteString(labelStyle.Render("No mailboxes configured. Press a to add one.") + "\n")
	}
	for i, s := range a.imaps {
		line := fmt.Sprintf("  %-28s %-24s %-10s last sync %s",
			truncate(s.Email, 28),
			truncate(fmt.Sprintf("%s:%d", s.Server, s.Port), 24),
			truncate(s.Folder, 10),
			a.clock(s.LastSync),
		)
		if i == a.imapCursor {
			line = selectedStyle.Render(">" + line[1:])
		}
		var busy []string
		for _, act := range []string{actionTest, actionSync, actionDelete} {
			if a.inflight.busy(inflightKey(act, s.ID)) {
				busy = append(busy, act+"ing")
			}
		}
		if len(busy) > 0 {
			line += "  " + busyStyle.Render(strings.Join(busy, ", ")+"...")
		}
		b.WriteString(line + "\n")
	}
	if a.confirmDelete {
		if s, ok := a.selectedImap(); ok {
			b.WriteString("\n" + errorStyle.Render(fmt.Sprintf("Delete %s?", s.Email)) + " " + helpLine(a.keys.Yes, a.keys.No) + "\n")
		}
	}
	b.WriteString("\n" + helpLine(a.keys.Add, a.keys.Edit, a.keys.Delete, a.keys.Test, a.keys.Sync, a.keys.Refresh))
	return b.String()
}

func (a *App) renderImapForm() string {
	var b strings.Builder
	title := "Add mailbox"
	if a.editing != nil {
		title = "Edit " + a.editing.Email
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")
	b.WriteString(a.imapForm.view())
	if a.editing != nil {
		b.WriteString(labelStyle.Render("Leave the password blank to keep the current one.") + "\n")
	}
	var id int64
	if a.editing != nil {
		id = a.editing.ID
	}
	if a.inflight.busy(inflightKey(actionSaveImap, id)) {
		b.WriteString(busyStyle.Render("Saving...") + "\n")
	}
	b.WriteString("\n" + helpLine(a.keys.Submit, a.keys.NextField, a.keys.Dismiss))
	return b.String()
}

func (a *App) money(d decimal.Decimal) string {
	return a.ui.CurrencySymbol + model.Money(d)
}

// clock renders an instant in the configured timezone. Receipt dates are
// calendar days and are not shifted.
func (a *App) clock(ts model.Timestamp) string {
	if !ts.Valid {
		return model.Placeholder
	}
	return ts.Time.In(a.loc).Format(a.ui.DateFormat + " 15:04")
}

func dayString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
