package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/receiptdesk/internal/api"
	"github.com/jask/receiptdesk/internal/model"
)

const minPasswordLen = 8

type field struct {
	label string
	input textinput.Model
}

// form is a vertical list of labelled text inputs with one focused at a time.
type form struct {
	fields []field
	focus  int
}

func newForm(labels ...string) form {
	f := form{fields: make([]field, len(labels))}
	for i, l := range labels {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 256
		f.fields[i] = field{label: l, input: in}
	}
	return f
}

func (f *form) masked(i int) {
	f.fields[i].input.EchoMode = textinput.EchoPassword
	f.fields[i].input.EchoCharacter = '•'
}

func (f *form) focusAt(i int) tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	n := len(f.fields)
	f.focus = ((i % n) + n) % n
	for j := range f.fields {
		f.fields[j].input.Blur()
	}
	return f.fields[f.focus].input.Focus()
}

func (f *form) move(delta int) tea.Cmd { return f.focusAt(f.focus + delta) }

func (f *form) update(msg tea.Msg) tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}

func (f form) value(i int) string { return strings.TrimSpace(f.fields[i].input.Value()) }

// raw returns the input untrimmed; passwords may carry spaces.
func (f form) raw(i int) string { return f.fields[i].input.Value() }

func (f *form) set(i int, v string) { f.fields[i].input.SetValue(v) }

func (f *form) clear() {
	for i := range f.fields {
		f.fields[i].input.SetValue("")
	}
}

func (f form) view() string {
	var b strings.Builder
	for i, fl := range f.fields {
		label := labelStyle.Render(fmt.Sprintf("%-12s", fl.label))
		if i == f.focus {
			label = selectedStyle.Render(fmt.Sprintf("%-12s", fl.label))
		}
		b.WriteString(label + " " + fl.input.View() + "\n")
	}
	return b.String()
}

// Login form fields.
const (
	loginUsername = iota
	loginPassword
)

func newLoginForm() form {
	f := newForm("Username", "Password")
	f.masked(loginPassword)
	return f
}

func validateLogin(username, password string) error {
	if username == "" || password == "" {
		return errors.New("username and password are required")
	}
	return nil
}

// Register form fields.
const (
	regUsername = iota
	regEmail
	regFullName
	regPassword
	regConfirm
)

func newRegisterForm() form {
	f := newForm("Username", "Email", "Full name", "Password", "Confirm")
	f.masked(regPassword)
	f.masked(regConfirm)
	return f
}

// registration validates the register form and builds the request.
func registration(f form) (api.RegisterRequest, error) {
	req := api.RegisterRequest{
		Username: f.value(regUsername),
		Email:    f.value(regEmail),
		Password: f.raw(regPassword),
	}
	if err := validateRegistration(req.Username, req.Email, req.Password, f.raw(regConfirm)); err != nil {
		return api.RegisterRequest{}, err
	}
	if name := f.value(regFullName); name != "" {
		req.FullName = &name
	}
	return req, nil
}

func validateRegistration(username, email, password, confirm string) error {
	switch {
	case username == "" || email == "" || password == "":
		return errors.New("username, email and password are required")
	case len([]rune(password)) < minPasswordLen:
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	case password != confirm:
		return errors.New("passwords do not match")
	}
	return nil
}

// IMAP form fields.
const (
	imapEmail = iota
	imapServer
	imapPort
	imapUsername
	imapPassword
	imapFolder
	imapSSL
)

func newImapForm() form {
	f := newForm("Email", "Server", "Port", "Username", "Password", "Folder", "Use SSL")
	f.masked(imapPassword)
	return f
}

// fillImapForm loads defaults for a new mailbox, or the current values of
// existing. The password is never prefilled.
func fillImapForm(f *form, existing *model.ImapSetting) {
	f.clear()
	if existing == nil {
		d := model.DefaultImapSettingCreate()
		f.set(imapPort, strconv.Itoa(d.Port))
		f.set(imapFolder, d.Folder)
		f.set(imapSSL, yesNo(d.UseSSL))
		return
	}
	f.set(imapEmail, existing.Email)
	f.set(imapServer, existing.Server)
	f.set(imapPort, strconv.Itoa(existing.Port))
	f.set(imapUsername, existing.Username)
	f.set(imapFolder, existing.Folder)
	f.set(imapSSL, yesNo(existing.UseSSL))
}

func imapCreate(f form) (model.ImapSettingCreate, error) {
	in := model.DefaultImapSettingCreate()
	in.Email = f.value(imapEmail)
	in.Server = f.value(imapServer)
	in.Username = f.value(imapUsername)
	in.Password = f.raw(imapPassword)
	if in.Email == "" || in.Server == "" || in.Username == "" || in.Password == "" {
		return model.ImapSettingCreate{}, errors.New("email, server, username and password are required")
	}
	port, err := parsePort(f.value(imapPort), in.Port)
	if err != nil {
		return model.ImapSettingCreate{}, err
	}
	in.Port = port
	if folder := f.value(imapFolder); folder != "" {
		in.Folder = folder
	}
	ssl, err := parseYesNo(f.value(imapSSL), in.UseSSL)
	if err != nil {
		return model.ImapSettingCreate{}, err
	}
	in.UseSSL = ssl
	return in, nil
}

// imapUpdate diffs the form against the stored setting. A blank password
// keeps the stored one.
func imapUpdate(f form, cur model.ImapSetting) (model.ImapSettingUpdate, error) {
	var up model.ImapSettingUpdate
	setString := func(dst **string, v, old string) {
		if v != "" && v != old {
			*dst = &v
		}
	}
	setString(&up.Email, f.value(imapEmail), cur.Email)
	setString(&up.Server, f.value(imapServer), cur.Server)
	setString(&up.Username, f.value(imapUsername), cur.Username)
	setString(&up.Folder, f.value(imapFolder), cur.Folder)
	if pw := f.raw(imapPassword); pw != "" {
		up.Password = &pw
	}
	port, err := parsePort(f.value(imapPort), cur.Port)
	if err != nil {
		return model.ImapSettingUpdate{}, err
	}
	if port != cur.Port {
		up.Port = &port
	}
	ssl, err := parseYesNo(f.value(imapSSL), cur.UseSSL)
	if err != nil {
		return model.ImapSettingUpdate{}, err
	}
	if ssl != cur.UseSSL {
		up.UseSSL = &ssl
	}
	return up, nil
}

func parsePort(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return 0, errors.New("port must be a number between 1 and 65535")
	}
	return n, nil
}

func parseYesNo(s string, fallback bool) (bool, error) {
	switch strings.ToLower(s) {
	case "":
		return fallback, nil
	case "y", "yes", "true", "1", "on":
		return true, nil
	case "n", "no", "false", "0", "off":
		return false, nil
	}
	return false, errors.New("use SSL must be yes or no")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
