package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jask/receiptdesk/internal/model"
)

const (
	DefaultSyncDaysBack = 30
	DefaultSyncLimit    = 50
)

// SyncOptions bounds a mailbox sync. Non-positive fields take the defaults.
type SyncOptions struct {
	DaysBack int
	Limit    int
}

func (o SyncOptions) withDefaults() SyncOptions {
	if o.DaysBack <= 0 {
		o.DaysBack = DefaultSyncDaysBack
	}
	if o.Limit <= 0 {
		o.Limit = DefaultSyncLimit
	}
	return o
}

// ActionResult is the backend's reply to test and sync actions.
type ActionResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// OK reports whether the backend considered the action successful.
func (r ActionResult) OK() bool { return r.Status == "success" }

func (c *Client) ImapSettings(ctx context.Context) ([]model.ImapSetting, error) {
	var out []model.ImapSetting
	if err := c.do(ctx, call{op: "imap.list", method: http.MethodGet, path: "/imap-settings"}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.ImapSetting{}
	}
	return out, nil
}

func (c *Client) CreateImapSetting(ctx context.Context, in model.ImapSettingCreate) (model.ImapSetting, error) {
	var out model.ImapSetting
	err := c.do(ctx, call{op: "imap.create", method: http.MethodPost, path: "/imap-settings", body: in}, &out)
	return out, err
}

// UpdateImapSetting sends only the fields set on in. A nil Password keeps the
// stored one.
func (c *Client) UpdateImapSetting(ctx context.Context, id int64, in model.ImapSettingUpdate) (model.ImapSetting, error) {
	var out model.ImapSetting
	err := c.do(ctx, call{
		op:     "imap.update",
		method: http.MethodPut,
		path:   idPath("/imap-settings/%d", id),
		body:   in,
	}, &out)
	return out, err
}

func (c *Client) DeleteImapSetting(ctx context.Context, id int64) error {
	return c.do(ctx, call{op: "imap.delete", method: http.MethodDelete, path: idPath("/imap-settings/%d", id)}, nil)
}

// TestImapConnection asks the backend to log in to the mailbox. A reachable
// backend reporting a failed login is not an error; check ActionResult.OK.
func (c *Client) TestImapConnection(ctx context.Context, id int64) (ActionResult, error) {
	var out ActionResult
	err := c.do(ctx, call{op: "imap.test", method: http.MethodPost, path: idPath("/imap-settings/%d/test", id)}, &out)
	return out, err
}

func (c *Client) SyncEmails(ctx context.Context, id int64, opts SyncOptions) (ActionResult, error) {
	opts = opts.withDefaults()
	var out ActionResult
	err := c.do(ctx, call{
		op:     "imap.sync",
		method: http.MethodPost,
		path:   idPath("/imap-settings/%d/sync", id),
		query: url.Values{
			"days_back": {strconv.Itoa(opts.DaysBack)},
			"limit":     {strconv.Itoa(opts.Limit)},
		},
	}, &out)
	return out, err
}
