package api

import (
	"context"
	"net/http"

	"github.com/jask/receiptdesk/internal/model"
)

func (c *Client) Receipts(ctx context.Context) ([]model.Receipt, error) {
	var out []model.Receipt
	if err := c.do(ctx, call{op: "receipts.list", method: http.MethodGet, path: "/receipts"}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Receipt{}
	}
	return out, nil
}

func (c *Client) Receipt(ctx context.Context, id int64) (model.Receipt, error) {
	var out model.Receipt
	err := c.do(ctx, call{op: "receipts.get", method: http.MethodGet, path: idPath("/receipts/%d", id)}, &out)
	return out, err
}

// UpdateReceiptCategory assigns categoryID to the receipt, or clears the
// assignment when categoryID is nil. The body always carries category_id so
// that clearing is explicit.
func (c *Client) UpdateReceiptCategory(ctx context.Context, id int64, categoryID *int64) (model.Receipt, error) {
	body := struct {
		CategoryID *int64 `json:"category_id"`
	}{categoryID}
	var out model.Receipt
	err := c.do(ctx, call{
		op:     "receipts.update",
		method: http.MethodPut,
		path:   idPath("/receipts/%d", id),
		body:   body,
	}, &out)
	return out, err
}

// ReceiptFileURL is where the backend serves the original receipt file.
func (c *Client) ReceiptFileURL(id int64) string {
	return c.baseURL + idPath("/receipts/%d/file", id)
}
