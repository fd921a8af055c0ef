package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jask/receiptdesk/internal/model"
)

// MonthlyQuery narrows the monthly series. Zero fields are left to the
// backend's defaults and not sent.
type MonthlyQuery struct {
	Year   int
	Months int
}

func (q MonthlyQuery) values() url.Values {
	v := url.Values{}
	if q.Year > 0 {
		v.Set("year", strconv.Itoa(q.Year))
	}
	if q.Months > 0 {
		v.Set("months", strconv.Itoa(q.Months))
	}
	return v
}

func (c *Client) Summary(ctx context.Context) (model.Summary, error) {
	var out model.Summary
	err := c.do(ctx, call{op: "analytics.summary", method: http.MethodGet, path: "/analytics/summary"}, &out)
	return out, err
}

func (c *Client) MonthlyExpenses(ctx context.Context, q MonthlyQuery) ([]model.MonthlyExpense, error) {
	var out []model.MonthlyExpense
	err := c.do(ctx, call{
		op:     "analytics.monthly",
		method: http.MethodGet,
		path:   "/analytics/monthly",
		query:  q.values(),
	}, &out)
	return out, err
}

func (c *Client) CategoryExpenses(ctx context.Context) ([]model.CategoryExpense, error) {
	var out []model.CategoryExpense
	err := c.do(ctx, call{op: "analytics.categories", method: http.MethodGet, path: "/analytics/categories"}, &out)
	return out, err
}

func (c *Client) VendorExpenses(ctx context.Context) ([]model.VendorExpense, error) {
	var out []model.VendorExpense
	err := c.do(ctx, call{op: "analytics.vendors", method: http.MethodGet, path: "/analytics/vendors"}, &out)
	return out, err
}
