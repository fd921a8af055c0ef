package api

import (
	"context"
	"net/http"

	"github.com/jask/receiptdesk/internal/model"
)

// CategoryInput creates a category. The backend assigns a color when Color
// is empty.
type CategoryInput struct {
	Name  string  `json:"name"`
	Color string  `json:"color,omitempty"`
	Icon  *string `json:"icon,omitempty"`
}

func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	if err := c.do(ctx, call{op: "categories.list", method: http.MethodGet, path: "/categories"}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Category{}
	}
	return out, nil
}

func (c *Client) CreateCategory(ctx context.Context, in CategoryInput) (model.Category, error) {
	var out model.Category
	err := c.do(ctx, call{op: "categories.create", method: http.MethodPost, path: "/categories", body: in}, &out)
	return out, err
}
