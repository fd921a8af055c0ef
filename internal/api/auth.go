package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/jask/receiptdesk/internal/model"
)

// TokenResponse is the body of a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegisterRequest creates an account. FullName is optional.
type RegisterRequest struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name,omitempty"`
}

// Login exchanges credentials for a bearer token and stores it in the
// session. The request is form-encoded, as the token endpoint expects.
func (c *Client) Login(ctx context.Context, username, password string) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, call{
		op:     "auth.login",
		method: http.MethodPost,
		path:   "/token",
		form:   url.Values{"username": {username}, "password": {password}},

		anonymous: true,
	}, &out)
	if err != nil {
		return TokenResponse{}, err
	}
	if out.AccessToken == "" {
		return out, fmt.Errorf("auth.login: response carried no access token")
	}
	if err := c.session.Set(ctx, out.AccessToken); err != nil {
		return out, err
	}
	c.log.Info("auth.login", zap.String("username", username))
	return out, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (model.User, error) {
	var out model.User
	err := c.do(ctx, call{op: "auth.register", method: http.MethodPost, path: "/users", body: req, anonymous: true}, &out)
	return out, err
}

// Logout drops the stored credential. There is no server-side revocation, so
// the only failure is the local store, which is logged and otherwise ignored.
func (c *Client) Logout(ctx context.Context) {
	if err := c.session.Clear(ctx); err != nil {
		c.log.Warn("auth.logout", zap.Error(err))
		return
	}
	c.log.Info("auth.logout")
}

// CurrentUser returns the account behind the current token.
func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	var out model.User
	err := c.do(ctx, call{op: "auth.me", method: http.MethodGet, path: "/users/me"}, &out)
	return out, err
}
