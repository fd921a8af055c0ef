package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinels for errors.Is; every typed error below matches exactly one.
var (
	ErrNetwork    = errors.New("backend unreachable")
	ErrAuth       = errors.New("not authorized")
	ErrValidation = errors.New("rejected by backend")
	ErrNotFound   = errors.New("not found")
)

// NetworkError is a transport failure: refused connection, DNS, timeout.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string        { return fmt.Sprintf("%s: %v: %v", e.Op, ErrNetwork, e.Err) }
func (e *NetworkError) Unwrap() error        { return e.Err }
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// AuthError covers rejected credentials and expired sessions (401) as well as
// forbidden resources (403). Only a 401 clears the session.
type AuthError struct {
	Op     string
	Status int
	Detail string
}

func (e *AuthError) Error() string        { return describe(e.Op, e.Status, e.Detail) }
func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// ValidationError carries the backend's message verbatim so it can be shown
// to the user as-is.
type ValidationError struct {
	Op     string
	Status int
	Detail string
}

func (e *ValidationError) Error() string        { return describe(e.Op, e.Status, e.Detail) }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError means the id does not exist or is not visible to the caller.
type NotFoundError struct {
	Op     string
	Detail string
}

func (e *NotFoundError) Error() string        { return describe(e.Op, http.StatusNotFound, e.Detail) }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StatusError is any other non-2xx response.
type StatusError struct {
	Op     string
	Status int
	Detail string
}

func (e *StatusError) Error() string { return describe(e.Op, e.Status, e.Detail) }

func describe(op string, status int, detail string) string {
	if detail == "" {
		detail = http.StatusText(status)
	}
	return fmt.Sprintf("%s: %d %s", op, status, detail)
}

// Message returns the text a user should see for err: the backend's detail
// when there is one, otherwise a short description.
func Message(err error) string {
	var (
		ve *ValidationError
		ae *AuthError
		nf *NotFoundError
		se *StatusError
	)
	switch {
	case errors.As(err, &ve) && ve.Detail != "":
		return ve.Detail
	case errors.As(err, &ae) && ae.Detail != "":
		return ae.Detail
	case errors.As(err, &nf):
		return "not found"
	case errors.As(err, &se) && se.Detail != "":
		return se.Detail
	case errors.Is(err, ErrNetwork):
		return "cannot reach the receipts service"
	case err == nil:
		return ""
	default:
		return err.Error()
	}
}

func statusError(op string, status int, body []byte) error {
	detail := extractDetail(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthError{Op: op, Status: status, Detail: detail}
	case status == http.StatusNotFound:
		return &NotFoundError{Op: op, Detail: detail}
	case status == http.StatusBadRequest || status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return &ValidationError{Op: op, Status: status, Detail: detail}
	default:
		return &StatusError{Op: op, Status: status, Detail: detail}
	}
}

// extractDetail understands {"detail": "..."} and the list form
// {"detail": [{"loc": [...], "msg": "..."}]}. Anything else falls back to the
// trimmed body.
func extractDetail(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err == nil && len(env.Detail) > 0 {
		var s string
		if err := json.Unmarshal(env.Detail, &s); err == nil {
			return s
		}
		var items []struct {
			Loc []any  `json:"loc"`
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(env.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if field := lastLoc(it.Loc); field != "" {
					msgs = append(msgs, field+": "+it.Msg)
					continue
				}
				msgs = append(msgs, it.Msg)
			}
			return strings.Join(msgs, "; ")
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func lastLoc(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}
