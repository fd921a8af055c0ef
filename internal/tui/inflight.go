package tui

import "fmt"

// inflight tracks mutating actions per entity so the same action on the same
// row cannot be issued twice while the first is pending. Different rows and
// different actions proceed independently.
type inflight map[string]bool

func inflightKey(action string, id int64) string { return fmt.Sprintf("%s:%d", action, id) }

// begin marks key busy. It reports false when key was already busy.
func (f inflight) begin(key string) bool {
	if f[key] {
		return false
	}
	f[key] = true
	return true
}

func (f inflight) done(key string) { delete(f, key) }

func (f inflight) busy(key string) bool { return f[key] }
