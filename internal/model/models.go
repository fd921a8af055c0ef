package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Placeholder is rendered for optional fields the backend left empty.
const Placeholder = "-"

// User is the authenticated account as returned by the backend.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
}

// Category is both a lookup entry and an assignable filter value.
type Category struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Color string  `json:"color"`
	Icon  *string `json:"icon,omitempty"`
}

// Receipt is a single ingested receipt. Amount and Currency are always set;
// everything tied to the source email or categorisation is optional.
type Receipt struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	EmailID         *string         `json:"email_id,omitempty"`
	EmailSubject    *string         `json:"email_subject,omitempty"`
	EmailFrom       *string         `json:"email_from,omitempty"`
	EmailDate       Timestamp       `json:"email_date"`
	VendorName      *string         `json:"vendor_name,omitempty"`
	CategoryID      *int64          `json:"category_id,omitempty"`
	ReceiptDate     Timestamp       `json:"receipt_date"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	ReceiptNumber   *string         `json:"receipt_number,omitempty"`
	PaymentMethod   *string         `json:"payment_method,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	ReceiptFilePath *string         `json:"receipt_file_path,omitempty"`
	CreatedAt       Timestamp       `json:"created_at"`
}

// Vendor returns the vendor name or the placeholder.
func (r Receipt) Vendor() string { return Or(r.VendorName) }

// Subject returns the source email subject or the placeholder.
func (r Receipt) Subject() string { return Or(r.EmailSubject) }

// Date returns the receipt date and whether it was present and parseable.
func (r Receipt) Date() (time.Time, bool) {
	return r.ReceiptDate.Time, r.ReceiptDate.Valid
}

// ImapSetting is the read shape of a mailbox configuration. The password is
// write-only and has no field here.
type ImapSetting struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Server    string    `json:"server"`
	Port      int       `json:"port"`
	Username  string    `json:"username"`
	UseSSL    bool      `json:"use_ssl"`
	Folder    string    `json:"folder"`
	LastSync  Timestamp `json:"last_sync"`
	CreatedAt Timestamp `json:"created_at"`
}

// ImapSettingCreate is the payload for creating a mailbox configuration.
type ImapSettingCreate struct {
	Email    string `json:"email"`
	Server   string `json:"server"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	UseSSL   bool   `json:"use_ssl"`
	Folder   string `json:"folder"`
}

// ImapSettingUpdate changes only the fields that are non-nil.
type ImapSettingUpdate struct {
	Email    *string `json:"email,omitempty"`
	Server   *string `json:"server,omitempty"`
	Port     *int    `json:"port,omitempty"`
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	UseSSL   *bool   `json:"use_ssl,omitempty"`
	Folder   *string `json:"folder,omitempty"`
}

// Empty reports whether the update would change nothing.
func (u ImapSettingUpdate) Empty() bool {
	return u.Email == nil && u.Server == nil && u.Port == nil && u.Username == nil &&
		u.Password == nil && u.UseSSL == nil && u.Folder == nil
}

// DefaultImapSettingCreate mirrors the form defaults: IMAPS on 993, INBOX.
func DefaultImapSettingCreate() ImapSettingCreate {
	return ImapSettingCreate{Port: 993, UseSSL: true, Folder: "INBOX"}
}

// Summary is the headline analytics block.
type Summary struct {
	TotalExpense   decimal.Decimal `json:"total_expense"`
	AverageMonthly decimal.Decimal `json:"average_monthly"`
	MaxExpense     decimal.Decimal `json:"max_expense"`
	MinExpense     decimal.Decimal `json:"min_expense"`
	ReceiptCount   int             `json:"receipt_count"`
}

type MonthlyExpense struct {
	Year         int             `json:"year"`
	Month        int             `json:"month"`
	MonthName    string          `json:"month_name"`
	Total        decimal.Decimal `json:"total"`
	ReceiptCount int             `json:"receipt_count"`
}

type CategoryExpense struct {
	CategoryName string          `json:"category_name"`
	Total        decimal.Decimal `json:"total"`
	ReceiptCount int             `json:"receipt_count"`
	Percentage   float64         `json:"percentage"`
}

type VendorExpense struct {
	VendorName   string          `json:"vendor_name"`
	Total        decimal.Decimal `json:"total"`
	ReceiptCount int             `json:"receipt_count"`
	Percentage   float64         `json:"percentage"`
}

// Or dereferences an optional string, falling back to Placeholder when it is
// nil or blank.
func Or(s *string) string {
	if s == nil || *s == "" {
		return Placeholder
	}
	return *s
}
