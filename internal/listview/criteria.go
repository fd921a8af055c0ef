package listview

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type categoryMode int

const (
	categoryAny categoryMode = iota
	categoryNone
	categoryID
)

// CategoryFilter selects receipts by category. The zero value matches every
// receipt. Uncategorized matches receipts without a category id; it is a
// separate mode so that id 0 never doubles as a sentinel.
type CategoryFilter struct {
	mode categoryMode
	id   int64
}

func AnyCategory() CategoryFilter { return CategoryFilter{} }
func Uncategorized() CategoryFilter { return CategoryFilter{mode: categoryNone} }
func CategoryID(id int64) CategoryFilter { return CategoryFilter{mode: categoryID, id: id} }
func (f CategoryFilter) IsAny() bool { return f.mode == categoryAny }
func (f CategoryFilter) IsUncategorized() bool { return f.mode == categoryNone }

// ID returns the selected category id when the filter targets one.
func (f CategoryFilter) ID() (int64, bool) {
	return f.id, f.mode == categoryID
}

func (f CategoryFilter) matches(id *int64) bool {
	switch f.mode {
	case categoryNone:
		return id == nil
	case categoryID:
		return id != nil && *id == f.id
	default:
		return true
	}
}

// String is the inverse of ParseCategoryFilter.
func (f CategoryFilter) String() string {
	switch f.mode {
	case categoryNone:
		return UncategorizedToken
	case categoryID:
		return strconv.FormatInt(f.id, 10)
	default:
		return ""
	}
}

// UncategorizedToken selects receipts without a category in text input.
const UncategorizedToken = "none"

// ParseCategoryFilter reads "" as any, "none" as uncategorized and a decimal
// id otherwise.
func ParseCategoryFilter(s string) (CategoryFilter, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return AnyCategory(), nil
	case UncategorizedToken:
		return Uncategorized(), nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return CategoryFilter{}, fmt.Errorf("category filter %q: want an id or %q", s, UncategorizedToken)
	}
	return CategoryID(id), nil
}

// Criteria is the active filter state. From and To are inclusive calendar
// days; nil means unbounded.
type Criteria struct {
	Search   string
	Category CategoryFilter
	From     *time.Time
	To       *time.Time
}

// Empty reports whether the criteria would keep every receipt.
func (c Criteria) Empty() bool {
	return strings.TrimSpace(c.Search) == "" && c.Category.IsAny() && c.From == nil && c.To == nil
}

// ParseDay parses a YYYY-MM-DD bound. An empty string yields nil.
func ParseDay(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("date %q: want YYYY-MM-DD", s)
	}
	return &t, nil
}
