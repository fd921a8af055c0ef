package listview

import (
	"sort"
	"strings"
	"time"

	"github.com/jask/receiptdesk/internal/model"
)

// PageSize is fixed; the backend returns the whole collection and paging is
// purely local.
const PageSize = 10

// Apply returns the receipts matching c, most recent first. Receipts without
// a usable date sort last. The input slice is not modified.
func Apply(receipts []model.Receipt, c Criteria) []model.Receipt {
	out := make([]model.Receipt, 0, len(receipts))
	for _, r := range receipts {
		if Matches(r, c) {
			out = append(out, r)
		}
	}
	SortByDateDesc(out)
	return out
}

// Matches reports whether r satisfies every active criterion.
func Matches(r model.Receipt, c Criteria) bool {
	return matchesSearch(r, c.Search) &&
		c.Category.matches(r.CategoryID) &&
		matchesDates(r, c.From, c.To)
}

func matchesSearch(r model.Receipt, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return containsFold(r.VendorName, q) || containsFold(r.EmailSubject, q)
}

func containsFold(field *string, lowerQuery string) bool {
	if field == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*field), lowerQuery)
}

func matchesDates(r model.Receipt, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	d, ok := r.Date()
	if !ok {
		// undated receipts fall outside any active range
		return false
	}
	day := dayOf(d)
	if from != nil && day.Before(dayOf(*from)) {
		return false
	}
	if to != nil && day.After(dayOf(*to)) {
		return false
	}
	return true
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SortByDateDesc orders receipts newest first, undated last. The sort is
// stable so equal dates keep their fetch order.
func SortByDateDesc(rows []model.Receipt) {
	sort.SliceStable(rows, func(i, j int) bool {
		di, oki := rows[i].Date()
		dj, okj := rows[j].Date()
		switch {
		case oki && okj:
			return di.After(dj)
		case oki:
			return true
		default:
			return false
		}
	})
}

// TotalPages is ceil(n/PageSize) with a floor of one.
func TotalPages(n int) int {
	if n <= 0 {
		return 1
	}
	return (n + PageSize - 1) / PageSize
}

// View is one page of the filtered list. Start and End are 1-based positions
// within the filtered result, both zero when it is empty.
type View struct {
	Items      []model.Receipt
	Page       int
	TotalPages int
	Total      int
	Start      int
	End        int
}

// Engine owns the raw collection together with filter and page state.
// Mutations are local; callers refetch the collection explicitly via SetItems.
type Engine struct {
	items    []model.Receipt
	criteria Criteria
	page     int
	filtered []model.Receipt
}

// NewEngine returns an engine on page 1 with no filters.
func NewEngine(items []model.Receipt) *Engine {
	e := &Engine{page: 1}
	e.SetItems(items)
	return e
}

// SetItems replaces the raw collection, keeping filters and page where
// possible.
func (e *Engine) SetItems(items []model.Receipt) {
	e.items = append([]model.Receipt(nil), items...)
	e.refresh()
}

func (e *Engine) Items() []model.Receipt { return e.items }

func (e *Engine) Criteria() Criteria { return e.criteria }

func (e *Engine) SetCriteria(c Criteria) {
	e.criteria = c
	e.refresh()
}

func (e *Engine) SetSearch(s string) {
	e.criteria.Search = s
	e.refresh()
}

func (e *Engine) SetCategory(f CategoryFilter) {
	e.criteria.Category = f
	e.refresh()
}

func (e *Engine) SetDateFrom(t *time.Time) {
	e.criteria.From = t
	e.refresh()
}

func (e *Engine) SetDateTo(t *time.Time) {
	e.criteria.To = t
	e.refresh()
}

// Reset clears every filter and returns to page 1.
func (e *Engine) Reset() {
	e.criteria = Criteria{}
	e.page = 1
	e.refresh()
}

// SetPage moves to page n, clamped into [1, TotalPages].
func (e *Engine) SetPage(n int) {
	total := TotalPages(len(e.filtered))
	switch {
	case n < 1:
		n = 1
	case n > total:
		n = total
	}
	e.page = n
}

func (e *Engine) NextPage() { e.SetPage(e.page + 1) }

func (e *Engine) PrevPage() { e.SetPage(e.page - 1) }

// Filtered returns the whole filtered, sorted result.
func (e *Engine) Filtered() []model.Receipt { return e.filtered }

// Page returns the current page of the filtered result.
func (e *Engine) Page() View {
	total := len(e.filtered)
	v := View{Page: e.page, TotalPages: TotalPages(total), Total: total}
	if total == 0 {
		return v
	}
	lo := (e.page - 1) * PageSize
	hi := min(lo+PageSize, total)
	v.Items = e.filtered[lo:hi]
	v.Start = lo + 1
	v.End = hi
	return v
}

func (e *Engine) refresh() {
	e.filtered = Apply(e.items, e.criteria)
	if e.page < 1 || e.page > TotalPages(len(e.filtered)) {
		e.page = 1
	}
}
