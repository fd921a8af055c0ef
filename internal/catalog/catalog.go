package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jask/receiptdesk/internal/listview"
	"github.com/jask/receiptdesk/internal/model"
)

// Uncategorized is shown for receipts without a category.
const Uncategorized = "Uncategorized"

var (
	ErrNoMatch   = errors.New("no matching category")
	ErrAmbiguous = errors.New("ambiguous category")
)

// Index answers id and name lookups over the categories fetched for the
// session. It is immutable once built.
type Index struct {
	cats []model.Category
	byID map[int64]int
}

func New(cats []model.Category) *Index {
	x := &Index{
		cats: append([]model.Category(nil), cats...),
		byID: make(map[int64]int, len(cats)),
	}
	for i, c := range x.cats {
		x.byID[c.ID] = i
	}
	return x
}

// Categories returns the categories in backend order.
func (x *Index) Categories() []model.Category {
	return append([]model.Category(nil), x.cats...)
}

func (x *Index) Len() int { return len(x.cats) }

func (x *Index) Lookup(id int64) (model.Category, bool) {
	i, ok := x.byID[id]
	if !ok {
		return model.Category{}, false
	}
	return x.cats[i], true
}

// Name renders a receipt's category. Ids that are not in the index still
// render, so a stale list never hides an assignment.
func (x *Index) Name(id *int64) string {
	if id == nil {
		return Uncategorized
	}
	if c, ok := x.Lookup(*id); ok {
		return c.Name
	}
	return fmt.Sprintf("#%d", *id)
}

// FilterLabel names a category filter for display.
func (x *Index) FilterLabel(f listview.CategoryFilter) string {
	switch {
	case f.IsAny():
		return "All categories"
	case f.IsUncategorized():
		return Uncategorized
	default:
		id, _ := f.ID()
		return x.Name(&id)
	}
}

// Next advances f through all, each category in order, then uncategorized,
// and back to all.
func (x *Index) Next(f listview.CategoryFilter) listview.CategoryFilter {
	switch {
	case f.IsAny():
		if len(x.cats) == 0 {
			return listview.Uncategorized()
		}
		return listview.CategoryID(x.cats[0].ID)
	case f.IsUncategorized():
		return listview.AnyCategory()
	}
	id, _ := f.ID()
	i, ok := x.byID[id]
	if !ok || i+1 >= len(x.cats) {
		return listview.Uncategorized()
	}
	return listview.CategoryID(x.cats[i+1].ID)
}

// Resolve finds the category the user meant by text: a known id, a name
// compared case-insensitively, or failing both the single closest name by
// edit distance.
func (x *Index) Resolve(text string) (model.Category, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Category{}, ErrNoMatch
	}
	if id, err := strconv.ParseInt(text, 10, 64); err == nil {
		if c, ok := x.Lookup(id); ok {
			return c, nil
		}
	}
	want := strings.ToLower(text)
	for _, c := range x.cats {
		if strings.ToLower(c.Name) == want {
			return c, nil
		}
	}

	best, bestScore, tied := -1, 1.0, false
	for i, c := range x.cats {
		score := distanceRatio(want, strings.ToLower(c.Name))
		switch {
		case score < bestScore:
			best, bestScore, tied = i, score, false
		case score == bestScore && best >= 0:
			tied = true
		}
	}
	if best < 0 || bestScore >= 0.4 {
		return model.Category{}, fmt.Errorf("%w: %q", ErrNoMatch, text)
	}
	if tied {
		return model.Category{}, fmt.Errorf("%w: %q", ErrAmbiguous, text)
	}
	return x.cats[best], nil
}

func distanceRatio(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(longest)
}
