package listview

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jask/receiptdesk/internal/model"
)

func strp(s string) *string { return &s }
func idp(i int64) *int64 { return &i }

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func receipt(id int64, vendor, subject string, cat *int64, date string) model.Receipt {
	r := model.Receipt{ID: id, CategoryID: cat, Amount: decimal.NewFromInt(id), Currency: "THB"}
	if vendor != "" {
		r.VendorName = strp(vendor)
	}
	if subject != "" {
		r.EmailSubject = strp(subject)
	}
	if ts, ok := model.ParseTimestamp(date); ok {
		r.ReceiptDate = ts
	}
	return r
}

func ids(rows []model.Receipt) []int64 {
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func fixture() []model.Receipt {
	return []model.Receipt{
		receipt(1, "Amazon.com", "Your order", idp(3), "2024-02-10"),
		receipt(2, "Grab", "Ride receipt", idp(4), "2024-03-05T08:30:00"),
		receipt(3, "", "Netflix billing", nil, "2024-01-20"),
		receipt(4, "7-Eleven", "", idp(3), ""),
		receipt(5, "Lazada", "Order shipped", idp(0), "garbage"),
		receipt(6, "Central", "Amazing deals", nil, "2024-03-05"),
	}
}

func TestApplySearchScenario(t *testing.T) {
	rows := []model.Receipt{
		receipt(1, "Amazon.com", "", nil, "2024-01-01"),
		receipt(2, "Grab", "Trip", nil, "2024-01-02"),
		receipt(3, "", "", nil, "2024-01-03"),
		receipt(4, "Tops", "weekly shop", idp(1), "2024-01-04"),
	}
	got := Apply(rows, Criteria{Search: "amazon"})
	require.Equal(t, []int64{1}, ids(got))
}

func TestApplySearchMatchesVendorOrSubjectCaseInsensitive(t *testing.T) {
	got := Apply(fixture(), Criteria{Search: "AMAZ"})
	assert.ElementsMatch(t, []int64{1, 6}, ids(got))

	got = Apply(fixture(), Criteria{Search: "netflix"})
	assert.Equal(t, []int64{3}, ids(got))
}

func TestApplyCategoryFilter(t *testing.T) {
	cases := []struct {
		name   string
		filter CategoryFilter
		want   []int64
	}{
		{"any", AnyCategory(), []int64{2, 6, 1, 3, 4, 5}},
		{"id 3", CategoryID(3), []int64{1, 4}},
		{"id 0 is a real id", CategoryID(0), []int64{5}},
		{"uncategorized", Uncategorized(), []int64{6, 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Apply(fixture(), Criteria{Category: tc.filter})
			assert.Equal(t, tc.want, ids(got))
		})
	}
}

func TestApplyDateRangeInclusiveAndExcludesUndated(t *testing.T) {
	from, to := day("2024-02-10"), day("2024-03-05")
	got := Apply(fixture(), Criteria{From: &from, To: &to})
	assert.Equal(t, []int64{2, 6, 1}, ids(got))

	got = Apply(fixture(), Criteria{To: &from})
	assert.Equal(t, []int64{1, 3}, ids(got))
}

func TestSortNewestFirstUndatedLastStable(t *testing.T) {
	got := Apply(fixture(), Criteria{})
	require.Equal(t, []int64{2, 6, 1, 3, 4, 5}, ids(got))
	seenUndated := false
	for _, r := range got {
		_, ok := r.Date()
		if !ok {
			seenUndated = true
			continue
		}
		require.False(t, seenUndated, "dated receipt %d after an undated one", r.ID)
	}
}

func TestApplySubsetAndIdempotent(t *testing.T) {
	from := day("2024-01-01")
	crits := []Criteria{
		{},
		{Search: "a"},
		{Category: CategoryID(3)},
		{Category: Uncategorized(), From: &from},
		{Search: "zzz"},
	}
	raw := fixture()
	for i, c := range crits {
		first := Apply(raw, c)
		second := Apply(raw, c)
		assert.Equal(t, ids(first), ids(second), "criteria %d", i)
		assert.Subset(t, ids(raw), ids(first), "criteria %d", i)
		again := Apply(first, c)
		assert.Equal(t, ids(first), ids(again), "criteria %d", i)
	}
}

func many(n int) []model.Receipt {
	out := make([]model.Receipt, 0, n)
	base := day("2024-01-01")
	for i := 0; i < n; i++ {
		r := receipt(int64(i+1), fmt.Sprintf("vendor %d", i%3), "", nil, "")
		r.ReceiptDate = model.At(base.AddDate(0, 0, i))
		out = append(out, r)
	}
	return out
}

func TestEnginePagingBounds(t *testing.T) {
	for _, n := range []int{0, 1, 9, 10, 11, 25, 40} {
		e := NewEngine(many(n))
		for p := 1; p <= e.Page().TotalPages; p++ {
			e.SetPage(p)
			v := e.Page()
			require.LessOrEqual(t, v.Page, v.TotalPages)
			if n == 0 {
				require.Zero(t, v.Start)
				require.Zero(t, v.End)
				require.Equal(t, 1, v.TotalPages)
				continue
			}
			require.Equal(t, p*PageSize-9, v.Start, "n=%d p=%d", n, p)
			require.LessOrEqual(t, v.Start, v.End)
			require.LessOrEqual(t, v.End, n)
			require.Len(t, v.Items, v.End-v.Start+1)
		}
	}
}

func TestEngineSetPageClamps(t *testing.T) {
	e := NewEngine(many(25))
	e.SetPage(99)
	require.Equal(t, 3, e.Page().Page)
	e.SetPage(-4)
	require.Equal(t, 1, e.Page().Page)
	e.NextPage()
	e.NextPage()
	e.NextPage()
	require.Equal(t, 3, e.Page().Page)
	e.PrevPage()
	require.Equal(t, 2, e.Page().Page)
}

func TestEngineFilterChangeReturnsToFirstPage(t *testing.T) {
	e := NewEngine(many(30))
	e.SetPage(3)
	require.Equal(t, 3, e.Page().Page)

	e.SetSearch("vendor 1")
	v := e.Page()
	require.Equal(t, 10, v.Total)
	require.Equal(t, 1, v.Page)
	require.NotEmpty(t, v.Items)
}

func TestEngineKeepsPageWhenStillValid(t *testing.T) {
	e := NewEngine(many(30))
	e.SetPage(2)
	e.SetItems(many(31))
	require.Equal(t, 2, e.Page().Page)
}

func TestEngineResetClearsCriteria(t *testing.T) {
	e := NewEngine(fixture())
	from := day("2024-03-01")
	e.SetCategory(CategoryID(4))
	e.SetDateFrom(&from)
	require.Equal(t, 1, e.Page().Total)
	e.Reset()
	require.True(t, e.Criteria().Empty())
	require.Equal(t, len(fixture()), e.Page().Total)
}

func TestEngineDoesNotAliasInput(t *testing.T) {
	raw := fixture()
	e := NewEngine(raw)
	raw[0].VendorName = strp("changed")
	require.Equal(t, "Amazon.com", e.Items()[0].Vendor())
}

func TestParseCategoryFilter(t *testing.T) {
	f, err := ParseCategoryFilter("")
	require.NoError(t, err)
	require.True(t, f.IsAny())

	f, err = ParseCategoryFilter("None")
	require.NoError(t, err)
	require.True(t, f.IsUncategorized())

	f, err = ParseCategoryFilter(" 12 ")
	require.NoError(t, err)
	id, ok := f.ID()
	require.True(t, ok)
	require.Equal(t, int64(12), id)
	require.Equal(t, "12", f.String())

	_, err = ParseCategoryFilter("food")
	require.Error(t, err)
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("")
	require.NoError(t, err)
	require.Nil(t, d)

	d, err = ParseDay("2024-02-29")
	require.NoError(t, err)
	require.Equal(t, day("2024-02-29"), *d)

	_, err = ParseDay("29/02/2024")
	require.Error(t, err)
}
