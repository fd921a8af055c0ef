package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/receiptdesk/internal/listview"
	"github.com/jask/receiptdesk/internal/model"
)

func sample() *Index {
	return New([]model.Category{
		{ID: 0, Name: "Food"},
		{ID: 4, Name: "Transport"},
		{ID: 7, Name: "Utilities"},
	})
}

func ptr(n int64) *int64 { return &n }

func TestName(t *testing.T) {
	x := sample()
	require.Equal(t, Uncategorized, x.Name(nil))
	require.Equal(t, "Food", x.Name(ptr(0)))
	require.Equal(t, "Utilities", x.Name(ptr(7)))
	require.Equal(t, "#99", x.Name(ptr(99)))
}

func TestResolve(t *testing.T) {
	x := sample()
	cases := []struct {
		in   string
		want int64
	}{
		{"4", 4},
		{"0", 0},
		{"transport", 4},
		{"  UTILITIES ", 7},
		{"Transprot", 4},
		{"utilites", 7},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			c, err := x.Resolve(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, c.ID)
		})
	}
}

func TestResolveFailures(t *testing.T) {
	x := sample()
	_, err := x.Resolve("")
	require.ErrorIs(t, err, ErrNoMatch)
	_, err = x.Resolve("groceries and more")
	require.ErrorIs(t, err, ErrNoMatch)
	_, err = x.Resolve("42")
	require.ErrorIs(t, err, ErrNoMatch)

	tied := New([]model.Category{{ID: 1, Name: "abcd"}, {ID: 2, Name: "abce"}})
	_, err = tied.Resolve("abcf")
	require.ErrorIs(t, err, ErrAmbiguous)
}

func TestNextCyclesThroughAll(t *testing.T) {
	x := sample()
	f := listview.AnyCategory()
	var seen []string
	for range 5 {
		f = x.Next(f)
		seen = append(seen, x.FilterLabel(f))
	}
	require.Equal(t, []string{"Food", "Transport", "Utilities", Uncategorized, "All categories"}, seen)

	empty := New(nil)
	require.True(t, empty.Next(listview.AnyCategory()).IsUncategorized())
	require.True(t, empty.Next(listview.Uncategorized()).IsAny())
}

func TestCategoriesIsACopy(t *testing.T) {
	src := []model.Category{{ID: 1, Name: "A"}}
	x := New(src)
	src[0].Name = "changed"
	got := x.Categories()
	got[0].Name = "also changed"
	require.Equal(t, "A", x.Name(ptr(1)))
	require.Equal(t, 1, x.Len())
}
