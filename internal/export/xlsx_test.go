package export

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jask/receiptdesk/internal/catalog"
	"github.com/jask/receiptdesk/internal/model"
)

func TestWriteXLSX(t *testing.T) {
	vendor := "Amazon"
	cat := int64(3)
	ts, ok := model.ParseTimestamp("2024-03-05")
	require.True(t, ok)
	rows := []model.Receipt{
		{ID: 1, VendorName: &vendor, CategoryID: &cat, ReceiptDate: ts, Amount: decimal.RequireFromString("1234.5"), Currency: "THB"},
		{ID: 2, Amount: decimal.NewFromInt(20), Currency: "USD"},
	}
	cats := catalog.New([]model.Category{{ID: 3, Name: "Shopping"}})

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, rows, cats))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(Sheet)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, headers, got[0])
	require.Equal(t, []string{"2024-03-05", "Amazon", "-", "Shopping", "1234.5", "THB", "-", "-", "-"}, got[1])
	require.Equal(t, "", got[2][0])
	require.Equal(t, catalog.Uncategorized, got[2][3])
}

func TestWriteXLSXEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil, catalog.New(nil)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	got, err := f.GetRows(Sheet)
	require.NoError(t, err)
	require.Len(t, got, 1)
}
