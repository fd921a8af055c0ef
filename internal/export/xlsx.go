package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jask/receiptdesk/internal/catalog"
	"github.com/jask/receiptdesk/internal/model"
)

const Sheet = "Receipts"

var headers = []string{
	"Date",
	"Vendor",
	"Subject",
	"Category",
	"Amount",
	"Currency",
	"Receipt No.",
	"Payment",
	"Notes",
}

// WriteXLSX writes rows as a single-sheet workbook. Amounts are stored as
// numbers so the sheet can sum them; a missing date leaves the cell empty.
func WriteXLSX(w io.Writer, rows []model.Receipt, cats *catalog.Index) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", Sheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(Sheet, cell, h); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
	}

	for n, r := range rows {
		row := n + 2
		amount, _ := r.Amount.Float64()
		date := ""
		if t, ok := r.Date(); ok {
			date = t.Format("2006-01-02")
		}
		values := []any{
			date,
			r.Vendor(),
			r.Subject(),
			cats.Name(r.CategoryID),
			amount,
			r.Currency,
			model.Or(r.ReceiptNumber),
			model.Or(r.PaymentMethod),
			model.Or(r.Notes),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(Sheet, cell, v); err != nil {
				return fmt.Errorf("xlsx row %d: %w", row, err)
			}
		}
	}

	_ = f.SetColWidth(Sheet, "A", "A", 12)
	_ = f.SetColWidth(Sheet, "B", "C", 28)
	_ = f.SetColWidth(Sheet, "D", "D", 18)
	_ = f.SetColWidth(Sheet, "E", "F", 12)
	_ = f.SetColWidth(Sheet, "I", "I", 40)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
