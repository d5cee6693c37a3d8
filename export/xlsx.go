package export

import (
	"fmt"
	"io"

	"github.com/warp/textile-ledger/ledger"
	"github.com/xuri/excelize/v2"
)

const (
	DetailSheet  = "记账明细"
	SummarySheet = "每日汇总"
)

var summaryColumns = []string{"日期", "笔数", "销售数量", "销售金额", "退货数量", "退货金额", "净数量", "净金额"}

// WriteXLSX writes txs to a workbook with a detail sheet and a per-day
// summary sheet.
func WriteXLSX(w io.Writer, txs []ledger.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), DetailSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	for i, h := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(DetailSheet, cell, h)
	}
	for idx, t := range txs {
		r := idx + 2
		f.SetCellValue(DetailSheet, fmt.Sprintf("A%d", r), t.ID)
		f.SetCellValue(DetailSheet, fmt.Sprintf("B%d", r), t.Date)
		f.SetCellValue(DetailSheet, fmt.Sprintf("C%d", r), t.Quantity)
		f.SetCellValue(DetailSheet, fmt.Sprintf("D%d", r), t.UnitPrice().Round(2).InexactFloat64())
		f.SetCellValue(DetailSheet, fmt.Sprintf("E%d", r), t.TotalAmount.InexactFloat64())
		f.SetCellValue(DetailSheet, fmt.Sprintf("F%d", r), t.Note)
		if !t.CreatedAt.IsZero() {
			f.SetCellValue(DetailSheet, fmt.Sprintf("G%d", r), t.CreatedAt.Format(ledger.CreatedAtLayout))
		}
	}
	f.SetColWidth(DetailSheet, "A", "A", 6)
	f.SetColWidth(DetailSheet, "B", "B", 12)
	f.SetColWidth(DetailSheet, "C", "E", 10)
	f.SetColWidth(DetailSheet, "F", "F", 30)
	f.SetColWidth(DetailSheet, "G", "G", 20)

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := f.SetSheetRow(SummarySheet, "A1", &summaryColumns); err != nil {
		return err
	}
	for idx, day := range ledger.Breakdown(txs) {
		cell, _ := excelize.CoordinatesToCellName(1, idx+2)
		values := []any{
			day.Date,
			day.Count,
			day.SaleQuantity,
			day.SaleAmount.InexactFloat64(),
			day.ReturnQuantity,
			day.ReturnAmount.InexactFloat64(),
			day.NetQuantity,
			day.NetAmount.InexactFloat64(),
		}
		if err := f.SetSheetRow(SummarySheet, cell, &values); err != nil {
			return err
		}
	}
	f.SetColWidth(SummarySheet, "A", "A", 12)
	f.SetColWidth(SummarySheet, "B", "H", 10)

	return f.Write(w)
}
