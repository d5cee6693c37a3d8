/*
Package export writes the ledger out as CSV, XLSX or PDF.

FORMATS:
  CSV:  UTF-8 with BOM so Excel shows Chinese text; one row per
        transaction, columns ID,日期,数量,单价,总金额,备注,创建时间.
  XLSX: the same rows on sheet 记账明细, plus a per-day summary sheet.
  PDF:  a period report: range totals and the daily breakdown.

A CSV written here imports back through package importer (returns are
reported as failed rows, since imports only create sales).
*/
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/warp/textile-ledger/ledger"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
	PDF  Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return CSV, nil
	case CSV, XLSX, PDF:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// ContentType is the MIME type for HTTP responses.
func (f Format) ContentType() string {
	switch f {
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case PDF:
		return "application/pdf"
	default:
		return "text/csv; charset=utf-8"
	}
}

// FileName is the default download name, e.g. 记账导出_20260206_143005.csv.
func (f Format) FileName(now time.Time) string {
	return "记账导出_" + now.Format("20060102_150405") + "." + string(f)
}

// Columns of the row-per-transaction exports.
var Columns = []string{"ID", "日期", "数量", "单价", "总金额", "备注", "创建时间"}

// row renders one transaction as the export columns.
func row(t ledger.Transaction) []string {
	created := ""
	if !t.CreatedAt.IsZero() {
		created = t.CreatedAt.Format(ledger.CreatedAtLayout)
	}
	return []string{
		fmt.Sprint(t.ID),
		t.Date,
		fmt.Sprint(t.Quantity),
		t.UnitPrice().StringFixed(2),
		t.TotalAmount.StringFixed(2),
		t.Note,
		created,
	}
}

// Write dispatches on f. from and to restrict the export to a date range
// when both are set; otherwise the whole ledger is written.
func Write(w io.Writer, f Format, src ledger.Reader, from, to string) error {
	switch f {
	case CSV, XLSX:
		txs, err := selectRange(src, from, to)
		if err != nil {
			return err
		}
		if f == CSV {
			return WriteCSV(w, txs)
		}
		return WriteXLSX(w, txs)
	case PDF:
		r, err := BuildReport(src, from, to)
		if err != nil {
			return err
		}
		return WritePDF(w, r)
	}
	return fmt.Errorf("unknown export format %q", f)
}

func selectRange(src ledger.Reader, from, to string) ([]ledger.Transaction, error) {
	txs := src.Transactions()
	if from == "" && to == "" {
		return txs, nil
	}
	r, err := ledger.NewDateRange(from, to)
	if err != nil {
		return nil, err
	}
	return ledger.Select(txs, ledger.InRange(r), ledger.StoreOrder), nil
}
