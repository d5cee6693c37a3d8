package export_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/textile-ledger/export"
	"github.com/warp/textile-ledger/importer"
	"github.com/warp/textile-ledger/ledger"
	"github.com/warp/textile-ledger/ledger/store"
	"github.com/xuri/excelize/v2"
)

func newTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	ctx := context.Background()
	clock := time.Date(2026, 2, 6, 9, 0, 0, 0, time.Local)
	l, err := ledger.New(ctx, store.NewMemory(), ledger.WithClock(func() time.Time { return clock }))
	require.NoError(t, err)

	sale, err := l.Add(ctx, ledger.AddInput{Kind: ledger.KindSale, Date: "2026-02-06", Items: []ledger.LineItem{ledger.Item(2, "100"), ledger.Item(1, "50")}, Note: "王姐"})
	require.NoError(t, err)
	_, err = l.ReturnAgainst(ctx, sale.ID, "2026-02-07", []ledger.LineItem{ledger.Item(1, "100")}, "")
	require.NoError(t, err)
	_, err = l.Add(ctx, ledger.AddInput{Kind: ledger.KindSale, Date: "2026-03-01", Items: []ledger.LineItem{ledger.Item(1, "99.9")}})
	require.NoError(t, err)
	return l
}

func TestWriteCSV(t *testing.T) {
	l := newTestLedger(t)
	var buf bytes.Buffer

	require.NoError(t, export.WriteCSV(&buf, l.Transactions()))

	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}))
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes()[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"ID", "日期", "数量", "单价", "总金额", "备注", "创建时间"}, records[0])
	assert.Equal(t, []string{"1", "2026-02-06", "3", "83.33", "250.00", "王姐", "2026-02-06 09:00:00"}, records[1])
	assert.Equal(t, []string{"2", "2026-02-07", "-1", "100.00", "-100.00", "[退货] 原记录#1 王姐", "2026-02-06 09:00:00"}, records[2])
}

func TestWriteCSV_ReimportsSales(t *testing.T) {
	// GIVEN: An exported ledger
	// WHEN: The CSV is imported into an empty ledger
	// THEN: Sales come back; the return row is rejected

	l := newTestLedger(t)
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, l.Transactions()))

	table, err := importer.ReadCSV(&buf)
	require.NoError(t, err)
	fresh, err := ledger.New(context.Background(), store.NewMemory())
	require.NoError(t, err)

	res, err := importer.New(fresh, nil).Import(context.Background(), table, importer.NoColumns)
	require.NoError(t, err)

	assert.Len(t, res.Imported, 2)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 3, res.Failed[0].Row)
}

func TestWriteXLSX(t *testing.T) {
	l := newTestLedger(t)
	var buf bytes.Buffer

	require.NoError(t, export.WriteXLSX(&buf, l.Transactions()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{export.DetailSheet, export.SummarySheet}, f.GetSheetList())
	rows, err := f.GetRows(export.DetailSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, export.Columns, rows[0])
	assert.Equal(t, "2026-02-06", rows[1][1])
	assert.Equal(t, "王姐", rows[1][5])

	days, err := f.GetRows(export.SummarySheet)
	require.NoError(t, err)
	require.Len(t, days, 4)
	assert.Equal(t, "2026-02-07", days[2][0])
}

func TestWrite_PDFReport(t *testing.T) {
	l := newTestLedger(t)
	var buf bytes.Buffer

	require.NoError(t, export.Write(&buf, export.PDF, l, "2026-02-01", "2026-02-28"))

	assert.True(t, strings.HasPrefix(buf.String(), "%PDF-"))
}

func TestBuildReport(t *testing.T) {
	l := newTestLedger(t)

	r, err := export.BuildReport(l, "", "")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-06", r.From)
	assert.Equal(t, "2026-03-01", r.To)
	assert.Len(t, r.Days, 3)
	assert.Equal(t, 4, r.Summary.SaleQuantity)
	assert.Equal(t, 1, r.Summary.ReturnQuantity)

	_, err = export.BuildReport(l, "2026-03-01", "2026-02-01")
	assert.True(t, ledger.IsValidation(err))

	empty, err := ledger.New(context.Background(), store.NewMemory())
	require.NoError(t, err)
	r, err = export.BuildReport(empty, "", "")
	require.NoError(t, err)
	assert.Empty(t, r.Days)

	var buf bytes.Buffer
	require.NoError(t, export.WritePDF(&buf, r))
}

func TestWrite_RangeFilterAndValidation(t *testing.T) {
	l := newTestLedger(t)
	var buf bytes.Buffer

	require.NoError(t, export.Write(&buf, export.CSV, l, "2026-03-01", "2026-03-31"))
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"), "header plus one row")

	err := export.Write(&bytes.Buffer{}, export.CSV, l, "2026-03-01", "")
	assert.True(t, ledger.IsValidation(err))
}

func TestParseFormat(t *testing.T) {
	f, err := export.ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, export.XLSX, f)
	assert.Equal(t, "记账导出_20260206_143005.xlsx", f.FileName(time.Date(2026, 2, 6, 14, 30, 5, 0, time.UTC)))

	_, err = export.ParseFormat("doc")
	assert.Error(t, err)
}
