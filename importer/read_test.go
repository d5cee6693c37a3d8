package importer_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/textile-ledger/importer"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestReadCSV_UTF8WithBOM(t *testing.T) {
	data := "\xEF\xBB\xBF日期,数量,单价,备注\n2026-02-06,2,100,王姐\n\n2026-02-07,1,\"1,200\",\n"

	table, err := importer.ReadCSV(strings.NewReader(data))

	require.NoError(t, err)
	assert.Equal(t, "utf-8-sig", table.Encoding)
	assert.Equal(t, []string{"日期", "数量", "单价", "备注"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"2026-02-07", "1", "1,200", ""}, table.Rows[1])
	assert.Equal(t, []int{2, 4}, table.Lines, "blank line 3 still counts toward row numbers")
}

func TestReadCSV_TabSeparated(t *testing.T) {
	data := "date\tqty\tprice\n2026-02-06\t3\t50\n"

	table, err := importer.ReadCSV(strings.NewReader(data))

	require.NoError(t, err)
	assert.Equal(t, "utf-8", table.Encoding)
	assert.Equal(t, []string{"date", "qty", "price"}, table.Headers)
	assert.Equal(t, [][]string{{"2026-02-06", "3", "50"}}, table.Rows)
}

func TestReadCSV_GBK(t *testing.T) {
	// GIVEN: A CSV saved by Excel on a Chinese Windows install
	encoded, err := simplifiedchinese.GBK.NewEncoder().String("日期,数量,单价,备注\n2026-02-06,2,100,张三\n")
	require.NoError(t, err)

	table, err := importer.ReadCSV(strings.NewReader(encoded))

	require.NoError(t, err)
	assert.Equal(t, "gbk", table.Encoding)
	assert.Equal(t, []string{"日期", "数量", "单价", "备注"}, table.Headers)
	assert.Equal(t, "张三", table.Rows[0][3])
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := importer.ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, importer.ErrEmptyFile)
}

func TestReadXLSX_RawSerialDates(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"日期", "数量", "单价", "备注"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{46059, 2, 100.5, "VIP"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"2026/02/07", 1, 80}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	table, err := importer.ReadXLSX(&buf)

	require.NoError(t, err)
	assert.Equal(t, "xlsx", table.Encoding)
	assert.Equal(t, []string{"日期", "数量", "单价", "备注"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"46059", "2", "100.5", "VIP"}, table.Rows[0])
	assert.Equal(t, []string{"2026/02/07", "1", "80", ""}, table.Rows[1])
	assert.Equal(t, []int{2, 3}, table.Lines)
}

func TestImportXLSX_BlankTrailingNote(t *testing.T) {
	// GIVEN: A sheet whose rows leave the last column (note) empty
	// WHEN: Reading and importing it
	// THEN: Every row with a valid date, quantity and price is imported

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"日期", "数量", "单价", "备注"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"2026-02-06", 2, 100}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"2026-02-07", 1, 50, "散客"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	table, err := importer.ReadXLSX(&buf)
	require.NoError(t, err)
	im, l, _ := newTestImporter(t)
	res, err := im.Import(context.Background(), table, importer.NoColumns)

	require.NoError(t, err)
	assert.Empty(t, res.Failed)
	require.Len(t, res.Imported, 2)
	assert.Equal(t, "", res.Imported[0].Note)
	assert.Equal(t, "200", res.Imported[0].TotalAmount.String())
	assert.Equal(t, "散客", res.Imported[1].Note)
	assert.Equal(t, 2, l.Len())
}

func TestNormalize_ShortRowWithoutNoteCell(t *testing.T) {
	tbl := importer.Table{
		Headers: []string{"日期", "数量", "单价", "备注"},
		Rows:    [][]string{{"2026-02-06", "1", "10"}},
	}
	cols := importer.Columns{Date: 0, Quantity: 1, UnitPrice: 2, Note: 3}

	candidates, failures := importer.Normalize(tbl, cols)

	assert.Empty(t, failures)
	require.Len(t, candidates, 1)
	assert.Equal(t, "", candidates[0].Note)
}

func TestReadFile_DispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "old.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("日期,数量,单价\n2026-02-06,1,10\n"), 0o644))

	table, err := importer.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)

	_, err = importer.ReadFile(filepath.Join(dir, "missing.xlsx"))
	assert.Error(t, err)
}
