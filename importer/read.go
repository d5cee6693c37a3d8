package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// ErrEmptyFile is returned when a file has no header row.
var ErrEmptyFile = errors.New("file has no rows")

// Table is a header row plus data rows.
type Table struct {
	Headers []string
	Rows    [][]string

	// Lines holds the 1-based spreadsheet row of each entry in Rows.
	Lines []int

	// Encoding the text was decoded from ("utf-8-sig", "utf-8", "gbk",
	// or "xlsx").
	Encoding string
}

// ReadFile dispatches on the extension: .xlsx / .xlsm use ReadXLSX,
// anything else is treated as delimited text.
func ReadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(f)
	default:
		return ReadCSV(f)
	}
}

// =============================================================================
// CSV
// =============================================================================

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// sniffRunes is how much text delimiter detection looks at.
const sniffRunes = 2048

// ReadCSV reads comma- or tab-separated text in UTF-8 (with or without
// BOM) or GBK.
func ReadCSV(r io.Reader) (Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("read csv: %w", err)
	}

	text, encoding, err := decodeText(raw)
	if err != nil {
		return Table{}, err
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = sniffDelimiter(text)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	t := Table{Encoding: encoding}
	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("parse csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if first {
			t.Headers = rec
			first = false
			continue
		}
		t.Rows = append(t.Rows, rec)
		t.Lines = append(t.Lines, line)
	}
	if first {
		return Table{}, ErrEmptyFile
	}
	return t, nil
}

func decodeText(raw []byte) (string, string, error) {
	if bytes.HasPrefix(raw, utf8BOM) {
		return string(raw[len(utf8BOM):]), "utf-8-sig", nil
	}
	if utf8.Valid(raw) {
		return string(raw), "utf-8", nil
	}
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(raw)
	if err != nil {
		return "", "", fmt.Errorf("file is neither UTF-8 nor GBK: %w", err)
	}
	return string(decoded), "gbk", nil
}

// sniffDelimiter picks ',' when the sample has one, else tab when the
// sample has one, else ','.
func sniffDelimiter(text string) rune {
	sample := text
	n := 0
	for i := range text {
		if n == sniffRunes {
			sample = text[:i]
			break
		}
		n++
	}
	switch {
	case strings.ContainsRune(sample, ','):
		return ','
	case strings.ContainsRune(sample, '\t'):
		return '\t'
	default:
		return ','
	}
}

// =============================================================================
// XLSX
// =============================================================================

// ReadXLSX reads the first worksheet. Cells are read raw, so date cells
// arrive as spreadsheet serial numbers.
func ReadXLSX(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return Table{}, ErrEmptyFile
	}

	// GetRows trims trailing empty cells; pad back to the header width.
	width := len(rows[0])
	t := Table{Headers: rows[0], Encoding: "xlsx"}
	for i, row := range rows[1:] {
		for len(row) < width {
			row = append(row, "")
		}
		t.Rows = append(t.Rows, row)
		t.Lines = append(t.Lines, i+2)
	}
	return t, nil
}
