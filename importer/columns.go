/*
Package importer turns spreadsheet exports into ledger sales.

PURPOSE:
  Shops keep older bookkeeping in Excel or CSV files with whatever
  headers the person typing them chose. The importer reads such a file,
  guesses which column is which, parses dates and money loosely, and
  hands each usable row to the ledger as a Sale. Rows it cannot use are
  reported, one by one, and never stop the batch.

PIPELINE:
  ReadCSV / ReadXLSX  -> Table{Headers, Rows}
  DetectColumns       -> Columns (field -> index, -1 when unknown)
  Normalize           -> []Candidate + []Failure
  Importer.Import     -> ledger.Add per candidate -> Result

SEE ALSO:
  - parse.go: date and number parsing
  - read.go: CSV and XLSX readers
*/
package importer

import (
	"fmt"
	"strings"
)

// Keyword sets, matched as case-insensitive substrings of the header.
var (
	dateKeywords     = []string{"日期", "date", "时间"}
	quantityKeywords = []string{"数量", "quantity", "套", "件数", "qty"}
	priceKeywords    = []string{"单价", "price", "价格"}
	noteKeywords     = []string{"备注", "note", "说明", "客户"}
)

// Columns maps each field to a zero-based column index, -1 when absent.
type Columns struct {
	Date      int
	Quantity  int
	UnitPrice int
	Note      int
}

// NoColumns has every field unmapped.
var NoColumns = Columns{Date: -1, Quantity: -1, UnitPrice: -1, Note: -1}

// DetectColumns picks, for each field, the first header containing one of
// the field's keywords. It is a pure function of the header list.
func DetectColumns(headers []string) Columns {
	lower := make([]string, len(headers))
	for i, h := range headers {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return Columns{
		Date:      firstMatch(lower, dateKeywords),
		Quantity:  firstMatch(lower, quantityKeywords),
		UnitPrice: firstMatch(lower, priceKeywords),
		Note:      firstMatch(lower, noteKeywords),
	}
}

func firstMatch(headers []string, keywords []string) int {
	for i, h := range headers {
		for _, kw := range keywords {
			if strings.Contains(h, kw) {
				return i
			}
		}
	}
	return -1
}

// Merge returns c with every mapped field of override applied on top.
func (c Columns) Merge(override Columns) Columns {
	if override.Date >= 0 {
		c.Date = override.Date
	}
	if override.Quantity >= 0 {
		c.Quantity = override.Quantity
	}
	if override.UnitPrice >= 0 {
		c.UnitPrice = override.UnitPrice
	}
	if override.Note >= 0 {
		c.Note = override.Note
	}
	return c
}

// Missing names the required fields that are still unmapped.
func (c Columns) Missing() []string {
	var out []string
	if c.Date < 0 {
		out = append(out, "date")
	}
	if c.Quantity < 0 {
		out = append(out, "quantity")
	}
	if c.UnitPrice < 0 {
		out = append(out, "unit_price")
	}
	return out
}

// requiredIndex is the highest of the date, quantity and price columns.
// The note column is optional and may be missing from short rows.
func (c Columns) requiredIndex() int {
	return max(c.Date, c.Quantity, c.UnitPrice)
}

// validate checks that every mapped index names an existing header.
func (c Columns) validate(width int) error {
	for name, i := range map[string]int{"date": c.Date, "quantity": c.Quantity, "unit_price": c.UnitPrice, "note": c.Note} {
		if i >= width {
			return fmt.Errorf("column %d for %s is out of range (file has %d columns)", i+1, name, width)
		}
	}
	return nil
}
