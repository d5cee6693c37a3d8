package importer

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/textile-ledger/ledger"
)

// dateLayouts are tried in order. Single-digit month and day verbs accept
// both "2" and "02".
var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2/1/2006",
	"2-1-2006",
	"1/2/2006",
	"2006年1月2日",
	"2006.1.2",
	"2.1.2006",
}

// spreadsheetEpoch is day zero of spreadsheet serial dates.
var spreadsheetEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const maxSerialDate = 50000

// ParseDate normalizes a date cell to YYYY-MM-DD. It returns false when
// no layout and no serial interpretation fits.
func ParseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ledger.DateLayout), true
		}
	}

	// Spreadsheet serial, e.g. 46059 or 46059.5.
	n, err := decimal.NewFromString(s)
	if err != nil {
		return "", false
	}
	days := n.IntPart()
	if days < 1 || days > maxSerialDate {
		return "", false
	}
	return spreadsheetEpoch.AddDate(0, 0, int(days)).Format(ledger.DateLayout), true
}

var numberNoise = strings.NewReplacer("¥", "", "￥", "", "元", "", ",", "", " ", "")

// ParseNumber reads a money or quantity cell, ignoring currency marks,
// thousands separators and spaces. Anything unparseable is zero.
func ParseNumber(s string) decimal.Decimal {
	cleaned := strings.TrimSpace(numberNoise.Replace(s))
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}
