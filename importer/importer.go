package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/textile-ledger/ledger"
)

// ErrMissingColumns is returned when a required field has no column and
// no override supplies one. Nothing is imported.
var ErrMissingColumns = errors.New("required columns not found")

// MissingColumnsError lists the unmapped fields.
type MissingColumnsError struct {
	Fields  []string
	Headers []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("required columns not found: %s (headers: %s)",
		strings.Join(e.Fields, ", "), strings.Join(e.Headers, " | "))
}

func (e *MissingColumnsError) Unwrap() error { return ErrMissingColumns }

// Candidate is one normalized row, ready for the ledger.
type Candidate struct {
	Row       int
	Date      string
	Quantity  int
	UnitPrice decimal.Decimal
	Note      string

	// Data is the raw row.
	Data []string
}

// Failure is a row that was skipped.
type Failure struct {
	Row    int      `json:"row"`
	Reason string   `json:"reason"`
	Data   []string `json:"data"`
}

// Result summarizes an import.
type Result struct {
	Columns  Columns
	Imported []ledger.Transaction
	Failed   []Failure
}

// =============================================================================
// NORMALIZE
// =============================================================================

// Normalize converts rows to candidates using cols. Blank rows are skipped
// silently; every other unusable row becomes a Failure.
func Normalize(t Table, cols Columns) ([]Candidate, []Failure) {
	var (
		candidates []Candidate
		failures   []Failure
	)
	need := cols.requiredIndex() + 1

	for i, row := range t.Rows {
		line := i + 2
		if i < len(t.Lines) {
			line = t.Lines[i]
		}
		if blank(row) {
			continue
		}
		fail := func(format string, args ...any) {
			failures = append(failures, Failure{Row: line, Reason: fmt.Sprintf(format, args...), Data: row})
		}

		if len(row) < need {
			fail("row has %d columns, %d needed", len(row), need)
			continue
		}

		date, ok := ParseDate(row[cols.Date])
		if !ok {
			fail("unrecognized date: %q", row[cols.Date])
			continue
		}

		// Fractional quantities are truncated before the check.
		qty := int(ParseNumber(row[cols.Quantity]).IntPart())
		if qty <= 0 {
			fail("invalid quantity: %q", row[cols.Quantity])
			continue
		}
		price := ParseNumber(row[cols.UnitPrice])
		if !price.IsPositive() {
			fail("invalid unit price: %q", row[cols.UnitPrice])
			continue
		}

		c := Candidate{Row: line, Date: date, Quantity: qty, UnitPrice: price, Data: row}
		if cols.Note >= 0 && cols.Note < len(row) {
			c.Note = strings.TrimSpace(row[cols.Note])
		}
		candidates = append(candidates, c)
	}
	return candidates, failures
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// IMPORT
// =============================================================================

// Adder is the part of the ledger the importer needs.
type Adder interface {
	Add(ctx context.Context, in ledger.AddInput) (ledger.Transaction, error)
}

type Importer struct {
	ledger Adder
	logger *slog.Logger
}

func New(l Adder, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{ledger: l, logger: logger}
}

// Import detects columns (mapped fields of override win), normalizes the
// table and adds each candidate as a Sale.
//
// Row problems, including ledger validation errors, are collected in
// Result.Failed. A persistence error stops the import; rows added before
// it stay in the ledger and are listed in Result.Imported.
func (im *Importer) Import(ctx context.Context, t Table, override Columns) (Result, error) {
	cols := DetectColumns(t.Headers).Merge(override)
	res := Result{Columns: cols}

	if missing := cols.Missing(); len(missing) > 0 {
		return res, &MissingColumnsError{Fields: missing, Headers: t.Headers}
	}
	if err := cols.validate(len(t.Headers)); err != nil {
		return res, err
	}

	candidates, failures := Normalize(t, cols)
	res.Failed = failures

	for _, c := range candidates {
		tx, err := im.ledger.Add(ctx, ledger.AddInput{
			Kind:  ledger.KindSale,
			Date:  c.Date,
			Items: []ledger.LineItem{{Quantity: c.Quantity, UnitPrice: c.UnitPrice}},
			Note:  c.Note,
		})
		if ledger.IsValidation(err) {
			res.Failed = append(res.Failed, Failure{Row: c.Row, Reason: err.Error(), Data: c.Data})
			continue
		}
		if err != nil {
			return res, fmt.Errorf("import row %d: %w", c.Row, err)
		}
		res.Imported = append(res.Imported, tx)
	}

	for _, f := range res.Failed {
		im.logger.Warn("import row skipped", "row", f.Row, "reason", f.Reason)
	}
	im.logger.Info("import finished",
		"encoding", t.Encoding, "imported", len(res.Imported), "failed", len(res.Failed))
	return res, nil
}

// WriteFailureLog writes a human-readable list of failed rows.
func WriteFailureLog(w io.Writer, failures []Failure) error {
	var b strings.Builder
	b.WriteString("Rows that failed to import:\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	for _, f := range failures {
		fmt.Fprintf(&b, "Row %d\n", f.Row)
		fmt.Fprintf(&b, "Reason: %s\n", f.Reason)
		fmt.Fprintf(&b, "Data: %s\n", strings.Join(f.Data, " | "))
		b.WriteString(strings.Repeat("-", 50) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
