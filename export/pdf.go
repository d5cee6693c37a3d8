package export

import (
	"fmt"
	"io"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/warp/textile-ledger/ledger"
)

// Report is the content of a period report.
type Report struct {
	From, To string
	Summary  ledger.Summary
	Days     []ledger.DaySummary

	// Generated is printed in the footer.
	Generated time.Time
}

// BuildReport summarizes [from, to]. When both are empty the period spans
// the earliest to the latest well-formed date in the ledger.
func BuildReport(src ledger.Reader, from, to string) (Report, error) {
	if from == "" && to == "" {
		from, to = dateSpan(src.Transactions())
	}
	r := Report{From: from, To: to, Generated: time.Now()}
	if from == "" {
		// Empty ledger.
		r.Summary = ledger.Summarize(nil)
		return r, nil
	}

	engine := ledger.NewEngine(src)
	s, err := engine.RangeSummary(from, to)
	if err != nil {
		return Report{}, err
	}
	days, err := engine.DailyBreakdown(from, to)
	if err != nil {
		return Report{}, err
	}
	r.Summary, r.Days = s, days
	return r, nil
}

func dateSpan(txs []ledger.Transaction) (string, string) {
	var first, last string
	for _, t := range txs {
		if _, err := ledger.ParseDate(t.Date); err != nil {
			continue
		}
		if first == "" || t.Date < first {
			first = t.Date
		}
		if t.Date > last {
			last = t.Date
		}
	}
	return first, last
}

// Labels are ASCII: the PDF core fonts carry no CJK glyphs.
var dayColumns = []struct {
	title string
	width float64
	align string
}{
	{"DATE", 28, "C"},
	{"TXNS", 16, "C"},
	{"SOLD", 20, "R"},
	{"SALES", 30, "R"},
	{"RETURNED", 22, "R"},
	{"RETURNS", 30, "R"},
	{"NET", 36, "R"},
}

// WritePDF renders r as an A4 report.
func WritePDF(w io.Writer, r Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Sales Report "+r.From+" to "+r.To, false)
	pdf.SetMargins(14, 14, 14)
	pdf.AddPage()

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Sales Report")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	period := "no transactions"
	if r.From != "" {
		period = r.From + " to " + r.To
	}
	pdf.Cell(0, 6, "Period: "+period)
	pdf.Ln(10)

	// Totals
	s := r.Summary
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(248, 248, 248)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 11)
	sumW := []float64{60, 60, 62}
	pdf.CellFormat(sumW[0], 10, "Sales", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[1], 10, "Returns", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[2], 10, "Net", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(sumW[0], 10, fmt.Sprintf("%d pcs / %s", s.SaleQuantity, s.SaleAmount.StringFixed(2)), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[1], 10, fmt.Sprintf("%d pcs / %s", s.ReturnQuantity, s.ReturnAmount.StringFixed(2)), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[2], 10, fmt.Sprintf("%d pcs / %s", s.NetQuantity, s.NetAmount.StringFixed(2)), "1", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Transactions: %d   Active days: %d   Average sale price: %s",
		s.Count, s.ActiveDays, s.AverageSalePrice.StringFixed(2)))
	pdf.Ln(10)

	// Daily breakdown
	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(245, 245, 245)
		for i, c := range dayColumns {
			ln := 0
			if i == len(dayColumns)-1 {
				ln = 1
			}
			pdf.CellFormat(c.width, 8, c.title, "1", ln, "C", true, 0, "")
		}
		pdf.SetFont("Helvetica", "", 9)
	}
	header()

	for _, d := range r.Days {
		if pdf.GetY() > 270 {
			pdf.AddPage()
			header()
		}
		cells := []string{
			d.Date,
			fmt.Sprint(d.Count),
			fmt.Sprint(d.SaleQuantity),
			d.SaleAmount.StringFixed(2),
			fmt.Sprint(d.ReturnQuantity),
			d.ReturnAmount.StringFixed(2),
			d.NetAmount.StringFixed(2),
		}
		for i, c := range dayColumns {
			ln := 0
			if i == len(dayColumns)-1 {
				ln = 1
			}
			pdf.CellFormat(c.width, 7, cells[i], "1", ln, c.align, false, 0, "")
		}
	}

	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 10, "Generated "+r.Generated.Format(time.RFC3339), "", 0, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	return nil
}
