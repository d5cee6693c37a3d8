/*
aggregate.go - Aggregation Engine

PURPOSE:
  Computes sale / return / net figures over the ledger's current contents.
  Never mutates anything.

PARTITIONING:
  Each transaction is a Sale or a Return by Transaction.IsReturn.
  Sale figures sum quantities and amounts as stored (>= 0). Return
  figures sum ABSOLUTE values. Net = sale - return.

  AverageSalePrice = SaleAmount / SaleQuantity, or zero when nothing
  was sold.

PERIODS:
  Day:    exact string equality on Date
  Range:  calendar comparison on parsed dates, inclusive both ends
  Month:  lexical prefix "YYYY-MM" on Date (NOT a calendar range)
  Year:   lexical prefix "YYYY-"

EXAMPLE:
  Sale 2 x 100, then a return of 1 x 100 on the same day:

  SaleQuantity 2    SaleAmount 200
  ReturnQuantity 1  ReturnAmount 100
  NetQuantity 1     NetAmount 100
*/
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SUMMARY
// =============================================================================

type Summary struct {
	Count            int
	SaleQuantity     int
	SaleAmount       decimal.Decimal
	ReturnQuantity   int
	ReturnAmount     decimal.Decimal
	NetQuantity      int
	NetAmount        decimal.Decimal
	AverageSalePrice decimal.Decimal

	// ActiveDays is the number of distinct dates among the matches.
	ActiveDays int
}

// DaySummary is one entry of a daily breakdown.
type DaySummary struct {
	Date string
	Summary
}

// Summarize folds txs into a Summary.
func Summarize(txs []Transaction) Summary {
	s := Summary{
		SaleAmount:   decimal.Zero,
		ReturnAmount: decimal.Zero,
	}
	days := make(map[string]struct{})
	for _, t := range txs {
		s.Count++
		days[t.Date] = struct{}{}
		if t.IsReturn() {
			s.ReturnQuantity += t.AbsQuantity()
			s.ReturnAmount = s.ReturnAmount.Add(t.TotalAmount.Abs())
		} else {
			s.SaleQuantity += t.Quantity
			s.SaleAmount = s.SaleAmount.Add(t.TotalAmount)
		}
	}
	s.ActiveDays = len(days)
	s.NetQuantity = s.SaleQuantity - s.ReturnQuantity
	s.NetAmount = s.SaleAmount.Sub(s.ReturnAmount)
	s.AverageSalePrice = decimal.Zero
	if s.SaleQuantity > 0 {
		s.AverageSalePrice = s.SaleAmount.Div(decimal.NewFromInt(int64(s.SaleQuantity)))
	}
	return s
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine answers aggregate queries against a Reader.
type Engine struct {
	Source Reader
}

func NewEngine(src Reader) *Engine {
	return &Engine{Source: src}
}

// DailySummary summarizes transactions dated exactly date. A date with no
// transactions yields all zeros.
func (e *Engine) DailySummary(date string) Summary {
	return Summarize(Select(e.Source.Transactions(), OnDate(date), StoreOrder))
}

// RangeSummary summarizes [start, end] inclusive.
func (e *Engine) RangeSummary(start, end string) (Summary, error) {
	r, err := NewDateRange(start, end)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(Select(e.Source.Transactions(), InRange(r), StoreOrder)), nil
}

// MonthSummary summarizes dates starting with yearMonth ("YYYY-MM").
func (e *Engine) MonthSummary(yearMonth string) (Summary, error) {
	if _, err := time.Parse("2006-01", yearMonth); err != nil {
		return Summary{}, invalid("month", "month %q is not in YYYY-MM format", yearMonth)
	}
	return Summarize(Select(e.Source.Transactions(), InMonth(yearMonth), StoreOrder)), nil
}

// YearSummary summarizes dates starting with "YYYY-".
func (e *Engine) YearSummary(year string) (Summary, error) {
	if _, err := time.Parse("2006", year); err != nil {
		return Summary{}, invalid("year", "year %q is not in YYYY format", year)
	}
	return Summarize(Select(e.Source.Transactions(), InYear(year), StoreOrder)), nil
}

// DailyBreakdown returns one entry per date in [start, end] that has at
// least one transaction, ascending by date.
func (e *Engine) DailyBreakdown(start, end string) ([]DaySummary, error) {
	r, err := NewDateRange(start, end)
	if err != nil {
		return nil, err
	}
	return Breakdown(Select(e.Source.Transactions(), InRange(r), StoreOrder)), nil
}

// MonthBreakdown is DailyBreakdown over the lexical month match.
func (e *Engine) MonthBreakdown(yearMonth string) ([]DaySummary, error) {
	if _, err := time.Parse("2006-01", yearMonth); err != nil {
		return nil, invalid("month", "month %q is not in YYYY-MM format", yearMonth)
	}
	return Breakdown(Select(e.Source.Transactions(), InMonth(yearMonth), StoreOrder)), nil
}

// Breakdown groups txs by Date and summarizes each group.
func Breakdown(txs []Transaction) []DaySummary {
	groups := make(map[string][]Transaction)
	for _, t := range txs {
		groups[t.Date] = append(groups[t.Date], t)
	}
	out := make([]DaySummary, 0, len(groups))
	for date, group := range groups {
		out = append(out, DaySummary{Date: date, Summary: Summarize(group)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
