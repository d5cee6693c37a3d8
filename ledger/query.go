package ledger

import (
	"sort"
	"strings"
	"time"
)

// =============================================================================
// PREDICATES
// =============================================================================

// Predicate selects transactions.
type Predicate func(Transaction) bool

// All matches every transaction.
func All() Predicate { return func(Transaction) bool { return true } }

// OnDate matches the exact date string.
func OnDate(date string) Predicate {
	return func(t Transaction) bool { return t.Date == date }
}

// InMonth matches by lexical prefix "YYYY-MM". A date stored without zero
// padding ("2026-2-6") never matches.
func InMonth(yearMonth string) Predicate {
	prefix := yearMonth
	return func(t Transaction) bool { return strings.HasPrefix(t.Date, prefix) }
}

// InYear matches by lexical prefix "YYYY-".
func InYear(year string) Predicate {
	prefix := year + "-"
	return func(t Transaction) bool { return strings.HasPrefix(t.Date, prefix) }
}

// InRange matches dates in [r.Start, r.End]. Dates that don't parse as
// YYYY-MM-DD are skipped.
func InRange(r DateRange) Predicate {
	return func(t Transaction) bool {
		d, err := ParseDate(t.Date)
		if err != nil {
			return false
		}
		return r.Contains(d)
	}
}

// =============================================================================
// DATE RANGE
// =============================================================================

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange parses both ends and rejects start > end.
func NewDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, invalid("start", "date %q is not a valid YYYY-MM-DD date", start)
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, invalid("end", "date %q is not a valid YYYY-MM-DD date", end)
	}
	if s.After(e) {
		return DateRange{}, invalid("start", "start date %s is after end date %s", start, end)
	}
	return DateRange{Start: s, End: e}, nil
}

// Contains reports whether d lies within the range.
func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) String() string {
	return "[" + r.Start.Format(DateLayout) + ", " + r.End.Format(DateLayout) + "]"
}

// =============================================================================
// ORDER
// =============================================================================

type Order int

const (
	// StoreOrder keeps id order.
	StoreOrder Order = iota
	// DateDescending puts the newest date first; equal dates keep store order.
	DateDescending
)

// Select filters txs and orders the result. txs is not modified.
func Select(txs []Transaction, pred Predicate, order Order) []Transaction {
	if pred == nil {
		pred = All()
	}
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if pred(t) {
			out = append(out, t.Clone())
		}
	}
	if order == DateDescending {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	}
	return out
}
