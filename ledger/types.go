/*
Package ledger provides the bookkeeping core for the textile shop.

PURPOSE:
  Records sale and return transactions, keeps their derived totals
  consistent with their line items, persists the whole collection through
  a port, and answers aggregate questions (day, range, month) about it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Kind: Sale or Return
  - LineItem: quantity x unit price
  - Transaction: one business event with one or more line items
  - Date: the ISO calendar date of the event, kept as text

SIGN CONVENTION:
  Callers always hand the ledger positive magnitudes. The ledger applies
  the sign from the Kind: Sale lines are stored positive, Return lines
  negative. Quantity and TotalAmount are never set directly, they are
  recomputed from Items every time Items change.

USAGE:
  l, err := ledger.New(ctx, jsonfile.New(path))
  sale, err := l.Add(ctx, ledger.AddInput{
      Kind:  ledger.KindSale,
      Date:  "2026-02-06",
      Items: []ledger.LineItem{ledger.Item(2, "100")},
  })

SEE ALSO:
  - ledger.go: Ledger Store (CRUD, id assignment, persistence)
  - aggregate.go: Aggregation Engine
  - returns.go: Return Linkage Resolver
  - record.go: persisted shape and legacy migration
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical layout of Transaction.Date.
const DateLayout = "2006-01-02"

// CreatedAtLayout is the layout used for creation timestamps on disk.
const CreatedAtLayout = "2006-01-02 15:04:05"

// =============================================================================
// KIND
// =============================================================================

type Kind string

const (
	KindSale   Kind = "sale"
	KindReturn Kind = "return"
)

func (k Kind) Valid() bool { return k == KindSale || k == KindReturn }

// sign returns +1 for sales and -1 for returns.
func (k Kind) sign() int {
	if k == KindReturn {
		return -1
	}
	return 1
}

// =============================================================================
// LINE ITEM
// =============================================================================

type LineItem struct {
	Quantity  int
	UnitPrice decimal.Decimal
}

// Item builds a line item from a quantity and a decimal price string.
// An unparseable price yields zero, which Add rejects.
func Item(quantity int, unitPrice string) LineItem {
	p, err := decimal.NewFromString(unitPrice)
	if err != nil {
		p = decimal.Zero
	}
	return LineItem{Quantity: quantity, UnitPrice: p}
}

// Subtotal is Quantity x UnitPrice, signed like Quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// =============================================================================
// TRANSACTION
// =============================================================================

type Transaction struct {
	// ID is compact: the ledger keeps ids equal to 1..N in store order.
	ID int

	// UID is assigned once at creation and survives renumbering.
	UID string

	Date      string
	CreatedAt time.Time
	Kind      Kind
	Items     []LineItem
	Note      string

	// Derived from Items.
	Quantity    int
	TotalAmount decimal.Decimal

	// OriginalID links a partial return to its sale. Nil for sales and
	// for orphan returns.
	OriginalID  *int
	OriginalUID string
}

// IsReturn reports whether the transaction is a return. Records without a
// kind fall back to the sign of the aggregate quantity.
func (t Transaction) IsReturn() bool {
	if t.Kind == KindReturn {
		return true
	}
	return t.Kind == "" && t.Quantity < 0
}

// IsSale is the complement of IsReturn.
func (t Transaction) IsSale() bool {
	return !t.IsReturn()
}

// UnitPrice returns the representative price |total| / |quantity|, or zero.
func (t Transaction) UnitPrice() decimal.Decimal {
	if t.Quantity == 0 {
		return decimal.Zero
	}
	q := decimal.NewFromInt(int64(absInt(t.Quantity)))
	return t.TotalAmount.Abs().Div(q)
}

// AbsQuantity is |Quantity|.
func (t Transaction) AbsQuantity() int { return absInt(t.Quantity) }

// Clone returns a deep copy, so callers can't mutate ledger state.
func (t Transaction) Clone() Transaction {
	c := t
	if t.Items != nil {
		c.Items = append([]LineItem(nil), t.Items...)
	}
	if t.OriginalID != nil {
		id := *t.OriginalID
		c.OriginalID = &id
	}
	return c
}

// recompute derives Quantity and TotalAmount from Items.
func (t *Transaction) recompute() {
	qty := 0
	total := decimal.Zero
	for _, it := range t.Items {
		qty += it.Quantity
		total = total.Add(it.Subtotal())
	}
	t.Quantity = qty
	t.TotalAmount = total
}

// signItems returns copies of items with magnitudes signed per kind.
func signItems(kind Kind, items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	s := kind.sign()
	for i, it := range items {
		out[i] = LineItem{
			Quantity:  absInt(it.Quantity) * s,
			UnitPrice: it.UnitPrice.Abs(),
		}
	}
	return out
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Today returns the current local date in DateLayout.
func Today() string {
	return time.Now().Format(DateLayout)
}
