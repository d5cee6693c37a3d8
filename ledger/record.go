/*
record.go - Persisted record shape and legacy migration

PURPOSE:
  Defines the on-disk record every backend stores, and the single
  migration step that turns any historical record into the canonical
  Transaction the rest of the package works with.

RECORD SHAPES FOUND IN THE WILD:
  1. Legacy: id, date, quantity, unit_price, total_amount, note, created_at.
     No type, no items. Written by the first command-line build.
  2. Current: the legacy fields plus type, items[] and, for partial
     returns, original_record_id.
  3. Current + uid / original_record_uid (this build).

MIGRATION (DecodeRecord):
  - items missing -> one line {quantity, unit_price}
  - type missing  -> inferred from the sign of quantity
  - quantity and total_amount are recomputed from items

  unit_price on disk is informational for shape 2/3 (it is the average
  |total|/|quantity|); it only matters for legacy records.
*/
package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Record is the persisted form of a Transaction.
type Record struct {
	ID                int          `json:"id"`
	Date              string       `json:"date"`
	Quantity          json.Number  `json:"quantity"`
	UnitPrice         json.Number  `json:"unit_price"`
	TotalAmount       json.Number  `json:"total_amount"`
	Note              string       `json:"note"`
	CreatedAt         string       `json:"created_at"`
	Type              string       `json:"type,omitempty"`
	Items             []RecordItem `json:"items,omitempty"`
	OriginalRecordID  *int         `json:"original_record_id,omitempty"`
	UID               string       `json:"uid,omitempty"`
	OriginalRecordUID string       `json:"original_record_uid,omitempty"`
}

// RecordItem is the persisted form of a LineItem.
type RecordItem struct {
	Quantity  json.Number `json:"quantity"`
	UnitPrice json.Number `json:"unit_price"`
}

// EncodeRecord converts a transaction to its persisted form.
func EncodeRecord(t Transaction) Record {
	r := Record{
		ID:                t.ID,
		Date:              t.Date,
		Quantity:          json.Number(fmt.Sprint(t.Quantity)),
		UnitPrice:         json.Number(t.UnitPrice().Round(2).String()),
		TotalAmount:       json.Number(t.TotalAmount.String()),
		Note:              t.Note,
		Type:              string(t.Kind),
		UID:               t.UID,
		OriginalRecordUID: t.OriginalUID,
	}
	if !t.CreatedAt.IsZero() {
		r.CreatedAt = t.CreatedAt.Format(CreatedAtLayout)
	}
	if t.OriginalID != nil {
		id := *t.OriginalID
		r.OriginalRecordID = &id
	}
	r.Items = make([]RecordItem, len(t.Items))
	for i, it := range t.Items {
		r.Items[i] = RecordItem{
			Quantity:  json.Number(fmt.Sprint(it.Quantity)),
			UnitPrice: json.Number(it.UnitPrice.String()),
		}
	}
	return r
}

// DecodeRecord converts a persisted record of any shape into a canonical
// Transaction.
func DecodeRecord(r Record) (Transaction, error) {
	t := Transaction{
		ID:          r.ID,
		UID:         r.UID,
		Date:        r.Date,
		Note:        r.Note,
		OriginalUID: r.OriginalRecordUID,
	}

	if r.CreatedAt != "" {
		// Unparseable timestamps degrade to zero; they only order same-day rows.
		if ts, err := time.ParseInLocation(CreatedAtLayout, r.CreatedAt, time.Local); err == nil {
			t.CreatedAt = ts
		}
	}
	if r.OriginalRecordID != nil {
		id := *r.OriginalRecordID
		t.OriginalID = &id
	}

	if len(r.Items) > 0 {
		t.Items = make([]LineItem, len(r.Items))
		for i, it := range r.Items {
			q, err := numberInt(it.Quantity)
			if err != nil {
				return Transaction{}, fmt.Errorf("record #%d item %d quantity: %w", r.ID, i+1, err)
			}
			p, err := numberDecimal(it.UnitPrice)
			if err != nil {
				return Transaction{}, fmt.Errorf("record #%d item %d unit_price: %w", r.ID, i+1, err)
			}
			t.Items[i] = LineItem{Quantity: q, UnitPrice: p}
		}
	} else {
		q, err := numberInt(r.Quantity)
		if err != nil {
			return Transaction{}, fmt.Errorf("record #%d quantity: %w", r.ID, err)
		}
		p, err := numberDecimal(r.UnitPrice)
		if err != nil {
			return Transaction{}, fmt.Errorf("record #%d unit_price: %w", r.ID, err)
		}
		// Legacy prices are magnitudes; the quantity carries the sign.
		t.Items = []LineItem{{Quantity: q, UnitPrice: p.Abs()}}
	}
	t.recompute()

	switch Kind(r.Type) {
	case KindSale, KindReturn:
		t.Kind = Kind(r.Type)
	default:
		t.Kind = KindSale
		if t.Quantity < 0 {
			t.Kind = KindReturn
		}
	}
	return t, nil
}

// EncodeRecords converts a whole ledger.
func EncodeRecords(txs []Transaction) []Record {
	out := make([]Record, len(txs))
	for i, t := range txs {
		out[i] = EncodeRecord(t)
	}
	return out
}

// DecodeRecords converts a whole ledger, failing on the first bad record.
func DecodeRecords(rs []Record) ([]Transaction, error) {
	out := make([]Transaction, 0, len(rs))
	for _, r := range rs {
		t, err := DecodeRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func numberDecimal(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(n.String())
}

// numberInt accepts "2" and "2.0"; fractional parts are truncated.
func numberInt(n json.Number) (int, error) {
	d, err := numberDecimal(n)
	if err != nil {
		return 0, err
	}
	return int(d.IntPart()), nil
}
