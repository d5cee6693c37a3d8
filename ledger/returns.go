/*
returns.go - Return Linkage Resolver

PURPOSE:
  The sale <-> return graph is never stored, only the back-reference
  Return.OriginalID is. This file derives everything else from it:

  - ReturnsFor(saleID):            returns linked to a sale
  - RemainingReturnable(saleID):   sale quantity - sum |linked returns|
  - IntegrityReport():             links broken by id renumbering

ORPHAN RETURNS:
  Returns entered on their own (no OriginalID) belong to no sale. They
  count in aggregates but never against a sale's returnable quantity.
*/
package ledger

// =============================================================================
// RESOLVER
// =============================================================================

type Resolver struct {
	Source Reader
}

func NewResolver(src Reader) *Resolver {
	return &Resolver{Source: src}
}

// IsReturn is Transaction.IsReturn, kept here so callers holding a resolver
// don't need to know the fallback rule.
func (r *Resolver) IsReturn(t Transaction) bool { return t.IsReturn() }

// ReturnsFor returns every return whose OriginalID is saleID, oldest first.
func (r *Resolver) ReturnsFor(saleID int) []Transaction {
	return linkedReturns(r.Source.Transactions(), saleID)
}

// RemainingReturnable reports how much of saleID can still be returned.
func (r *Resolver) RemainingReturnable(saleID int) (int, error) {
	txs := r.Source.Transactions()
	for _, t := range txs {
		if t.ID != saleID {
			continue
		}
		if t.IsReturn() {
			return 0, invalid("id", "transaction #%d is a return, not a sale", saleID)
		}
		return remainingFor(t, txs), nil
	}
	return 0, &NotFoundError{ID: saleID}
}

func linkedReturns(txs []Transaction, saleID int) []Transaction {
	var out []Transaction
	for _, t := range txs {
		if t.IsReturn() && t.OriginalID != nil && *t.OriginalID == saleID {
			out = append(out, t.Clone())
		}
	}
	sortByCreated(out)
	return out
}

// remainingFor is sale.Quantity minus what linked returns already took back.
func remainingFor(sale Transaction, txs []Transaction) int {
	returned := 0
	for _, t := range linkedReturns(txs, sale.ID) {
		returned += t.AbsQuantity()
	}
	return sale.Quantity - returned
}

// =============================================================================
// INTEGRITY
// =============================================================================

type LinkProblem string

const (
	// LinkDangling: OriginalID names no transaction.
	LinkDangling LinkProblem = "dangling"
	// LinkNotSale: OriginalID names a return.
	LinkNotSale LinkProblem = "not_a_sale"
	// LinkShifted: OriginalID names a sale other than the one recorded by uid.
	LinkShifted LinkProblem = "shifted"
)

// BrokenLink describes one return whose back-reference is wrong.
type BrokenLink struct {
	ReturnID   int
	OriginalID int
	Problem    LinkProblem

	// CurrentID is where the uid-recorded sale lives now, 0 if gone.
	CurrentID int
}

// IntegrityReport lists returns whose OriginalID no longer points at the
// sale they were created against. Nothing is repaired.
func (r *Resolver) IntegrityReport() []BrokenLink {
	txs := r.Source.Transactions()
	byID := make(map[int]Transaction, len(txs))
	byUID := make(map[string]int, len(txs))
	for _, t := range txs {
		byID[t.ID] = t
		if t.UID != "" {
			byUID[t.UID] = t.ID
		}
	}

	var out []BrokenLink
	for _, t := range txs {
		if t.OriginalID == nil {
			continue
		}
		link := BrokenLink{ReturnID: t.ID, OriginalID: *t.OriginalID}
		if t.OriginalUID != "" {
			link.CurrentID = byUID[t.OriginalUID]
		}

		target, ok := byID[*t.OriginalID]
		switch {
		case !ok:
			link.Problem = LinkDangling
		case t.OriginalUID != "" && target.UID != t.OriginalUID:
			link.Problem = LinkShifted
		case target.IsReturn():
			link.Problem = LinkNotSale
		default:
			continue
		}
		out = append(out, link)
	}
	return out
}
