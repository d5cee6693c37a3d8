/*
store.go - Persistence port for the ledger

PURPOSE:
  The ledger is held in memory and mirrored to exactly one persisted
  representation. Persister is the seam between the two: Load once at
  start, Save the complete collection after every mutation.

WHOLE-LEDGER CONTRACT:
  - Load returns every transaction in store (id) order.
  - Save receives every transaction, never a delta, and replaces whatever
    was persisted before.
  - A missing store is an empty ledger, not an error.

IMPLEMENTATIONS:
  - ledger/store/memory.go: in-memory, for tests and ":memory:"
  - store/jsonfile: the records.json file (production)
  - store/sqlite: SQLite database
*/
package ledger

import "context"

// Persister loads and saves the full ledger.
type Persister interface {
	Load(ctx context.Context) ([]Transaction, error)
	Save(ctx context.Context, txs []Transaction) error
}

// Reader is the read-only view the aggregation and linkage components need.
type Reader interface {
	// Transactions returns a copy of every transaction in store order.
	Transactions() []Transaction
}

// Snapshot adapts a plain slice to Reader.
type Snapshot []Transaction

func (s Snapshot) Transactions() []Transaction { return []Transaction(s) }
